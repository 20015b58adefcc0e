// Package language provides language code normalization and the
// script-based detection used to pick a tokenization rule.
//
// Detection only has to answer two questions: which language a track is
// probably in, and whether that language writes words with explicit
// delimiters. Scripts without word delimiters (Han, kana, Thai and
// friends) need the finer whitespace-splitting tokenizer rule.
package language
