// Package tokenize splits subtitle line text into the sub-sentence tokens
// the alignment engine works over.
//
// Two rules exist. Space-separated languages split only at punctuation,
// with the punctuation kept attached to the end of the preceding token.
// Languages without word delimiters additionally split at every whitespace
// run so adjacent logical words never fuse into one token. Separators are
// recorded on each token, so any contiguous token range can reproduce its
// source text exactly.
package tokenize
