package language

import "unicode"

// Info is the result of script-based detection over a text sample.
type Info struct {
	Code           string
	SpaceSeparated bool
}

// scriptGuess maps a dominant script to the most likely language carried by
// it. Latin and Cyrillic cover too many languages to pick one, but every
// language written in them is space-separated, which is all the tokenizer
// needs to know.
type scriptGuess struct {
	ranges         []*unicode.RangeTable
	code           string
	spaceSeparated bool
}

var scriptGuesses = []scriptGuess{
	{[]*unicode.RangeTable{unicode.Hiragana, unicode.Katakana}, "ja", false},
	{[]*unicode.RangeTable{unicode.Han}, "zh", false},
	{[]*unicode.RangeTable{unicode.Hangul}, "ko", true},
	{[]*unicode.RangeTable{unicode.Thai}, "th", false},
	{[]*unicode.RangeTable{unicode.Lao}, "lo", false},
	{[]*unicode.RangeTable{unicode.Khmer}, "km", false},
	{[]*unicode.RangeTable{unicode.Myanmar}, "my", false},
	{[]*unicode.RangeTable{unicode.Arabic}, "ar", true},
	{[]*unicode.RangeTable{unicode.Hebrew}, "he", true},
	{[]*unicode.RangeTable{unicode.Devanagari}, "hi", true},
	{[]*unicode.RangeTable{unicode.Greek}, "el", true},
	{[]*unicode.RangeTable{unicode.Cyrillic}, "ru", true},
	{[]*unicode.RangeTable{unicode.Latin}, Unknown, true},
}

// Detect classifies the dominant script across the supplied samples and
// returns the language guess plus the word-delimiter property. Hiragana or
// katakana anywhere in a Han-dominant sample flips the guess to Japanese,
// since Japanese text is usually mostly kanji by rune count.
//
// Empty or scriptless input yields Unknown with SpaceSeparated false, so
// callers fall back to the finer tokenization rule.
func Detect(samples []string) Info {
	counts := make([]int, len(scriptGuesses))
	kana := 0
	for _, sample := range samples {
		for _, r := range sample {
			for i, guess := range scriptGuesses {
				if inAny(r, guess.ranges) {
					counts[i]++
					if guess.code == "ja" {
						kana++
					}
					break
				}
			}
		}
	}

	best, bestCount := -1, 0
	for i, count := range counts {
		if count > bestCount {
			best, bestCount = i, count
		}
	}
	if best < 0 {
		return Info{Code: Unknown, SpaceSeparated: false}
	}

	guess := scriptGuesses[best]
	if guess.code == "zh" && kana > 0 {
		return Info{Code: "ja", SpaceSeparated: false}
	}
	return Info{Code: guess.code, SpaceSeparated: guess.spaceSeparated}
}

func inAny(r rune, tables []*unicode.RangeTable) bool {
	for _, table := range tables {
		if unicode.In(r, table) {
			return true
		}
	}
	return false
}
