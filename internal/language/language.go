package language

import (
	"strings"

	xlang "golang.org/x/text/language"
)

type entry struct {
	code2          string   // ISO 639-1 (2-letter)
	code3          string   // ISO 639-2 primary (3-letter)
	alt3           string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display        string   // Human-readable name
	words          []string // Full word forms (e.g. "english")
	spaceSeparated bool
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}, true},
	{"es", "spa", "", "Spanish", []string{"spanish"}, true},
	{"fr", "fra", "fre", "French", []string{"french"}, true},
	{"de", "deu", "ger", "German", []string{"german"}, true},
	{"it", "ita", "", "Italian", []string{"italian"}, true},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}, true},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}, false},
	{"ko", "kor", "", "Korean", []string{"korean"}, true},
	{"zh", "zho", "chi", "Chinese", []string{"chinese"}, false},
	{"ru", "rus", "", "Russian", []string{"russian"}, true},
	{"ar", "ara", "", "Arabic", []string{"arabic"}, true},
	{"hi", "hin", "", "Hindi", []string{"hindi"}, true},
	{"nl", "nld", "dut", "Dutch", []string{"dutch"}, true},
	{"pl", "pol", "", "Polish", []string{"polish"}, true},
	{"sv", "swe", "", "Swedish", []string{"swedish"}, true},
	{"da", "dan", "", "Danish", []string{"danish"}, true},
	{"no", "nor", "", "Norwegian", []string{"norwegian"}, true},
	{"fi", "fin", "", "Finnish", []string{"finnish"}, true},
	{"th", "tha", "", "Thai", []string{"thai"}, false},
	{"vi", "vie", "", "Vietnamese", []string{"vietnamese"}, true},
	{"el", "ell", "gre", "Greek", []string{"greek"}, true},
	{"he", "heb", "", "Hebrew", []string{"hebrew"}, true},
	{"tr", "tur", "", "Turkish", []string{"turkish"}, true},
}

// Unknown is the code returned when detection cannot identify a language.
const Unknown = "und"

// Index maps built at init time.
var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// Normalize converts a language code, BCP 47 tag, or language word to ISO
// 639-1. Returns Unknown for unrecognized input.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return Unknown
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	tag, err := xlang.Parse(code)
	if err != nil {
		return Unknown
	}
	base, conf := tag.Base()
	if conf == xlang.No {
		return Unknown
	}
	normalized := base.String()
	if e := lookup(normalized); e != nil {
		return e.code2
	}
	if len(normalized) == 2 {
		return normalized
	}
	return Unknown
}

// DisplayName returns a human-readable language name for any recognized
// code. Returns "Unknown" for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" || code == Unknown {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// SpaceSeparated reports whether the language writes words with explicit
// delimiters. Unrecognized codes report false so callers fall back to the
// finer tokenization rule.
func SpaceSeparated(code string) bool {
	if e := lookup(code); e != nil {
		return e.spaceSeparated
	}
	return false
}
