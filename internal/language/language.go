package language

import (
	"strings"

	"golang.org/x/text/cases"
	xlang "golang.org/x/text/language"

	"bookforge/internal/book"
)

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // Human-readable name
	words   []string // Full word forms (e.g. "english")
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}},
	{"he", "heb", "", "Hebrew", []string{"hebrew"}},
	{"ar", "ara", "", "Arabic", []string{"arabic"}},
	{"fa", "fas", "per", "Persian", []string{"persian", "farsi"}},
	{"ur", "urd", "", "Urdu", []string{"urdu"}},
	{"yi", "yid", "", "Yiddish", []string{"yiddish"}},
	{"es", "spa", "", "Spanish", []string{"spanish"}},
	{"fr", "fra", "fre", "French", []string{"french"}},
	{"de", "deu", "ger", "German", []string{"german"}},
	{"it", "ita", "", "Italian", []string{"italian"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"nl", "nld", "dut", "Dutch", []string{"dutch"}},
	{"pl", "pol", "", "Polish", []string{"polish"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese"}},
}

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

// ToISO2 converts any recognized language code or word to ISO 639-1 (2-letter).
// BCP 47 tags such as "he-IL" reduce to their base language. Returns empty
// string for unrecognized input.
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	tag, err := xlang.Parse(code)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(ToISO2(code)); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

var rtlScripts = map[string]struct{}{
	"Arab": {}, "Hebr": {}, "Thaa": {}, "Syrc": {}, "Nkoo": {}, "Adlm": {}, "Rohg": {}, "Mand": {}, "Samr": {},
}

// Direction derives the writing direction from the language's script. Unknown
// or empty codes read left to right.
func Direction(code string) book.Direction {
	iso := ToISO2(code)
	if iso == "" {
		return book.LeftToRight
	}
	tag, err := xlang.Parse(iso)
	if err != nil {
		return book.LeftToRight
	}
	script, _ := tag.Script()
	if _, ok := rtlScripts[script.String()]; ok {
		return book.RightToLeft
	}
	return book.LeftToRight
}

// Title applies the language's title-casing rules to s.
func Title(code, s string) string {
	tag := xlang.Und
	if iso := ToISO2(code); iso != "" {
		if parsed, err := xlang.Parse(iso); err == nil {
			tag = parsed
		}
	}
	return cases.Title(tag).String(strings.TrimSpace(s))
}
