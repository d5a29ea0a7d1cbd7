package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	code2   string   // ISO 639-1 (2-letter), empty when none exists
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // Track-facing name
	words   []string // Full word forms (e.g. "english")
}

// Release tracks use a handful of languages; anything else goes through
// x/text.
var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}},
	{"", "enm", "", "English (Honorifics)", []string{"honorifics"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"es", "spa", "", "Spanish", []string{"spanish"}},
	{"fr", "fra", "fre", "French", []string{"french"}},
	{"de", "deu", "ger", "German", []string{"german"}},
	{"it", "ita", "", "Italian", []string{"italian"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}},
	{"ko", "kor", "", "Korean", []string{"korean"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"ar", "ara", "", "Arabic", []string{"arabic"}},
}

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
		if e.code2 != "" {
			byCode2[e.code2] = e
		}
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

func parseBase(code string) (xlanguage.Base, bool) {
	base, err := xlanguage.ParseBase(code)
	if err != nil {
		return xlanguage.Base{}, false
	}
	return base, true
}

// ToISO3 converts a language code to the ISO 639-2 form mkvmerge expects.
// Unknown 3-letter codes pass through; other unrecognized input becomes "und".
func ToISO3(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "und"
	}
	if e := lookup(code); e != nil {
		return e.code3
	}
	if len(code) == 3 {
		return code
	}
	if tag, err := xlanguage.Parse(code); err == nil {
		base, _ := tag.Base()
		if iso3 := base.ISO3(); iso3 != "" && iso3 != "und" {
			return iso3
		}
	}
	return "und"
}

// Valid reports whether code names a known language.
func Valid(code string) bool {
	if lookup(code) != nil {
		return true
	}
	_, ok := parseBase(strings.ToLower(strings.TrimSpace(code)))
	return ok
}

// DisplayName returns a human-readable language name. Empty input yields
// "Unknown" and unrecognized input the uppercased code.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	if e := lookup(trimmed); e != nil {
		return e.display
	}
	if len(trimmed) == 2 {
		if base, ok := parseBase(strings.ToLower(trimmed)); ok {
			if name := display.English.Languages().Name(base); name != "" {
				return name
			}
		}
	}
	return strings.ToUpper(trimmed)
}

// ExtractFromTags extracts and normalizes the language from stream metadata tags.
// Checks common tag keys: language, LANGUAGE, Language, language_ietf, lang, LANG.
func ExtractFromTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"}
	for _, key := range keys {
		if value, ok := tags[key]; ok {
			value = strings.TrimSpace(strings.ReplaceAll(value, "\u0000", ""))
			if value != "" {
				return strings.ToLower(value)
			}
		}
	}
	return ""
}
