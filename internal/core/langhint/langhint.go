// Package langhint guesses the dominant script of a text and, where the script settles it, its language
//
// The stop word and connective features only read English, so callers use the hint to tell a low
// score on foreign prose apart from a low score on plain English
package langhint

import (
	"unicode"

	"golang.org/x/text/language"
)

// MinLetters is the letter count below which no language is guessed
const MinLetters = 20

// Hint is the script and optional BCP 47 language of a text
type Hint struct {
	Script  string  `json:"script,omitempty"`
	Lang    string  `json:"lang,omitempty"`
	Letters int     `json:"letters"`
	Share   float64 `json:"share"`
}

type script struct {
	name  string
	table *unicode.RangeTable
	lang  string
}

// order breaks ties; Latin goes last so any specific script beats it
var scripts = []script{
	{"Hiragana", unicode.Hiragana, "ja"},
	{"Katakana", unicode.Katakana, "ja"},
	{"Hangul", unicode.Hangul, "ko"},
	{"Han", unicode.Han, ""},
	{"Arabic", unicode.Arabic, "ar"},
	{"Hebrew", unicode.Hebrew, "he"},
	{"Thai", unicode.Thai, "th"},
	{"Greek", unicode.Greek, "el"},
	{"Cyrillic", unicode.Cyrillic, ""},
	{"Georgian", unicode.Georgian, "ka"},
	{"Armenian", unicode.Armenian, "hy"},
	{"Devanagari", unicode.Devanagari, ""},
	{"Latin", unicode.Latin, ""},
}

const kanaEnd = 2

// Detect counts letters per script and picks the largest
// Han, Cyrillic, Devanagari and Latin are shared by many languages and leave Lang empty,
// except that any kana makes Han text Japanese
func Detect(s string) Hint {
	counts := make([]int, len(scripts))
	letters := 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		for i, sc := range scripts {
			if unicode.Is(sc.table, r) {
				counts[i]++
				break
			}
		}
	}

	h := Hint{Letters: letters}
	best := -1
	for i, c := range counts {
		if c > 0 && (best < 0 || c > counts[best]) {
			best = i
		}
	}
	if best < 0 {
		return h
	}
	h.Script = scripts[best].name
	h.Share = float64(counts[best]) / float64(letters)

	if letters < MinLetters {
		return h
	}
	kana := 0
	for _, c := range counts[:kanaEnd] {
		kana += c
	}
	code := scripts[best].lang
	if kana > 0 && (best < kanaEnd || scripts[best].name == "Han") {
		code = "ja"
	}
	if code != "" {
		h.Lang = language.Make(code).String()
	}
	return h
}

// Latin reports whether Latin letters dominate
func (h Hint) Latin() bool { return h.Script == "Latin" }
