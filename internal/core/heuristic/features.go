package heuristic

import (
	"math"
	"strings"
	"unicode"
)

// MaxTextRunes caps text input before feature extraction
const MaxTextRunes = 20000

var stopWords = map[string]struct{}{
	"the": {}, "of": {}, "and": {}, "to": {}, "in": {},
	"that": {}, "is": {}, "with": {}, "as": {}, "for": {},
	"on": {}, "it": {}, "this": {}, "by": {}, "from": {},
}

// Features are the raw statistics the structural estimator combines
type Features struct {
	Tokens      int     `json:"tokens"`
	Sentences   int     `json:"sentences"`
	TypeToken   float64 `json:"type_token"`
	AvgSentence float64 `json:"avg_sentence"`
	Punctuation float64 `json:"punctuation"`
	StopWords   float64 `json:"stop_words"`
	Repetition  float64 `json:"repetition"`
	Entropy     float64 `json:"entropy"`
}

// Words lowercases s and returns runs of letters and apostrophes
func Words(s string) []string {
	var out []string
	start := -1
	lower := strings.ToLower(s)
	for i, r := range lower {
		if unicode.IsLetter(r) || r == '\'' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, lower[start:i])
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, lower[start:])
	}
	return out
}

// Sentences counts non blank segments between runs of terminal punctuation
func Sentences(s string) int {
	n := 0
	blank := true
	for _, r := range s {
		switch {
		case r == '.' || r == '!' || r == '?':
			if !blank {
				n++
			}
			blank = true
		case !unicode.IsSpace(r):
			blank = false
		}
	}
	if !blank {
		n++
	}
	return n
}

// TypeTokenRatio is unique tokens over total tokens; zero tokens yields 0
func TypeTokenRatio(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}
	return float64(len(seen)) / float64(len(words))
}

// Repetition is the share of 3-gram occurrences whose 3-gram appears more than once
func Repetition(words []string) float64 {
	const n = 3
	if len(words) < n {
		return 0
	}
	counts := map[string]int{}
	total := 0
	for i := 0; i+n <= len(words); i++ {
		counts[strings.Join(words[i:i+n], " ")]++
		total++
	}
	reps := 0
	for _, c := range counts {
		if c > 1 {
			reps += c
		}
	}
	return float64(reps) / float64(total)
}

// Entropy is the character level Shannon entropy of s in bits
func Entropy(s string) float64 {
	counts := map[rune]int{}
	n := 0
	for _, r := range s {
		counts[r]++
		n++
	}
	if n == 0 {
		return 0
	}
	h := 0.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		h -= p * math.Log2(p)
	}
	return h
}

// Extract computes Features over already normalized text
func Extract(text string) Features {
	words := Words(text)
	sents := Sentences(text)
	den := float64(max(len(words), 1))

	punct, stop := 0, 0
	for _, r := range text {
		switch r {
		case ',', ':', ';', '(', ')':
			punct++
		}
	}
	for _, w := range words {
		if _, ok := stopWords[w]; ok {
			stop++
		}
	}

	return Features{
		Tokens:      len(words),
		Sentences:   sents,
		TypeToken:   TypeTokenRatio(words),
		AvgSentence: float64(len(words)) / float64(max(sents, 1)),
		Punctuation: float64(punct) / den,
		StopWords:   float64(stop) / den,
		Repetition:  Repetition(words),
		Entropy:     Entropy(text),
	}
}
