package utils

import (
	"strings"
	"time"
	"unicode/utf8"
)

// minTermLength is the rune count a token must exceed to count as a query term.
const minTermLength = 3

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// Tokenize lower-cases s and splits it on whitespace.
func Tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// QueryTerms returns the lower-cased whitespace tokens of s longer than three runes.
func QueryTerms(s string) []string {
	tokens := Tokenize(s)
	terms := tokens[:0]
	for _, tok := range tokens {
		if IsTerm(tok) {
			terms = append(terms, tok)
		}
	}
	return terms
}

// IsTerm reports whether a token is long enough to carry meaning.
func IsTerm(token string) bool {
	return utf8.RuneCountInString(token) > minTermLength
}

// NormalizeKey trims and lower-cases an identifier-like value.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CountContained returns how many terms occur as substrings of text. text
// is expected to be lower-cased already.
func CountContained(terms []string, text string) int {
	found := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			found++
		}
	}
	return found
}

// FractionContained returns the share of terms that occur as substrings of
// text.
func FractionContained(terms []string, text string) float64 {
	if len(terms) == 0 || text == "" {
		return 0
	}
	return float64(CountContained(terms, text)) / float64(len(terms))
}

// ParseDate accepts the date formats the entity store emits.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
