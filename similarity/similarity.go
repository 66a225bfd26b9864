package similarity

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Ratio returns the Levenshtein similarity of a and b in [0,1]:
// (maxLen - distance) / maxLen, with lengths counted in runes.
// Callers normalize case and whitespace before calling.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}

	lenA := utf8.RuneCountInString(a)
	lenB := utf8.RuneCountInString(b)
	if lenA == 0 || lenB == 0 {
		return 0
	}

	longest := max(lenA, lenB)
	distance := levenshtein.ComputeDistance(a, b)
	return float64(longest-distance) / float64(longest)
}
