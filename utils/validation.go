package utils

import (
	"strings"
)

var fileNameStripper = strings.NewReplacer("_", "", " ", "", "-", "")

// NormalizeFileName lower-cases a file name and strips underscores, spaces
// and hyphens so "Past_Performance - 2024.pdf" and "pastperformance2024.pdf"
// compare equal.
func NormalizeFileName(name string) string {
	return fileNameStripper.Replace(strings.ToLower(name))
}

// Field pairs a request field name with its submitted value.
type Field struct {
	Name  string
	Value string
}

// MissingFields returns the names of fields whose values are blank.
func MissingFields(fields ...Field) []string {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			missing = append(missing, f.Name)
		}
	}
	return missing
}
