package similarity

import (
	"math"
	"testing"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "identical", a: "capability statement", b: "capability statement", want: 1},
		{name: "both_empty", a: "", b: "", want: 1},
		{name: "left_empty", a: "", b: "x", want: 0},
		{name: "right_empty", a: "x", b: "", want: 0},
		{name: "one_substitution", a: "kitten", b: "sitten", want: 5.0 / 6.0},
		{name: "classic_kitten_sitting", a: "kitten", b: "sitting", want: 4.0 / 7.0},
		{name: "completely_different", a: "abc", b: "xyz", want: 0},
		{name: "case_sensitive", a: "DoD", b: "dod", want: 1.0 / 3.0},
		{name: "multibyte_runes", a: "café", b: "cafe", want: 3.0 / 4.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ratio(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Ratio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestRatioSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"past performance", "past performances"},
		{"network security", "security network"},
		{"", "abc"},
		{"résumé", "resume"},
	}
	for _, p := range pairs {
		if Ratio(p[0], p[1]) != Ratio(p[1], p[0]) {
			t.Errorf("Ratio not symmetric for %q / %q", p[0], p[1])
		}
	}
}

func TestRatioBounds(t *testing.T) {
	inputs := []string{"", "a", "ab", "proposal", "technical approach", "zzzzzzzzzzzz"}
	for _, a := range inputs {
		for _, b := range inputs {
			got := Ratio(a, b)
			if got < 0 || got > 1 {
				t.Errorf("Ratio(%q, %q) = %v out of [0,1]", a, b, got)
			}
		}
	}
}
