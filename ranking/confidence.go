package ranking

// Confidence is a coarse bucket derived from a score via fixed breakpoints.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Tiers holds the inclusive lower bounds of the high and medium buckets.
type Tiers struct {
	High   float64 `mapstructure:"high" json:"high"`
	Medium float64 `mapstructure:"medium" json:"medium"`
}

// Classify maps a score onto a confidence bucket.
func (t Tiers) Classify(score float64) Confidence {
	switch {
	case score >= t.High:
		return ConfidenceHigh
	case score >= t.Medium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
