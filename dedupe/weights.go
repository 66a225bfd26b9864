package dedupe

import "proposal-ranker/ranking"

// PastPerformanceWeights is the scoring policy for past-performance records.
type PastPerformanceWeights struct {
	ContractNumberMatch      float64       `mapstructure:"contract_number_match"`
	TitleSimilarityThreshold float64       `mapstructure:"title_similarity_threshold"`
	TitleSimilarityFactor    float64       `mapstructure:"title_similarity_factor"`
	AgencyExact              float64       `mapstructure:"agency_exact"`
	AgencyPartial            float64       `mapstructure:"agency_partial"`
	DateOverlap              float64       `mapstructure:"date_overlap"`
	IncludeAbove             float64       `mapstructure:"include_above"`
	Tiers                    ranking.Tiers `mapstructure:"tiers"`
	MaxResults               int           `mapstructure:"max_results"`
}

// ResourceWeights is the scoring policy for library resources.
type ResourceWeights struct {
	FileNameExact            float64 `mapstructure:"file_name_exact"`
	FileNamePartial          float64 `mapstructure:"file_name_partial"`
	TitleExact               float64 `mapstructure:"title_exact"`
	TitleSimilar             float64 `mapstructure:"title_similar"`
	TitleSimilarityThreshold float64 `mapstructure:"title_similarity_threshold"`
	ResourceType             float64 `mapstructure:"resource_type"`
	FileSize                 float64 `mapstructure:"file_size"`
	FileSizeTolerance        float64 `mapstructure:"file_size_tolerance"`
	IncludeAtLeast           float64 `mapstructure:"include_at_least"`
	MaxResults               int     `mapstructure:"max_results"`
}

func DefaultPastPerformanceWeights() PastPerformanceWeights {
	return PastPerformanceWeights{
		ContractNumberMatch:      100,
		TitleSimilarityThreshold: 60,
		TitleSimilarityFactor:    0.5,
		AgencyExact:              30,
		AgencyPartial:            20,
		DateOverlap:              20,
		IncludeAbove:             40,
		Tiers:                    ranking.Tiers{High: 80, Medium: 60},
		MaxResults:               5,
	}
}

func DefaultResourceWeights() ResourceWeights {
	return ResourceWeights{
		FileNameExact:            50,
		FileNamePartial:          30,
		TitleExact:               30,
		TitleSimilar:             20,
		TitleSimilarityThreshold: 0.7,
		ResourceType:             10,
		FileSize:                 10,
		FileSizeTolerance:        0.01,
		IncludeAtLeast:           40,
		MaxResults:               5,
	}
}
