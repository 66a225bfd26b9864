// Package dedupe flags near-duplicate past-performance records and library
// resources before they are created.
//
// Checks are advisory. A passing check reserves nothing, so two concurrent
// submissions of the same record can both pass; uniqueness, if wanted, belongs
// to the write path of the entity store.
package dedupe

import (
	"context"

	"proposal-ranker/entities"

	"go.uber.org/zap"
)

// scoreCeiling bounds every duplicate score.
const scoreCeiling = 100

// Store is the part of the entity store the detector reads.
type Store interface {
	PastPerformance(ctx context.Context, organizationID string, limit int) ([]entities.PastPerformance, error)
	Resources(ctx context.Context, organizationID string, limit int) ([]entities.Resource, error)
}

// Config holds the detector's policy.
type Config struct {
	PastPerformance PastPerformanceWeights
	Resource        ResourceWeights
	// CandidateLimit bounds each candidate fetch.
	CandidateLimit int
}

type Detector struct {
	store  Store
	cfg    Config
	logger *zap.Logger
}

func NewDetector(store Store, cfg Config, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{store: store, cfg: cfg, logger: logger}
}
