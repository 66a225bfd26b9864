package entities

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sort"
	"sync"
	"time"

	apperrors "proposal-ranker/errors"
)

// Fixtures is the on-disk layout accepted by LoadFixtures.
type Fixtures struct {
	PastPerformance       []PastPerformance      `json:"past_performance"`
	Resources             []Resource             `json:"resources"`
	ContentChunks         []ContentChunk         `json:"content_chunks"`
	Proposals             []Proposal             `json:"proposals"`
	QualityFeedback       []QualityFeedback      `json:"quality_feedback"`
	SolicitationDocuments []SolicitationDocument `json:"solicitation_documents"`
}

// MemoryStore serves entities from memory. It backs local runs without a
// database and the pipeline tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data Fixtures
}

// NewMemoryStore creates a store holding a copy of fixtures.
func NewMemoryStore(fixtures Fixtures) *MemoryStore {
	return &MemoryStore{data: Fixtures{
		PastPerformance:       slices.Clone(fixtures.PastPerformance),
		Resources:             slices.Clone(fixtures.Resources),
		ContentChunks:         slices.Clone(fixtures.ContentChunks),
		Proposals:             slices.Clone(fixtures.Proposals),
		QualityFeedback:       slices.Clone(fixtures.QualityFeedback),
		SolicitationDocuments: slices.Clone(fixtures.SolicitationDocuments),
	}}
}

// LoadFixtures reads a JSON fixtures file into a MemoryStore.
func LoadFixtures(path string) (*MemoryStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	var fixtures Fixtures
	if err := json.Unmarshal(raw, &fixtures); err != nil {
		return nil, fmt.Errorf("failed to decode fixtures: %w", err)
	}
	return NewMemoryStore(fixtures), nil
}

func (m *MemoryStore) PastPerformance(_ context.Context, organizationID string, limit int) ([]PastPerformance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.data.PastPerformance, limit, func(r PastPerformance) (bool, time.Time, string) {
		return r.OrganizationID == organizationID, r.CreatedDate, r.ID
	}), nil
}

func (m *MemoryStore) Resources(_ context.Context, organizationID string, limit int) ([]Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.data.Resources, limit, func(r Resource) (bool, time.Time, string) {
		return r.OrganizationID == organizationID, r.CreatedDate, r.ID
	}), nil
}

func (m *MemoryStore) ContentChunks(_ context.Context, filter ChunkFilter) ([]ContentChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.data.ContentChunks, filter.Limit, func(c ContentChunk) (bool, time.Time, string) {
		keep := c.OrganizationID == filter.OrganizationID &&
			(filter.ExcludeProposalID == "" || c.ProposalID != filter.ExcludeProposalID) &&
			(filter.SectionType == "" || c.SectionType == filter.SectionType)
		return keep, c.CreatedDate, c.ID
	}), nil
}

func (m *MemoryStore) Proposal(_ context.Context, id string) (Proposal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.data.Proposals {
		if p.ID == id {
			return p, nil
		}
	}
	return Proposal{}, apperrors.NotFound("proposal", id)
}

func (m *MemoryStore) Proposals(_ context.Context, filter ProposalFilter) ([]Proposal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.data.Proposals, filter.Limit, func(p Proposal) (bool, time.Time, string) {
		keep := p.OrganizationID == filter.OrganizationID &&
			(filter.ExcludeID == "" || p.ID != filter.ExcludeID) &&
			(len(filter.Statuses) == 0 || slices.Contains(filter.Statuses, p.Status))
		return keep, p.CreatedDate, p.ID
	}), nil
}

func (m *MemoryStore) QualityFeedback(_ context.Context, organizationID string, limit int) ([]QualityFeedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.data.QualityFeedback, limit, func(f QualityFeedback) (bool, time.Time, string) {
		return f.OrganizationID == organizationID, f.CreatedDate, f.ID
	}), nil
}

func (m *MemoryStore) IngestedDocuments(_ context.Context, proposalID string, limit int) ([]SolicitationDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.data.SolicitationDocuments, limit, func(d SolicitationDocument) (bool, time.Time, string) {
		return d.ProposalID == proposalID && d.RAGIngested, d.CreatedDate, d.ID
	}), nil
}

// newestFirst filters records and orders them by created date desc, then id,
// matching the ORDER BY used against Postgres.
func newestFirst[T any](records []T, limit int, inspect func(T) (keep bool, created time.Time, id string)) []T {
	type row struct {
		rec     T
		created time.Time
		id      string
	}
	rows := make([]row, 0, len(records))
	for _, r := range records {
		keep, created, id := inspect(r)
		if keep {
			rows = append(rows, row{rec: r, created: created, id: id})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].created.Equal(rows[j].created) {
			return rows[i].created.After(rows[j].created)
		}
		return rows[i].id < rows[j].id
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = r.rec
	}
	return out
}
