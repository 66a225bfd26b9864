package references

import (
	"context"
	"errors"
	"testing"
	"time"

	"proposal-ranker/entities"
	apperrors "proposal-ranker/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const org = "org-1"

var now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

type failingStore struct{}

func (failingStore) Proposals(context.Context, entities.ProposalFilter) ([]entities.Proposal, error) {
	return nil, apperrors.ErrEntityStore
}

func (failingStore) QualityFeedback(context.Context, string, int) ([]entities.QualityFeedback, error) {
	return nil, nil
}

func fixtures() entities.Fixtures {
	return entities.Fixtures{
		Proposals: []entities.Proposal{
			{ID: "cur", OrganizationID: org, ProposalName: "Current", Status: entities.StatusWon, CreatedDate: now.AddDate(0, 0, -1)},
			{ID: "a", OrganizationID: org, ProposalName: "Border Analytics", AgencyName: "CBP", Status: entities.StatusWon, CreatedDate: time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC)},
			{ID: "b", OrganizationID: org, ProposalName: "Grants Portal", Status: entities.StatusSubmitted, CreatedDate: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "c", OrganizationID: org, ProposalName: "Legacy Help Desk", Status: entities.StatusLost, CreatedDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "d", OrganizationID: org, ProposalName: "In Progress", Status: "draft", CreatedDate: now},
			{ID: "e", OrganizationID: "org-2", ProposalName: "Elsewhere", Status: entities.StatusWon, CreatedDate: now},
		},
		QualityFeedback: []entities.QualityFeedback{
			{ID: "f1", OrganizationID: org, ReferenceProposalIDs: []string{"a", "b"}, SectionType: "technical", QualityRating: 4.5, CreatedDate: now},
			{ID: "f2", OrganizationID: org, ReferenceProposalIDs: []string{"a"}, SectionType: "management", QualityRating: 4.0, CreatedDate: now},
			{ID: "f3", OrganizationID: org, ReferenceProposalIDs: []string{"a", "a"}, SectionType: "Technical", QualityRating: 3.5, CreatedDate: now},
			{ID: "f4", OrganizationID: "org-2", ReferenceProposalIDs: []string{"c"}, QualityRating: 5, CreatedDate: now},
		},
	}
}

func newTestSelector(store Store) *Selector {
	s := NewSelector(store, Config{Weights: DefaultWeights(), CandidateLimit: 500}, nil)
	s.now = func() time.Time { return now }
	return s
}

func proposalIDs(refs []Reference) []string {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ProposalID
	}
	return ids
}

func TestSelect_SectionAware(t *testing.T) {
	s := newTestSelector(entities.NewMemoryStore(fixtures()))
	sel, err := s.Select(context.Background(), SelectRequest{
		OrganizationID:    org,
		CurrentProposalID: "cur",
		SectionType:       "technical",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, proposalIDs(sel.References))
	assert.Empty(t, sel.Reason)

	top := sel.References[0]
	assert.Equal(t, 1, top.Rank)
	assert.InDelta(t, 256, top.Metadata.RawScore, 1e-9)
	assert.Equal(t, 100, top.ConfidenceScore)
	assert.Equal(t, 3, top.Metadata.UsageCount)
	assert.InDelta(t, 4.0, top.Metadata.AverageRating, 1e-9)
	assert.InDelta(t, 4.0, top.Metadata.SectionRating, 1e-9)
	assert.Equal(t, 0, top.Metadata.MonthsSinceCreated)
	assert.Equal(t,
		"Winning proposal, high quality (4.0⭐), strong technical content (4.0⭐), proven track record (3 uses), recent",
		top.RecommendationReason)

	second := sel.References[1]
	assert.InDelta(t, 213.5, second.Metadata.RawScore, 1e-9)
	assert.Equal(t, 6, second.Metadata.MonthsSinceCreated)
	assert.Equal(t, "Submitted proposal, high quality (4.5⭐), strong technical content (4.5⭐), recent", second.RecommendationReason)

	last := sel.References[2]
	assert.Equal(t, 3, last.Rank)
	assert.Equal(t, 25, last.ConfidenceScore)
	assert.Equal(t, "Available reference from past work", last.RecommendationReason)

	assert.Equal(t, 3, sel.Metadata.TotalCandidates)
	assert.Equal(t, 3, sel.Metadata.FeedbackEntries)
	assert.True(t, sel.Metadata.PrioritizeWinners)
}

func TestSelect_Scoring(t *testing.T) {
	off := false
	tests := []struct {
		name      string
		req       SelectRequest
		wantIDs   []string
		wantRaw   []float64
		wantLimit int
	}{
		{
			name:      "no_section",
			req:       SelectRequest{OrganizationID: org, CurrentProposalID: "cur"},
			wantIDs:   []string{"a", "b", "c"},
			wantRaw:   []float64{196, 146, 25},
			wantLimit: 5,
		},
		{
			name:      "flat_status_ties_break_on_recency",
			req:       SelectRequest{OrganizationID: org, CurrentProposalID: "cur", PrioritizeWinners: &off},
			wantIDs:   []string{"a", "b", "c"},
			wantRaw:   []float64{146, 146, 50},
			wantLimit: 5,
		},
		{
			name:      "max_references",
			req:       SelectRequest{OrganizationID: org, CurrentProposalID: "cur", MaxReferences: 2},
			wantIDs:   []string{"a", "b"},
			wantRaw:   []float64{196, 146},
			wantLimit: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := newTestSelector(entities.NewMemoryStore(fixtures())).Select(context.Background(), tt.req)
			require.NoError(t, err)
			require.Equal(t, tt.wantIDs, proposalIDs(sel.References))
			for i, ref := range sel.References {
				assert.InDelta(t, tt.wantRaw[i], ref.Metadata.RawScore, 1e-9)
				assert.Equal(t, i+1, ref.Rank)
				assert.GreaterOrEqual(t, ref.ConfidenceScore, 0)
				assert.LessOrEqual(t, ref.ConfidenceScore, 100)
				assert.Contains(t, []string{entities.StatusWon, entities.StatusSubmitted, entities.StatusLost}, ref.Status)
			}
			assert.Equal(t, tt.wantLimit, sel.Metadata.MaxReferences)
			assert.LessOrEqual(t, len(sel.References), tt.wantLimit)
		})
	}
}

func TestSelect_Deterministic(t *testing.T) {
	s := newTestSelector(entities.NewMemoryStore(fixtures()))
	req := SelectRequest{OrganizationID: org, CurrentProposalID: "cur", SectionType: "technical"}

	first, err := s.Select(context.Background(), req)
	require.NoError(t, err)
	second, err := s.Select(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, proposalIDs(first.References), proposalIDs(second.References))
	assert.Equal(t, first.References, second.References)
}

func TestSelect_NoCandidates(t *testing.T) {
	s := newTestSelector(entities.NewMemoryStore(entities.Fixtures{
		Proposals: []entities.Proposal{{ID: "d", OrganizationID: org, Status: "draft", CreatedDate: now}},
	}))
	sel, err := s.Select(context.Background(), SelectRequest{OrganizationID: org})
	require.NoError(t, err)
	assert.Empty(t, sel.References)
	assert.NotNil(t, sel.References)
	assert.Equal(t, ReasonNoCandidates, sel.Reason)
}

func TestSelect_Errors(t *testing.T) {
	_, err := newTestSelector(entities.NewMemoryStore(fixtures())).Select(context.Background(), SelectRequest{})
	assert.EqualError(t, err, "organization_id required")

	_, err = newTestSelector(failingStore{}).Select(context.Background(), SelectRequest{OrganizationID: org})
	assert.True(t, errors.Is(err, apperrors.ErrEntityStore))
}
