// Package references picks the past proposals most worth feeding to AI
// drafting as reference material.
package references

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"proposal-ranker/entities"
	apperrors "proposal-ranker/errors"
	"proposal-ranker/ranking"
	"proposal-ranker/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ReasonNoCandidates is reported when no proposal qualifies.
const ReasonNoCandidates = "no_candidates"

// eligibleStatuses are the proposal statuses that can serve as references.
var eligibleStatuses = []string{entities.StatusWon, entities.StatusSubmitted, entities.StatusLost}

// Weights is the reference selection policy.
type Weights struct {
	StatusWon             float64 `mapstructure:"status_won"`
	StatusSubmitted       float64 `mapstructure:"status_submitted"`
	StatusLost            float64 `mapstructure:"status_lost"`
	UnprioritizedStatus   float64 `mapstructure:"unprioritized_status"`
	QualityFactor         float64 `mapstructure:"quality_factor"`
	SectionQualityFactor  float64 `mapstructure:"section_quality_factor"`
	UsagePoints           float64 `mapstructure:"usage_points"`
	UsageCap              float64 `mapstructure:"usage_cap"`
	RecencyMonths         float64 `mapstructure:"recency_months"`
	HighQualityRating     float64 `mapstructure:"high_quality_rating"`
	ProvenTrackRecordUses int     `mapstructure:"proven_track_record_uses"`
	MaxReferences         int     `mapstructure:"max_references"`
}

func DefaultWeights() Weights {
	return Weights{
		StatusWon:             100,
		StatusSubmitted:       50,
		StatusLost:            25,
		UnprioritizedStatus:   50,
		QualityFactor:         20,
		SectionQualityFactor:  15,
		UsagePoints:           2,
		UsageCap:              20,
		RecencyMonths:         10,
		HighQualityRating:     4,
		ProvenTrackRecordUses: 3,
		MaxReferences:         5,
	}
}

type Config struct {
	Weights        Weights
	CandidateLimit int
}

// Store is the part of the entity store the selector reads.
type Store interface {
	Proposals(ctx context.Context, filter entities.ProposalFilter) ([]entities.Proposal, error)
	QualityFeedback(ctx context.Context, organizationID string, limit int) ([]entities.QualityFeedback, error)
}

type Selector struct {
	store  Store
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func NewSelector(store Store, cfg Config, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{store: store, cfg: cfg, logger: logger, now: time.Now}
}

type SelectRequest struct {
	OrganizationID    string `json:"organization_id"`
	CurrentProposalID string `json:"current_proposal_id,omitempty"`
	SectionType       string `json:"section_type,omitempty"`
	MaxReferences     int    `json:"max_references,omitempty"`
	PrioritizeWinners *bool  `json:"prioritize_winners,omitempty"`
}

func (r SelectRequest) Validate() error {
	if missing := utils.MissingFields(utils.Field{Name: "organization_id", Value: r.OrganizationID}); len(missing) > 0 {
		return apperrors.Required(missing...)
	}
	return nil
}

type ReferenceMetadata struct {
	CreatedDate        time.Time `json:"created_date"`
	RawScore           float64   `json:"raw_score"`
	AverageRating      float64   `json:"average_rating,omitempty"`
	SectionRating      float64   `json:"section_rating,omitempty"`
	UsageCount         int       `json:"usage_count"`
	MonthsSinceCreated int       `json:"months_since_created"`
}

type Reference struct {
	ProposalID           string            `json:"proposal_id"`
	ProposalName         string            `json:"proposal_name"`
	Status               string            `json:"status"`
	AgencyName           string            `json:"agency_name,omitempty"`
	ConfidenceScore      int               `json:"confidence_score"`
	Rank                 int               `json:"rank"`
	RecommendationReason string            `json:"recommendation_reason"`
	Metadata             ReferenceMetadata `json:"metadata"`
}

type SelectionMetadata struct {
	TotalCandidates   int    `json:"total_candidates"`
	FeedbackEntries   int    `json:"feedback_entries"`
	SectionType       string `json:"section_type,omitempty"`
	PrioritizeWinners bool   `json:"prioritize_winners"`
	MaxReferences     int    `json:"max_references"`
}

type Selection struct {
	References []Reference       `json:"references"`
	Reason     string            `json:"reason,omitempty"`
	Metadata   SelectionMetadata `json:"metadata"`
}

// feedbackStats aggregates the feedback that cited one proposal.
type feedbackStats struct {
	ratingSum    float64
	uses         int
	sectionSum   float64
	sectionRated int
}

func (f feedbackStats) average() float64 {
	if f.uses == 0 {
		return 0
	}
	return f.ratingSum / float64(f.uses)
}

func (f feedbackStats) sectionAverage() float64 {
	if f.sectionRated == 0 {
		return 0
	}
	return f.sectionSum / float64(f.sectionRated)
}

// Select scores the organization's finished proposals and returns the best
// references for the request.
func (s *Selector) Select(ctx context.Context, req SelectRequest) (*Selection, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	maxRefs := req.MaxReferences
	if maxRefs <= 0 {
		maxRefs = s.cfg.Weights.MaxReferences
	}
	prioritize := req.PrioritizeWinners == nil || *req.PrioritizeWinners

	var (
		proposals []entities.Proposal
		feedback  []entities.QualityFeedback
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		proposals, err = s.store.Proposals(gctx, entities.ProposalFilter{
			OrganizationID: req.OrganizationID,
			Statuses:       eligibleStatuses,
			ExcludeID:      req.CurrentProposalID,
			Limit:          s.cfg.CandidateLimit,
		})
		return apperrors.WrapError(err, "failed to load proposals")
	})
	g.Go(func() error {
		var err error
		feedback, err = s.store.QualityFeedback(gctx, req.OrganizationID, s.cfg.CandidateLimit)
		return apperrors.WrapError(err, "failed to load quality feedback")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	selection := &Selection{
		References: []Reference{},
		Metadata: SelectionMetadata{
			FeedbackEntries:   len(feedback),
			SectionType:       req.SectionType,
			PrioritizeWinners: prioritize,
			MaxReferences:     maxRefs,
		},
	}

	candidates := make([]ranking.Candidate[entities.Proposal], 0, len(proposals))
	for _, p := range proposals {
		if p.ID == req.CurrentProposalID || !isEligible(p.Status) {
			continue
		}
		candidates = append(candidates, ranking.Candidate[entities.Proposal]{
			Item:    p,
			Recency: p.CreatedDate,
			Order:   len(candidates),
		})
	}
	selection.Metadata.TotalCandidates = len(candidates)
	if len(candidates) == 0 {
		selection.Reason = ReasonNoCandidates
		return selection, nil
	}

	scorer := &referenceScorer{
		w:           s.cfg.Weights,
		prioritize:  prioritize,
		sectionType: utils.NormalizeKey(req.SectionType),
		stats:       aggregateFeedback(feedback, utils.NormalizeKey(req.SectionType)),
		now:         s.now(),
	}
	ranked := ranking.Rank(candidates, scorer.evaluate, ranking.Policy{MaxResults: maxRefs})

	for i, res := range ranked.Results {
		p := res.Item
		stats := scorer.stats[p.ID]
		selection.References = append(selection.References, Reference{
			ProposalID:           p.ID,
			ProposalName:         p.ProposalName,
			Status:               p.Status,
			AgencyName:           p.AgencyName,
			ConfidenceScore:      int(math.Round(min(max(res.Score, 0), 100))),
			Rank:                 i + 1,
			RecommendationReason: scorer.explain(p, stats),
			Metadata: ReferenceMetadata{
				CreatedDate:        p.CreatedDate,
				RawScore:           res.Score,
				AverageRating:      stats.average(),
				SectionRating:      stats.sectionAverage(),
				UsageCount:         stats.uses,
				MonthsSinceCreated: scorer.monthsSince(p.CreatedDate),
			},
		})
	}

	s.logger.Debug("Adaptive reference selection",
		zap.String("organization_id", req.OrganizationID),
		zap.String("section_type", req.SectionType),
		zap.Int("candidates", ranked.Evaluated),
		zap.Int("feedback_entries", len(feedback)),
		zap.Int("returned", len(selection.References)))

	return selection, nil
}

func isEligible(status string) bool {
	for _, s := range eligibleStatuses {
		if status == s {
			return true
		}
	}
	return false
}

func aggregateFeedback(feedback []entities.QualityFeedback, sectionType string) map[string]feedbackStats {
	stats := make(map[string]feedbackStats)
	for _, f := range feedback {
		inSection := sectionType != "" && utils.NormalizeKey(f.SectionType) == sectionType
		seen := make(map[string]struct{}, len(f.ReferenceProposalIDs))
		for _, id := range f.ReferenceProposalIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			st := stats[id]
			st.ratingSum += f.QualityRating
			st.uses++
			if inSection {
				st.sectionSum += f.QualityRating
				st.sectionRated++
			}
			stats[id] = st
		}
	}
	return stats
}

type referenceScorer struct {
	w           Weights
	prioritize  bool
	sectionType string
	stats       map[string]feedbackStats
	now         time.Time
}

func (s *referenceScorer) evaluate(p entities.Proposal) ranking.Evaluation {
	var card ranking.Scorecard
	card.Add("status", s.statusPoints(p.Status), "status "+p.Status)

	stats := s.stats[p.ID]
	if stats.uses > 0 {
		avg := stats.average()
		card.Add("quality", avg*s.w.QualityFactor, fmt.Sprintf("average rating %.1f", avg))
		card.Add("usage", min(float64(stats.uses)*s.w.UsagePoints, s.w.UsageCap), fmt.Sprintf("%d uses", stats.uses))
	}
	if s.sectionType != "" && stats.sectionRated > 0 {
		sectionAvg := stats.sectionAverage()
		card.Add("section_quality", sectionAvg*s.w.SectionQualityFactor, fmt.Sprintf("section rating %.1f", sectionAvg))
	}
	card.Add("recency", s.recencyBonus(p.CreatedDate), "recent")

	return ranking.Evaluation{Signals: card.Signals()}
}

func (s *referenceScorer) statusPoints(status string) float64 {
	if !s.prioritize {
		return s.w.UnprioritizedStatus
	}
	switch status {
	case entities.StatusWon:
		return s.w.StatusWon
	case entities.StatusSubmitted:
		return s.w.StatusSubmitted
	case entities.StatusLost:
		return s.w.StatusLost
	}
	return 0
}

// monthsSince counts whole 30-day months between created and now.
func (s *referenceScorer) monthsSince(created time.Time) int {
	if created.IsZero() || created.After(s.now) {
		return 0
	}
	return int(s.now.Sub(created).Hours() / 24 / 30)
}

func (s *referenceScorer) recencyBonus(created time.Time) float64 {
	if created.IsZero() {
		return 0
	}
	return max(0, s.w.RecencyMonths-float64(s.monthsSince(created)))
}

// explain turns the signals that fired into a sentence for the UI.
func (s *referenceScorer) explain(p entities.Proposal, stats feedbackStats) string {
	var parts []string

	switch p.Status {
	case entities.StatusWon:
		parts = append(parts, "winning proposal")
	case entities.StatusSubmitted:
		parts = append(parts, "submitted proposal")
	}

	if stats.uses > 0 {
		if avg := stats.average(); avg >= s.w.HighQualityRating {
			parts = append(parts, fmt.Sprintf("high quality (%.1f⭐)", avg))
		} else {
			parts = append(parts, fmt.Sprintf("rated %.1f⭐", avg))
		}
	}
	if s.sectionType != "" && stats.sectionRated > 0 && stats.sectionAverage() >= s.w.HighQualityRating {
		parts = append(parts, fmt.Sprintf("strong %s content (%.1f⭐)", s.sectionType, stats.sectionAverage()))
	}
	if stats.uses >= s.w.ProvenTrackRecordUses {
		parts = append(parts, fmt.Sprintf("proven track record (%d uses)", stats.uses))
	}
	if s.recencyBonus(p.CreatedDate) > 0 {
		parts = append(parts, "recent")
	}

	if len(parts) == 0 {
		return "Available reference from past work"
	}
	sentence := strings.Join(parts, ", ")
	return strings.ToUpper(sentence[:1]) + sentence[1:]
}
