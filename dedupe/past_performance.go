package dedupe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"proposal-ranker/entities"
	apperrors "proposal-ranker/errors"
	"proposal-ranker/ranking"
	"proposal-ranker/utils"

	"go.uber.org/zap"
)

// PastPerformanceQuery describes a record about to be created.
type PastPerformanceQuery struct {
	OrganizationID string `json:"organization_id"`
	Title          string `json:"title"`
	ContractNumber string `json:"contract_number,omitempty"`
	CustomerAgency string `json:"customer_agency,omitempty"`
	PopStartDate   string `json:"pop_start_date,omitempty"`
	PopEndDate     string `json:"pop_end_date,omitempty"`
	ExcludeID      string `json:"exclude_id,omitempty"`
}

func (q PastPerformanceQuery) Validate() error {
	missing := utils.MissingFields(
		utils.Field{Name: "organization_id", Value: q.OrganizationID},
		utils.Field{Name: "title", Value: q.Title},
	)
	if len(missing) > 0 {
		return apperrors.Required(missing...)
	}
	return nil
}

type PastPerformanceMatch struct {
	Record       entities.PastPerformance `json:"record"`
	MatchScore   float64                  `json:"match_score"`
	MatchReasons []string                 `json:"match_reasons"`
	Confidence   ranking.Confidence       `json:"confidence"`
}

type PastPerformanceReport struct {
	Duplicates                 []PastPerformanceMatch `json:"duplicates"`
	HasHighConfidenceDuplicate bool                   `json:"has_high_confidence_duplicate"`
	TotalFound                 int                    `json:"total_found"`
	Evaluated                  int                    `json:"-"`
}

// CheckPastPerformance scores the organization's past-performance records
// against q and returns the likely duplicates.
func (d *Detector) CheckPastPerformance(ctx context.Context, q PastPerformanceQuery) (*PastPerformanceReport, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	records, err := d.store.PastPerformance(ctx, q.OrganizationID, d.cfg.CandidateLimit)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to load past performance records")
	}

	candidates := make([]ranking.Candidate[entities.PastPerformance], 0, len(records))
	for _, rec := range records {
		if q.ExcludeID != "" && rec.ID == q.ExcludeID {
			continue
		}
		candidates = append(candidates, ranking.Candidate[entities.PastPerformance]{
			Item:    rec,
			Recency: rec.CreatedDate,
			Order:   len(candidates),
		})
	}

	w := d.cfg.PastPerformance
	scorer := newPastPerformanceScorer(q, w)
	ranked := ranking.Rank(candidates, scorer.evaluate, ranking.Policy{
		Accept:     ranking.Above(w.IncludeAbove),
		Ceiling:    scoreCeiling,
		Tiers:      &w.Tiers,
		MaxResults: w.MaxResults,
	})

	report := &PastPerformanceReport{
		Duplicates: make([]PastPerformanceMatch, 0, len(ranked.Results)),
		Evaluated:  ranked.Evaluated,
	}
	for _, res := range ranked.Results {
		report.Duplicates = append(report.Duplicates, PastPerformanceMatch{
			Record:       res.Item,
			MatchScore:   res.Score,
			MatchReasons: res.Reasons,
			Confidence:   res.Confidence,
		})
		if res.Confidence == ranking.ConfidenceHigh {
			report.HasHighConfidenceDuplicate = true
		}
	}
	report.TotalFound = len(report.Duplicates)

	d.logger.Debug("Past performance duplicate check",
		zap.String("organization_id", q.OrganizationID),
		zap.Int("candidates", ranked.Evaluated),
		zap.Int("matches", ranked.Matched),
		zap.Bool("high_confidence", report.HasHighConfidenceDuplicate))

	return report, nil
}

// pastPerformanceScorer holds the query normalized once per request.
type pastPerformanceScorer struct {
	w              PastPerformanceWeights
	contractNumber string
	title          string
	agency         string
	popStart       dateBound
	popEnd         dateBound
}

func newPastPerformanceScorer(q PastPerformanceQuery, w PastPerformanceWeights) *pastPerformanceScorer {
	return &pastPerformanceScorer{
		w:              w,
		contractNumber: utils.NormalizeKey(q.ContractNumber),
		title:          q.Title,
		agency:         utils.NormalizeKey(q.CustomerAgency),
		popStart:       parseBound(q.PopStartDate),
		popEnd:         parseBound(q.PopEndDate),
	}
}

func (s *pastPerformanceScorer) evaluate(rec entities.PastPerformance) ranking.Evaluation {
	var card ranking.Scorecard

	if s.contractNumber != "" && s.contractNumber == utils.NormalizeKey(rec.ContractNumber) {
		card.Add("contract_number", s.w.ContractNumberMatch, "Exact contract number match")
		return ranking.Evaluation{Signals: card.Signals()}
	}

	if sim := TitleSimilarity(s.title, rec.Title); sim > s.w.TitleSimilarityThreshold {
		card.Add("title", sim*s.w.TitleSimilarityFactor, fmt.Sprintf("Similar title (%.0f%% match)", sim))
	}

	if candAgency := utils.NormalizeKey(rec.CustomerAgency); s.agency != "" && candAgency != "" {
		switch {
		case s.agency == candAgency:
			card.Add("agency", s.w.AgencyExact, "Same customer agency")
		case strings.Contains(s.agency, candAgency) || strings.Contains(candAgency, s.agency):
			card.Add("agency", s.w.AgencyPartial, "Similar customer agency")
		}
	}

	candStart, candEnd := parseBound(rec.PopStartDate), parseBound(rec.PopEndDate)
	if s.popStart.ok && s.popEnd.ok && candStart.ok && candEnd.ok &&
		!s.popStart.t.After(candEnd.t) && !s.popEnd.t.Before(candStart.t) {
		card.Add("date_overlap", s.w.DateOverlap, "Overlapping period of performance")
	}

	return ranking.Evaluation{Signals: card.Signals()}
}

// TitleSimilarity returns the share of words shared by two titles on a 0-100
// scale: input words longer than three characters that also occur in the
// candidate, divided by the larger word count.
func TitleSimilarity(input, candidate string) float64 {
	inTokens := utils.Tokenize(input)
	candTokens := utils.Tokenize(candidate)
	denominator := max(len(inTokens), len(candTokens))
	if denominator == 0 {
		return 0
	}

	candSet := make(map[string]struct{}, len(candTokens))
	for _, tok := range candTokens {
		candSet[tok] = struct{}{}
	}

	common := 0
	for _, tok := range inTokens {
		if !utils.IsTerm(tok) {
			continue
		}
		if _, ok := candSet[tok]; ok {
			common++
		}
	}
	return float64(common) / float64(denominator) * 100
}

type dateBound struct {
	t  time.Time
	ok bool
}

func parseBound(s string) dateBound {
	t, ok := utils.ParseDate(s)
	return dateBound{t: t, ok: ok}
}
