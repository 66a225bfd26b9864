package dedupe

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"proposal-ranker/entities"
	apperrors "proposal-ranker/errors"
	"proposal-ranker/ranking"
	"proposal-ranker/similarity"
	"proposal-ranker/utils"

	"go.uber.org/zap"
)

// ResourceQuery describes a library resource about to be uploaded.
type ResourceQuery struct {
	OrganizationID string `json:"organization_id"`
	FileName       string `json:"file_name"`
	Title          string `json:"title"`
	ResourceType   string `json:"resource_type,omitempty"`
	FileSize       int64  `json:"file_size,omitempty"`
}

func (q ResourceQuery) Validate() error {
	missing := utils.MissingFields(
		utils.Field{Name: "organization_id", Value: q.OrganizationID},
		utils.Field{Name: "file_name", Value: q.FileName},
		utils.Field{Name: "title", Value: q.Title},
	)
	if len(missing) > 0 {
		return apperrors.Required(missing...)
	}
	return nil
}

type ResourceMatch struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	FileName        string    `json:"file_name"`
	ResourceType    string    `json:"resource_type"`
	SimilarityScore float64   `json:"similarity_score"`
	MatchReason     string    `json:"match_reason"`
	CreatedDate     time.Time `json:"created_date"`
	UsageCount      int       `json:"usage_count"`
}

type ResourceReport struct {
	HasDuplicates  bool            `json:"has_duplicates"`
	Duplicates     []ResourceMatch `json:"duplicates"`
	CheckedAgainst int             `json:"checked_against"`
}

// CheckResource scores the organization's library resources against q.
func (d *Detector) CheckResource(ctx context.Context, q ResourceQuery) (*ResourceReport, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	resources, err := d.store.Resources(ctx, q.OrganizationID, d.cfg.CandidateLimit)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to load resources")
	}

	candidates := make([]ranking.Candidate[entities.Resource], len(resources))
	for i, r := range resources {
		candidates[i] = ranking.Candidate[entities.Resource]{Item: r, Recency: r.CreatedDate, Order: i}
	}

	w := d.cfg.Resource
	scorer := newResourceScorer(q, w)
	ranked := ranking.Rank(candidates, scorer.evaluate, ranking.Policy{
		Accept:     ranking.AtLeast(w.IncludeAtLeast),
		Ceiling:    scoreCeiling,
		MaxResults: w.MaxResults,
	})

	report := &ResourceReport{
		Duplicates:     make([]ResourceMatch, 0, len(ranked.Results)),
		CheckedAgainst: len(resources),
	}
	for _, res := range ranked.Results {
		report.Duplicates = append(report.Duplicates, ResourceMatch{
			ID:              res.Item.ID,
			Title:           res.Item.Title,
			FileName:        res.Item.FileName,
			ResourceType:    res.Item.ResourceType,
			SimilarityScore: res.Score,
			MatchReason:     strings.Join(res.Reasons, ", "),
			CreatedDate:     res.Item.CreatedDate,
			UsageCount:      res.Item.UsageCount,
		})
	}
	report.HasDuplicates = len(report.Duplicates) > 0

	d.logger.Debug("Resource duplicate check",
		zap.String("organization_id", q.OrganizationID),
		zap.String("file_name", q.FileName),
		zap.Int("checked_against", report.CheckedAgainst),
		zap.Int("matches", ranked.Matched))

	return report, nil
}

type resourceScorer struct {
	w            ResourceWeights
	fileName     string
	title        string
	resourceType string
	fileSize     int64
}

func newResourceScorer(q ResourceQuery, w ResourceWeights) *resourceScorer {
	return &resourceScorer{
		w:            w,
		fileName:     utils.NormalizeFileName(q.FileName),
		title:        utils.NormalizeKey(q.Title),
		resourceType: utils.NormalizeKey(q.ResourceType),
		fileSize:     q.FileSize,
	}
}

func (s *resourceScorer) evaluate(r entities.Resource) ranking.Evaluation {
	var card ranking.Scorecard

	if candName := utils.NormalizeFileName(r.FileName); s.fileName != "" && candName != "" {
		switch {
		case s.fileName == candName:
			card.Add("file_name", s.w.FileNameExact, "Identical file name")
		case strings.Contains(s.fileName, candName) || strings.Contains(candName, s.fileName):
			card.Add("file_name", s.w.FileNamePartial, "Similar file name")
		}
	}

	if candTitle := utils.NormalizeKey(r.Title); candTitle != "" {
		if candTitle == s.title {
			card.Add("title", s.w.TitleExact, "Identical title")
		} else if ratio := similarity.Ratio(s.title, candTitle); ratio > s.w.TitleSimilarityThreshold {
			card.Add("title", s.w.TitleSimilar, fmt.Sprintf("Similar title (%.0f%% similar)", ratio*100))
		}
	}

	if s.resourceType != "" && s.resourceType == utils.NormalizeKey(r.ResourceType) {
		card.Add("resource_type", s.w.ResourceType, "Same resource type")
	}

	if s.fileSize > 0 && r.FileSize > 0 {
		larger := float64(max(s.fileSize, r.FileSize))
		diff := math.Abs(float64(s.fileSize - r.FileSize))
		if diff/larger <= s.w.FileSizeTolerance {
			card.Add("file_size", s.w.FileSize, "Nearly identical file size")
		}
	}

	return ranking.Evaluation{Signals: card.Signals()}
}
