// Package solicitation orders a proposal's ingested solicitation documents by
// how much they should shape AI drafting context.
package solicitation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"proposal-ranker/entities"
	apperrors "proposal-ranker/errors"
	"proposal-ranker/ranking"
	"proposal-ranker/utils"

	"go.uber.org/zap"
)

// Supplementary and document type values used by the ingestion pipeline.
const (
	TypeQAResponse    = "q_a_response"
	TypeAmendment     = "amendment"
	TypeClarification = "clarification"
	TypeSOW           = "sow"
	TypePWS           = "pws"
	TypeRFP           = "rfp"
	TypeRFQ           = "rfq"
)

// Weights is the document priority policy.
type Weights struct {
	SupplementaryBase     float64 `mapstructure:"supplementary_base"`
	QAResponse            float64 `mapstructure:"qa_response"`
	Amendment             float64 `mapstructure:"amendment"`
	StatementOfWork       float64 `mapstructure:"statement_of_work"`
	Clarification         float64 `mapstructure:"clarification"`
	LatestVersion         float64 `mapstructure:"latest_version"`
	AmendmentNumberPoints float64 `mapstructure:"amendment_number_points"`
	AmendmentNumberCap    float64 `mapstructure:"amendment_number_cap"`
	BaseDocument          float64 `mapstructure:"base_document"`
	Solicitation          float64 `mapstructure:"solicitation"`
	BaseStatementOfWork   float64 `mapstructure:"base_statement_of_work"`
	QueryRelevance        float64 `mapstructure:"query_relevance"`
	SummaryLength         int     `mapstructure:"summary_length"`
	MaxDocuments          int     `mapstructure:"max_documents"`
}

func DefaultWeights() Weights {
	return Weights{
		SupplementaryBase:     70,
		QAResponse:            95,
		Amendment:             90,
		StatementOfWork:       85,
		Clarification:         80,
		LatestVersion:         5,
		AmendmentNumberPoints: 2,
		AmendmentNumberCap:    10,
		BaseDocument:          50,
		Solicitation:          75,
		BaseStatementOfWork:   70,
		QueryRelevance:        20,
		SummaryLength:         500,
		MaxDocuments:          10,
	}
}

type Config struct {
	Weights        Weights
	CandidateLimit int
}

// Store is the part of the entity store the prioritizer reads.
type Store interface {
	Proposal(ctx context.Context, id string) (entities.Proposal, error)
	IngestedDocuments(ctx context.Context, proposalID string, limit int) ([]entities.SolicitationDocument, error)
}

type Prioritizer struct {
	store  Store
	cfg    Config
	logger *zap.Logger
}

func NewPrioritizer(store Store, cfg Config, logger *zap.Logger) *Prioritizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prioritizer{store: store, cfg: cfg, logger: logger}
}

type PrioritizeRequest struct {
	ProposalID   string `json:"proposal_id"`
	Query        string `json:"query,omitempty"`
	MaxDocuments int    `json:"max_documents,omitempty"`
}

func (r PrioritizeRequest) Validate() error {
	if missing := utils.MissingFields(utils.Field{Name: "proposal_id", Value: r.ProposalID}); len(missing) > 0 {
		return apperrors.Required(missing...)
	}
	return nil
}

type Document struct {
	ID                string    `json:"id"`
	FileName          string    `json:"file_name"`
	DocumentType      string    `json:"document_type,omitempty"`
	IsSupplementary   bool      `json:"is_supplementary"`
	SupplementaryType string    `json:"supplementary_type,omitempty"`
	AmendmentNumber   string    `json:"amendment_number,omitempty"`
	IsLatestVersion   bool      `json:"is_latest_version"`
	PriorityScore     float64   `json:"priority_score"`
	PriorityReasons   []string  `json:"priority_reasons"`
	ContentSummary    string    `json:"content_summary"`
	FullContent       string    `json:"full_content"`
	CreatedDate       time.Time `json:"created_date"`
}

type ContextMetadata struct {
	ProposalID         string `json:"proposal_id"`
	ProposalFound      bool   `json:"proposal_found"`
	IngestedDocuments  int    `json:"ingested_documents"`
	Returned           int    `json:"returned"`
	SupplementaryCount int    `json:"supplementary_count"`
	AmendmentCount     int    `json:"amendment_count"`
	QACount            int    `json:"qa_count"`
	Query              string `json:"query,omitempty"`
	MaxDocuments       int    `json:"max_documents"`
}

type Context struct {
	Documents      []Document      `json:"documents"`
	ContextSummary string          `json:"context_summary"`
	Metadata       ContextMetadata `json:"metadata"`
}

// Prioritize ranks the proposal's ingested documents. An unknown proposal
// yields an empty context rather than an error.
func (p *Prioritizer) Prioritize(ctx context.Context, req PrioritizeRequest) (*Context, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	maxDocs := req.MaxDocuments
	if maxDocs <= 0 {
		maxDocs = p.cfg.Weights.MaxDocuments
	}
	result := &Context{
		Documents: []Document{},
		Metadata: ContextMetadata{
			ProposalID:   req.ProposalID,
			Query:        req.Query,
			MaxDocuments: maxDocs,
		},
	}

	if _, err := p.store.Proposal(ctx, req.ProposalID); err != nil {
		if apperrors.IsNotFound(err) {
			result.ContextSummary = fmt.Sprintf("Proposal %s not found; no solicitation context available.", req.ProposalID)
			return result, nil
		}
		return nil, apperrors.WrapError(err, "failed to load proposal")
	}
	result.Metadata.ProposalFound = true

	docs, err := p.store.IngestedDocuments(ctx, req.ProposalID, p.cfg.CandidateLimit)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to load solicitation documents")
	}
	result.Metadata.IngestedDocuments = len(docs)

	candidates := make([]ranking.Candidate[entities.SolicitationDocument], len(docs))
	for i, d := range docs {
		candidates[i] = ranking.Candidate[entities.SolicitationDocument]{Item: d, Recency: d.CreatedDate, Order: i}
	}

	scorer := &documentScorer{w: p.cfg.Weights, terms: utils.QueryTerms(req.Query)}
	ranked := ranking.Rank(candidates, scorer.evaluate, ranking.Policy{MaxResults: maxDocs})

	for _, res := range ranked.Results {
		d := res.Item
		plain := utils.PlainText(d.ExtractedText)
		result.Documents = append(result.Documents, Document{
			ID:                d.ID,
			FileName:          d.FileName,
			DocumentType:      d.DocumentType,
			IsSupplementary:   d.IsSupplementary,
			SupplementaryType: d.SupplementaryType,
			AmendmentNumber:   d.AmendmentNumber,
			IsLatestVersion:   d.IsLatestVersion,
			PriorityScore:     res.Score,
			PriorityReasons:   res.Reasons,
			ContentSummary:    utils.Excerpt(plain, p.cfg.Weights.SummaryLength),
			FullContent:       d.ExtractedText,
			CreatedDate:       d.CreatedDate,
		})

		if d.IsSupplementary {
			result.Metadata.SupplementaryCount++
		}
		switch utils.NormalizeKey(d.SupplementaryType) {
		case TypeAmendment:
			result.Metadata.AmendmentCount++
		case TypeQAResponse:
			result.Metadata.QACount++
		}
	}
	result.Metadata.Returned = len(result.Documents)
	result.ContextSummary = summarize(result.Metadata)

	p.logger.Debug("Solicitation context prioritized",
		zap.String("proposal_id", req.ProposalID),
		zap.Int("ingested", len(docs)),
		zap.Int("returned", result.Metadata.Returned))

	return result, nil
}

func summarize(m ContextMetadata) string {
	if m.Returned == 0 {
		return "No ingested solicitation documents available."
	}
	return fmt.Sprintf("Using %d of %d solicitation documents: %d supplementary (%d amendments, %d Q&A responses).",
		m.Returned, m.IngestedDocuments, m.SupplementaryCount, m.AmendmentCount, m.QACount)
}

type documentScorer struct {
	w     Weights
	terms []string
}

func (s *documentScorer) evaluate(d entities.SolicitationDocument) ranking.Evaluation {
	var card ranking.Scorecard

	if d.IsSupplementary {
		kind := utils.NormalizeKey(d.SupplementaryType)
		card.Add("base", s.supplementaryBase(kind), "supplementary "+orDefault(kind, "document"))
		if d.IsLatestVersion {
			card.Add("latest_version", s.w.LatestVersion, "latest version")
		}
		if n, err := strconv.Atoi(strings.TrimSpace(d.AmendmentNumber)); err == nil {
			card.Add("amendment_number", min(float64(n)*s.w.AmendmentNumberPoints, s.w.AmendmentNumberCap),
				fmt.Sprintf("amendment %d", n))
		}
	} else {
		kind := utils.NormalizeKey(d.DocumentType)
		card.Add("base", s.documentBase(kind), "base "+orDefault(kind, "document"))
	}

	if len(s.terms) > 0 && d.ExtractedText != "" {
		text := strings.ToLower(d.ExtractedText)
		if frac := utils.FractionContained(s.terms, text); frac > 0 {
			card.Add("query_relevance", frac*s.w.QueryRelevance,
				fmt.Sprintf("matches %.0f%% of query terms", frac*100))
		}
	}

	return ranking.Evaluation{Signals: card.Signals()}
}

func (s *documentScorer) supplementaryBase(kind string) float64 {
	switch kind {
	case TypeQAResponse:
		return s.w.QAResponse
	case TypeAmendment:
		return s.w.Amendment
	case TypeSOW, TypePWS:
		return s.w.StatementOfWork
	case TypeClarification:
		return s.w.Clarification
	}
	return s.w.SupplementaryBase
}

func (s *documentScorer) documentBase(kind string) float64 {
	switch kind {
	case TypeRFP, TypeRFQ:
		return s.w.Solicitation
	case TypeSOW, TypePWS:
		return s.w.BaseStatementOfWork
	}
	return s.w.BaseDocument
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
