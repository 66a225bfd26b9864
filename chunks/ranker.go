// Package chunks finds reusable paragraph-level content from prior proposals
// for a drafting query.
package chunks

import (
	"context"
	"fmt"
	"strings"

	"proposal-ranker/entities"
	apperrors "proposal-ranker/errors"
	"proposal-ranker/ranking"
	"proposal-ranker/utils"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const scoreCeiling = 100

// Weights is the chunk relevance policy.
type Weights struct {
	TextMatch         float64 `mapstructure:"text_match"`
	KeywordOverlap    float64 `mapstructure:"keyword_overlap"`
	SameAgency        float64 `mapstructure:"same_agency"`
	SameProjectType   float64 `mapstructure:"same_project_type"`
	WinningProposal   float64 `mapstructure:"winning_proposal"`
	MaxResults        int     `mapstructure:"max_results"`
	MinRelevanceScore float64 `mapstructure:"min_relevance_score"`
}

func DefaultWeights() Weights {
	return Weights{
		TextMatch:         40,
		KeywordOverlap:    20,
		SameAgency:        15,
		SameProjectType:   10,
		WinningProposal:   15,
		MaxResults:        20,
		MinRelevanceScore: 30,
	}
}

type Config struct {
	Weights        Weights
	CandidateLimit int
	// ParentCacheSize bounds the per-request parent proposal cache.
	ParentCacheSize int
}

// Store is the part of the entity store the ranker reads.
type Store interface {
	Proposal(ctx context.Context, id string) (entities.Proposal, error)
	ContentChunks(ctx context.Context, filter entities.ChunkFilter) ([]entities.ContentChunk, error)
}

type Ranker struct {
	store  Store
	cfg    Config
	logger *zap.Logger
}

func NewRanker(store Store, cfg Config, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ParentCacheSize <= 0 {
		cfg.ParentCacheSize = 128
	}
	return &Ranker{store: store, cfg: cfg, logger: logger}
}

type SearchRequest struct {
	QueryText            string   `json:"query_text"`
	CurrentProposalID    string   `json:"current_proposal_id"`
	OrganizationID       string   `json:"organization_id"`
	SectionType          string   `json:"section_type,omitempty"`
	MaxResults           int      `json:"max_results,omitempty"`
	MinRelevanceScore    *float64 `json:"min_relevance_score,omitempty"`
	OnlyWinningProposals bool     `json:"only_winning_proposals,omitempty"`
}

func (r SearchRequest) Validate() error {
	missing := utils.MissingFields(
		utils.Field{Name: "query_text", Value: r.QueryText},
		utils.Field{Name: "current_proposal_id", Value: r.CurrentProposalID},
		utils.Field{Name: "organization_id", Value: r.OrganizationID},
	)
	if len(missing) > 0 {
		return apperrors.Required(missing...)
	}
	return nil
}

// ParentProposal summarizes the proposal a chunk was written for.
type ParentProposal struct {
	ID           string `json:"id"`
	ProposalName string `json:"proposal_name"`
	AgencyName   string `json:"agency_name,omitempty"`
	ProjectType  string `json:"project_type,omitempty"`
	Status       string `json:"status"`
}

type ChunkResult struct {
	entities.ContentChunk
	RelevanceScore   float64         `json:"relevance_score"`
	RelevanceReasons []string        `json:"relevance_reasons"`
	ParentProposal   *ParentProposal `json:"parent_proposal"`
	EnrichmentError  string          `json:"enrichment_error,omitempty"`
	// Err is the parent lookup failure, if any.
	Err error `json:"-"`
}

type SearchMetadata struct {
	QueryTerms           []string `json:"query_terms"`
	TotalCandidates      int      `json:"total_candidates"`
	Matched              int      `json:"matched"`
	Returned             int      `json:"returned"`
	EnrichmentFailures   int      `json:"enrichment_failures"`
	MinRelevanceScore    float64  `json:"min_relevance_score"`
	MaxResults           int      `json:"max_results"`
	SectionType          string   `json:"section_type,omitempty"`
	OnlyWinningProposals bool     `json:"only_winning_proposals"`
}

type SearchResponse struct {
	Results        []ChunkResult  `json:"results"`
	SearchMetadata SearchMetadata `json:"search_metadata"`
}

// candidate is a chunk with its parent proposal resolved, or the reason it
// could not be.
type candidate struct {
	chunk     entities.ContentChunk
	parent    *entities.Proposal
	lookupErr error
}

// Search ranks the organization's content chunks against the query and the
// current proposal's metadata.
func (r *Ranker) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = r.cfg.Weights.MaxResults
	}
	minScore := r.cfg.Weights.MinRelevanceScore
	if req.MinRelevanceScore != nil {
		minScore = max(*req.MinRelevanceScore, 0)
	}

	var (
		current entities.Proposal
		chunks  []entities.ContentChunk
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := r.store.Proposal(gctx, req.CurrentProposalID)
		if err != nil {
			return apperrors.WrapError(err, "failed to load current proposal")
		}
		if p.OrganizationID != "" && p.OrganizationID != req.OrganizationID {
			return apperrors.NotFound("proposal", req.CurrentProposalID)
		}
		current = p
		return nil
	})
	g.Go(func() error {
		var err error
		chunks, err = r.store.ContentChunks(gctx, entities.ChunkFilter{
			OrganizationID:    req.OrganizationID,
			ExcludeProposalID: req.CurrentProposalID,
			SectionType:       req.SectionType,
			Limit:             r.cfg.CandidateLimit,
		})
		return apperrors.WrapError(err, "failed to load content chunks")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates, err := r.resolveParents(ctx, req, chunks)
	if err != nil {
		return nil, err
	}

	terms := utils.QueryTerms(req.QueryText)
	scorer := &chunkScorer{w: r.cfg.Weights, terms: terms, current: current}
	ranked := ranking.Rank(candidates, scorer.evaluate, ranking.Policy{
		Accept:     ranking.AtLeast(minScore),
		Ceiling:    scoreCeiling,
		MaxResults: maxResults,
	})

	resp := &SearchResponse{
		Results: make([]ChunkResult, 0, len(ranked.Results)),
		SearchMetadata: SearchMetadata{
			QueryTerms:           terms,
			TotalCandidates:      ranked.Evaluated,
			Matched:              ranked.Matched,
			EnrichmentFailures:   ranked.Degraded,
			MinRelevanceScore:    minScore,
			MaxResults:           maxResults,
			SectionType:          req.SectionType,
			OnlyWinningProposals: req.OnlyWinningProposals,
		},
	}
	for _, res := range ranked.Results {
		out := ChunkResult{
			ContentChunk:     res.Item.chunk,
			RelevanceScore:   res.Score,
			RelevanceReasons: res.Reasons,
			ParentProposal:   summarize(res.Item.parent),
			Err:              res.Err,
		}
		if res.Err != nil {
			out.EnrichmentError = res.Err.Error()
		}
		resp.Results = append(resp.Results, out)
	}
	resp.SearchMetadata.Returned = len(resp.Results)

	r.logger.Debug("Chunk relevance search",
		zap.String("organization_id", req.OrganizationID),
		zap.String("current_proposal_id", req.CurrentProposalID),
		zap.Strings("query_terms", terms),
		zap.Int("candidates", ranked.Evaluated),
		zap.Int("matched", ranked.Matched),
		zap.Int("enrichment_failures", ranked.Degraded))

	return resp, nil
}

// resolveParents attaches each chunk's parent proposal. Lookup failures are
// kept on the candidate; only a cancelled context aborts.
func (r *Ranker) resolveParents(ctx context.Context, req SearchRequest, chunks []entities.ContentChunk) ([]ranking.Candidate[candidate], error) {
	cache, err := lru.New(r.cfg.ParentCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create parent cache: %w", err)
	}

	type lookup struct {
		proposal *entities.Proposal
		err      error
	}

	out := make([]ranking.Candidate[candidate], 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.ProposalID == req.CurrentProposalID {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cand := candidate{chunk: chunk}
		if chunk.ProposalID != "" {
			var res lookup
			if cached, ok := cache.Get(chunk.ProposalID); ok {
				res = cached.(lookup)
			} else {
				p, err := r.store.Proposal(ctx, chunk.ProposalID)
				if err != nil {
					res.err = fmt.Errorf("resolve parent proposal %s: %w", chunk.ProposalID, err)
				} else {
					res.proposal = &p
				}
				cache.Add(chunk.ProposalID, res)
			}
			cand.parent, cand.lookupErr = res.proposal, res.err
		}

		if req.OnlyWinningProposals && (cand.parent == nil || cand.parent.Status != entities.StatusWon) {
			continue
		}

		out = append(out, ranking.Candidate[candidate]{
			Item:    cand,
			Recency: chunk.CreatedDate,
			Order:   len(out),
		})
	}
	return out, nil
}

type chunkScorer struct {
	w       Weights
	terms   []string
	current entities.Proposal
}

func (s *chunkScorer) evaluate(c candidate) ranking.Evaluation {
	var card ranking.Scorecard

	if n := len(s.terms); n > 0 {
		text := strings.ToLower(c.chunk.ChunkText)
		if found := utils.CountContained(s.terms, text); found > 0 {
			points := min(float64(found)/float64(n)*s.w.TextMatch, s.w.TextMatch)
			card.Add("text_match", points, fmt.Sprintf("Matches %d/%d query terms", found, n))
		}

		if len(c.chunk.Keywords) > 0 {
			if found := countKeywordOverlap(s.terms, c.chunk.Keywords); found > 0 {
				points := min(float64(found)/float64(n)*s.w.KeywordOverlap, s.w.KeywordOverlap)
				card.Add("keyword_overlap", points, fmt.Sprintf("Keyword overlap on %d terms", found))
			}
		}
	}

	if p := c.parent; p != nil {
		if agency := utils.NormalizeKey(s.current.AgencyName); agency != "" && agency == utils.NormalizeKey(p.AgencyName) {
			card.Add("same_agency", s.w.SameAgency, fmt.Sprintf("Same agency (%s)", p.AgencyName))
		}
		if pt := utils.NormalizeKey(s.current.ProjectType); pt != "" && pt == utils.NormalizeKey(p.ProjectType) {
			card.Add("same_project_type", s.w.SameProjectType, fmt.Sprintf("Same project type (%s)", p.ProjectType))
		}
		if p.Status == entities.StatusWon {
			card.Add("winning_proposal", s.w.WinningProposal, "From winning proposal")
		}
	}

	return ranking.Evaluation{Signals: card.Signals(), Err: c.lookupErr}
}

// countKeywordOverlap counts terms that contain, or are contained in, any
// of the chunk's keywords.
func countKeywordOverlap(terms, keywords []string) int {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = utils.NormalizeKey(kw); kw != "" {
			normalized = append(normalized, kw)
		}
	}

	found := 0
	for _, term := range terms {
		for _, kw := range normalized {
			if strings.Contains(kw, term) || strings.Contains(term, kw) {
				found++
				break
			}
		}
	}
	return found
}

func summarize(p *entities.Proposal) *ParentProposal {
	if p == nil {
		return nil
	}
	return &ParentProposal{
		ID:           p.ID,
		ProposalName: p.ProposalName,
		AgencyName:   p.AgencyName,
		ProjectType:  p.ProjectType,
		Status:       p.Status,
	}
}
