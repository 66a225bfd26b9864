package handlers

import (
	"context"
	"net/http"
	"time"

	"proposal-ranker/chunks"
	"proposal-ranker/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChunkSearcher ranks reusable content chunks.
type ChunkSearcher interface {
	Search(ctx context.Context, req chunks.SearchRequest) (*chunks.SearchResponse, error)
}

type ChunkHandler struct {
	searcher ChunkSearcher
	logger   *zap.Logger
}

func NewChunkHandler(searcher ChunkSearcher, logger *zap.Logger) *ChunkHandler {
	return &ChunkHandler{searcher: searcher, logger: logger}
}

// Search handles POST /api/chunks/search.
func (h *ChunkHandler) Search(c *gin.Context) {
	var req chunks.SearchRequest
	if !bindJSON(c, &req, statusEnvelope) {
		return
	}

	start := time.Now()
	resp, err := h.searcher.Search(c.Request.Context(), req)
	metrics.ObserveRun(metrics.PipelineChunks, start, err)
	if err != nil {
		respondWithError(c, err, statusEnvelope, h.logger,
			zap.String("organization_id", req.OrganizationID),
			zap.String("current_proposal_id", req.CurrentProposalID))
		return
	}
	meta := resp.SearchMetadata
	metrics.ObserveCandidates(metrics.PipelineChunks, meta.TotalCandidates, meta.EnrichmentFailures)

	c.JSON(http.StatusOK, gin.H{
		"status":          "success",
		"results":         resp.Results,
		"search_metadata": meta,
	})
}
