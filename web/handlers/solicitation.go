package handlers

import (
	"context"
	"net/http"
	"time"

	"proposal-ranker/metrics"
	"proposal-ranker/solicitation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContextPrioritizer orders solicitation documents for drafting context.
type ContextPrioritizer interface {
	Prioritize(ctx context.Context, req solicitation.PrioritizeRequest) (*solicitation.Context, error)
}

type SolicitationHandler struct {
	prioritizer ContextPrioritizer
	logger      *zap.Logger
}

func NewSolicitationHandler(prioritizer ContextPrioritizer, logger *zap.Logger) *SolicitationHandler {
	return &SolicitationHandler{prioritizer: prioritizer, logger: logger}
}

// Context handles POST /api/solicitation/context.
func (h *SolicitationHandler) Context(c *gin.Context) {
	var req solicitation.PrioritizeRequest
	if !bindJSON(c, &req, successEnvelope) {
		return
	}

	start := time.Now()
	result, err := h.prioritizer.Prioritize(c.Request.Context(), req)
	metrics.ObserveRun(metrics.PipelineSolicitation, start, err)
	if err != nil {
		respondWithError(c, err, successEnvelope, h.logger, zap.String("proposal_id", req.ProposalID))
		return
	}
	metrics.ObserveCandidates(metrics.PipelineSolicitation, result.Metadata.IngestedDocuments, 0)

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"documents":       result.Documents,
		"context_summary": result.ContextSummary,
		"metadata":        result.Metadata,
	})
}
