package handlers

import (
	"context"
	"net/http"
	"time"

	"proposal-ranker/metrics"
	"proposal-ranker/references"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReferenceSelector picks reference proposals for drafting.
type ReferenceSelector interface {
	Select(ctx context.Context, req references.SelectRequest) (*references.Selection, error)
}

type ReferenceHandler struct {
	selector ReferenceSelector
	logger   *zap.Logger
}

func NewReferenceHandler(selector ReferenceSelector, logger *zap.Logger) *ReferenceHandler {
	return &ReferenceHandler{selector: selector, logger: logger}
}

// Adaptive handles POST /api/references/adaptive.
func (h *ReferenceHandler) Adaptive(c *gin.Context) {
	var req references.SelectRequest
	if !bindJSON(c, &req, statusEnvelope) {
		return
	}

	start := time.Now()
	sel, err := h.selector.Select(c.Request.Context(), req)
	metrics.ObserveRun(metrics.PipelineReferences, start, err)
	if err != nil {
		respondWithError(c, err, statusEnvelope, h.logger, zap.String("organization_id", req.OrganizationID))
		return
	}
	metrics.ObserveCandidates(metrics.PipelineReferences, sel.Metadata.TotalCandidates, 0)

	body := gin.H{
		"status":     "success",
		"references": sel.References,
		"metadata":   sel.Metadata,
	}
	if sel.Reason != "" {
		body["reason"] = sel.Reason
	}
	c.JSON(http.StatusOK, body)
}
