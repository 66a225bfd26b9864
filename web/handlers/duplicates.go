package handlers

import (
	"context"
	"net/http"
	"time"

	"proposal-ranker/dedupe"
	"proposal-ranker/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DuplicateChecker runs the advisory duplicate checks.
type DuplicateChecker interface {
	CheckPastPerformance(ctx context.Context, q dedupe.PastPerformanceQuery) (*dedupe.PastPerformanceReport, error)
	CheckResource(ctx context.Context, q dedupe.ResourceQuery) (*dedupe.ResourceReport, error)
}

type DuplicateHandler struct {
	checker DuplicateChecker
	logger  *zap.Logger
}

func NewDuplicateHandler(checker DuplicateChecker, logger *zap.Logger) *DuplicateHandler {
	return &DuplicateHandler{checker: checker, logger: logger}
}

// PastPerformance handles POST /api/duplicates/past-performance.
func (h *DuplicateHandler) PastPerformance(c *gin.Context) {
	var q dedupe.PastPerformanceQuery
	if !bindJSON(c, &q, statusEnvelope) {
		return
	}

	start := time.Now()
	report, err := h.checker.CheckPastPerformance(c.Request.Context(), q)
	metrics.ObserveRun(metrics.PipelinePastPerformance, start, err)
	if err != nil {
		respondWithError(c, err, statusEnvelope, h.logger, zap.String("organization_id", q.OrganizationID))
		return
	}
	metrics.ObserveCandidates(metrics.PipelinePastPerformance, report.Evaluated, 0)

	c.JSON(http.StatusOK, gin.H{
		"status":                        "success",
		"duplicates":                    report.Duplicates,
		"has_high_confidence_duplicate": report.HasHighConfidenceDuplicate,
		"total_found":                   report.TotalFound,
	})
}

// Resource handles POST /api/duplicates/resource.
func (h *DuplicateHandler) Resource(c *gin.Context) {
	var q dedupe.ResourceQuery
	if !bindJSON(c, &q, plainEnvelope) {
		return
	}

	start := time.Now()
	report, err := h.checker.CheckResource(c.Request.Context(), q)
	metrics.ObserveRun(metrics.PipelineResource, start, err)
	if err != nil {
		respondWithError(c, err, plainEnvelope, h.logger, zap.String("organization_id", q.OrganizationID))
		return
	}
	metrics.ObserveCandidates(metrics.PipelineResource, report.CheckedAgainst, 0)

	c.JSON(http.StatusOK, report)
}
