// results.go serves the stateless analysis endpoints. Nothing is stored.
//
// POST /api/v1/results/extract  PDF upload -> stats, summary, records, warnings
// POST /api/v1/results/stats    JSON records -> stats, summary
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/result-analyser-api/internal/metrics"
	"github.com/Shimizu-Technology/result-analyser-api/internal/models"
	"github.com/Shimizu-Technology/result-analyser-api/internal/services/results"
)

// ExtractResults analyses an uploaded PDF without saving anything.
// POST /api/v1/results/extract
func (h *Handler) ExtractResults(c *gin.Context) {
	up, ok := h.readUpload(c)
	if !ok {
		return
	}

	ext, err := h.extract(up.data)
	if err != nil {
		h.respondExtractError(c, metrics.SourceStateless, up.filename, err)
		return
	}
	h.Metrics.RecordExtraction(ext)
	h.Metrics.RecordAnalysis(metrics.SourceStateless, metrics.OutcomeOK)
	logExtraction(up.filename, ext)

	report := results.Aggregate(ext.Records, h.Rules)
	c.JSON(http.StatusOK, models.AnalysisResponse{
		Stats:    report,
		Summary:  models.NewSummary(report),
		Records:  ext.Records,
		Warnings: ext.Warnings,
	})
}

// ComputeStats aggregates records supplied by the client.
// POST /api/v1/results/stats
func (h *Handler) ComputeStats(c *gin.Context) {
	var req models.StatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid_request", "Body must be {\"records\": [...]}")
		return
	}

	if err := results.ValidateRecords(req.Records); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid_records", err.Error())
		return
	}

	report := results.Aggregate(req.Records, h.Rules)
	c.JSON(http.StatusOK, models.StatsResponse{
		Stats:   report,
		Summary: models.NewSummary(report),
	})
}
