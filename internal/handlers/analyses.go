// analyses.go handles the per-user analysis history.
//
// POST   /api/v1/analyses               Upload a result PDF, store the workbook
// GET    /api/v1/analyses               List the user's analyses
// GET    /api/v1/analyses/:id           Reload a stored workbook and recompute stats
// GET    /api/v1/analyses/:id/download  Download a workbook (:id may be "latest")
// DELETE /api/v1/analyses/:id           Delete one analysis
// DELETE /api/v1/analyses               Clear the history
package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Shimizu-Technology/result-analyser-api/internal/database"
	"github.com/Shimizu-Technology/result-analyser-api/internal/metrics"
	"github.com/Shimizu-Technology/result-analyser-api/internal/middleware"
	"github.com/Shimizu-Technology/result-analyser-api/internal/models"
	"github.com/Shimizu-Technology/result-analyser-api/internal/services/results"
	"github.com/Shimizu-Technology/result-analyser-api/internal/services/workbook"
	"github.com/Shimizu-Technology/result-analyser-api/internal/storage"
)

const (
	latestID = "latest"

	latestDownloadName = "result_analysis.xlsx"
	googleDownloadName = "ktu_result_google_sheets.xlsx"

	historyLimit = 50
)

// CreateAnalysis analyses an uploaded result PDF and saves it to history.
// POST /api/v1/analyses
//
// Processing is synchronous: read pages, extract, aggregate, build the
// workbook, store it, then record the history row.
func (h *Handler) CreateAnalysis(c *gin.Context) {
	user := middleware.GetUser(c)
	ctx := c.Request.Context()

	up, ok := h.readUpload(c)
	if !ok {
		return
	}

	ext, err := h.extract(up.data)
	if err != nil {
		h.respondExtractError(c, metrics.SourceUpload, up.filename, err)
		return
	}
	h.Metrics.RecordExtraction(ext)
	logExtraction(up.filename, ext)

	report := results.Aggregate(ext.Records, h.Rules)

	var buf bytes.Buffer
	if err := workbook.Write(&buf, ext.Records, report); err != nil {
		h.Metrics.RecordAnalysis(metrics.SourceUpload, metrics.OutcomeError)
		log.Printf("❌ Failed to build workbook for %q: %v", up.filename, err)
		errorJSON(c, http.StatusInternalServerError, "export_failed", "Failed to build the results workbook")
		return
	}

	key := storage.NewKey(".xlsx")
	if err := h.Workbooks.Save(ctx, key, &buf); err != nil {
		h.Metrics.RecordAnalysis(metrics.SourceUpload, metrics.OutcomeError)
		log.Printf("❌ Failed to store workbook: %v", err)
		errorJSON(c, http.StatusInternalServerError, "storage_error", "Failed to save the results workbook")
		return
	}

	analysis := &models.Analysis{
		UserID:           user.ID,
		OriginalFilename: up.filename,
		StorageKey:       key,
		DownloadName:     downloadName(up.filename),
		PageCount:        ext.PageCount,
		TotalStudents:    report.TotalStudents,
		TotalEntries:     report.TotalEntries,
		WarningCount:     len(ext.Warnings),
	}
	if err := h.DB.CreateAnalysis(ctx, analysis); err != nil {
		h.Metrics.RecordAnalysis(metrics.SourceUpload, metrics.OutcomeError)
		log.Printf("❌ Failed to save analysis: %v", err)
		h.removeWorkbook(ctx, key)
		errorJSON(c, http.StatusInternalServerError, "database_error", "Failed to save the analysis")
		return
	}

	h.Metrics.RecordAnalysis(metrics.SourceUpload, metrics.OutcomeOK)
	c.JSON(http.StatusCreated, models.AnalysisResponse{
		Analysis: analysis,
		Stats:    report,
		Summary:  models.NewSummary(report),
		Records:  ext.Records,
		Warnings: ext.Warnings,
	})
}

// ListAnalyses returns the user's analyses, newest first.
// GET /api/v1/analyses
func (h *Handler) ListAnalyses(c *gin.Context) {
	user := middleware.GetUser(c)

	analyses, err := h.DB.ListAnalyses(c.Request.Context(), user.ID, historyLimit)
	if err != nil {
		log.Printf("❌ Failed to list analyses: %v", err)
		errorJSON(c, http.StatusInternalServerError, "database_error", "Failed to list analyses")
		return
	}

	c.JSON(http.StatusOK, models.AnalysisListResponse{
		Analyses: analyses,
		Count:    len(analyses),
	})
}

// GetAnalysis reloads a stored workbook and recomputes its statistics.
// GET /api/v1/analyses/:id
func (h *Handler) GetAnalysis(c *gin.Context) {
	analysis, ok := h.lookupAnalysis(c)
	if !ok {
		return
	}

	rc, err := h.Workbooks.Open(c.Request.Context(), analysis.StorageKey)
	if err != nil {
		h.respondStorageError(c, err)
		return
	}
	defer rc.Close()

	records, err := workbook.ReadRecords(rc)
	if err != nil {
		h.Metrics.RecordAnalysis(metrics.SourceReload, metrics.OutcomeError)
		log.Printf("❌ Failed to reload workbook %s: %v", analysis.StorageKey, err)
		errorJSON(c, http.StatusInternalServerError, "workbook_error", "Stored workbook could not be read")
		return
	}

	report := results.Aggregate(records, h.Rules)
	h.Metrics.RecordAnalysis(metrics.SourceReload, metrics.OutcomeOK)

	c.JSON(http.StatusOK, models.AnalysisResponse{
		Analysis: analysis,
		Stats:    report,
		Summary:  models.NewSummary(report),
		Records:  records,
	})
}

// DownloadAnalysis sends a stored workbook as an attachment.
// GET /api/v1/analyses/:id/download[?type=google]
func (h *Handler) DownloadAnalysis(c *gin.Context) {
	analysis, ok := h.lookupAnalysis(c)
	if !ok {
		return
	}

	name := analysis.DownloadName
	if c.Param("id") == latestID {
		name = latestDownloadName
	}
	if c.Query("type") == "google" {
		name = googleDownloadName
	}

	rc, err := h.Workbooks.Open(c.Request.Context(), analysis.StorageKey)
	if err != nil {
		h.respondStorageError(c, err)
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		log.Printf("❌ Failed to read workbook %s: %v", analysis.StorageKey, err)
		errorJSON(c, http.StatusInternalServerError, "storage_error", "Failed to read the workbook")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// DeleteAnalysis removes one analysis and its workbook.
// DELETE /api/v1/analyses/:id
func (h *Handler) DeleteAnalysis(c *gin.Context) {
	user := middleware.GetUser(c)
	id := c.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		errorJSON(c, http.StatusNotFound, "not_found", "Analysis not found")
		return
	}

	analysis, err := h.DB.DeleteAnalysis(c.Request.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			errorJSON(c, http.StatusNotFound, "not_found", "Analysis not found")
			return
		}
		log.Printf("❌ Failed to delete analysis %s: %v", id, err)
		errorJSON(c, http.StatusInternalServerError, "database_error", "Failed to delete the analysis")
		return
	}

	h.removeWorkbook(c.Request.Context(), analysis.StorageKey)
	c.JSON(http.StatusOK, models.DeleteResponse{Deleted: 1})
}

// ClearAnalyses removes every analysis the user owns.
// DELETE /api/v1/analyses
func (h *Handler) ClearAnalyses(c *gin.Context) {
	user := middleware.GetUser(c)

	deleted, err := h.DB.DeleteAnalysesByUser(c.Request.Context(), user.ID)
	if err != nil {
		log.Printf("❌ Failed to clear analyses for %s: %v", user.ID, err)
		errorJSON(c, http.StatusInternalServerError, "database_error", "Failed to clear history")
		return
	}

	for _, a := range deleted {
		h.removeWorkbook(c.Request.Context(), a.StorageKey)
	}
	c.JSON(http.StatusOK, models.DeleteResponse{Deleted: len(deleted)})
}

// lookupAnalysis resolves :id (a UUID or "latest") for the current user.
func (h *Handler) lookupAnalysis(c *gin.Context) (*models.Analysis, bool) {
	user := middleware.GetUser(c)
	id := c.Param("id")
	ctx := c.Request.Context()

	var (
		analysis *models.Analysis
		err      error
	)
	switch {
	case id == latestID:
		analysis, err = h.DB.LatestAnalysis(ctx, user.ID)
	case uuid.Validate(id) == nil:
		analysis, err = h.DB.GetAnalysis(ctx, user.ID, id)
	default:
		err = database.ErrNotFound
	}

	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			errorJSON(c, http.StatusNotFound, "not_found", "Analysis not found")
			return nil, false
		}
		log.Printf("❌ Failed to load analysis %s: %v", id, err)
		errorJSON(c, http.StatusInternalServerError, "database_error", "Failed to load the analysis")
		return nil, false
	}
	return analysis, true
}

func (h *Handler) respondStorageError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "not_found", "The workbook for this analysis is no longer available")
		return
	}
	log.Printf("❌ Failed to open workbook: %v", err)
	errorJSON(c, http.StatusInternalServerError, "storage_error", "Failed to open the workbook")
}

// removeWorkbook deletes a stored workbook. Failures only leave an orphaned
// file behind, so they are logged rather than returned.
func (h *Handler) removeWorkbook(ctx context.Context, key string) {
	if err := h.Workbooks.Delete(ctx, key); err != nil {
		log.Printf("⚠️  Failed to delete workbook %s: %v", key, err)
	}
}
