// Package handlers contains HTTP handler functions for the API.
//
// Go Pattern: Handlers in Gin receive a *gin.Context which provides:
// - Request data (params, query, body, headers)
// - Response methods (JSON, String, Status)
// - Middleware data (c.Get/c.Set)
//
// We group related handlers into a struct (Handler) that holds shared dependencies.
package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/result-analyser-api/internal/metrics"
	"github.com/Shimizu-Technology/result-analyser-api/internal/models"
	"github.com/Shimizu-Technology/result-analyser-api/internal/services/mailer"
	pdfservice "github.com/Shimizu-Technology/result-analyser-api/internal/services/pdf"
	"github.com/Shimizu-Technology/result-analyser-api/internal/services/results"
)

// Store is the persistence the handlers need. *database.DB implements it.
type Store interface {
	HealthCheck(ctx context.Context) error

	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error

	CreateAnalysis(ctx context.Context, a *models.Analysis) error
	GetAnalysis(ctx context.Context, userID, id string) (*models.Analysis, error)
	LatestAnalysis(ctx context.Context, userID string) (*models.Analysis, error)
	ListAnalyses(ctx context.Context, userID string, limit int) ([]models.Analysis, error)
	DeleteAnalysis(ctx context.Context, userID, id string) (*models.Analysis, error)
	DeleteAnalysesByUser(ctx context.Context, userID string) ([]models.Analysis, error)
}

// WorkbookStore keeps generated workbooks. *storage.Storage implements it.
type WorkbookStore interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Handler holds shared dependencies for all HTTP handlers.
// Go Pattern: Dependency injection via struct fields. Instead of global
// variables or service locators, we pass dependencies explicitly.
// This makes testing easy: just create a Handler with fake dependencies.
type Handler struct {
	DB        Store
	Workbooks WorkbookStore
	Metrics   *metrics.Metrics
	Mailer    mailer.Sender
	Rules     results.Rules

	// ReadDocument turns uploaded bytes into page texts.
	ReadDocument func(data []byte) (*pdfservice.Document, error)

	JWTSecret      string
	ResetURLBase   string
	MaxUploadBytes int64
	Version        string
}

// NewHandler creates a new handler with all dependencies.
func NewHandler(db Store, workbooks WorkbookStore, m *metrics.Metrics, mail mailer.Sender, rules results.Rules) *Handler {
	return &Handler{
		DB:             db,
		Workbooks:      workbooks,
		Metrics:        m,
		Mailer:         mail,
		Rules:          rules,
		ReadDocument:   pdfservice.ReadPages,
		MaxUploadBytes: 20 << 20,
		Version:        "dev",
	}
}

// HealthCheck returns the API health status.
// GET /api/v1/health
func (h *Handler) HealthCheck(c *gin.Context) {
	dbStatus := "healthy"
	if err := h.DB.HealthCheck(c.Request.Context()); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:   "ok",
		Version:  h.Version,
		Database: dbStatus,
	})
}

// errorJSON writes the standard error body.
func errorJSON(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Error:   code,
		Message: message,
		Code:    status,
	})
}
