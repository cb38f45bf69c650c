// Package models defines the data structures used throughout the application.
//
// Go Pattern: Models are plain structs with JSON tags for serialization.
// The database package handles persistence; the `db` tags work with sqlx
// for column mapping.
package models

import (
	"time"

	"github.com/Shimizu-Technology/result-analyser-api/internal/services/results"
)

// User is an account that owns analyses.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // "-" means never serialize to JSON
	Name         string    `json:"name" db:"name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Analysis is one processed result document in a user's history.
// The workbook itself lives in storage under StorageKey.
type Analysis struct {
	ID               string    `json:"id" db:"id"`
	UserID           string    `json:"user_id" db:"user_id"`
	OriginalFilename string    `json:"original_filename" db:"original_filename"`
	StorageKey       string    `json:"-" db:"storage_key"`
	DownloadName     string    `json:"download_name" db:"download_name"`
	PageCount        int       `json:"page_count" db:"page_count"`
	TotalStudents    int       `json:"total_students" db:"total_students"`
	TotalEntries     int       `json:"total_entries" db:"total_entries"`
	WarningCount     int       `json:"warning_count" db:"warning_count"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// --- Request/Response DTOs ---

// RegisterRequest is the JSON body for POST /api/v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

// LoginRequest is the JSON body for POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries a session token and the user it belongs to.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// ForgotPasswordRequest is the JSON body for POST /api/v1/auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest is the JSON body for POST /api/v1/auth/reset-password.
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// StatsRequest is the JSON body for POST /api/v1/results/stats.
// Individual records are checked with results.ValidateRecords, since
// binding tags do not reach into slice elements.
type StatsRequest struct {
	Records []results.GradeRecord `json:"records" binding:"required"`
}

// SummaryRow is one (department, year, subject) line of the pass/fail table.
type SummaryRow struct {
	Dept           string  `json:"dept"`
	Year           string  `json:"year"`
	Subject        string  `json:"subject"`
	Passed         int     `json:"passed"`
	Failed         int     `json:"failed"`
	Total          int     `json:"total"`
	PassPercentage float64 `json:"pass_percentage"`
}

// NewSummary flattens a report's breakdown into summary rows.
func NewSummary(report *results.StatsReport) []SummaryRow {
	rows := make([]SummaryRow, 0, len(report.Breakdown))
	for _, b := range report.Breakdown {
		rows = append(rows, SummaryRow{
			Dept:           b.Dept,
			Year:           b.Year,
			Subject:        b.Subject,
			Passed:         b.Pass,
			Failed:         b.Fail,
			Total:          b.Total,
			PassPercentage: results.PassPercentage(b.Pass, b.Total),
		})
	}
	return rows
}

// AnalysisResponse is returned when a document is analysed or an analysis
// is reloaded. Analysis is nil for the stateless endpoints.
type AnalysisResponse struct {
	Analysis *Analysis             `json:"analysis,omitempty"`
	Stats    *results.StatsReport  `json:"stats"`
	Summary  []SummaryRow          `json:"summary"`
	Records  []results.GradeRecord `json:"records,omitempty"`
	Warnings []results.Warning     `json:"warnings,omitempty"`
}

// StatsResponse is returned by POST /api/v1/results/stats.
type StatsResponse struct {
	Stats   *results.StatsReport `json:"stats"`
	Summary []SummaryRow         `json:"summary"`
}

// AnalysisListResponse is the user's analysis history, newest first.
type AnalysisListResponse struct {
	Analyses []Analysis `json:"analyses"`
	Count    int        `json:"count"`
}

// DeleteResponse reports how many analyses were removed.
type DeleteResponse struct {
	Deleted int `json:"deleted"`
}

// ErrorResponse is a standard error format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}
