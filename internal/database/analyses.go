// analyses.go stores each user's analysis history.
package database

import (
	"context"
	"fmt"

	"github.com/Shimizu-Technology/result-analyser-api/internal/models"
)

// CreateAnalysis inserts a history row and fills in its ID and timestamp.
func (db *DB) CreateAnalysis(ctx context.Context, a *models.Analysis) error {
	query := `
		INSERT INTO analyses (user_id, original_filename, storage_key, download_name,
			page_count, total_students, total_entries, warning_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := db.QueryRowContext(ctx, query,
		a.UserID, a.OriginalFilename, a.StorageKey, a.DownloadName,
		a.PageCount, a.TotalStudents, a.TotalEntries, a.WarningCount,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

// GetAnalysis returns one of the user's analyses.
// Go Pattern: Scoping every query by user_id means one user can never read
// another's rows, even with a guessed ID.
func (db *DB) GetAnalysis(ctx context.Context, userID, id string) (*models.Analysis, error) {
	var a models.Analysis
	err := db.GetContext(ctx, &a,
		`SELECT * FROM analyses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return nil, notFound(err, "analysis")
	}
	return &a, nil
}

// LatestAnalysis returns the user's most recent analysis.
func (db *DB) LatestAnalysis(ctx context.Context, userID string) (*models.Analysis, error) {
	var a models.Analysis
	err := db.GetContext(ctx, &a,
		`SELECT * FROM analyses WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, userID)
	if err != nil {
		return nil, notFound(err, "analysis")
	}
	return &a, nil
}

// ListAnalyses returns up to limit analyses, newest first.
func (db *DB) ListAnalyses(ctx context.Context, userID string, limit int) ([]models.Analysis, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}

	analyses := []models.Analysis{}
	err := db.SelectContext(ctx, &analyses,
		`SELECT * FROM analyses WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return analyses, nil
}

// DeleteAnalysis removes one analysis and returns the deleted row so the
// caller can remove its stored workbook.
func (db *DB) DeleteAnalysis(ctx context.Context, userID, id string) (*models.Analysis, error) {
	var a models.Analysis
	err := db.GetContext(ctx, &a,
		`DELETE FROM analyses WHERE id = $1 AND user_id = $2 RETURNING *`, id, userID)
	if err != nil {
		return nil, notFound(err, "analysis")
	}
	return &a, nil
}

// DeleteAnalysesByUser clears the user's history and returns the removed rows.
func (db *DB) DeleteAnalysesByUser(ctx context.Context, userID string) ([]models.Analysis, error) {
	deleted := []models.Analysis{}
	err := db.SelectContext(ctx, &deleted,
		`DELETE FROM analyses WHERE user_id = $1 RETURNING *`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to clear analyses: %w", err)
	}
	return deleted, nil
}
