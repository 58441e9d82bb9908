package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attachment-portal-api/internal/models"
)

// ReportHistoryRepository records generated reports.
type ReportHistoryRepository struct {
	db *sqlx.DB
}

// NewReportHistoryRepository constructs a ReportHistoryRepository.
func NewReportHistoryRepository(db *sqlx.DB) *ReportHistoryRepository {
	return &ReportHistoryRepository{db: db}
}

// Create inserts a history row.
func (r *ReportHistoryRepository) Create(ctx context.Context, entry *models.ReportHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.GeneratedAt.IsZero() {
		entry.GeneratedAt = time.Now().UTC()
	}
	const query = `INSERT INTO report_history (id, report_type, generated_by, generated_at, parameters, download_count)
VALUES (:id, :report_type, :generated_by, :generated_at, :parameters, :download_count)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create report history: %w", err)
	}
	return nil
}

// ListRecent returns the newest history rows.
func (r *ReportHistoryRepository) ListRecent(ctx context.Context, limit int) ([]models.ReportHistory, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	const query = `SELECT id, report_type, generated_by, generated_at, parameters, download_count FROM report_history ORDER BY generated_at DESC LIMIT $1`
	var items []models.ReportHistory
	if err := r.db.SelectContext(ctx, &items, query, limit); err != nil {
		return nil, fmt.Errorf("list report history: %w", err)
	}
	return items, nil
}
