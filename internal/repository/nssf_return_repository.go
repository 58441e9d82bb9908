package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attachment-portal-api/internal/models"
)

const nssfReturnViewSelect = `SELECT r.id, r.company_id, r.month, r.submitted_on, r.return_file, r.status, r.is_processed,
r.processed_at, r.processed_by, r.notes, c.name AS company_name, c.user_id AS company_user_id
FROM nssf_returns r
JOIN companies c ON c.id = r.company_id`

// NSSFReturnRepository persists company monthly returns.
type NSSFReturnRepository struct {
	db *sqlx.DB
}

// NewNSSFReturnRepository constructs an NSSFReturnRepository.
func NewNSSFReturnRepository(db *sqlx.DB) *NSSFReturnRepository {
	return &NSSFReturnRepository{db: db}
}

// Create inserts a return. A second return for the same company and month
// fails on the (company_id, month) unique constraint.
func (r *NSSFReturnRepository) Create(ctx context.Context, ret *models.NSSFReturn) error {
	if ret.ID == "" {
		ret.ID = uuid.NewString()
	}
	if ret.Status == "" {
		ret.Status = models.ReturnPending
	}
	const query = `INSERT INTO nssf_returns (id, company_id, month, submitted_on, return_file, status, is_processed, notes)
VALUES (:id, :company_id, :month, :submitted_on, :return_file, :status, :is_processed, :notes)`
	if _, err := r.db.NamedExecContext(ctx, query, ret); err != nil {
		return fmt.Errorf("create nssf return: %w", err)
	}
	return nil
}

// FindByID returns a return with its company identity.
func (r *NSSFReturnRepository) FindByID(ctx context.Context, id string) (*models.NSSFReturnView, error) {
	var view models.NSSFReturnView
	if err := r.db.GetContext(ctx, &view, nssfReturnViewSelect+" WHERE r.id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find nssf return: %w", err)
	}
	view.Late = view.IsLate()
	return &view, nil
}

func returnConditions(filter models.NSSFReturnFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.CompanyUserID != "" {
		conditions = append(conditions, fmt.Sprintf("c.user_id = $%d", len(args)+1))
		args = append(args, filter.CompanyUserID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.MonthFrom != nil {
		conditions = append(conditions, fmt.Sprintf("r.month >= $%d", len(args)+1))
		args = append(args, *filter.MonthFrom)
	}
	if filter.MonthTo != nil {
		conditions = append(conditions, fmt.Sprintf("r.month <= $%d", len(args)+1))
		args = append(args, *filter.MonthTo)
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns a page of returns, most recent month first.
func (r *NSSFReturnRepository) List(ctx context.Context, filter models.NSSFReturnFilter) ([]models.NSSFReturnView, int, error) {
	where, args := returnConditions(filter)
	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY r.month DESC, c.name ASC LIMIT %d OFFSET %d", nssfReturnViewSelect, where, size, offset)
	var items []models.NSSFReturnView
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list nssf returns: %w", err)
	}
	for i := range items {
		items[i].Late = items[i].IsLate()
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM nssf_returns r JOIN companies c ON c.id = r.company_id" + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count nssf returns: %w", err)
	}
	return items, total, nil
}

// ListAll returns every return matching filter ordered by month, for exports.
func (r *NSSFReturnRepository) ListAll(ctx context.Context, filter models.NSSFReturnFilter) ([]models.NSSFReturnView, error) {
	where, args := returnConditions(filter)
	var items []models.NSSFReturnView
	if err := r.db.SelectContext(ctx, &items, nssfReturnViewSelect+where+" ORDER BY r.month ASC, c.name ASC", args...); err != nil {
		return nil, fmt.Errorf("list all nssf returns: %w", err)
	}
	for i := range items {
		items[i].Late = items[i].IsLate()
	}
	return items, nil
}

// UpdateProcessing persists the administrative processing fields.
func (r *NSSFReturnRepository) UpdateProcessing(ctx context.Context, ret *models.NSSFReturn) error {
	const query = `UPDATE nssf_returns SET status = :status, is_processed = :is_processed, processed_at = :processed_at, processed_by = :processed_by, notes = :notes WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, ret)
	if err != nil {
		return fmt.Errorf("update nssf return processing: %w", err)
	}
	return expectAffected(res, "update nssf return processing")
}

// CountUnprocessed counts returns not yet processed, optionally for one company user.
func (r *NSSFReturnRepository) CountUnprocessed(ctx context.Context, companyUserID string) (int, error) {
	query := `SELECT COUNT(*) FROM nssf_returns r JOIN companies c ON c.id = r.company_id WHERE r.is_processed = FALSE`
	var args []interface{}
	if companyUserID != "" {
		query += ` AND c.user_id = $1`
		args = append(args, companyUserID)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count unprocessed nssf returns: %w", err)
	}
	return total, nil
}
