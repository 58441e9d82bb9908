package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/attachment-portal-api/internal/models"
)

const attachmentDetailSelect = `SELECT a.id, a.student_profile_id, a.company_id, a.start_date, a.end_date,
a.supervisor_name, a.supervisor_email, a.supervisor_phone, a.status, a.created_at, a.updated_at,
c.name AS company_name, c.user_id AS company_user_id, sp.user_id AS student_user_id,
sp.student_id AS student_number, u.username AS student_username, u.full_name AS student_full_name`

const attachmentFrom = `FROM attachments a
JOIN companies c ON c.id = a.company_id
JOIN student_profiles sp ON sp.id = a.student_profile_id
JOIN users u ON u.id = sp.user_id`

// AttachmentRepository persists attachments.
type AttachmentRepository struct {
	db *sqlx.DB
}

// NewAttachmentRepository constructs an AttachmentRepository.
func NewAttachmentRepository(db *sqlx.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// FindByID returns the attachment with its owning identities.
func (r *AttachmentRepository) FindByID(ctx context.Context, id string) (*models.AttachmentDetail, error) {
	query := attachmentDetailSelect + "\n" + attachmentFrom + "\nWHERE a.id = $1"
	var detail models.AttachmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find attachment: %w", err)
	}
	return &detail, nil
}

func attachmentConditions(filter models.AttachmentFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.StudentUserID != "" {
		conditions = append(conditions, fmt.Sprintf("sp.user_id = $%d", len(args)+1))
		args = append(args, filter.StudentUserID)
	}
	if filter.CompanyUserID != "" {
		conditions = append(conditions, fmt.Sprintf("c.user_id = $%d", len(args)+1))
		args = append(args, filter.CompanyUserID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.StartFrom != nil {
		conditions = append(conditions, fmt.Sprintf("a.start_date >= $%d", len(args)+1))
		args = append(args, *filter.StartFrom)
	}
	if filter.EndUntil != nil {
		conditions = append(conditions, fmt.Sprintf("a.end_date <= $%d", len(args)+1))
		args = append(args, *filter.EndUntil)
	}
	if filter.Search != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.name) LIKE $%d OR LOWER(a.supervisor_name) LIKE $%d OR LOWER(sp.student_id) LIKE $%d OR LOWER(u.username) LIKE $%d)", n, n, n, n))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// List returns a page of attachments matching filter, newest first.
func (r *AttachmentRepository) List(ctx context.Context, filter models.AttachmentFilter) ([]models.AttachmentDetail, int, error) {
	where, args := attachmentConditions(filter)
	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s\n%s\n%s\nORDER BY a.created_at DESC LIMIT %d OFFSET %d", attachmentDetailSelect, attachmentFrom, where, size, offset)
	var items []models.AttachmentDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attachments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*)\n%s\n%s", attachmentFrom, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attachments: %w", err)
	}
	return items, total, nil
}

// ListAll returns every attachment matching filter ordered by start date, for exports.
func (r *AttachmentRepository) ListAll(ctx context.Context, filter models.AttachmentFilter) ([]models.AttachmentDetail, error) {
	where, args := attachmentConditions(filter)
	query := fmt.Sprintf("%s\n%s\n%s\nORDER BY a.start_date ASC", attachmentDetailSelect, attachmentFrom, where)
	var items []models.AttachmentDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list all attachments: %w", err)
	}
	return items, nil
}

// Create inserts a new attachment.
func (r *AttachmentRepository) Create(ctx context.Context, attachment *models.Attachment) error {
	if attachment.ID == "" {
		attachment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	attachment.CreatedAt = now
	attachment.UpdatedAt = now
	const query = `INSERT INTO attachments (id, student_profile_id, company_id, start_date, end_date, supervisor_name, supervisor_email, supervisor_phone, status, created_at, updated_at)
VALUES (:id, :student_profile_id, :company_id, :start_date, :end_date, :supervisor_name, :supervisor_email, :supervisor_phone, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attachment); err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

// Update writes editable fields. Status only changes through TransitionStatus.
func (r *AttachmentRepository) Update(ctx context.Context, attachment *models.Attachment) error {
	attachment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE attachments SET company_id = :company_id, start_date = :start_date, end_date = :end_date,
supervisor_name = :supervisor_name, supervisor_email = :supervisor_email, supervisor_phone = :supervisor_phone, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, attachment)
	if err != nil {
		return fmt.Errorf("update attachment: %w", err)
	}
	return expectAffected(res, "update attachment")
}

// Delete removes an attachment.
func (r *AttachmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return expectAffected(res, "delete attachment")
}

// TransitionStatus moves the attachment to `to` only while its current status
// is one of `from`. It reports whether a row was updated.
func (r *AttachmentRepository) TransitionStatus(ctx context.Context, id string, from []models.AttachmentStatus, to models.AttachmentStatus) (bool, error) {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	const query = `UPDATE attachments SET status = $2, updated_at = $3 WHERE id = $1 AND status = ANY($4)`
	res, err := r.db.ExecContext(ctx, query, id, to, time.Now().UTC(), pq.Array(allowed))
	if err != nil {
		return false, fmt.Errorf("transition attachment status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition attachment rows affected: %w", err)
	}
	return n > 0, nil
}

// CountByStatus groups attachments within the filter scope by status.
func (r *AttachmentRepository) CountByStatus(ctx context.Context, filter models.AttachmentFilter) ([]models.StatusCount, error) {
	where, args := attachmentConditions(filter)
	query := fmt.Sprintf("SELECT a.status, COUNT(*) AS count\n%s\n%s\nGROUP BY a.status ORDER BY a.status", attachmentFrom, where)
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("count attachments by status: %w", err)
	}
	return counts, nil
}

// CountByStartMonth groups attachments by the month they start.
func (r *AttachmentRepository) CountByStartMonth(ctx context.Context) ([]models.MonthCount, error) {
	const query = `SELECT date_trunc('month', start_date)::date AS month, COUNT(*) AS count FROM attachments GROUP BY 1 ORDER BY 1`
	var counts []models.MonthCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count attachments by month: %w", err)
	}
	return counts, nil
}

// CountByCompany groups attachments by host company, busiest first.
func (r *AttachmentRepository) CountByCompany(ctx context.Context) ([]models.CompanyCount, error) {
	const query = `SELECT c.id AS company_id, c.name AS company_name, COUNT(a.id) AS count
FROM companies c JOIN attachments a ON a.company_id = c.id
GROUP BY c.id, c.name ORDER BY count DESC, c.name ASC`
	var counts []models.CompanyCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count attachments by company: %w", err)
	}
	return counts, nil
}
