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

	"github.com/noah-isme/attachment-portal-api/internal/models"
)

const nssfDetailColumns = `d.id, d.student_profile_id, d.nssf_number, d.is_verified, d.verified_at, d.verified_by, d.membership_card, d.created_at, d.updated_at`

const nssfDetailViewSelect = `SELECT ` + nssfDetailColumns + `, sp.user_id AS student_user_id, sp.student_id AS student_number, u.full_name AS student_full_name
FROM nssf_details d
JOIN student_profiles sp ON sp.id = d.student_profile_id
JOIN users u ON u.id = sp.user_id`

// NSSFDetailRepository persists student NSSF membership records.
type NSSFDetailRepository struct {
	db *sqlx.DB
}

// NewNSSFDetailRepository constructs an NSSFDetailRepository.
func NewNSSFDetailRepository(db *sqlx.DB) *NSSFDetailRepository {
	return &NSSFDetailRepository{db: db}
}

// FindByID returns a detail with its student identity.
func (r *NSSFDetailRepository) FindByID(ctx context.Context, id string) (*models.NSSFDetailView, error) {
	var view models.NSSFDetailView
	if err := r.db.GetContext(ctx, &view, nssfDetailViewSelect+" WHERE d.id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find nssf detail: %w", err)
	}
	return &view, nil
}

// FindByStudentProfileID returns the detail belonging to a student profile.
func (r *NSSFDetailRepository) FindByStudentProfileID(ctx context.Context, profileID string) (*models.NSSFDetail, error) {
	query := `SELECT ` + nssfDetailColumns + ` FROM nssf_details d WHERE d.student_profile_id = $1`
	var detail models.NSSFDetail
	if err := r.db.GetContext(ctx, &detail, query, profileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find nssf detail by profile: %w", err)
	}
	return &detail, nil
}

// EnsureForProfile creates an empty unverified detail unless one exists and returns it.
func (r *NSSFDetailRepository) EnsureForProfile(ctx context.Context, profileID string) (*models.NSSFDetail, error) {
	now := time.Now().UTC()
	const query = `INSERT INTO nssf_details (id, student_profile_id, is_verified, created_at, updated_at)
VALUES ($1, $2, FALSE, $3, $3)
ON CONFLICT (student_profile_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), profileID, now); err != nil {
		return nil, fmt.Errorf("ensure nssf detail: %w", err)
	}
	return r.FindByStudentProfileID(ctx, profileID)
}

// UpdateSubmission stores the student-supplied number and, when given, a new card path.
func (r *NSSFDetailRepository) UpdateSubmission(ctx context.Context, id string, nssfNumber string, membershipCard *string) error {
	const query = `UPDATE nssf_details SET nssf_number = $2, membership_card = COALESCE($3, membership_card), updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, nssfNumber, membershipCard, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update nssf submission: %w", err)
	}
	return expectAffected(res, "update nssf submission")
}

// SetVerification persists the verification triple after normalising it.
func (r *NSSFDetailRepository) SetVerification(ctx context.Context, detail *models.NSSFDetail) error {
	now := time.Now().UTC()
	detail.Normalize(now)
	detail.UpdatedAt = now
	const query = `UPDATE nssf_details SET is_verified = :is_verified, verified_at = :verified_at, verified_by = :verified_by, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, detail)
	if err != nil {
		return fmt.Errorf("set nssf verification: %w", err)
	}
	return expectAffected(res, "set nssf verification")
}

// List returns details for administrative review.
func (r *NSSFDetailRepository) List(ctx context.Context, filter models.NSSFDetailFilter) ([]models.NSSFDetailView, int, error) {
	var conditions []string
	var args []interface{}
	if filter.Verified != nil {
		conditions = append(conditions, fmt.Sprintf("d.is_verified = $%d", len(args)+1))
		args = append(args, *filter.Verified)
	}
	if filter.Search != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(COALESCE(d.nssf_number, '')) LIKE $%d OR LOWER(sp.student_id) LIKE $%d OR LOWER(u.full_name) LIKE $%d)", n, n, n))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY d.created_at DESC LIMIT %d OFFSET %d", nssfDetailViewSelect, where, size, offset)
	var items []models.NSSFDetailView
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list nssf details: %w", err)
	}
	countQuery := `SELECT COUNT(*) FROM nssf_details d
JOIN student_profiles sp ON sp.id = d.student_profile_id
JOIN users u ON u.id = sp.user_id` + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count nssf details: %w", err)
	}
	return items, total, nil
}

// CountUnverified returns the number of details awaiting verification.
func (r *NSSFDetailRepository) CountUnverified(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM nssf_details WHERE is_verified = FALSE`); err != nil {
		return 0, fmt.Errorf("count unverified nssf details: %w", err)
	}
	return total, nil
}
