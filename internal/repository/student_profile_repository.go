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

const studentProfileColumns = `sp.id, sp.user_id, sp.student_id, sp.department, sp.created_at, sp.updated_at`

// StudentProfileRepository manages student profiles.
type StudentProfileRepository struct {
	db *sqlx.DB
}

// NewStudentProfileRepository constructs a StudentProfileRepository.
func NewStudentProfileRepository(db *sqlx.DB) *StudentProfileRepository {
	return &StudentProfileRepository{db: db}
}

// FindByID returns a profile by id.
func (r *StudentProfileRepository) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	query := `SELECT ` + studentProfileColumns + ` FROM student_profiles sp WHERE sp.id = $1`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student profile: %w", err)
	}
	return &profile, nil
}

// FindByUserID returns the profile owned by userID.
func (r *StudentProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	query := `SELECT ` + studentProfileColumns + ` FROM student_profiles sp WHERE sp.user_id = $1`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student profile by user: %w", err)
	}
	return &profile, nil
}

// List returns profiles joined with their users.
func (r *StudentProfileRepository) List(ctx context.Context, filter models.StudentProfileFilter) ([]models.StudentProfileDetail, int, error) {
	base := `FROM student_profiles sp JOIN users u ON u.id = sp.user_id WHERE 1=1`
	var args []interface{}
	if filter.Department != "" {
		base += fmt.Sprintf(" AND LOWER(sp.department) = $%d", len(args)+1)
		args = append(args, strings.ToLower(filter.Department))
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(sp.student_id) LIKE $%d OR LOWER(u.username) LIKE $%d OR LOWER(u.full_name) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s, u.username, u.full_name, u.email %s ORDER BY sp.student_id ASC LIMIT %d OFFSET %d`, studentProfileColumns, base, size, offset)
	var profiles []models.StudentProfileDetail
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list student profiles: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) `+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count student profiles: %w", err)
	}
	return profiles, total, nil
}

// Count returns the number of student profiles.
func (r *StudentProfileRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM student_profiles`); err != nil {
		return 0, fmt.Errorf("count student profiles: %w", err)
	}
	return total, nil
}

// Create inserts a profile. student_id and user_id uniqueness is enforced by the schema.
func (r *StudentProfileRepository) Create(ctx context.Context, profile *models.StudentProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	const query = `INSERT INTO student_profiles (id, user_id, student_id, department, created_at, updated_at) VALUES (:id, :user_id, :student_id, :department, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create student profile: %w", err)
	}
	return nil
}

// Update modifies the editable profile fields.
func (r *StudentProfileRepository) Update(ctx context.Context, profile *models.StudentProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student_profiles SET student_id = :student_id, department = :department, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, profile)
	if err != nil {
		return fmt.Errorf("update student profile: %w", err)
	}
	return expectAffected(res, "update student profile")
}

// Delete removes a profile; attachments and NSSF details cascade.
func (r *StudentProfileRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM student_profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student profile: %w", err)
	}
	return expectAffected(res, "delete student profile")
}

// ListAll returns every profile ordered by student id, for exports.
func (r *StudentProfileRepository) ListAll(ctx context.Context) ([]models.StudentProfileDetail, error) {
	query := `SELECT ` + studentProfileColumns + `, u.username, u.full_name, u.email FROM student_profiles sp JOIN users u ON u.id = sp.user_id ORDER BY sp.student_id ASC`
	var profiles []models.StudentProfileDetail
	if err := r.db.SelectContext(ctx, &profiles, query); err != nil {
		return nil, fmt.Errorf("list all student profiles: %w", err)
	}
	return profiles, nil
}
