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

const companyColumns = `c.id, c.user_id, c.name, c.address, c.nssf_number, c.created_at, c.updated_at`

// CompanyRepository manages company profiles.
type CompanyRepository struct {
	db *sqlx.DB
}

// NewCompanyRepository constructs a CompanyRepository.
func NewCompanyRepository(db *sqlx.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// FindByID returns a company by id.
func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies c WHERE c.id = $1`
	var company models.Company
	if err := r.db.GetContext(ctx, &company, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find company: %w", err)
	}
	return &company, nil
}

// FindByUserID returns the company owned by userID.
func (r *CompanyRepository) FindByUserID(ctx context.Context, userID string) (*models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies c WHERE c.user_id = $1`
	var company models.Company
	if err := r.db.GetContext(ctx, &company, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find company by user: %w", err)
	}
	return &company, nil
}

// EnsureForUser creates a placeholder company for userID unless one exists,
// then returns the stored profile.
func (r *CompanyRepository) EnsureForUser(ctx context.Context, userID, name, address string) (*models.Company, error) {
	now := time.Now().UTC()
	const query = `INSERT INTO companies (id, user_id, name, address, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), userID, name, address, now); err != nil {
		return nil, fmt.Errorf("ensure company: %w", err)
	}
	return r.FindByUserID(ctx, userID)
}

// List returns companies with owner details.
func (r *CompanyRepository) List(ctx context.Context, filter models.CompanyFilter) ([]models.CompanyDetail, int, error) {
	base := `FROM companies c JOIN users u ON u.id = c.user_id WHERE 1=1`
	var args []interface{}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(c.name) LIKE $%d OR LOWER(COALESCE(c.nssf_number, '')) LIKE $%d OR LOWER(u.username) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s, u.username, u.email AS user_email %s ORDER BY c.name ASC LIMIT %d OFFSET %d`, companyColumns, base, size, offset)
	var companies []models.CompanyDetail
	if err := r.db.SelectContext(ctx, &companies, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list companies: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) `+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count companies: %w", err)
	}
	return companies, total, nil
}

// Count returns the number of companies.
func (r *CompanyRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM companies`); err != nil {
		return 0, fmt.Errorf("count companies: %w", err)
	}
	return total, nil
}

// Create inserts a company profile.
func (r *CompanyRepository) Create(ctx context.Context, company *models.Company) error {
	if company.ID == "" {
		company.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	company.CreatedAt = now
	company.UpdatedAt = now
	const query = `INSERT INTO companies (id, user_id, name, address, nssf_number, created_at, updated_at) VALUES (:id, :user_id, :name, :address, :nssf_number, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, company); err != nil {
		return fmt.Errorf("create company: %w", err)
	}
	return nil
}

// Update modifies the editable company fields.
func (r *CompanyRepository) Update(ctx context.Context, company *models.Company) error {
	company.UpdatedAt = time.Now().UTC()
	const query = `UPDATE companies SET name = :name, address = :address, nssf_number = :nssf_number, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, company)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	return expectAffected(res, "update company")
}

// Delete removes a company; its attachments and returns cascade.
func (r *CompanyRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	return expectAffected(res, "delete company")
}

// ListAll returns every company ordered by name, for exports.
func (r *CompanyRepository) ListAll(ctx context.Context) ([]models.CompanyDetail, error) {
	query := `SELECT ` + companyColumns + `, u.username, u.email AS user_email FROM companies c JOIN users u ON u.id = c.user_id ORDER BY c.name ASC`
	var companies []models.CompanyDetail
	if err := r.db.SelectContext(ctx, &companies, query); err != nil {
		return nil, fmt.Errorf("list all companies: %w", err)
	}
	return companies, nil
}
