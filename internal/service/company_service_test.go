package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attachment-portal-api/internal/models"
	appErrors "github.com/noah-isme/attachment-portal-api/pkg/errors"
)

type memoryCompanies struct {
	byID map[string]*models.Company
	seq  int
}

func (m *memoryCompanies) FindByID(ctx context.Context, id string) (*models.Company, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *memoryCompanies) FindByUserID(ctx context.Context, userID string) (*models.Company, error) {
	for _, c := range m.byID {
		if c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryCompanies) EnsureForUser(ctx context.Context, userID, name, address string) (*models.Company, error) {
	if existing, err := m.FindByUserID(ctx, userID); err == nil {
		return existing, nil
	}
	company := &models.Company{UserID: userID, Name: name, Address: address}
	if err := m.Create(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}

func (m *memoryCompanies) List(ctx context.Context, filter models.CompanyFilter) ([]models.CompanyDetail, int, error) {
	var out []models.CompanyDetail
	for _, c := range m.byID {
		out = append(out, models.CompanyDetail{Company: *c})
	}
	return out, len(out), nil
}

func (m *memoryCompanies) Create(ctx context.Context, company *models.Company) error {
	for _, c := range m.byID {
		if c.UserID == company.UserID {
			return &pq.Error{Code: "23505", Constraint: companyUserConstraint}
		}
	}
	m.seq++
	if company.ID == "" {
		company.ID = fmt.Sprintf("company-%d", m.seq)
	}
	cp := *company
	m.byID[company.ID] = &cp
	return nil
}

func (m *memoryCompanies) Update(ctx context.Context, company *models.Company) error {
	if _, ok := m.byID[company.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *company
	m.byID[company.ID] = &cp
	return nil
}

func (m *memoryCompanies) Delete(ctx context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.byID, id)
	return nil
}

const companyUserUUID = "9c1b8a5e-2f0d-4b7a-8c3e-1a2b3c4d5e6f"

func newCompanyFixture() (*CompanyService, *memoryCompanies) {
	repo := &memoryCompanies{byID: map[string]*models.Company{}}
	users := newMemoryUsers(
		&models.User{ID: companyUserUUID, Username: "acme", FullName: "Acme", Role: models.RoleCompany},
		&models.User{ID: "3f8e7d6c-5b4a-4c3d-9e2f-1a0b9c8d7e6f", Username: "stu", Role: models.RoleStudent},
	)
	return NewCompanyService(repo, users, nil, nil), repo
}

func TestEnsureCompanyProfileIsIdempotent(t *testing.T) {
	svc, repo := newCompanyFixture()
	user := &models.User{ID: companyUserUUID, Username: "acme", FullName: "Acme", Role: models.RoleCompany}

	first, err := svc.EnsureCompanyProfile(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, "Acme's Company", first.Name)
	assert.Equal(t, placeholderCompanyAddress, first.Address)

	second, err := svc.EnsureCompanyProfile(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.byID, 1)
}

func TestEnsureCompanyProfileRejectsStudents(t *testing.T) {
	svc, _ := newCompanyFixture()
	_, err := svc.EnsureCompanyProfile(context.Background(), &models.User{ID: "s", Role: models.RoleStudent})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCompanyGetOwnMissingProfile(t *testing.T) {
	svc, _ := newCompanyFixture()
	_, err := svc.GetOwn(context.Background(), companyAActor)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrProfileMissing.Code, appErr.Code)
	assert.Equal(t, companyRegisterPath, appErr.Redirect)
}

func TestCompanySaveOwnCreatesThenUpdates(t *testing.T) {
	svc, repo := newCompanyFixture()
	nssf := "  NS-77 "
	created, err := svc.SaveOwn(context.Background(), companyAActor, models.CompanyRequest{Name: " Acme Ltd ", Address: "Nairobi", NSSFNumber: &nssf})
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", created.Name)
	require.NotNil(t, created.NSSFNumber)
	assert.Equal(t, "NS-77", *created.NSSFNumber)

	blank := " "
	updated, err := svc.SaveOwn(context.Background(), companyAActor, models.CompanyRequest{Name: "Acme Group", Address: "Mombasa", NSSFNumber: &blank})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Nil(t, updated.NSSFNumber)
	assert.Len(t, repo.byID, 1)

	_, err = svc.SaveOwn(context.Background(), studentActor, models.CompanyRequest{Name: "x", Address: "y"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCompanyAdminCreate(t *testing.T) {
	svc, _ := newCompanyFixture()
	company, err := svc.Create(context.Background(), models.CompanyRequest{UserID: companyUserUUID, Name: "Acme", Address: "Nairobi"})
	require.NoError(t, err)
	assert.Equal(t, companyUserUUID, company.UserID)

	_, err = svc.Create(context.Background(), models.CompanyRequest{UserID: companyUserUUID, Name: "Acme 2", Address: "Nairobi"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), models.CompanyRequest{UserID: "3f8e7d6c-5b4a-4c3d-9e2f-1a0b9c8d7e6f", Name: "Nope", Address: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCompanyUpdateOwnership(t *testing.T) {
	svc, repo := newCompanyFixture()
	repo.byID[companyAID] = &models.Company{ID: companyAID, UserID: "co-a", Name: "Acme", Address: "Nairobi"}

	_, err := svc.Update(context.Background(), companyBActor, companyAID, models.CompanyRequest{Name: "Hijack", Address: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	updated, err := svc.Update(context.Background(), adminActor, companyAID, models.CompanyRequest{Name: "Acme Intl", Address: "Kisumu"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Intl", updated.Name)

	require.NoError(t, svc.Delete(context.Background(), companyAID))
	err = svc.Delete(context.Background(), companyAID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
