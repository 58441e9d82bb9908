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

type memoryProfiles struct {
	byID map[string]*models.StudentProfile
}

func (m *memoryProfiles) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *memoryProfiles) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	for _, p := range m.byID {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryProfiles) List(ctx context.Context, filter models.StudentProfileFilter) ([]models.StudentProfileDetail, int, error) {
	var out []models.StudentProfileDetail
	for _, p := range m.byID {
		out = append(out, models.StudentProfileDetail{StudentProfile: *p})
	}
	return out, len(out), nil
}

func (m *memoryProfiles) Create(ctx context.Context, profile *models.StudentProfile) error {
	for _, p := range m.byID {
		if p.UserID == profile.UserID {
			return &pq.Error{Code: "23505", Constraint: studentProfileUserConstraint}
		}
		if p.StudentID == profile.StudentID {
			return &pq.Error{Code: "23505", Constraint: "student_profiles_student_id_key"}
		}
	}
	profile.ID = fmt.Sprintf("profile-%d", len(m.byID)+1)
	cp := *profile
	m.byID[profile.ID] = &cp
	return nil
}

func (m *memoryProfiles) Update(ctx context.Context, profile *models.StudentProfile) error {
	if _, ok := m.byID[profile.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *profile
	m.byID[profile.ID] = &cp
	return nil
}

func (m *memoryProfiles) Delete(ctx context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.byID, id)
	return nil
}

const studentUserUUID = "5d6e7f80-91a2-4b3c-8d4e-5f6071829304"

func newStudentProfileFixture() (*StudentProfileService, *memoryProfiles) {
	repo := &memoryProfiles{byID: map[string]*models.StudentProfile{}}
	users := newMemoryUsers(
		&models.User{ID: studentUserUUID, Username: "stu", Role: models.RoleStudent},
		&models.User{ID: companyUserUUID, Username: "acme", Role: models.RoleCompany},
	)
	return NewStudentProfileService(repo, users, nil, nil), repo
}

func TestStudentProfileGetOwnMissing(t *testing.T) {
	svc, _ := newStudentProfileFixture()
	_, err := svc.GetOwn(context.Background(), studentActor)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrProfileMissing.Code, appErr.Code)
	assert.Equal(t, studentProfileCreatePath, appErr.Redirect)
}

func TestStudentProfileCreateOwnOnce(t *testing.T) {
	svc, _ := newStudentProfileFixture()
	profile, err := svc.CreateOwn(context.Background(), studentActor, models.StudentProfileRequest{StudentID: " S100 ", Department: "Computing"})
	require.NoError(t, err)
	assert.Equal(t, "stu", profile.UserID)
	assert.Equal(t, "S100", profile.StudentID)

	_, err = svc.CreateOwn(context.Background(), studentActor, models.StudentProfileRequest{StudentID: "S101", Department: "Computing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	other := models.Actor{UserID: "stu-2", Role: models.RoleStudent}
	_, err = svc.CreateOwn(context.Background(), other, models.StudentProfileRequest{StudentID: "S100", Department: "Law"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicate.Code, appErrors.FromError(err).Code)
}

func TestStudentProfileCreateOwnRequiresStudentRole(t *testing.T) {
	svc, _ := newStudentProfileFixture()
	_, err := svc.CreateOwn(context.Background(), companyAActor, models.StudentProfileRequest{StudentID: "S1", Department: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestStudentProfileAdminCreateChecksRole(t *testing.T) {
	svc, _ := newStudentProfileFixture()
	profile, err := svc.Create(context.Background(), models.StudentProfileRequest{UserID: studentUserUUID, StudentID: "S200", Department: "Engineering"})
	require.NoError(t, err)
	assert.Equal(t, studentUserUUID, profile.UserID)

	_, err = svc.Create(context.Background(), models.StudentProfileRequest{UserID: companyUserUUID, StudentID: "S201", Department: "Engineering"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), models.StudentProfileRequest{StudentID: "S202", Department: "Engineering"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentProfileUpdateOwnership(t *testing.T) {
	svc, repo := newStudentProfileFixture()
	repo.byID[profileID] = &models.StudentProfile{ID: profileID, UserID: "stu", StudentID: "S1", Department: "Law"}

	_, err := svc.Update(context.Background(), models.Actor{UserID: "stu-2", Role: models.RoleStudent}, profileID, models.StudentProfileRequest{StudentID: "S1", Department: "Art"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	updated, err := svc.Update(context.Background(), studentActor, profileID, models.StudentProfileRequest{StudentID: "S1", Department: "Art"})
	require.NoError(t, err)
	assert.Equal(t, "Art", updated.Department)

	require.NoError(t, svc.Delete(context.Background(), profileID))
	_, err = svc.Update(context.Background(), adminActor, profileID, models.StudentProfileRequest{StudentID: "S1", Department: "Art"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
