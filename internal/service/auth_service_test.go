package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/attachment-portal-api/internal/models"
	appErrors "github.com/noah-isme/attachment-portal-api/pkg/errors"
)

type memoryUsers struct {
	byID      map[string]*models.User
	lastLogin bool
	deleted   []string
}

func newMemoryUsers(users ...*models.User) *memoryUsers {
	m := &memoryUsers{byID: map[string]*models.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memoryUsers) FindByLogin(ctx context.Context, identifier string) (*models.User, error) {
	for _, u := range m.byID {
		if u.Username == identifier || strings.EqualFold(u.Email, identifier) {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *memoryUsers) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range m.byID {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *memoryUsers) Create(ctx context.Context, user *models.User) error {
	for _, u := range m.byID {
		if u.Username == user.Username || u.Email == user.Email {
			return &pq.Error{Code: "23505", Constraint: "users_username_key"}
		}
	}
	m.byID[user.ID] = user
	return nil
}

func (m *memoryUsers) Update(ctx context.Context, user *models.User) error {
	if _, ok := m.byID[user.ID]; !ok {
		return sql.ErrNoRows
	}
	m.byID[user.ID] = user
	return nil
}

func (m *memoryUsers) Delete(ctx context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.byID, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memoryUsers) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogin = true
	return nil
}

func (m *memoryUsers) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	u, ok := m.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	return nil
}

type memoryTokens struct {
	byValue    map[string]*models.RefreshToken
	revokedAll []string
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{byValue: map[string]*models.RefreshToken{}}
}

func (m *memoryTokens) Create(ctx context.Context, token *models.RefreshToken) error {
	m.byValue[token.Token] = token
	return nil
}

func (m *memoryTokens) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	t, ok := m.byValue[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t, nil
}

func (m *memoryTokens) Revoke(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range m.byValue {
		if t.ID == id {
			t.Revoked = true
		}
	}
	return nil
}

func (m *memoryTokens) RevokeAllForUser(ctx context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	for _, t := range m.byValue {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

type recordingAudit struct {
	logs []*models.AuditLog
}

func (r *recordingAudit) Create(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func (r *recordingAudit) actions() []string {
	out := make([]string, 0, len(r.logs))
	for _, l := range r.logs {
		out = append(out, l.Action)
	}
	return out
}

type stubProvisioner struct {
	err         error
	provisioned []string
}

func (s *stubProvisioner) EnsureCompanyProfile(ctx context.Context, user *models.User) (*models.Company, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.provisioned = append(s.provisioned, user.ID)
	return &models.Company{ID: "company-" + user.ID, UserID: user.ID, Name: user.FullName}, nil
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

type authFixture struct {
	svc      *AuthService
	users    *memoryUsers
	tokens   *memoryTokens
	audit    *recordingAudit
	provider *stubProvisioner
}

func newAuthFixture(t *testing.T, cfg AuthConfig) *authFixture {
	t.Helper()
	if cfg.AccessTokenSecret == "" {
		cfg.AccessTokenSecret = "secret"
	}
	if cfg.AccessTokenExpiry == 0 {
		cfg.AccessTokenExpiry = 15 * time.Minute
	}
	if cfg.RefreshTokenExpiry == 0 {
		cfg.RefreshTokenExpiry = 24 * time.Hour
	}
	users := newMemoryUsers(&models.User{
		ID:           "user-1",
		Username:     "jdoe",
		Email:        "jdoe@example.com",
		FullName:     "Jane Doe",
		Role:         models.RoleStudent,
		Active:       true,
		PasswordHash: hashed(t, "password123"),
	})
	f := &authFixture{users: users, tokens: newMemoryTokens(), audit: &recordingAudit{}, provider: &stubProvisioner{}}
	f.svc = NewAuthService(users, f.tokens, f.audit, f.provider, nil, nil, cfg)
	return f
}

func TestAuthRegisterStudent(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	info, err := f.svc.Register(context.Background(), models.RegisterRequest{
		Username: "student2",
		Email:    "Student2@Example.com",
		Password: "password123",
		FullName: "Second Student",
		Role:     models.RoleStudent,
	}, models.LoginRequest{IP: "127.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "student2@example.com", info.Email)
	assert.Equal(t, models.RoleStudent, info.Role)
	assert.Empty(t, f.provider.provisioned)
	assert.Contains(t, f.audit.actions(), models.AuditActionRegister)
}

func TestAuthRegisterCompanyProvisionsProfile(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	info, err := f.svc.Register(context.Background(), models.RegisterRequest{
		Username: "acme",
		Email:    "hr@acme.example",
		Password: "password123",
		FullName: "Acme Ltd",
		Role:     models.RoleCompany,
	}, models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{info.ID}, f.provider.provisioned)
}

func TestAuthRegisterCompanyRollsBackOnProvisioningFailure(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	f.provider.err = appErrors.Clone(appErrors.ErrInternal, "failed to create company")
	_, err := f.svc.Register(context.Background(), models.RegisterRequest{
		Username: "acme",
		Email:    "hr@acme.example",
		Password: "password123",
		FullName: "Acme Ltd",
		Role:     models.RoleCompany,
	}, models.LoginRequest{})
	require.Error(t, err)
	assert.Len(t, f.users.deleted, 1)
	_, findErr := f.users.FindByLogin(context.Background(), "acme")
	assert.ErrorIs(t, findErr, sql.ErrNoRows)
}

func TestAuthRegisterRejectsAdminRoleAndDuplicates(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	_, err := f.svc.Register(context.Background(), models.RegisterRequest{
		Username: "boss", Email: "boss@example.com", Password: "password123", FullName: "Boss", Role: models.RoleAdmin,
	}, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Register(context.Background(), models.RegisterRequest{
		Username: "jdoe", Email: "other@example.com", Password: "password123", FullName: "Dup", Role: models.RoleStudent,
	}, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicate.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginByUsernameOrEmail(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{Issuer: "portal"})
	for _, identifier := range []string{"jdoe", "JDOE@example.com"} {
		resp, err := f.svc.Login(context.Background(), models.LoginRequest{Identifier: identifier, Password: "password123"})
		require.NoError(t, err, identifier)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, int64(900), resp.ExpiresIn)

		claims, err := f.svc.ValidateToken(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, models.RoleStudent, claims.Role)
		assert.Equal(t, models.Actor{UserID: "user-1", Role: models.RoleStudent}, claims.Actor())
	}
	assert.True(t, f.users.lastLogin)
}

func TestAuthLoginFailures(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})

	_, err := f.svc.Login(context.Background(), models.LoginRequest{Identifier: "jdoe", Password: "wrong-password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Login(context.Background(), models.LoginRequest{Identifier: "ghost", Password: "password123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	f.users.byID["user-1"].Active = false
	_, err = f.svc.Login(context.Background(), models.LoginRequest{Identifier: "jdoe", Password: "password123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthSingleSessionRevokesPreviousTokens(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{SingleSession: true})
	first, err := f.svc.Login(context.Background(), models.LoginRequest{Identifier: "jdoe", Password: "password123"})
	require.NoError(t, err)
	_, err = f.svc.Login(context.Background(), models.LoginRequest{Identifier: "jdoe", Password: "password123"})
	require.NoError(t, err)
	assert.True(t, f.tokens.byValue[first.RefreshToken].Revoked)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	login, err := f.svc.Login(context.Background(), models.LoginRequest{Identifier: "jdoe", Password: "password123"})
	require.NoError(t, err)

	refreshed, err := f.svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.True(t, f.tokens.byValue[login.RefreshToken].Revoked)

	_, err = f.svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthRefreshExpiredToken(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	f.tokens.byValue["stale"] = &models.RefreshToken{ID: "t1", UserID: "user-1", Token: "stale", ExpiresAt: time.Now().Add(-time.Minute)}
	_, err := f.svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthLogoutRequiresOwnership(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	login, err := f.svc.Login(context.Background(), models.LoginRequest{Identifier: "jdoe", Password: "password123"})
	require.NoError(t, err)

	err = f.svc.Logout(context.Background(), login.RefreshToken, "someone-else", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, f.svc.Logout(context.Background(), login.RefreshToken, "user-1", models.LoginRequest{}))
	assert.True(t, f.tokens.byValue[login.RefreshToken].Revoked)
	assert.Contains(t, f.audit.actions(), models.AuditActionLogout)
}

func TestAuthChangePassword(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})

	err := f.svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{OldPassword: "nope", NewPassword: "newpassword1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, f.svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{OldPassword: "password123", NewPassword: "newpassword1"}))
	assert.Equal(t, []string{"user-1"}, f.tokens.revokedAll)

	_, err = f.svc.Login(context.Background(), models.LoginRequest{Identifier: "jdoe", Password: "newpassword1"})
	require.NoError(t, err)
}

func TestAuthValidateTokenRejectsForeignSecret(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	other := newAuthFixture(t, AuthConfig{AccessTokenSecret: "different"})
	resp, err := other.svc.Login(context.Background(), models.LoginRequest{Identifier: "jdoe", Password: "password123"})
	require.NoError(t, err)

	_, err = f.svc.ValidateToken(resp.AccessToken)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthMe(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	info, err := f.svc.Me(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", info.Username)

	_, err = f.svc.Me(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
