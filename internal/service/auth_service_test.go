package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	appErrors "github.com/mohsenjasser15-hash/jexam-api/pkg/errors"
)

type mockAuthRepo struct {
	usersByEmail  map[string]*models.User
	usersByID     map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	created       *models.User
	auditLogs     []models.AuditLog
	revokedAll    []string
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		usersByEmail:  make(map[string]*models.User),
		usersByID:     make(map[string]*models.User),
		refreshTokens: make(map[string]*models.RefreshToken),
	}
}

func (m *mockAuthRepo) addUser(user *models.User) {
	m.usersByEmail[user.Email] = user
	m.usersByID[user.ID] = user
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.usersByID[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	m.created = user
	m.addUser(user)
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := m.refreshTokens[token]; ok {
		return stored, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, *log)
	return nil
}

func newAuthFixture(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Minute,
		RefreshTokenExpiry: time.Hour,
		Issuer:             "jexam-test",
	})
}

func hashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestRegisterCreatesStudent(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthFixture(repo)

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "student@example.com",
		Password: "secret1",
		FullName: "Student One",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, info.Role)
	require.NotNil(t, repo.created)
	assert.True(t, repo.created.Active)
	assert.NotEqual(t, "secret1", repo.created.PasswordHash)
}

func TestRegisterTeacherRequiresCredentialCode(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthFixture(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "teacher@example.com",
		Password: "secret1",
		FullName: "Teacher One",
		Role:     models.RoleTeacher,
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestLoginIssuesTokens(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(&models.User{
		ID:           "user-1",
		Email:        "user@example.com",
		PasswordHash: hashPassword(t, "secret1"),
		FullName:     "User One",
		Role:         models.RoleTeacher,
		Active:       true,
	})
	svc := newAuthFixture(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "user-1", resp.User.ID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(&models.User{
		ID:           "user-1",
		Email:        "user@example.com",
		PasswordHash: hashPassword(t, "secret1"),
		Active:       true,
	})
	svc := newAuthFixture(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "wrong-1"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(&models.User{
		ID:           "user-1",
		Email:        "user@example.com",
		PasswordHash: hashPassword(t, "secret1"),
		Active:       false,
	})
	svc := newAuthFixture(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "secret1"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestRefreshTokenRotates(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(&models.User{
		ID:           "user-1",
		Email:        "user@example.com",
		PasswordHash: hashPassword(t, "secret1"),
		Active:       true,
	})
	svc := newAuthFixture(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "secret1"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// the consumed token is revoked and cannot be replayed
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(&models.User{
		ID:           "user-1",
		Email:        "user@example.com",
		PasswordHash: hashPassword(t, "secret1"),
		Active:       true,
	})
	svc := newAuthFixture(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "user-1", models.LoginRequest{}))
	assert.True(t, repo.refreshTokens[login.RefreshToken].Revoked)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newAuthFixture(newMockAuthRepo())

	_, err := svc.ValidateToken("not-a-token")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}
