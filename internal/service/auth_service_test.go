package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusdesk/campus-api/internal/models"
	"github.com/campusdesk/campus-api/pkg/config"
	appErrors "github.com/campusdesk/campus-api/pkg/errors"
)

type fakeUserRepo struct {
	users map[string]*models.User
	taken map[string]bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*models.User{}, taken: map[string]bool{}}
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) ExistsByUsernameOrEmail(_ context.Context, username, email, _ string) (bool, error) {
	return f.taken[username] || f.taken[email], nil
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	user.ID = "u1"
	f.users[user.ID] = user
	f.taken[user.Username] = true
	f.taken[user.Email] = true
	return nil
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, id, username, email string) error {
	u := f.users[id]
	u.Username = username
	u.Email = email
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	f.users[id].PasswordHash = passwordHash
	return nil
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	f.users[id].LastLogin = &ts
	return nil
}

func newAuthFixture() (*fakeUserRepo, *AuthService) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, config.JWTConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "campus-api-test",
	}, nil, nil)
	return repo, svc
}

func registerUser(t *testing.T, svc *AuthService) *models.AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "admin",
		Email:    "admin@example.com",
		Password: "s3cret!",
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterIssuesUsableToken(t *testing.T) {
	_, svc := newAuthFixture()
	resp := registerUser(t, svc)

	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.NotEmpty(t, resp.Token)

	user, claims, err := svc.Authenticate(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestRegisterRejectsTakenUsername(t *testing.T) {
	repo, svc := newAuthFixture()
	repo.taken["admin"] = true

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "admin",
		Email:    "other@example.com",
		Password: "s3cret!",
	})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}

func TestLoginSucceedsWithCorrectPassword(t *testing.T) {
	repo, svc := newAuthFixture()
	registerUser(t, svc)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "Admin@Example.com",
		Password: "s3cret!",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.NotNil(t, repo.users["u1"].LastLogin)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	_, svc := newAuthFixture()
	registerUser(t, svc)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "wrong",
	})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, err))
}

func TestLoginRejectsDeactivatedUser(t *testing.T) {
	repo, svc := newAuthFixture()
	registerUser(t, svc)
	repo.users["u1"].Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "s3cret!",
	})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, err))
}

func TestAuthenticateRejectsGarbageToken(t *testing.T) {
	_, svc := newAuthFixture()

	_, _, err := svc.Authenticate(context.Background(), "not-a-token")
	assert.Equal(t, appErrors.ErrInvalidToken.Code, errorCode(t, err))
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	_, svc := newAuthFixture()

	// Issue a token whose expiry is already in the past.
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	resp := registerUser(t, svc)
	svc.now = time.Now

	_, _, err := svc.Authenticate(context.Background(), resp.Token)
	assert.Equal(t, appErrors.ErrTokenExpired.Code, errorCode(t, err))
}

func TestAuthenticateRejectsDeactivatedUser(t *testing.T) {
	repo, svc := newAuthFixture()
	resp := registerUser(t, svc)
	repo.users["u1"].Active = false

	_, _, err := svc.Authenticate(context.Background(), resp.Token)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, errorCode(t, err))
}

func TestChangePasswordRequiresCurrentPassword(t *testing.T) {
	repo, svc := newAuthFixture()
	registerUser(t, svc)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "newpassword",
	})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, err))

	require.NoError(t, svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		CurrentPassword: "s3cret!",
		NewPassword:     "newpassword",
	}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users["u1"].PasswordHash), []byte("newpassword")))
}

func TestUpdateProfileRejectsTakenEmail(t *testing.T) {
	repo, svc := newAuthFixture()
	registerUser(t, svc)
	repo.taken["other@example.com"] = true

	email := "other@example.com"
	_, err := svc.UpdateProfile(context.Background(), "u1", models.UpdateProfileRequest{Email: &email})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}
