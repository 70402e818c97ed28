package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fabrica-erp/fabrica-erp/internal/auth"
	"github.com/fabrica-erp/fabrica-erp/internal/shared"
)

type stubRepo struct {
	users  []*auth.User
	nextID int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{nextID: 1}
}

func (s *stubRepo) CreateUser(ctx context.Context, user auth.User) (auth.User, error) {
	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return auth.User{}, auth.ErrUserExists
		}
	}
	user.ID = s.nextID
	s.nextID++
	user.IsActive = true
	stored := user
	s.users = append(s.users, &stored)
	return user, nil
}

func (s *stubRepo) FindByLogin(ctx context.Context, login string) (*auth.User, error) {
	for _, u := range s.users {
		if u.Username == login || u.Email == login {
			return u, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", time.Hour, false)
	handler := auth.NewHandler(nil, auth.NewService(repo), sessionManager)
	return handler, sessionManager
}

func seedUser(t *testing.T, repo *stubRepo, username, email, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = repo.CreateUser(context.Background(), auth.User{
		Username:     username,
		FullName:     "Test User",
		Email:        email,
		PasswordHash: string(hash),
	})
	require.NoError(t, err)
}

func TestRegister(t *testing.T) {
	handler, _ := newAuthHandler(t, newStubRepo())

	body := `{"fullName":"Ada Lovelace","username":"Ada","email":"ada@example.com","password":"supersecret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	res := httptest.NewRecorder()

	handler.Register(res, req)
	require.Equal(t, http.StatusCreated, res.Code)

	var payload struct {
		Message string    `json:"message"`
		User    auth.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.Equal(t, "User registered successfully", payload.Message)
	assert.Equal(t, "ada", payload.User.Username)
	assert.Equal(t, "Ada Lovelace", payload.User.FullName)
	assert.Equal(t, "ada@example.com", payload.User.Email)
	assert.False(t, payload.User.IsAdmin)
}

func TestRegisterAdminFlag(t *testing.T) {
	handler, _ := newAuthHandler(t, newStubRepo())

	body := `{"fullName":"Ada Lovelace","username":"ada","email":"ada@example.com","password":"supersecret","admin":true}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	res := httptest.NewRecorder()

	handler.Register(res, req)
	require.Equal(t, http.StatusCreated, res.Code)

	var payload struct {
		User auth.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.True(t, payload.User.IsAdmin)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newStubRepo()
	handler, _ := newAuthHandler(t, repo)
	seedUser(t, repo, "ada", "ada@example.com", "supersecret")

	body := `{"fullName":"Ada","username":"ada2","email":"ada@example.com","password":"supersecret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	res := httptest.NewRecorder()

	handler.Register(res, req)
	assert.Equal(t, http.StatusConflict, res.Code)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	repo := newStubRepo()
	handler, _ := newAuthHandler(t, repo)
	seedUser(t, repo, "ada", "ada@example.com", "supersecret")

	body := `{"fullName":"Ada","username":"Ada","email":"other@example.com","password":"supersecret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	res := httptest.NewRecorder()

	handler.Register(res, req)
	assert.Equal(t, http.StatusConflict, res.Code)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	handler, _ := newAuthHandler(t, newStubRepo())

	body := `{"fullName":"Ada","username":"ada","email":"ada@example.com","password":"short"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	res := httptest.NewRecorder()

	handler.Register(res, req)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLoginByEmailIssuesSession(t *testing.T) {
	repo := newStubRepo()
	handler, sessionManager := newAuthHandler(t, repo)
	seedUser(t, repo, "ada", "ada@example.com", "supersecret")

	body := `{"email":"ada@example.com","password":"supersecret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	res := httptest.NewRecorder()

	handler.Login(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	require.NotEmpty(t, payload.Token)

	// The token must resolve back to the user.
	check := httptest.NewRequest(http.MethodGet, "/", nil)
	check.Header.Set("Authorization", "Bearer "+payload.Token)
	sess, err := sessionManager.Load(context.Background(), check)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, int64(1), sess.UserID)
}

func TestLoginByUsername(t *testing.T) {
	repo := newStubRepo()
	handler, _ := newAuthHandler(t, repo)
	seedUser(t, repo, "ada", "ada@example.com", "supersecret")

	body := `{"username":"Ada","password":"supersecret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	res := httptest.NewRecorder()

	handler.Login(res, req)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestLoginWithoutLoginField(t *testing.T) {
	handler, _ := newAuthHandler(t, newStubRepo())

	body := `{"password":"supersecret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	res := httptest.NewRecorder()

	handler.Login(res, req)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newStubRepo()
	handler, _ := newAuthHandler(t, repo)
	seedUser(t, repo, "ada", "ada@example.com", "supersecret")

	body := `{"email":"ada@example.com","password":"wrong-password"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	res := httptest.NewRecorder()

	handler.Login(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLogoutDestroysSession(t *testing.T) {
	repo := newStubRepo()
	handler, sessionManager := newAuthHandler(t, repo)
	ctx := context.Background()

	sess, err := sessionManager.Issue(ctx, 1)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res := httptest.NewRecorder()

	handler.Logout(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	check := httptest.NewRequest(http.MethodGet, "/", nil)
	check.Header.Set("Authorization", "Bearer "+sess.ID)
	loaded, err := sessionManager.Load(ctx, check)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLogoutWithoutSession(t *testing.T) {
	handler, _ := newAuthHandler(t, newStubRepo())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	res := httptest.NewRecorder()

	handler.Logout(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}
