package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Muhsiinn/JonasV2/internal/auth"
	"github.com/Muhsiinn/JonasV2/internal/domain"
	"github.com/Muhsiinn/JonasV2/internal/service"
	apperrors "github.com/Muhsiinn/JonasV2/pkg/errors"
	"github.com/Muhsiinn/JonasV2/pkg/health"
)

// ============================================================================
// In-memory repository
// ============================================================================

// memoryUserRepo is a threadsafe in-memory repository.UserRepository used to
// drive full request flows through the router.
type memoryUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{nextID: 1, users: make(map[int64]*domain.User)}
}

func (r *memoryUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return domain.ErrEmailAlreadyRegistered
		}
		if existing.Username == u.Username {
			return domain.ErrUsernameTaken
		}
	}
	u.ID = r.nextID
	r.nextID++
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memoryUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// noopPublisher discards events.
type noopPublisher struct{}

func (noopPublisher) PublishUserRegistered(context.Context, *domain.User) error { return nil }
func (noopPublisher) PublishUserLoggedIn(context.Context, *domain.User) error   { return nil }

// ============================================================================
// Fixtures
// ============================================================================

func newTestRouter(t *testing.T) (http.Handler, *memoryUserRepo) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	jwtManager, err := auth.NewJWTManager("handler-test-secret", "HS256", 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)

	repo := newMemoryUserRepo()
	svc := service.NewAuthService(repo, auth.NewPasswordHasher(bcrypt.MinCost), jwtManager, noopPublisher{}, logger)

	router := NewRouter(svc, health.NewHandler(), logger, CORSConfig{Environment: "development"})
	return router, repo
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeTokens(t *testing.T, rr *httptest.ResponseRecorder) domain.TokenPair {
	t.Helper()
	var tokens domain.TokenPair
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tokens))
	return tokens
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	return env.Error.Code
}

// ============================================================================
// Register
// ============================================================================

func TestRegister_Success(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "Sup3rSecret",
	}, nil)

	require.Equal(t, http.StatusCreated, rr.Code)
	tokens := decodeTokens(t, rr)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.NotEqual(t, tokens.AccessToken, tokens.RefreshToken)
	assert.Equal(t, domain.TokenTypeBearer, tokens.TokenType)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	router, _ := newTestRouter(t)

	first := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "Sup3rSecret",
	}, nil)
	require.Equal(t, http.StatusCreated, first.Code)

	second := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Username: "different",
		Password: "Sup3rSecret",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, second.Code)
	assert.Equal(t, "EMAIL_ALREADY_REGISTERED", errorCode(t, second))
}

func TestRegister_DuplicateUsername(t *testing.T) {
	router, _ := newTestRouter(t)

	first := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "Sup3rSecret",
	}, nil)
	require.Equal(t, http.StatusCreated, first.Code)

	second := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "other@example.com",
		Username: "alice",
		Password: "Sup3rSecret",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, second.Code)
	assert.Equal(t, "USERNAME_TAKEN", errorCode(t, second))
}

func TestRegister_ValidationErrors(t *testing.T) {
	router, _ := newTestRouter(t)

	cases := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing email", RegisterRequest{Username: "alice", Password: "Sup3rSecret"}},
		{"bad email", RegisterRequest{Email: "not-an-email", Username: "alice", Password: "Sup3rSecret"}},
		{"short password", RegisterRequest{Email: "a@b.com", Username: "alice", Password: "short"}},
		{"short username", RegisterRequest{Email: "a@b.com", Username: "ab", Password: "Sup3rSecret"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", tc.req, nil)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rr))
		})
	}
}

func TestRegister_MalformedBody(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_INPUT", errorCode(t, rr))
}

func TestRegister_RequiresJSONContentType(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString("email=a@b.com"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

// ============================================================================
// Login
// ============================================================================

func TestLogin_Success(t *testing.T) {
	router, _ := newTestRouter(t)

	reg := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "Sup3rSecret",
	}, nil)
	require.Equal(t, http.StatusCreated, reg.Code)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Email:    "alice@example.com",
		Password: "Sup3rSecret",
	}, nil)

	require.Equal(t, http.StatusOK, rr.Code)
	tokens := decodeTokens(t, rr)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
}

func TestLogin_WrongPassword(t *testing.T) {
	router, _ := newTestRouter(t)

	reg := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "Sup3rSecret",
	}, nil)
	require.Equal(t, http.StatusCreated, reg.Code)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Email:    "alice@example.com",
		Password: "WrongPassword",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, rr))
}

func TestLogin_UnknownEmail(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Email:    "ghost@example.com",
		Password: "whatever1",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, rr))
}

func TestLogin_InactiveUser(t *testing.T) {
	router, repo := newTestRouter(t)

	reg := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "Sup3rSecret",
	}, nil)
	require.Equal(t, http.StatusCreated, reg.Code)

	repo.mu.Lock()
	repo.users[1].IsActive = false
	repo.mu.Unlock()

	rr := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Email:    "alice@example.com",
		Password: "Sup3rSecret",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// ============================================================================
// Refresh
// ============================================================================

func TestRefresh_Success(t *testing.T) {
	router, _ := newTestRouter(t)

	reg := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "Sup3rSecret",
	}, nil)
	require.Equal(t, http.StatusCreated, reg.Code)
	original := decodeTokens(t, reg)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/auth/refresh", RefreshRequest{
		RefreshToken: original.RefreshToken,
	}, nil)

	require.Equal(t, http.StatusOK, rr.Code)
	refreshed := decodeTokens(t, rr)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, original.RefreshToken, refreshed.RefreshToken)
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	router, _ := newTestRouter(t)

	reg := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "Sup3rSecret",
	}, nil)
	require.Equal(t, http.StatusCreated, reg.Code)
	tokens := decodeTokens(t, reg)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/auth/refresh", RefreshRequest{
		RefreshToken: tokens.AccessToken,
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRefresh_GarbageToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/auth/refresh", RefreshRequest{
		RefreshToken: "garbage",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, rr))
}

// ============================================================================
// Protected endpoints
// ============================================================================

func TestMe_Success(t *testing.T) {
	router, _ := newTestRouter(t)

	reg := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "Sup3rSecret",
	}, nil)
	require.Equal(t, http.StatusCreated, reg.Code)
	tokens := decodeTokens(t, reg)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/users/me", nil, map[string]string{
		"Authorization": "Bearer " + tokens.AccessToken,
	})

	require.Equal(t, http.StatusOK, rr.Code)
	var user domain.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "alice", user.Username)
	assert.NotContains(t, rr.Body.String(), "password_hash")
}

func TestMe_MissingToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/users/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMe_RefreshTokenRejected(t *testing.T) {
	router, _ := newTestRouter(t)

	reg := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "Sup3rSecret",
	}, nil)
	require.Equal(t, http.StatusCreated, reg.Code)
	tokens := decodeTokens(t, reg)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/users/me", nil, map[string]string{
		"Authorization": "Bearer " + tokens.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMe_WrongScheme(t *testing.T) {
	router, _ := newTestRouter(t)

	reg := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "Sup3rSecret",
	}, nil)
	require.Equal(t, http.StatusCreated, reg.Code)
	tokens := decodeTokens(t, reg)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/users/me", nil, map[string]string{
		"Authorization": "Basic " + tokens.AccessToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogout_Success(t *testing.T) {
	router, _ := newTestRouter(t)

	reg := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "Sup3rSecret",
	}, nil)
	require.Equal(t, http.StatusCreated, reg.Code)
	tokens := decodeTokens(t, reg)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", nil, map[string]string{
		"Authorization": "Bearer " + tokens.AccessToken,
	})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "successfully logged out")
}

func TestLogout_WithoutToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// ============================================================================
// Full flow
// ============================================================================

func TestAuthFlow_EndToEnd(t *testing.T) {
	router, _ := newTestRouter(t)

	// Register.
	reg := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "flow@example.com",
		Username: "flowuser",
		Password: "Sup3rSecret",
	}, nil)
	require.Equal(t, http.StatusCreated, reg.Code)
	regTokens := decodeTokens(t, reg)

	// Login with the right password.
	login := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Email:    "flow@example.com",
		Password: "Sup3rSecret",
	}, nil)
	require.Equal(t, http.StatusOK, login.Code)
	loginTokens := decodeTokens(t, login)

	// Wrong password fails.
	badLogin := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Email:    "flow@example.com",
		Password: "NotThePassword",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, badLogin.Code)

	// Both access tokens work against the protected profile endpoint.
	for i, token := range []string{regTokens.AccessToken, loginTokens.AccessToken} {
		me := doJSON(t, router, http.MethodGet, "/api/v1/users/me", nil, map[string]string{
			"Authorization": "Bearer " + token,
		})
		assert.Equal(t, http.StatusOK, me.Code, fmt.Sprintf("token %d", i))
	}

	// Refresh rotates the pair.
	refresh := doJSON(t, router, http.MethodPost, "/api/v1/auth/refresh", RefreshRequest{
		RefreshToken: loginTokens.RefreshToken,
	}, nil)
	require.Equal(t, http.StatusOK, refresh.Code)
	newTokens := decodeTokens(t, refresh)
	assert.NotEqual(t, loginTokens.RefreshToken, newTokens.RefreshToken)

	// The new access token is valid.
	me := doJSON(t, router, http.MethodGet, "/api/v1/users/me", nil, map[string]string{
		"Authorization": "Bearer " + newTokens.AccessToken,
	})
	assert.Equal(t, http.StatusOK, me.Code)
}

// ============================================================================
// Health endpoints
// ============================================================================

func TestHealthEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	live := doJSON(t, router, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, live.Code)

	ready := doJSON(t, router, http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, ready.Code)
}
