package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okAuthorizer(identity *Identity) Authorizer {
	return func(ctx context.Context, token string) (*Identity, error) {
		return identity, nil
	}
}

func failAuthorizer() Authorizer {
	return func(ctx context.Context, token string) (*Identity, error) {
		return nil, errors.New("invalid token")
	}
}

func TestAuth_ValidToken(t *testing.T) {
	want := &Identity{UserID: 42, Email: "alice@example.com", Username: "alice"}

	var got *Identity
	handler := Auth(okAuthorizer(want))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, want, got)
}

func TestAuth_MissingHeader(t *testing.T) {
	handler := Auth(okAuthorizer(&Identity{}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "MISSING_TOKEN")
}

func TestAuth_WrongScheme(t *testing.T) {
	handler := Auth(okAuthorizer(&Identity{}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	for _, header := range []string{"Basic abc123", "bearer some-token", "Bearer", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", header)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code, header)
	}
}

func TestAuth_RejectedToken(t *testing.T) {
	handler := Auth(failAuthorizer())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "UNAUTHORIZED")
	assert.Contains(t, rr.Body.String(), "invalid or expired token")
}

func TestIdentityFromContext_Absent(t *testing.T) {
	assert.Nil(t, IdentityFromContext(context.Background()))
	assert.Equal(t, int64(0), UserIDFromContext(context.Background()))
}
