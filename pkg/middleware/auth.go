package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/Muhsiinn/JonasV2/pkg/logger"
)

type contextKeyType string

const identityKey contextKeyType = "identity"

// Identity is the authenticated principal resolved by the auth middleware.
type Identity struct {
	UserID   int64
	Email    string
	Username string
}

// Authorizer resolves a bearer token to an authenticated identity. Any error
// is collapsed into a single 401 response; callers never learn whether the
// token was expired, tampered with, or referenced a missing user.
type Authorizer func(ctx context.Context, token string) (*Identity, error)

// Auth middleware extracts the bearer token from the Authorization header,
// resolves it through the authorizer, and injects the identity into the
// request context. The scheme must be exactly "Bearer".
func Auth(authorize Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, "MISSING_TOKEN", "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				writeAuthError(w, "MISSING_TOKEN", "invalid authorization header format")
				return
			}

			identity, err := authorize(r.Context(), parts[1])
			if err != nil {
				writeAuthError(w, "UNAUTHORIZED", "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			ctx = logger.WithUserID(ctx, strconv.FormatInt(identity.UserID, 10))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext extracts the authenticated identity from the request
// context. Returns nil if the request did not pass the auth middleware.
func IdentityFromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityKey).(*Identity); ok {
		return id
	}
	return nil
}

// UserIDFromContext extracts the authenticated user ID from the request
// context, or 0 if absent.
func UserIDFromContext(ctx context.Context) int64 {
	if id := IdentityFromContext(ctx); id != nil {
		return id.UserID
	}
	return 0
}

func writeAuthError(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
