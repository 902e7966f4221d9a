package middleware

import (
	"net/http"
	"strings"

	"github.com/kiranshivaraju/shortforge/internal/api/response"
	"golang.org/x/crypto/bcrypt"
)

const keyPrefixLen = 8

// Auth guards admin routes with a single bcrypt-hashed API key.
type Auth struct {
	hash []byte
}

// NewAuth creates Auth from a bcrypt hash. An empty hash leaves admin routes open.
func NewAuth(apiKeyHash string) *Auth {
	return &Auth{hash: []byte(strings.TrimSpace(apiKeyHash))}
}

// Enabled reports whether an admin key is configured.
func (a *Auth) Enabled() bool {
	return len(a.hash) > 0
}

// RequireAdmin validates the Bearer token against the admin key hash and marks the
// request as admin in its context.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		rawKey := extractBearerToken(r)
		if rawKey == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		if len(rawKey) < keyPrefixLen {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key format", nil)
			return
		}

		if bcrypt.CompareHashAndPassword(a.hash, []byte(rawKey)) != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key", nil)
			return
		}

		ctx := setAdmin(r.Context())
		ctx = SetClientID(ctx, "key:"+rawKey[:keyPrefixLen])
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
