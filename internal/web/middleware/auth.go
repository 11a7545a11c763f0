// Package middleware provides HTTP middleware for the web server.
package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Role names, matching the upstream identity provider.
const (
	RoleAdmin        = "admin"
	RoleSalesManager = "sales_manager"
	RoleCSStaff      = "cs_staff"
)

// Identity is the authenticated caller as supplied by the identity
// provider: who they are and what they may do.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

// Resolver turns a bearer token into an identity. The production
// deployment plugs in the org's session service; StaticResolver serves
// development and tests.
type Resolver interface {
	Resolve(token string) (Identity, bool)
}

// StaticResolver resolves tokens from a fixed table, built from
// AUTH_TOKENS entries of the form token=userID:role.
type StaticResolver struct {
	entries []staticToken
}

type staticToken struct {
	token    string
	identity Identity
}

// NewStaticResolver parses config token entries. Malformed entries are
// skipped with a warning rather than failing startup; config validation
// already flags them.
func NewStaticResolver(entries []string) *StaticResolver {
	r := &StaticResolver{}
	for _, entry := range entries {
		token, rest, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		userStr, role, ok := strings.Cut(rest, ":")
		if !ok {
			continue
		}
		userID, err := uuid.Parse(userStr)
		if err != nil {
			slog.Warn("auth: skipping token with invalid user ID", "user", userStr)
			continue
		}
		r.entries = append(r.entries, staticToken{
			token:    token,
			identity: Identity{UserID: userID, Role: role},
		})
	}
	return r
}

// Resolve checks the token against every entry in constant time, so the
// comparison cost does not reveal which token (if any) matched.
func (r *StaticResolver) Resolve(token string) (Identity, bool) {
	var matched Identity
	found := 0
	for _, e := range r.entries {
		if subtle.ConstantTimeCompare([]byte(token), []byte(e.token)) == 1 {
			matched = e.identity
			found = 1
		}
	}
	return matched, found == 1
}

type contextKey string

const identityKey contextKey = "identity"

// IdentityFrom returns the authenticated identity stored by Auth.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// Auth validates the bearer token on every request and stores the
// resolved identity in the request context. Requests without a valid
// token are rejected with 401.
func Auth(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				slog.Warn("auth: missing token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"missing credentials","code":"AUTH_MISSING"}`, http.StatusUnauthorized)
				return
			}

			identity, ok := resolver.Resolve(token)
			if !ok {
				slog.Warn("auth: invalid token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"invalid credentials","code":"AUTH_INVALID"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated requests whose identity carries none
// of the given roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok || !allowed[identity.Role] {
				http.Error(w, `{"error":"forbidden","code":"AUTH_ROLE"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from the Authorization header, falling
// back to X-API-Key for non-browser clients.
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.Header.Get("X-API-Key")
}
