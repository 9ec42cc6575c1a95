package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/greennav/greennav/internal/api/models"
	"github.com/greennav/greennav/internal/auth"
)

// subjectKey is the context key for the authenticated token subject.
type subjectKey struct{}

// TokenValidator validates admin bearer tokens.
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// authFailures maps token validation errors to responses. Anything unlisted is a
// generic 401.
var authFailures = []struct {
	err    error
	status int
	detail string
}{
	{auth.ErrNotAdmin, http.StatusForbidden, "admin role required"},
	{auth.ErrAccessTokenExpired, http.StatusUnauthorized, "access token has expired"},
	{auth.ErrInvalidAccessToken, http.StatusUnauthorized, "invalid access token"},
}

// Auth guards the admin API with an admin bearer token and stores its subject in the
// request context.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, problem := bearerToken(r.Header.Get("Authorization"))
			if problem != "" {
				deny(w, r, http.StatusUnauthorized, problem)
				return
			}

			claims, err := validator.ValidateAccessToken(token)
			if err != nil {
				status, detail := http.StatusUnauthorized, "authentication failed"
				for _, f := range authFailures {
					if errors.Is(err, f.err) {
						status, detail = f.status, f.detail
						break
					}
				}
				deny(w, r, status, detail)
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from an Authorization header. The scheme is matched
// case-insensitively. A non-empty problem describes why the header was rejected.
func bearerToken(header string) (token, problem string) {
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, rest, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization header format"
	}
	if token = strings.TrimSpace(rest); token == "" {
		return "", "missing bearer token"
	}
	return token, ""
}

// deny writes a 401 or 403 problem. The response package imports middleware, so the
// problem is built here directly.
func deny(w http.ResponseWriter, r *http.Request, status int, detail string) {
	models.ForStatus(status, GetRequestID(r.Context()), detail).Respond(w, r)
}

// GetSubject retrieves the authenticated token subject from the context.
// Returns an empty string if not authenticated.
func GetSubject(ctx context.Context) string {
	if sub, ok := ctx.Value(subjectKey{}).(string); ok {
		return sub
	}
	return ""
}
