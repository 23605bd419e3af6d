package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/BradenHooton/folio/internal/models"
	pkghttp "github.com/BradenHooton/folio/pkg/http"
)

type contextKey string

// UserContextKey holds the admin's *models.TokenClaims on the request context
const UserContextKey contextKey = "user"

// UserRepository is the user lookup RequireRole needs
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// WithClaims returns ctx carrying claims
func WithClaims(ctx context.Context, claims *models.TokenClaims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

// AuthMiddleware requires a valid bearer access token on every request
func AuthMiddleware(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				challenge(w, "missing or malformed bearer token")
				return
			}

			claims, err := tm.ValidateToken(token)
			if err != nil {
				challenge(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole checks the role stored on the user row, not the one in the token,
// so demoting or disabling an admin takes effect before their token expires.
// Must run after AuthMiddleware.
func RequireRole(userRepo UserRepository, role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r)
			if claims == nil {
				challenge(w, "unauthorized")
				return
			}

			user, err := userRepo.GetByID(r.Context(), claims.UserID)
			switch {
			case errors.Is(err, models.ErrNotFound):
				challenge(w, "user not found")
				return
			case err != nil:
				pkghttp.WriteInternalError(w, "internal server error")
				return
			}

			if user.Status == "disabled" {
				pkghttp.WriteForbidden(w, "account is disabled")
				return
			}
			if user.Role != role {
				pkghttp.WriteForbidden(w, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext returns the request's claims, or nil outside AuthMiddleware
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	claims, _ := r.Context().Value(UserContextKey).(*models.TokenClaims)
	return claims
}

// bearerToken accepts the scheme case-insensitively
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func challenge(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="folio-admin"`)
	pkghttp.WriteUnauthorized(w, message)
}
