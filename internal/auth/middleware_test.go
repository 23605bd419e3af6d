package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/folio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-with-enough-length"

type stubUserRepo struct {
	user *models.User
	err  error
}

func (s *stubUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetUserFromContext(r)
		if claims != nil {
			w.Header().Set("X-User-ID", claims.UserID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)

	token, err := tm.GenerateAccessToken("user-1", "a@example.com", models.RoleAdmin)
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_RejectsOtherSecret(t *testing.T) {
	token, err := NewTokenManager("another-secret-entirely", time.Hour).GenerateAccessToken("u", "e@example.com", models.RoleUser)
	require.NoError(t, err)

	_, err = NewTokenManager(testSecret, time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := NewTokenManager(testSecret, -time.Minute)
	token, err := tm.GenerateAccessToken("u", "e@example.com", models.RoleUser)
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	valid, err := tm.GenerateAccessToken("user-1", "a@example.com", models.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty bearer", "Bearer   ", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"lowercase scheme", "bearer " + valid, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/lockouts/stats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			AuthMiddleware(tm)(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "user-1", rec.Header().Get("X-User-ID"))
			} else {
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		repo       *stubUserRepo
		withClaims bool
		wantStatus int
	}{
		{"no claims", &stubUserRepo{}, false, http.StatusUnauthorized},
		{"user missing", &stubUserRepo{err: models.ErrNotFound}, true, http.StatusUnauthorized},
		{"repo error", &stubUserRepo{err: errors.New("db down")}, true, http.StatusInternalServerError},
		{"not admin", &stubUserRepo{user: &models.User{Role: models.RoleUser, Status: "active"}}, true, http.StatusForbidden},
		{"disabled admin", &stubUserRepo{user: &models.User{Role: models.RoleAdmin, Status: "disabled"}}, true, http.StatusForbidden},
		{"admin", &stubUserRepo{user: &models.User{Role: models.RoleAdmin, Status: "active"}}, true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/lockouts/stats", nil)
			if tt.withClaims {
				req = req.WithContext(WithClaims(req.Context(), &models.TokenClaims{UserID: "user-1"}))
			}
			rec := httptest.NewRecorder()

			RequireRole(tt.repo, models.RoleAdmin)(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
