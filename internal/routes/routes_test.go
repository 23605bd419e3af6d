package routes_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/folio/internal/auth"
	"github.com/BradenHooton/folio/internal/handlers"
	"github.com/BradenHooton/folio/internal/middleware"
	"github.com/BradenHooton/folio/internal/models"
	"github.com/BradenHooton/folio/internal/routes"
	"github.com/BradenHooton/folio/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roleRepo map[string]*models.User

func (r roleRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := r[id]; ok {
		return u, nil
	}
	return nil, models.ErrNotFound
}

func newRouter(t *testing.T) (http.Handler, *auth.TokenManager) {
	t.Helper()
	tm := auth.NewTokenManager("test-secret-with-enough-length", time.Hour)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	authHandler := handlers.NewAuthHandler(&handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, clientIP string) (*services.AuthResponse, error) {
			return &services.AuthResponse{AccessToken: "token", TokenType: "Bearer"}, nil
		},
	}, nil)
	adminHandler := handlers.NewAdminHandler(&handlers.MockLockoutService{}, &handlers.MockMFAService{}, &handlers.MockAuditService{}, logger)

	router := chi.NewRouter()
	routes.RegisterRoutes(router, routes.Dependencies{
		AuthHandler:  authHandler,
		AdminHandler: adminHandler,
		TokenManager: tm,
		UserRepo: roleRepo{
			"admin-1": {ID: "admin-1", Role: models.RoleAdmin, Status: "active"},
			"user-1":  {ID: "user-1", Role: models.RoleUser, Status: "active"},
		},
		LoginLimit: middleware.RateLimitConfig{RequestsPerMinute: 100},
		AdminLimit: middleware.RateLimitConfig{RequestsPerMinute: 100},
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "folio_lockout_started_total 0\n")
		}),
	})
	return router, tm
}

func bearer(t *testing.T, tm *auth.TokenManager, userID, role string) string {
	t.Helper()
	token, err := tm.GenerateAccessToken(userID, userID+"@example.com", role)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRoutes_LoginIsPublic(t *testing.T) {
	router, _ := newRouter(t)

	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{Email: "a@example.com", Password: "pw"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_AdminAccessControl(t *testing.T) {
	router, tm := newRouter(t)

	tests := []struct {
		name           string
		authorization  string
		expectedStatus int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"non-admin", bearer(t, tm, "user-1", models.RoleUser), http.StatusForbidden},
		{"token claims admin but user is not", bearer(t, tm, "user-1", models.RoleAdmin), http.StatusForbidden},
		{"admin", bearer(t, tm, "admin-1", models.RoleAdmin), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin/lockouts/stats", nil)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestRoutes_AdminEndpointsRegistered(t *testing.T) {
	router, tm := newRouter(t)
	token := bearer(t, tm, "admin-1", models.RoleAdmin)

	tests := []struct {
		method string
		path   string
		body   interface{}
		status int
	}{
		{"GET", "/admin/lockouts/status?email=a@example.com", nil, http.StatusOK},
		{"POST", "/admin/lockouts/unlock", handlers.UnlockRequest{Email: "a@example.com", Reason: "ticket 12"}, http.StatusOK},
		{"POST", "/admin/mfa/confirm", handlers.MFAConfirmRequest{Code: "123456"}, http.StatusOK},
		{"GET", "/admin/audit", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := handlers.NewTestRequest(t, tt.method, tt.path, tt.body)
			req.Header.Set("Authorization", token)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestRoutes_MetricsRequireAdmin(t *testing.T) {
	router, tm := newRouter(t)

	tests := []struct {
		name           string
		path           string
		authorization  string
		expectedStatus int
	}{
		{"unmounted at root", "/metrics", "", http.StatusNotFound},
		{"no token", "/admin/metrics", "", http.StatusUnauthorized},
		{"non-admin", "/admin/metrics", bearer(t, tm, "user-1", models.RoleUser), http.StatusForbidden},
		{"admin", "/admin/metrics", bearer(t, tm, "admin-1", models.RoleAdmin), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Contains(t, w.Body.String(), "folio_lockout_started_total")
			}
		})
	}
}
