package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/folio/internal/auth"
	"github.com/BradenHooton/folio/internal/models"
	"github.com/BradenHooton/folio/internal/services"
	pkghttp "github.com/BradenHooton/folio/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAdminContext adds admin claims to the request context
func WithAdminContext(req *http.Request, userID, email string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Email:  email,
		Role:   models.RoleAdmin,
		Type:   "access",
	}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc func(ctx context.Context, email, password, clientIP string) (*services.AuthResponse, error)
}

func (m *MockAuthService) Login(ctx context.Context, email, password, clientIP string) (*services.AuthResponse, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, email, password, clientIP)
}

// MockLockoutService implements LockoutServiceInterface for testing
type MockLockoutService struct {
	GetLockoutStatisticsFunc   func(ctx context.Context) (*models.LockoutStatistics, error)
	CheckAccountLockoutFunc    func(ctx context.Context, identifier, clientIP string) (*models.LockoutStatus, error)
	EmergencyUnlockAccountFunc func(ctx context.Context, identifier, adminID, reason, source string) (models.UnlockOutcome, error)
}

func (m *MockLockoutService) GetLockoutStatistics(ctx context.Context) (*models.LockoutStatistics, error) {
	if m.GetLockoutStatisticsFunc == nil {
		return &models.LockoutStatistics{TopFailedIPs: []models.IPAttemptCount{}}, nil
	}
	return m.GetLockoutStatisticsFunc(ctx)
}

func (m *MockLockoutService) CheckAccountLockout(ctx context.Context, identifier, clientIP string) (*models.LockoutStatus, error) {
	if m.CheckAccountLockoutFunc == nil {
		return &models.LockoutStatus{RemainingAttempts: 5}, nil
	}
	return m.CheckAccountLockoutFunc(ctx, identifier, clientIP)
}

func (m *MockLockoutService) EmergencyUnlockAccount(ctx context.Context, identifier, adminID, reason, source string) (models.UnlockOutcome, error) {
	if m.EmergencyUnlockAccountFunc == nil {
		return models.UnlockOutcomeUnlocked, nil
	}
	return m.EmergencyUnlockAccountFunc(ctx, identifier, adminID, reason, source)
}

// MockMFAService implements MFAServiceInterface for testing
type MockMFAService struct {
	EnrollFunc       func(ctx context.Context, userID string) (*services.MFAEnrollment, error)
	ConfirmFunc      func(ctx context.Context, userID, code string) error
	VerifyStepUpFunc func(ctx context.Context, userID, code string) error
}

func (m *MockMFAService) Enroll(ctx context.Context, userID string) (*services.MFAEnrollment, error) {
	if m.EnrollFunc == nil {
		return nil, models.ErrBadRequest
	}
	return m.EnrollFunc(ctx, userID)
}

func (m *MockMFAService) Confirm(ctx context.Context, userID, code string) error {
	if m.ConfirmFunc == nil {
		return nil
	}
	return m.ConfirmFunc(ctx, userID, code)
}

func (m *MockMFAService) VerifyStepUp(ctx context.Context, userID, code string) error {
	if m.VerifyStepUpFunc == nil {
		return nil
	}
	return m.VerifyStepUpFunc(ctx, userID, code)
}

// MockAuditService implements AuditServiceInterface for testing
type MockAuditService struct {
	ListRecentFunc func(ctx context.Context, severity string, limit, offset int) ([]*models.AuditLog, error)
}

func (m *MockAuditService) ListRecent(ctx context.Context, severity string, limit, offset int) ([]*models.AuditLog, error) {
	if m.ListRecentFunc == nil {
		return nil, nil
	}
	return m.ListRecentFunc(ctx, severity, limit, offset)
}
