package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkghttp "github.com/BradenHooton/folio/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()
	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, 400, "test_error", "Test message")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	resp := decode(t, w)
	assert.Equal(t, "test_error", resp.Error)
	assert.Equal(t, "Test message", resp.Message)
	assert.Empty(t, resp.Details)
	assert.NotContains(t, w.Body.String(), "details")
}

func TestWriteErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteErrorWithDetails(w, 422, "validation_error", "Invalid input", "email is required")

	assert.Equal(t, 422, w.Code)
	assert.Equal(t, "email is required", decode(t, w).Details)
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter, string)
		status int
		code   string
	}{
		{"bad request", pkghttp.WriteBadRequest, http.StatusBadRequest, pkghttp.CodeBadRequest},
		{"unauthorized", pkghttp.WriteUnauthorized, http.StatusUnauthorized, pkghttp.CodeUnauthorized},
		{"forbidden", pkghttp.WriteForbidden, http.StatusForbidden, pkghttp.CodeForbidden},
		{"not found", pkghttp.WriteNotFound, http.StatusNotFound, pkghttp.CodeNotFound},
		{"conflict", pkghttp.WriteConflict, http.StatusConflict, pkghttp.CodeConflict},
		{"too many requests", pkghttp.WriteTooManyRequests, http.StatusTooManyRequests, "rate_limit_exceeded"},
		{"internal", pkghttp.WriteInternalError, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			tt.write(w, "msg")

			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			assert.Equal(t, tt.code, resp.Error)
			assert.Equal(t, "msg", resp.Message)
		})
	}
}

func TestWriteLocked(t *testing.T) {
	tests := []struct {
		name       string
		retryAfter time.Duration
		header     string
	}{
		{"whole minutes", 15 * time.Minute, "900"},
		{"rounds up partial seconds", 1500 * time.Millisecond, "2"},
		{"no hint", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			pkghttp.WriteLocked(w, "Account locked", tt.retryAfter)

			assert.Equal(t, http.StatusTooManyRequests, w.Code)
			assert.Equal(t, tt.header, w.Header().Get("Retry-After"))
			assert.Equal(t, pkghttp.CodeAccountLocked, decode(t, w).Error)
		})
	}
}
