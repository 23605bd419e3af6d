package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/BradenHooton/folio/internal/auth"
	"github.com/BradenHooton/folio/internal/models"
	"github.com/BradenHooton/folio/internal/services"
	pkghttp "github.com/BradenHooton/folio/pkg/http"
	pkglogger "github.com/BradenHooton/folio/pkg/logger"
)

// LockoutServiceInterface is the slice of the lockout service the admin API drives
type LockoutServiceInterface interface {
	GetLockoutStatistics(ctx context.Context) (*models.LockoutStatistics, error)
	CheckAccountLockout(ctx context.Context, identifier, clientIP string) (*models.LockoutStatus, error)
	EmergencyUnlockAccount(ctx context.Context, identifier, adminID, reason, source string) (models.UnlockOutcome, error)
}

// MFAServiceInterface covers enrollment and step-up verification
type MFAServiceInterface interface {
	Enroll(ctx context.Context, userID string) (*services.MFAEnrollment, error)
	Confirm(ctx context.Context, userID, code string) error
	VerifyStepUp(ctx context.Context, userID, code string) error
}

// AuditServiceInterface lists persisted audit entries
type AuditServiceInterface interface {
	ListRecent(ctx context.Context, severity string, limit, offset int) ([]*models.AuditLog, error)
}

// AdminHandler handles lockout administration HTTP requests.
type AdminHandler struct {
	lockout LockoutServiceInterface
	mfa     MFAServiceInterface
	audit   AuditServiceInterface
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(lockout LockoutServiceInterface, mfa MFAServiceInterface, audit AuditServiceInterface, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		lockout: lockout,
		mfa:     mfa,
		audit:   audit,
		logger:  logger,
	}
}

// UnlockRequest is the body of POST /admin/lockouts/unlock
type UnlockRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Reason   string `json:"reason" validate:"required,min=3,max=500"`
	TOTPCode string `json:"totp_code" validate:"omitempty,len=6,numeric"`
}

// UnlockResponse reports the outcome of an emergency unlock
type UnlockResponse struct {
	Outcome models.UnlockOutcome `json:"outcome"`
	Message string               `json:"message,omitempty"`
}

// MFAConfirmRequest is the body of POST /admin/mfa/confirm
type MFAConfirmRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// AuditListResponse wraps a page of audit entries
type AuditListResponse struct {
	Entries []*models.AuditLog `json:"entries"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

type lockoutStatusQuery struct {
	Email string `validate:"required,email"`
	IP    string `validate:"omitempty,ip"`
}

// GetLockoutStats handles GET /admin/lockouts/stats
func (h *AdminHandler) GetLockoutStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.lockout.GetLockoutStatistics(r.Context())
	if err != nil {
		h.logger.Error("failed to compute lockout statistics", "error", err)
		pkghttp.WriteInternalError(w, "Failed to retrieve lockout statistics")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// GetLockoutStatus handles GET /admin/lockouts/status?email=&ip=
func (h *AdminHandler) GetLockoutStatus(w http.ResponseWriter, r *http.Request) {
	q := lockoutStatusQuery{
		Email: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("email"))),
		IP:    strings.TrimSpace(r.URL.Query().Get("ip")),
	}
	if err := ValidateRequest(&q); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	status, err := h.lockout.CheckAccountLockout(r.Context(), q.Email, q.IP)
	if err != nil {
		h.logger.Error("failed to check lockout status", "email", pkglogger.SanitizedEmail(q.Email), "error", err)
		pkghttp.WriteInternalError(w, "Failed to retrieve lockout status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// UnlockAccount handles POST /admin/lockouts/unlock
// Admins with MFA enabled must include a current TOTP code.
func (h *AdminHandler) UnlockAccount(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req UnlockRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.mfa.VerifyStepUp(r.Context(), claims.UserID, req.TOTPCode); err != nil {
		h.writeMFAError(w, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	outcome, err := h.lockout.EmergencyUnlockAccount(r.Context(), email, claims.UserID, strings.TrimSpace(req.Reason), models.AuditSourceAdminAPI)

	switch outcome {
	case models.UnlockOutcomeUnlocked:
		writeJSON(w, http.StatusOK, UnlockResponse{Outcome: outcome})
	case models.UnlockOutcomeUnlockedAuditFailed:
		h.logger.Error("account unlocked but audit entry was not persisted",
			"email", pkglogger.SanitizedEmail(email),
			"admin_id", claims.UserID,
			"error", err,
		)
		writeJSON(w, http.StatusMultiStatus, UnlockResponse{
			Outcome: outcome,
			Message: "Account unlocked, but the audit entry could not be written",
		})
	default:
		h.logger.Error("emergency unlock failed",
			"email", pkglogger.SanitizedEmail(email),
			"admin_id", claims.UserID,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, UnlockResponse{
			Outcome: models.UnlockOutcomeFailed,
			Message: "Emergency unlock failed",
		})
	}
}

// EnrollMFA handles POST /admin/mfa/enroll
func (h *AdminHandler) EnrollMFA(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	enrollment, err := h.mfa.Enroll(r.Context(), claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "MFA is not configured on this server")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found")
		default:
			h.logger.Error("mfa enrollment failed", "user_id", claims.UserID, "error", err)
			pkghttp.WriteInternalError(w, "Failed to start MFA enrollment")
		}
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, enrollment)
}

// ConfirmMFA handles POST /admin/mfa/confirm
func (h *AdminHandler) ConfirmMFA(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req MFAConfirmRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.mfa.Confirm(r.Context(), claims.UserID, req.Code); err != nil {
		switch {
		case errors.Is(err, models.ErrMFANotEnrolled):
			pkghttp.WriteConflict(w, "Start MFA enrollment before confirming")
		default:
			h.writeMFAError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"mfa_enabled": true})
}

// ListAuditLogs handles GET /admin/audit?limit=&offset=&severity=
func (h *AdminHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	severity := query.Get("severity")
	switch severity {
	case "", models.AuditSeverityInfo, models.AuditSeverityWarning, models.AuditSeverityCritical:
	default:
		pkghttp.WriteBadRequest(w, "severity must be one of info, warning, critical")
		return
	}

	entries, err := h.audit.ListRecent(r.Context(), severity, limit, offset)
	if err != nil {
		h.logger.Error("failed to list audit logs", "error", err)
		pkghttp.WriteInternalError(w, "Failed to retrieve audit logs")
		return
	}
	if entries == nil {
		entries = []*models.AuditLog{}
	}

	writeJSON(w, http.StatusOK, AuditListResponse{Entries: entries, Limit: limit, Offset: offset})
}

func (h *AdminHandler) writeMFAError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrMFARequired):
		pkghttp.WriteError(w, http.StatusUnauthorized, pkghttp.CodeMFARequired, "A TOTP code is required for this action")
	case errors.Is(err, models.ErrInvalidMFACode):
		pkghttp.WriteError(w, http.StatusForbidden, pkghttp.CodeInvalidMFACode, "Invalid TOTP code")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteUnauthorized(w, "Authentication required")
	default:
		h.logger.Error("mfa verification failed", "error", err)
		pkghttp.WriteInternalError(w, "Failed to verify MFA code")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
