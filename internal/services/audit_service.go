package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/folio/internal/models"
	"github.com/BradenHooton/folio/pkg/logger"
	"github.com/google/uuid"
)

// AuditLogRepository is the persistence side of the audit trail
type AuditLogRepository interface {
	Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	ListRecent(ctx context.Context, severity string, limit, offset int) ([]*models.AuditLog, error)
}

// AuditService handles audit logging with dual-write pattern (slog + database)
type AuditService struct {
	repo   AuditLogRepository
	logger *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo AuditLogRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		logger: logger,
	}
}

// Record writes the entry to the log stream and the audit_logs table.
// Persistence errors are returned so callers that must report them can.
func (s *AuditService) Record(ctx context.Context, entry *models.AuditLog) error {
	if entry.Severity == "" {
		entry.Severity = models.AuditSeverityInfo
	}
	if entry.Details == nil {
		entry.Details = models.AuditMetadata{}
	}

	attrs := []any{
		slog.String("action", entry.Action),
		slog.String("resource_type", entry.ResourceType),
		slog.String("severity", entry.Severity),
		slog.String("source", entry.Source),
		slog.Any("details", entry.Details),
	}
	if entry.UserID != nil {
		attrs = append(attrs, slog.String("user_id", entry.UserID.String()))
	}

	// Dual-write: immediate slog output
	switch entry.Severity {
	case models.AuditSeverityCritical, models.AuditSeverityWarning:
		s.logger.WarnContext(ctx, "audit event", attrs...)
	default:
		s.logger.InfoContext(ctx, "audit event", attrs...)
	}

	if _, err := s.repo.Create(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit log",
			slog.String("action", entry.Action),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to persist audit log: %w", err)
	}

	return nil
}

// LogAccountLocked records that an account crossed into lockout. Best-effort.
func (s *AuditService) LogAccountLocked(ctx context.Context, email, ipAddress string, until time.Time) {
	resourceID := email
	// Record already logs persistence failures; the login response must not depend on them
	_ = s.Record(ctx, &models.AuditLog{
		Action:       models.AuditActionAccountLocked,
		ResourceType: models.AuditResourceTypeAccount,
		ResourceID:   &resourceID,
		Details: models.AuditMetadata{
			"email":        logger.SanitizedEmail(email),
			"ip_address":   ipAddress,
			"locked_until": until.UTC().Format(time.RFC3339),
		},
		Severity: models.AuditSeverityWarning,
		Source:   models.AuditSourceAuth,
	})
}

// LogMFAEvent records enrollment and confirmation of an admin's TOTP device. Best-effort.
func (s *AuditService) LogMFAEvent(ctx context.Context, userID uuid.UUID, action string) {
	resourceID := userID.String()
	_ = s.Record(ctx, &models.AuditLog{
		UserID:       &userID,
		Action:       action,
		ResourceType: models.AuditResourceTypeMFA,
		ResourceID:   &resourceID,
		Severity:     models.AuditSeverityInfo,
		Source:       models.AuditSourceAdminAPI,
	})
}

// ListRecent returns recent entries, newest first, optionally filtered by severity
func (s *AuditService) ListRecent(ctx context.Context, severity string, limit, offset int) ([]*models.AuditLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListRecent(ctx, severity, limit, offset)
}
