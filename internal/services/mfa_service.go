package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/folio/internal/auth"
	"github.com/BradenHooton/folio/internal/models"
	"github.com/google/uuid"
)

// MFAEventRecorder is the audit hook for enrollment events
type MFAEventRecorder interface {
	LogMFAEvent(ctx context.Context, userID uuid.UUID, action string)
}

// MFAService handles admin TOTP enrollment and step-up verification
type MFAService struct {
	userRepo UserRepository
	totpMgr  *auth.TOTPManager
	audit    MFAEventRecorder
	logger   *slog.Logger
}

// MFAEnrollment is returned once at enrollment; the secret is not retrievable later
type MFAEnrollment struct {
	Secret        string `json:"secret"`
	QRCodeDataURL string `json:"qr_code"`
}

// NewMFAService creates a new MFA service. totpMgr is nil when no encryption key is configured.
func NewMFAService(userRepo UserRepository, totpMgr *auth.TOTPManager, audit MFAEventRecorder, logger *slog.Logger) *MFAService {
	return &MFAService{
		userRepo: userRepo,
		totpMgr:  totpMgr,
		audit:    audit,
		logger:   logger,
	}
}

// Enroll stores a fresh encrypted secret for the user and disables MFA until it is confirmed
func (s *MFAService) Enroll(ctx context.Context, userID string) (*MFAEnrollment, error) {
	if s.totpMgr == nil {
		return nil, fmt.Errorf("%w: mfa is not configured", models.ErrBadRequest)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.totpMgr.Enroll(user.Email)
	if err != nil {
		s.logger.Error("failed to generate TOTP secret", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.userRepo.SetMFASecret(ctx, user.ID, enrollment.EncryptedSecret, enrollment.Nonce); err != nil {
		s.logger.Error("failed to store TOTP secret", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.recordEvent(ctx, user.ID, models.AuditActionMFAEnroll)

	return &MFAEnrollment{
		Secret:        enrollment.Secret,
		QRCodeDataURL: enrollment.QRCodeDataURL,
	}, nil
}

// Confirm enables MFA once the user proves the authenticator produces valid codes
func (s *MFAService) Confirm(ctx context.Context, userID, code string) error {
	if s.totpMgr == nil {
		return fmt.Errorf("%w: mfa is not configured", models.ErrBadRequest)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if len(user.MFASecret) == 0 {
		return models.ErrMFANotEnrolled
	}

	if err := s.checkCode(user, code); err != nil {
		return err
	}

	if err := s.userRepo.EnableMFA(ctx, user.ID); err != nil {
		s.logger.Error("failed to enable MFA", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.recordEvent(ctx, user.ID, models.AuditActionMFAEnable)
	return nil
}

// VerifyStepUp checks a code for users with MFA enabled; users without MFA pass through
func (s *MFAService) VerifyStepUp(ctx context.Context, userID, code string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !user.MFAEnabled {
		return nil
	}

	if s.totpMgr == nil {
		s.logger.Error("user has MFA enabled but no encryption key is configured", slog.String("user_id", user.ID))
		return models.ErrInternalServer
	}

	if code == "" {
		return models.ErrMFARequired
	}

	return s.checkCode(user, code)
}

func (s *MFAService) checkCode(user *models.User, code string) error {
	valid, err := s.totpMgr.ValidateCode(user.MFASecret, user.MFANonce, code)
	if err != nil {
		s.logger.Error("failed to validate TOTP code", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	if !valid {
		s.logger.Warn("invalid TOTP code", slog.String("user_id", user.ID))
		return models.ErrInvalidMFACode
	}
	return nil
}

func (s *MFAService) recordEvent(ctx context.Context, userID, action string) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return
	}
	s.audit.LogMFAEvent(ctx, id, action)
}
