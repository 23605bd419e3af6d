package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/folio/internal/auth"
	"github.com/BradenHooton/folio/internal/metrics"
	"github.com/BradenHooton/folio/internal/models"
	pkgauth "github.com/BradenHooton/folio/pkg/auth"
	pkglogger "github.com/BradenHooton/folio/pkg/logger"
)

// UserRepository defines the user persistence the services rely on
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	SetMFASecret(ctx context.Context, id string, secret, nonce []byte) error
	EnableMFA(ctx context.Context, id string) error
}

// LockAuditor records the moment an account crosses into lockout
type LockAuditor interface {
	LogAccountLocked(ctx context.Context, email, ipAddress string, until time.Time)
}

// AuthService handles authentication business logic
type AuthService struct {
	repo        UserRepository
	lockout     *LockoutService
	tm          *auth.TokenManager
	notifier    Notifier
	lockAudit   LockAuditor
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	pacer       *auth.FailurePacer
}

// NewAuthService creates a new AuthService
func NewAuthService(
	repo UserRepository,
	lockout *LockoutService,
	tm *auth.TokenManager,
	notifier Notifier,
	lockAudit LockAuditor,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		repo:        repo,
		lockout:     lockout,
		tm:          tm,
		notifier:    notifier,
		lockAudit:   lockAudit,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// WithFailurePacer pads rejected logins to a constant floor
func (s *AuthService) WithFailurePacer(p *auth.FailurePacer) *AuthService {
	s.pacer = p
	return s
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	MFAEnabled bool   `json:"mfa_enabled"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// AuthResponse represents the response from a successful login
type AuthResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int           `json:"expires_in"`
	User        *UserResponse `json:"user"`
}

// Login checks lockout, verifies credentials and records the outcome.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP string) (*AuthResponse, error) {
	start := time.Now()
	resp, err := s.login(ctx, email, password, clientIP)
	if err != nil && s.pacer != nil && !errors.Is(err, models.ErrInternalServer) {
		s.pacer.PadFrom(ctx, start)
	}
	return resp, err
}

func (s *AuthService) login(ctx context.Context, email, password, clientIP string) (*AuthResponse, error) {
	if email = strings.ToLower(strings.TrimSpace(email)); email == "" {
		s.logger.Warn("login attempt with empty email")
		return nil, models.ErrUnauthorized
	}

	decision, err := s.lockout.CheckLoginAttemptAllowed(ctx, email, clientIP)
	if err != nil {
		s.logger.Error("failed to evaluate lockout", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !decision.Allowed {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_blocked",
			Email:         email,
			IPAddress:     clientIP,
			FailureReason: "account_locked",
			Success:       false,
		})
		return nil, &models.LockedError{Decision: decision}
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Log login failure without exposing email
			s.logger.Info("login failed: invalid credentials")
			return nil, s.recordFailure(ctx, email, clientIP, nil, "invalid_credentials")
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Info("login failed: invalid credentials")
		return nil, s.recordFailure(ctx, email, clientIP, user, "invalid_credentials")
	}

	if user.Status == "disabled" {
		s.logger.Info("login blocked due to account state", slog.String("user_id", user.ID))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			IPAddress:     clientIP,
			FailureReason: "account_disabled",
			Success:       false,
		})
		return nil, models.ErrAccountDisabled
	}

	if err := s.lockout.RecordSuccessfulLogin(ctx, email, clientIP); err != nil {
		s.logger.Error("failed to clear failed logins", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: clientIP,
		Success:   true,
	})

	return &AuthResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tm.AccessTokenExpiry().Seconds()),
		User:        userModelToResponse(user),
	}, nil
}

// recordFailure stores the failed attempt and re-evaluates; the attempt that trips the
// threshold gets the lockout response and, for real accounts, a notification
func (s *AuthService) recordFailure(ctx context.Context, email, clientIP string, user *models.User, reason string) error {
	event := pkglogger.AuditEvent{
		EventType:     "login_failed",
		Email:         email,
		IPAddress:     clientIP,
		FailureReason: reason,
		Success:       false,
	}
	if user != nil {
		event.UserID = user.ID
	}
	s.auditLogger.LogAuthAttempt(event)

	if err := s.lockout.RecordFailedLoginAttempt(ctx, email, clientIP, map[string]any{"reason": reason}); err != nil {
		s.logger.Error("failed to record failed login", slog.Any("error", err))
		return models.ErrInternalServer
	}

	decision, err := s.lockout.CheckLoginAttemptAllowed(ctx, email, clientIP)
	if err != nil {
		s.logger.Error("failed to evaluate lockout", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if decision.Allowed {
		return models.ErrUnauthorized
	}

	// Later attempts are refused by the pre-check, so this runs once per lockout
	metrics.LockoutsStartedTotal.Inc()

	until := s.lockout.now()
	if decision.LockoutMinutes != nil {
		until = until.Add(time.Duration(*decision.LockoutMinutes) * time.Minute)
	}

	if user != nil {
		s.lockAudit.LogAccountLocked(ctx, email, clientIP, until)
		if err := s.notifier.SendLockoutNotice(ctx, user.Email, until); err != nil {
			s.logger.Warn("failed to send lockout notice",
				slog.String("user_id", user.ID),
				slog.Any("error", err))
		}
	}

	return &models.LockedError{Decision: decision}
}

// CreateAdmin bootstraps an admin account from the CLI
func (s *AuthService) CreateAdmin(ctx context.Context, email, password, name string) (*UserResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if email == "" {
		return nil, fmt.Errorf("%w: email is required", models.ErrBadRequest)
	}

	if err := pkgauth.ValidatePassword(password, email); err != nil {
		return nil, err
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	created, err := s.repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         name,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create admin", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("admin created", slog.String("user_id", created.ID))
	s.auditLogger.LogAccountAction("admin_created", created.ID, "", map[string]string{"role": models.RoleAdmin})

	return userModelToResponse(created), nil
}

// userModelToResponse converts a user model to response DTO
func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		Name:       user.Name,
		Role:       user.Role,
		MFAEnabled: user.MFAEnabled,
		CreatedAt:  user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  user.UpdatedAt.Format(time.RFC3339),
	}
}
