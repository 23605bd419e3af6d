// Package app assembles the repositories and services shared by the API server and folioctl.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/folio/internal/auth"
	"github.com/BradenHooton/folio/internal/config"
	"github.com/BradenHooton/folio/internal/database"
	"github.com/BradenHooton/folio/internal/repositories"
	"github.com/BradenHooton/folio/internal/services"
	pkglogger "github.com/BradenHooton/folio/pkg/logger"
)

// App holds the wired service graph
type App struct {
	DB           *database.DB
	Users        *repositories.UserRepository
	TokenManager *auth.TokenManager
	Audit        *services.AuditService
	Lockout      *services.LockoutService
	Auth         *services.AuthService
	MFA          *services.MFAService
}

// New connects to Postgres and builds every service from cfg
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	notifier, err := NewNotifier(ctx, cfg.Email, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	var totpMgr *auth.TOTPManager
	if len(cfg.MFA.EncryptionKey) > 0 {
		totpMgr, err = auth.NewTOTPManager(cfg.MFA.EncryptionKey, cfg.MFA.Issuer)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize TOTP manager: %w", err)
		}
	} else {
		logger.Warn("MFA_ENCRYPTION_KEY not set, admin MFA enrollment is disabled")
	}

	users := repositories.NewUserRepository(db)
	auditSvc := services.NewAuditService(repositories.NewAuditLogRepository(db), logger)
	lockout := services.NewLockoutService(NewAttemptStore(cfg.Lockout, db), auditSvc, LockoutSettings(cfg.Lockout), logger)
	tm := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)

	authSvc := services.NewAuthService(
		users,
		lockout,
		tm,
		notifier,
		auditSvc,
		logger,
		pkglogger.NewAuditLogger(logger),
	).WithFailurePacer(auth.NewFailurePacer(cfg.Auth.FailureFloor, cfg.Auth.FailureJitter))

	return &App{
		DB:           db,
		Users:        users,
		TokenManager: tm,
		Audit:        auditSvc,
		Lockout:      lockout,
		Auth:         authSvc,
		MFA:          services.NewMFAService(users, totpMgr, auditSvc, logger),
	}, nil
}

// Close releases the database pool
func (a *App) Close() {
	a.DB.Close()
}

// LockoutSettings maps environment configuration onto the lockout service's parameters
func LockoutSettings(cfg config.LockoutConfig) services.LockoutConfig {
	return services.LockoutConfig{
		MaxFailedAttempts:         cfg.MaxFailedAttempts,
		InitialLockout:            cfg.InitialLockout,
		ProgressiveMultiplier:     cfg.ProgressiveMultiplier,
		MaxLockout:                cfg.MaxLockout,
		Retention:                 cfg.Retention,
		FailClosedOnMissingAnchor: cfg.FailClosedOnMissingRec,
	}
}

// NewAttemptStore selects the attempt store backend.
// The memory store is per-process and loses history on restart.
func NewAttemptStore(cfg config.LockoutConfig, db *database.DB) services.AttemptStore {
	if cfg.StoreBackend == config.StoreBackendMemory {
		return repositories.NewMemoryAttemptRepository()
	}
	return repositories.NewAttemptRepository(db)
}

// NewNotifier returns the SES notifier when email is enabled, otherwise a log-only notifier
func NewNotifier(ctx context.Context, cfg config.EmailConfig, logger *slog.Logger) (services.Notifier, error) {
	if !cfg.Enabled {
		return services.NewLogNotifier(logger), nil
	}

	notifier, err := services.NewAWSSESEmailService(ctx, cfg.AWSRegion, cfg.FromAddress, cfg.SiteURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email service: %w", err)
	}
	return notifier, nil
}
