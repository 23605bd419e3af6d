package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/BradenHooton/folio/internal/metrics"
	"github.com/BradenHooton/folio/internal/models"
	"github.com/BradenHooton/folio/pkg/logger"
	"github.com/google/uuid"
)

const topFailedIPLimit = 10

// AttemptStore is the append/delete log of attempt records the lockout logic runs on
type AttemptStore interface {
	Insert(ctx context.Context, record *models.AttemptRecord) error
	CountSince(ctx context.Context, identifier, endpoint string, since time.Time) (int, error)
	LatestSince(ctx context.Context, identifier, endpoint string, since time.Time) (*time.Time, error)
	DeleteByIdentifier(ctx context.Context, identifier, endpoint string) (int64, error)
	ListSince(ctx context.Context, endpoint string, since time.Time) ([]*models.AttemptRecord, error)
	DeleteCreatedBefore(ctx context.Context, endpoint string, before time.Time) (int64, error)
}

// AuditRecorder persists audit entries and reports failures to the caller
type AuditRecorder interface {
	Record(ctx context.Context, entry *models.AuditLog) error
}

// LockoutConfig holds the thresholds and backoff parameters for login lockout
type LockoutConfig struct {
	MaxFailedAttempts     int
	InitialLockout        time.Duration
	ProgressiveMultiplier float64
	MaxLockout            time.Duration
	Retention             time.Duration
	// Lock for the computed duration from now when the count is over the
	// threshold but no record carries a timestamp to anchor on
	FailClosedOnMissingAnchor bool
}

// DefaultLockoutConfig returns 5 attempts, 15m doubling to a 24h cap, 24h retention
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		MaxFailedAttempts:     5,
		InitialLockout:        15 * time.Minute,
		ProgressiveMultiplier: 2,
		MaxLockout:            24 * time.Hour,
		Retention:             24 * time.Hour,
	}
}

// LockoutService tracks failed logins and decides whether an account is locked
type LockoutService struct {
	store  AttemptStore
	audit  AuditRecorder
	config LockoutConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewLockoutService creates a new LockoutService
func NewLockoutService(store AttemptStore, audit AuditRecorder, config LockoutConfig, logger *slog.Logger) *LockoutService {
	return &LockoutService{
		store:  store,
		audit:  audit,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source; tests use it to move through lockout windows
func (s *LockoutService) WithClock(now func() time.Time) *LockoutService {
	s.now = now
	return s
}

// Config returns the active lockout configuration
func (s *LockoutService) Config() LockoutConfig {
	return s.config
}

// RecordFailedLoginAttempt appends one record for the identifier and one for the IP when it is known
func (s *LockoutService) RecordFailedLoginAttempt(ctx context.Context, identifier, clientIP string, metadata map[string]any) error {
	identifier = normalizeIdentifier(identifier)
	now := s.now()

	record := &models.AttemptRecord{
		Identifier: models.FailedLoginKey(identifier),
		Endpoint:   models.EndpointAuthLogin,
		Attempts:   1,
		CreatedAt:  now,
		ResetTime:  now.Add(s.config.Retention),
	}
	if err := s.store.Insert(ctx, record); err != nil {
		return fmt.Errorf("failed to record failed login: %w", err)
	}
	metrics.FailedAttemptsTotal.WithLabelValues("identifier").Inc()

	if models.KnownIP(clientIP) {
		ipRecord := &models.AttemptRecord{
			Identifier: models.FailedLoginIPKey(clientIP),
			Endpoint:   models.EndpointAuthLogin,
			Attempts:   1,
			CreatedAt:  now,
			ResetTime:  now.Add(s.config.Retention),
		}
		if err := s.store.Insert(ctx, ipRecord); err != nil {
			return fmt.Errorf("failed to record failed login for ip: %w", err)
		}
		metrics.FailedAttemptsTotal.WithLabelValues("ip").Inc()
	}

	s.logger.WarnContext(ctx, "failed login attempt recorded",
		slog.String("email", logger.SanitizedEmail(identifier)),
		slog.String("ip_address", clientIP),
		slog.Any("metadata", metadata),
	)

	return nil
}

// RecordSuccessfulLogin clears attempt history for the identifier and, when known, the IP
func (s *LockoutService) RecordSuccessfulLogin(ctx context.Context, identifier, clientIP string) error {
	identifier = normalizeIdentifier(identifier)

	cleared, err := s.store.DeleteByIdentifier(ctx, models.FailedLoginKey(identifier), models.EndpointAuthLogin)
	if err != nil {
		return fmt.Errorf("failed to clear failed logins: %w", err)
	}

	if models.KnownIP(clientIP) {
		ipCleared, err := s.store.DeleteByIdentifier(ctx, models.FailedLoginIPKey(clientIP), models.EndpointAuthLogin)
		if err != nil {
			return fmt.Errorf("failed to clear failed logins for ip: %w", err)
		}
		cleared += ipCleared
	}

	if cleared > 0 {
		metrics.SuccessfulResetsTotal.Inc()
		s.logger.InfoContext(ctx, "failed login history cleared",
			slog.String("email", logger.SanitizedEmail(identifier)),
			slog.Int64("records", cleared),
		)
	}

	return nil
}

// CheckAccountLockout derives the lock state from recent identifier and IP records
func (s *LockoutService) CheckAccountLockout(ctx context.Context, identifier, clientIP string) (*models.LockoutStatus, error) {
	identifier = normalizeIdentifier(identifier)
	now := s.now()
	since := now.Add(-s.config.Retention)

	identifierKey := models.FailedLoginKey(identifier)
	identifierAttempts, err := s.store.CountSince(ctx, identifierKey, models.EndpointAuthLogin, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count failed logins: %w", err)
	}

	ipAttempts := 0
	if models.KnownIP(clientIP) {
		ipAttempts, err = s.store.CountSince(ctx, models.FailedLoginIPKey(clientIP), models.EndpointAuthLogin, since)
		if err != nil {
			return nil, fmt.Errorf("failed to count failed logins for ip: %w", err)
		}
	}

	maxAttempts := max(identifierAttempts, ipAttempts)
	if maxAttempts < s.config.MaxFailedAttempts {
		return s.unlocked(maxAttempts), nil
	}

	// Only the identifier's own records anchor a lockout. An IP over the threshold locks
	// accounts that have failures of their own, and never one that was just unlocked.
	anchor, err := s.store.LatestSince(ctx, identifierKey, models.EndpointAuthLogin, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest failed login: %w", err)
	}

	if anchor == nil {
		if !s.config.FailClosedOnMissingAnchor {
			metrics.MissingAnchorTotal.WithLabelValues("open").Inc()
			s.logger.WarnContext(ctx, "attempt count over threshold without an identifier record; allowing",
				slog.String("email", logger.SanitizedEmail(identifier)),
				slog.Int("attempts", maxAttempts),
			)
			return s.unlocked(0), nil
		}
		metrics.MissingAnchorTotal.WithLabelValues("closed").Inc()
		anchor = &now
	}

	expiresAt := anchor.Add(s.LockoutDuration(maxAttempts))
	if !now.Before(expiresAt) {
		return s.unlocked(0), nil
	}

	return &models.LockoutStatus{
		IsLocked:             true,
		RemainingAttempts:    0,
		LockoutExpiresAt:     &expiresAt,
		NextAttemptAllowedAt: &expiresAt,
	}, nil
}

// CheckLoginAttemptAllowed turns the lockout status into a decision with a user-facing message
func (s *LockoutService) CheckLoginAttemptAllowed(ctx context.Context, identifier, clientIP string) (*models.LoginDecision, error) {
	status, err := s.CheckAccountLockout(ctx, identifier, clientIP)
	if err != nil {
		return nil, err
	}

	if status.IsLocked && status.LockoutExpiresAt != nil {
		minutes := int(math.Ceil(status.LockoutExpiresAt.Sub(s.now()).Minutes()))
		if minutes < 1 {
			minutes = 1
		}
		return &models.LoginDecision{
			Allowed:           false,
			RemainingAttempts: 0,
			LockoutMinutes:    &minutes,
			Message: fmt.Sprintf(
				"Account temporarily locked due to too many failed login attempts. Try again in %d minute(s).",
				minutes),
		}, nil
	}

	message := "Login attempt allowed."
	if status.RemainingAttempts < s.config.MaxFailedAttempts {
		message = fmt.Sprintf("%d login attempt(s) remaining before temporary lockout.", status.RemainingAttempts)
	}

	return &models.LoginDecision{
		Allowed:           true,
		RemainingAttempts: status.RemainingAttempts,
		Message:           message,
	}, nil
}

// EmergencyUnlockAccount clears the identifier's records and writes a critical audit entry.
// IP-keyed records are left in place. The returned error is non-nil for both failure outcomes.
func (s *LockoutService) EmergencyUnlockAccount(ctx context.Context, identifier, adminID, reason, source string) (models.UnlockOutcome, error) {
	identifier = normalizeIdentifier(identifier)

	cleared, err := s.store.DeleteByIdentifier(ctx, models.FailedLoginKey(identifier), models.EndpointAuthLogin)
	if err != nil {
		metrics.EmergencyUnlocksTotal.WithLabelValues(string(models.UnlockOutcomeFailed)).Inc()
		s.logger.ErrorContext(ctx, "emergency unlock failed",
			slog.String("email", logger.SanitizedEmail(identifier)),
			slog.String("admin_id", adminID),
			slog.Any("error", err),
		)
		return models.UnlockOutcomeFailed, fmt.Errorf("failed to clear failed logins: %w", err)
	}

	if source == "" {
		source = models.AuditSourceAdminAPI
	}
	entry := &models.AuditLog{
		Action:       models.AuditActionEmergencyUnlock,
		ResourceType: models.AuditResourceTypeAccount,
		ResourceID:   &identifier,
		Details: models.AuditMetadata{
			"admin_id":        adminID,
			"reason":          reason,
			"cleared_records": cleared,
		},
		Severity: models.AuditSeverityCritical,
		Source:   source,
	}
	if id, err := uuid.Parse(adminID); err == nil {
		entry.UserID = &id
	}

	if err := s.audit.Record(ctx, entry); err != nil {
		metrics.EmergencyUnlocksTotal.WithLabelValues(string(models.UnlockOutcomeUnlockedAuditFailed)).Inc()
		s.logger.ErrorContext(ctx, "account unlocked but audit entry was not persisted",
			slog.String("email", logger.SanitizedEmail(identifier)),
			slog.String("admin_id", adminID),
			slog.Any("error", err),
		)
		return models.UnlockOutcomeUnlockedAuditFailed, fmt.Errorf("failed to write audit entry: %w", err)
	}

	metrics.EmergencyUnlocksTotal.WithLabelValues(string(models.UnlockOutcomeUnlocked)).Inc()
	return models.UnlockOutcomeUnlocked, nil
}

// GetLockoutStatistics aggregates records in the retention window for the admin dashboard
func (s *LockoutService) GetLockoutStatistics(ctx context.Context) (*models.LockoutStatistics, error) {
	since := s.now().Add(-s.config.Retention)

	records, err := s.store.ListSince(ctx, models.EndpointAuthLogin, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed logins: %w", err)
	}

	accountTally := make(map[string]int)
	ipTally := make(map[string]int)
	ipOrder := make([]string, 0)
	recentFailed := 0

	for _, rec := range records {
		switch {
		case strings.HasPrefix(rec.Identifier, models.FailedLoginKeyPrefix):
			accountTally[strings.TrimPrefix(rec.Identifier, models.FailedLoginKeyPrefix)]++
			recentFailed++
		case strings.HasPrefix(rec.Identifier, models.FailedLoginIPKeyPrefix):
			ip := strings.TrimPrefix(rec.Identifier, models.FailedLoginIPKeyPrefix)
			if _, seen := ipTally[ip]; !seen {
				ipOrder = append(ipOrder, ip)
			}
			ipTally[ip]++
		}
	}

	locked := 0
	for _, count := range accountTally {
		if count >= s.config.MaxFailedAttempts {
			locked++
		}
	}

	topIPs := make([]models.IPAttemptCount, 0, len(ipOrder))
	for _, ip := range ipOrder {
		topIPs = append(topIPs, models.IPAttemptCount{IPAddress: ip, Attempts: ipTally[ip]})
	}
	sort.SliceStable(topIPs, func(i, j int) bool {
		return topIPs[i].Attempts > topIPs[j].Attempts
	})
	if len(topIPs) > topFailedIPLimit {
		topIPs = topIPs[:topFailedIPLimit]
	}

	return &models.LockoutStatistics{
		TotalLockedAccounts:  locked,
		RecentFailedAttempts: recentFailed,
		TopFailedIPs:         topIPs,
	}, nil
}

// CleanupOldFailedAttempts purges login attempt records older than the retention horizon
func (s *LockoutService) CleanupOldFailedAttempts(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.config.Retention)

	deleted, err := s.store.DeleteCreatedBefore(ctx, models.EndpointAuthLogin, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old failed logins: %w", err)
	}

	metrics.CleanupDeletedTotal.Add(float64(deleted))
	return deleted, nil
}

// LockoutDuration is initial * multiplier^(attempts-max), capped, in whole minutes
func (s *LockoutService) LockoutDuration(attempts int) time.Duration {
	exponent := attempts - s.config.MaxFailedAttempts
	if exponent < 0 {
		exponent = 0
	}

	minutes := s.config.InitialLockout.Minutes() * math.Pow(s.config.ProgressiveMultiplier, float64(exponent))
	capMinutes := s.config.MaxLockout.Minutes()
	if math.IsInf(minutes, 0) || minutes > capMinutes {
		minutes = capMinutes
	}

	return time.Duration(math.Round(minutes)) * time.Minute
}

func (s *LockoutService) unlocked(attempts int) *models.LockoutStatus {
	remaining := s.config.MaxFailedAttempts - attempts
	if remaining < 0 {
		remaining = 0
	}
	return &models.LockoutStatus{
		IsLocked:          false,
		RemainingAttempts: remaining,
	}
}

func normalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
