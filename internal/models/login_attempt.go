package models

import "time"

// Key prefixes namespacing failed-login tracking inside the shared rate_limits table
const (
	FailedLoginKeyPrefix   = "login_failed:"
	FailedLoginIPKeyPrefix = "login_failed_ip:"

	// EndpointAuthLogin is the logical operation name stored with login attempt records
	EndpointAuthLogin = "auth_login"

	// UnknownIP is what request IP extraction yields when no address can be resolved
	UnknownIP = "unknown"
)

// AttemptRecord is a single timestamped row in the rate_limits table
type AttemptRecord struct {
	ID         int64     `db:"id"`
	Identifier string    `db:"identifier"`
	Endpoint   string    `db:"endpoint"`
	Attempts   int       `db:"attempts"`
	CreatedAt  time.Time `db:"created_at"`
	ResetTime  time.Time `db:"reset_time"`
}

// FailedLoginKey returns the per-account key for an identifier
func FailedLoginKey(identifier string) string {
	return FailedLoginKeyPrefix + identifier
}

// FailedLoginIPKey returns the per-IP key for a client address
func FailedLoginIPKey(ip string) string {
	return FailedLoginIPKeyPrefix + ip
}

// KnownIP reports whether ip can be used as a tracking key
func KnownIP(ip string) bool {
	return ip != "" && ip != UnknownIP
}

// LockoutStatus is derived from attempt records at query time and never stored
type LockoutStatus struct {
	IsLocked             bool       `json:"is_locked"`
	RemainingAttempts    int        `json:"remaining_attempts"`
	LockoutExpiresAt     *time.Time `json:"lockout_expires_at,omitempty"`
	NextAttemptAllowedAt *time.Time `json:"next_attempt_allowed_at,omitempty"`
}

// LoginDecision is the actionable form of LockoutStatus handed to the login handler
type LoginDecision struct {
	Allowed           bool   `json:"allowed"`
	RemainingAttempts int    `json:"remaining_attempts"`
	LockoutMinutes    *int   `json:"lockout_minutes,omitempty"`
	Message           string `json:"message"`
}

// IPAttemptCount is one row of the top-offending-IP list
type IPAttemptCount struct {
	IPAddress string `json:"ip_address"`
	Attempts  int    `json:"attempts"`
}

// LockoutStatistics aggregates recent failed attempts for the admin dashboard
type LockoutStatistics struct {
	TotalLockedAccounts  int              `json:"total_locked_accounts"`
	RecentFailedAttempts int              `json:"recent_failed_attempts"`
	TopFailedIPs         []IPAttemptCount `json:"top_failed_ips"`
}

// UnlockOutcome reports how far an emergency unlock got
type UnlockOutcome string

const (
	UnlockOutcomeUnlocked            UnlockOutcome = "unlocked"
	UnlockOutcomeUnlockedAuditFailed UnlockOutcome = "unlocked_audit_failed"
	UnlockOutcomeFailed              UnlockOutcome = "failed"
)
