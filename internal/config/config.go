package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends for the attempt store
const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Lockout  LockoutConfig
	Email    EmailConfig
	MFA      MFAConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	// Coarse per-IP request budget in front of the login and admin endpoints
	LoginRequestsPerMinute int
	AdminRequestsPerMinute int
}

type AuthConfig struct {
	JWTSecret         string
	AccessTokenExpiry time.Duration
	// Rejected logins are padded to FailureFloor plus up to FailureJitter
	FailureFloor  time.Duration
	FailureJitter time.Duration
}

// LockoutConfig drives failed-login tracking and progressive backoff
type LockoutConfig struct {
	StoreBackend           string
	MaxFailedAttempts      int
	InitialLockout         time.Duration
	ProgressiveMultiplier  float64
	MaxLockout             time.Duration
	Retention              time.Duration
	CleanupInterval        time.Duration
	FailClosedOnMissingRec bool
}

type EmailConfig struct {
	Enabled     bool
	AWSRegion   string
	FromAddress string
	SiteURL     string
}

// MFAConfig holds the TOTP settings for admin step-up; an empty key disables enrollment
type MFAConfig struct {
	EncryptionKey []byte
	Issuer        string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "folio"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:                   getEnv("PORT", "8080"),
			Env:                    env,
			LogLevel:               getEnv("LOG_LEVEL", "info"),
			TrustedProxies:         getEnvAsList("TRUSTED_PROXIES"),
			ReadTimeout:            getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:           getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:            getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			LoginRequestsPerMinute: getEnvAsInt("LOGIN_REQUESTS_PER_MINUTE", 20),
			AdminRequestsPerMinute: getEnvAsInt("ADMIN_REQUESTS_PER_MINUTE", 60),
		},
		Auth: AuthConfig{
			JWTSecret:         jwtSecret,
			AccessTokenExpiry: getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 1*time.Hour),
			FailureFloor:      getEnvAsDuration("LOGIN_FAILURE_FLOOR", 250*time.Millisecond),
			FailureJitter:     getEnvAsDuration("LOGIN_FAILURE_JITTER", 100*time.Millisecond),
		},
		Lockout: LockoutConfig{
			StoreBackend:           getEnv("STORE_BACKEND", StoreBackendPostgres),
			MaxFailedAttempts:      getEnvAsInt("LOCKOUT_MAX_FAILED_ATTEMPTS", 5),
			InitialLockout:         getEnvAsDuration("LOCKOUT_INITIAL_DURATION", 15*time.Minute),
			ProgressiveMultiplier:  getEnvAsFloat("LOCKOUT_PROGRESSIVE_MULTIPLIER", 2),
			MaxLockout:             getEnvAsDuration("LOCKOUT_MAX_DURATION", 24*time.Hour),
			Retention:              getEnvAsDuration("LOCKOUT_RETENTION", 24*time.Hour),
			CleanupInterval:        getEnvAsDuration("LOCKOUT_CLEANUP_INTERVAL", 1*time.Hour),
			FailClosedOnMissingRec: getEnvAsBool("LOCKOUT_FAIL_CLOSED_ON_MISSING_ANCHOR", false),
		},
		Email: EmailConfig{
			Enabled:     getEnvAsBool("EMAIL_ENABLED", false),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@localhost"),
			SiteURL:     getEnv("SITE_URL", "http://localhost:3000"),
		},
		MFA: MFAConfig{
			Issuer: getEnv("MFA_ISSUER", "folio"),
		},
	}

	if cfg.Lockout.StoreBackend != StoreBackendPostgres && cfg.Lockout.StoreBackend != StoreBackendMemory {
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q (got %q)",
			StoreBackendPostgres, StoreBackendMemory, cfg.Lockout.StoreBackend)
	}

	if cfg.Lockout.StoreBackend == StoreBackendPostgres && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if err := cfg.Lockout.Validate(); err != nil {
		return nil, err
	}

	if raw := getEnv("MFA_ENCRYPTION_KEY", ""); raw != "" {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("MFA_ENCRYPTION_KEY must be base64: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("MFA_ENCRYPTION_KEY must decode to 32 bytes (got %d)", len(key))
		}
		cfg.MFA.EncryptionKey = key
	}

	return cfg, nil
}

// Validate rejects lockout settings that would make the backoff formula meaningless
func (c *LockoutConfig) Validate() error {
	if c.MaxFailedAttempts < 1 {
		return fmt.Errorf("LOCKOUT_MAX_FAILED_ATTEMPTS must be at least 1 (got %d)", c.MaxFailedAttempts)
	}
	if c.ProgressiveMultiplier < 1 {
		return fmt.Errorf("LOCKOUT_PROGRESSIVE_MULTIPLIER must be at least 1 (got %v)", c.ProgressiveMultiplier)
	}
	if c.InitialLockout < time.Minute {
		return fmt.Errorf("LOCKOUT_INITIAL_DURATION must be at least 1m (got %v)", c.InitialLockout)
	}
	if c.MaxLockout < c.InitialLockout {
		return fmt.Errorf("LOCKOUT_MAX_DURATION (%v) must not be shorter than LOCKOUT_INITIAL_DURATION (%v)",
			c.MaxLockout, c.InitialLockout)
	}
	if c.Retention <= 0 {
		return fmt.Errorf("LOCKOUT_RETENTION must be positive")
	}
	return nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
