package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Severity levels for audit entries
const (
	AuditSeverityInfo     = "info"
	AuditSeverityWarning  = "warning"
	AuditSeverityCritical = "critical"
)

// Sources identify which surface produced an audit entry
const (
	AuditSourceAdminAPI = "admin_api"
	AuditSourceCLI      = "cli"
	AuditSourceAuth     = "auth"
)

// Resource types
const (
	AuditResourceTypeUser    = "user"
	AuditResourceTypeAccount = "account"
	AuditResourceTypeMFA     = "mfa"
)

// Actions
const (
	AuditActionEmergencyUnlock = "emergency_unlock"
	AuditActionAccountLocked   = "account_locked"
	AuditActionMFAEnroll       = "mfa_enroll"
	AuditActionMFAEnable       = "mfa_enable"
	AuditActionAdminCreate     = "admin_create"
)

// AuditLog is a persisted audit entry
type AuditLog struct {
	ID           uuid.UUID     `db:"id" json:"id"`
	UserID       *uuid.UUID    `db:"user_id" json:"user_id,omitempty"`
	Action       string        `db:"action" json:"action"`
	ResourceType string        `db:"resource_type" json:"resource_type"`
	ResourceID   *string       `db:"resource_id" json:"resource_id,omitempty"`
	Details      AuditMetadata `db:"details" json:"details"`
	Severity     string        `db:"severity" json:"severity"`
	Source       string        `db:"source" json:"source"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// AuditMetadata holds additional context for audit events
type AuditMetadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (am *AuditMetadata) Scan(value interface{}) error {
	if value == nil {
		*am = make(AuditMetadata)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*am = AuditMetadata(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (am AuditMetadata) Value() (driver.Value, error) {
	if am == nil {
		return nil, nil
	}
	return json.Marshal(am)
}
