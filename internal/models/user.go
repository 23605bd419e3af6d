package models

import (
	"time"
)

// Roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         string    // "user" or "admin"
	Status       string    // "active" or "disabled"
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// TOTP secret, AES-GCM encrypted; set on enrollment, trusted once MFAEnabled
	MFASecret  []byte
	MFANonce   []byte
	MFAEnabled bool
}
