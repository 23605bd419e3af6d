package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		email    string
		problem  string // empty means valid
	}{
		{"valid strong password", "SecureP@ss1234", "", ""},
		{"valid with multiple special chars", "Secure#P@ssw0rd", "", ""},
		{"valid multibyte", "Pässwörter#2026", "", ""},
		{"too short", "Pass@1abc", "", "must be at least 12 characters"},
		{"missing uppercase", "securepass@123", "", "must contain at least one uppercase letter"},
		{"missing lowercase", "SECUREPASS@123", "", "must contain at least one lowercase letter"},
		{"missing digit", "SecurePass@xyz", "", "must contain at least one digit"},
		{"missing special character", "SecurePass1234", "", "must contain at least one special character"},
		{"common password", "Changeme123!", "", "is too common"},
		{"over bcrypt limit", "Aa1!" + strings.Repeat("x", 70), "", "must be at most 72 bytes"},
		{"contains email local part", "Root-Admin#2026", "root-admin@example.com", "must not contain the account email"},
		{"short local part ignored", "Ab#Secure2026x", "ab@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password, tt.email)

			if tt.problem == "" {
				assert.NoError(t, err)
				return
			}

			var pwErr *PasswordValidationError
			require.True(t, errors.As(err, &pwErr), "expected PasswordValidationError, got %v", err)
			assert.Contains(t, pwErr.Errors, tt.problem)
			assert.Equal(t, "invalid password", err.Error(), "details must not leak through Error()")
		})
	}
}

func TestHashAndComparePassword(t *testing.T) {
	password := "SecureP@ss1234"

	hash, err := HashPassword(password)
	require.NoError(t, err)
	assert.NotEqual(t, password, hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, BcryptCost, cost)

	assert.NoError(t, ComparePassword(hash, password))
	assert.Error(t, ComparePassword(hash, "WrongPassword123!"))
}

func TestHashPassword_RejectsInvalidInput(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)

	_, err = HashPassword(strings.Repeat("a", MaxPasswordBytes+1))
	assert.Error(t, err)
}
