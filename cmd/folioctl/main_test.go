package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/folio/internal/config"
	"github.com/BradenHooton/folio/internal/models"
	"github.com/BradenHooton/folio/internal/services"
	pkgauth "github.com/BradenHooton/folio/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID = "7f3c2a10-1b2c-4d5e-8f90-a1b2c3d4e5f6"

type fakeLockout struct {
	stats      *models.LockoutStatistics
	status     *models.LockoutStatus
	outcome    models.UnlockOutcome
	unlockErr  error
	deleted    int64
	cleanupErr error

	gotIdentifier string
	gotIP         string
	gotAdmin      string
	gotReason     string
	gotSource     string
}

func (f *fakeLockout) GetLockoutStatistics(ctx context.Context) (*models.LockoutStatistics, error) {
	return f.stats, nil
}

func (f *fakeLockout) CheckAccountLockout(ctx context.Context, identifier, clientIP string) (*models.LockoutStatus, error) {
	f.gotIdentifier, f.gotIP = identifier, clientIP
	return f.status, nil
}

func (f *fakeLockout) EmergencyUnlockAccount(ctx context.Context, identifier, adminID, reason, source string) (models.UnlockOutcome, error) {
	f.gotIdentifier, f.gotAdmin, f.gotReason, f.gotSource = identifier, adminID, reason, source
	return f.outcome, f.unlockErr
}

func (f *fakeLockout) CleanupOldFailedAttempts(ctx context.Context) (int64, error) {
	return f.deleted, f.cleanupErr
}

type fakeAdmin struct {
	err         error
	gotEmail    string
	gotPassword string
	gotName     string
}

func (f *fakeAdmin) CreateAdmin(ctx context.Context, email, password, name string) (*services.UserResponse, error) {
	f.gotEmail, f.gotPassword, f.gotName = email, password, name
	if f.err != nil {
		return nil, f.err
	}
	return &services.UserResponse{ID: "new-admin", Email: email, Role: models.RoleAdmin}, nil
}

func run(t *testing.T, b *backend, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	c := &cli{
		stdin:   strings.NewReader(stdin),
		stdout:  &out,
		stderr:  &errOut,
		timeout: time.Second,
		connect: func(ctx context.Context) (*backend, error) { return b, nil },
	}
	root := c.command()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.Execute()
	return out.String(), err
}

func TestLockoutStats_PrintsJSON(t *testing.T) {
	lockout := &fakeLockout{stats: &models.LockoutStatistics{
		TotalLockedAccounts:  2,
		RecentFailedAttempts: 14,
		TopFailedIPs:         []models.IPAttemptCount{{IPAddress: "10.0.0.1", Attempts: 9}},
	}}

	out, err := run(t, &backend{lockout: lockout}, "", "lockout", "stats")
	require.NoError(t, err)

	var got models.LockoutStatistics
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, *lockout.stats, got)
}

func TestLockoutStatus_NormalizesEmailAndPassesIP(t *testing.T) {
	lockout := &fakeLockout{status: &models.LockoutStatus{RemainingAttempts: 3}}

	out, err := run(t, &backend{lockout: lockout}, "", "lockout", "status", "  User@Example.COM ", "--ip", "10.0.0.9")
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", lockout.gotIdentifier)
	assert.Equal(t, "10.0.0.9", lockout.gotIP)
	assert.Contains(t, out, `"remaining_attempts": 3`)
}

func TestLockoutUnlock_Outcomes(t *testing.T) {
	tests := []struct {
		name      string
		outcome   models.UnlockOutcome
		err       error
		expectErr error
	}{
		{"unlocked", models.UnlockOutcomeUnlocked, nil, nil},
		{"audit failed exits non-zero", models.UnlockOutcomeUnlockedAuditFailed, errors.New("audit down"), errUnlockIncomplete},
		{"failed", models.UnlockOutcomeFailed, errors.New("store down"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lockout := &fakeLockout{outcome: tt.outcome, unlockErr: tt.err}

			out, err := run(t, &backend{lockout: lockout}, "",
				"lockout", "unlock", "User@Example.com", "--admin", adminID, "--reason", " phoned in ")

			assert.Contains(t, out, "outcome: "+string(tt.outcome))
			assert.Equal(t, "user@example.com", lockout.gotIdentifier)
			assert.Equal(t, adminID, lockout.gotAdmin)
			assert.Equal(t, "phoned in", lockout.gotReason)
			assert.Equal(t, models.AuditSourceCLI, lockout.gotSource)

			switch {
			case tt.outcome == models.UnlockOutcomeUnlocked:
				assert.NoError(t, err)
			case tt.expectErr != nil:
				assert.ErrorIs(t, err, tt.expectErr)
			default:
				assert.Error(t, err)
			}
		})
	}
}

func TestLockoutUnlock_ValidatesFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing admin", []string{"lockout", "unlock", "a@example.com", "--reason", "x"}},
		{"admin not a uuid", []string{"lockout", "unlock", "a@example.com", "--admin", "bob", "--reason", "x"}},
		{"blank reason", []string{"lockout", "unlock", "a@example.com", "--admin", adminID, "--reason", "  "}},
		{"missing email", []string{"lockout", "unlock", "--admin", adminID, "--reason", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lockout := &fakeLockout{outcome: models.UnlockOutcomeUnlocked}

			_, err := run(t, &backend{lockout: lockout}, "", tt.args...)

			assert.Error(t, err)
			assert.Empty(t, lockout.gotIdentifier, "unlock must not run")
		})
	}
}

func TestLockoutCleanup(t *testing.T) {
	out, err := run(t, &backend{lockout: &fakeLockout{deleted: 42}}, "", "lockout", "cleanup")
	require.NoError(t, err)
	assert.Equal(t, "deleted 42 record(s)\n", out)

	_, err = run(t, &backend{lockout: &fakeLockout{cleanupErr: errors.New("boom")}}, "", "lockout", "cleanup")
	assert.Error(t, err)
}

func TestAdminCreate(t *testing.T) {
	admin := &fakeAdmin{}

	out, err := run(t, &backend{admin: admin}, "", "admin", "create", "--email", "root@example.com", "--password", "S3cure!Passw0rd", "--name", "Root")
	require.NoError(t, err)

	assert.Equal(t, "root@example.com", admin.gotEmail)
	assert.Equal(t, "S3cure!Passw0rd", admin.gotPassword)
	assert.Equal(t, "Root", admin.gotName)
	assert.Contains(t, out, "created admin root@example.com (new-admin)")
}

func TestAdminCreate_PasswordFromStdin(t *testing.T) {
	admin := &fakeAdmin{}

	_, err := run(t, &backend{admin: admin}, "S3cure!Passw0rd\n", "admin", "create", "--email", "root@example.com", "--password-stdin")
	require.NoError(t, err)

	assert.Equal(t, "S3cure!Passw0rd", admin.gotPassword)
}

func TestAdminCreate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"weak password", &pkgauth.PasswordValidationError{Errors: []string{"password is too common"}}, "password is too common"},
		{"duplicate", models.ErrConflict, "already exists"},
		{"internal", models.ErrInternalServer, "failed to create admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, &backend{admin: &fakeAdmin{err: tt.err}}, "", "admin", "create", "--email", "root@example.com", "--password", "whatever")

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestAdminCreate_RequiresPassword(t *testing.T) {
	admin := &fakeAdmin{}

	_, err := run(t, &backend{admin: admin}, "", "admin", "create", "--email", "root@example.com")

	assert.Error(t, err)
	assert.Empty(t, admin.gotEmail)
}

func TestLockoutCommands_RefuseMemoryBackend(t *testing.T) {
	tests := [][]string{
		{"lockout", "stats"},
		{"lockout", "status", "a@example.com"},
		{"lockout", "unlock", "a@example.com", "--admin", adminID, "--reason", "phoned in"},
		{"lockout", "cleanup"},
	}

	for _, args := range tests {
		t.Run(strings.Join(args[:2], " "), func(t *testing.T) {
			var out, errOut bytes.Buffer
			c := &cli{
				stdin:   strings.NewReader(""),
				stdout:  &out,
				stderr:  &errOut,
				timeout: time.Second,
				loadConfig: func() (*config.Config, error) {
					return &config.Config{Lockout: config.LockoutConfig{StoreBackend: config.StoreBackendMemory}}, nil
				},
			}
			c.connect = c.connectApp
			root := c.command()
			root.SetArgs(args)
			root.SetOut(&out)
			root.SetErr(&errOut)

			err := root.Execute()

			assert.ErrorIs(t, err, errMemoryBackend)
			assert.NotContains(t, out.String(), "outcome:")
		})
	}
}
