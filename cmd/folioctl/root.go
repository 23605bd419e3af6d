package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/BradenHooton/folio/internal/app"
	"github.com/BradenHooton/folio/internal/config"
	"github.com/BradenHooton/folio/internal/models"
	"github.com/BradenHooton/folio/internal/services"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

// lockoutAPI is the lockout surface the CLI drives
type lockoutAPI interface {
	GetLockoutStatistics(ctx context.Context) (*models.LockoutStatistics, error)
	CheckAccountLockout(ctx context.Context, identifier, clientIP string) (*models.LockoutStatus, error)
	EmergencyUnlockAccount(ctx context.Context, identifier, adminID, reason, source string) (models.UnlockOutcome, error)
	CleanupOldFailedAttempts(ctx context.Context) (int64, error)
}

// adminAPI bootstraps admin accounts
type adminAPI interface {
	CreateAdmin(ctx context.Context, email, password, name string) (*services.UserResponse, error)
}

// errMemoryBackend stops folioctl from acting on a private, empty store the server never sees
var errMemoryBackend = errors.New("STORE_BACKEND=memory keeps attempts inside the API process; folioctl needs STORE_BACKEND=postgres")

type backend struct {
	lockout lockoutAPI
	admin   adminAPI
	close   func()
}

type cli struct {
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	timeout time.Duration

	loadConfig func() (*config.Config, error)
	connect    func(ctx context.Context) (*backend, error)
	openSQL    func() (*sql.DB, error)
}

func newRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	c := &cli{
		stdin:   in,
		stdout:  out,
		stderr:  errOut,
		timeout: 30 * time.Second,

		loadConfig: config.Load,
	}
	c.connect = c.connectApp
	c.openSQL = openPostgres
	return c.command()
}

func (c *cli) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "folioctl",
		Short:         "Operate the folio login lockout service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().DurationVar(&c.timeout, "timeout", c.timeout, "deadline for each command")

	cmd.AddCommand(
		c.newMigrateCmd(),
		c.newLockoutCmd(),
		c.newAdminCmd(),
	)
	return cmd
}

// connectApp loads configuration from the environment and wires the full service graph
func (c *cli) connectApp(ctx context.Context) (*backend, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Lockout.StoreBackend == config.StoreBackendMemory {
		return nil, errMemoryBackend
	}

	logger := slog.New(slog.NewJSONHandler(c.stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &backend{lockout: a.Lockout, admin: a.Auth, close: a.Close}, nil
}

// openPostgres opens a database/sql handle through lib/pq for goose
func openPostgres() (*sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// withBackend runs fn against a connected backend under the command deadline
func (c *cli) withBackend(cmd *cobra.Command, fn func(ctx context.Context, b *backend) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()

	b, err := c.connect(ctx)
	if err != nil {
		return err
	}
	if b.close != nil {
		defer b.close()
	}
	return fn(ctx, b)
}

func (c *cli) printJSON(v interface{}) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
