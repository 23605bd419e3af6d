package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BradenHooton/folio/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// errUnlockIncomplete makes the process exit non-zero when the audit half of an unlock failed
var errUnlockIncomplete = errors.New("account unlocked but the audit entry was not written")

func (c *cli) newLockoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lockout",
		Short: "Inspect and override failed-login lockouts",
	}

	cmd.AddCommand(
		c.newLockoutStatsCmd(),
		c.newLockoutStatusCmd(),
		c.newLockoutUnlockCmd(),
		c.newLockoutCleanupCmd(),
	)
	return cmd
}

func (c *cli) newLockoutStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print lockout statistics for the retention window as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b *backend) error {
				stats, err := b.lockout.GetLockoutStatistics(ctx)
				if err != nil {
					return fmt.Errorf("failed to compute statistics: %w", err)
				}
				return c.printJSON(stats)
			})
		},
	}
}

func (c *cli) newLockoutStatusCmd() *cobra.Command {
	var ip string
	cmd := &cobra.Command{
		Use:   "status EMAIL",
		Short: "Show whether an account is locked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.ToLower(strings.TrimSpace(args[0]))
			return c.withBackend(cmd, func(ctx context.Context, b *backend) error {
				status, err := b.lockout.CheckAccountLockout(ctx, email, ip)
				if err != nil {
					return fmt.Errorf("failed to check lockout: %w", err)
				}
				return c.printJSON(status)
			})
		},
	}
	cmd.Flags().StringVar(&ip, "ip", "", "also count failures from this client IP")
	return cmd
}

func (c *cli) newLockoutUnlockCmd() *cobra.Command {
	var adminID, reason string
	cmd := &cobra.Command{
		Use:   "unlock EMAIL",
		Short: "Clear failed-login history for an account and write a critical audit entry",
		Long: `Clear every failed-login record keyed by the account's email and write a
critical audit entry naming the acting admin and the reason.

IP-keyed records are left in place, so a client that tripped the per-IP
threshold stays locked until its window passes.

Examples:
  folioctl lockout unlock user@example.com --admin 7f3c2a10-1b2c-4d5e-8f90-a1b2c3d4e5f6 --reason "verified by phone"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := uuid.Parse(adminID); err != nil {
				return fmt.Errorf("--admin must be the acting admin's user ID (UUID): %w", err)
			}
			if strings.TrimSpace(reason) == "" {
				return errors.New("--reason is required")
			}

			email := strings.ToLower(strings.TrimSpace(args[0]))
			return c.withBackend(cmd, func(ctx context.Context, b *backend) error {
				outcome, err := b.lockout.EmergencyUnlockAccount(ctx, email, adminID, strings.TrimSpace(reason), models.AuditSourceCLI)
				fmt.Fprintf(c.stdout, "outcome: %s\n", outcome)

				switch outcome {
				case models.UnlockOutcomeUnlocked:
					return nil
				case models.UnlockOutcomeUnlockedAuditFailed:
					return fmt.Errorf("%w: %v", errUnlockIncomplete, err)
				default:
					return fmt.Errorf("unlock failed: %w", err)
				}
			})
		},
	}
	cmd.Flags().StringVar(&adminID, "admin", "", "acting admin user ID (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "why the account is being unlocked (required)")
	_ = cmd.MarkFlagRequired("admin")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func (c *cli) newLockoutCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete failed-login records older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b *backend) error {
				deleted, err := b.lockout.CleanupOldFailedAttempts(ctx)
				if err != nil {
					return fmt.Errorf("cleanup failed: %w", err)
				}
				fmt.Fprintf(c.stdout, "deleted %d record(s)\n", deleted)
				return nil
			})
		},
	}
}
