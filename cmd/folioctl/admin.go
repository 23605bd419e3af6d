package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BradenHooton/folio/internal/models"
	pkgauth "github.com/BradenHooton/folio/pkg/auth"
	"github.com/spf13/cobra"
)

func (c *cli) newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}
	cmd.AddCommand(c.newAdminCreateCmd())
	return cmd
}

func (c *cli) newAdminCreateCmd() *cobra.Command {
	var email, password, name string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if passwordStdin {
				line, err := bufio.NewReader(c.stdin).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read password from stdin: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("a password is required (--password or --password-stdin)")
			}

			return c.withBackend(cmd, func(ctx context.Context, b *backend) error {
				user, err := b.admin.CreateAdmin(ctx, email, password, name)
				if err != nil {
					var pwErr *pkgauth.PasswordValidationError
					switch {
					case errors.As(err, &pwErr):
						return fmt.Errorf("password rejected: %s", strings.Join(pwErr.Errors, "; "))
					case errors.Is(err, models.ErrConflict):
						return fmt.Errorf("a user with email %s already exists", strings.ToLower(strings.TrimSpace(email)))
					default:
						return fmt.Errorf("failed to create admin: %w", err)
					}
				}
				fmt.Fprintf(c.stdout, "created admin %s (%s)\n", user.Email, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	cmd.Flags().StringVar(&name, "name", "Admin", "display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
