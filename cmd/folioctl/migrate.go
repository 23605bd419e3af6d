package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/BradenHooton/folio/internal/database"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

func (c *cli) newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database migrations",
	}

	cmd.AddCommand(
		c.migrateSubcommand("up", "Apply all pending migrations", database.MigrateUp),
		c.migrateSubcommand("down", "Roll back the most recent migration", database.MigrateDown),
		c.migrateSubcommand("status", "Show the applied state of every migration", database.MigrationStatus),
	)
	return cmd
}

func (c *cli) migrateSubcommand(use, short string, run func(context.Context, *sql.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
			defer cancel()

			db, err := c.openSQL()
			if err != nil {
				return err
			}
			defer db.Close()

			goose.SetLogger(log.New(c.stdout, "", 0))
			if err := run(ctx, db); err != nil {
				return err
			}

			if use != "status" {
				fmt.Fprintf(c.stdout, "migrate %s complete\n", use)
			}
			return nil
		},
	}
}
