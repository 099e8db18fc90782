package handlers

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"vidpulse/internal/config"
	"vidpulse/internal/logger"
	"vidpulse/internal/persistence"
	"vidpulse/internal/store"
)

// NewMigrateCmd creates the migrate command for database migrations
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the users table",
		Long: `Create or upgrade the users table on the configured store.

With no subcommand this applies all pending migrations.

Subcommands:
  up       Apply all pending migrations
  status   Show migration status (postgres only)

On the sqlite driver the schema is created when the store is opened, so
'up' only opens the database file.

Examples:
  vidpulse migrate
  vidpulse migrate status`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateUp(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateUp(cmd.Context(), cmd.OutOrStdout())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateStatus(cmd.Context(), cmd.OutOrStdout())
		},
	})

	return cmd
}

func runMigrateUp(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Get()
	logger.Info("Starting database migration", "driver", cfg.Database.Driver)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	switch db := st.(type) {
	case *persistence.PostgresDB:
		if err := persistence.NewMigrationManager(db).Migrate(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case *store.Store:
		fmt.Fprintf(out, "SQLite schema ready at %s\n", db.Path())
		return nil
	}

	fmt.Fprintln(out, "All migrations applied successfully")
	return nil
}

func runMigrateStatus(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStore(config.Get())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	pgDB, ok := st.(*persistence.PostgresDB)
	if !ok {
		return fmt.Errorf("migration status is only tracked for the postgres driver")
	}

	status, err := persistence.NewMigrationManager(pgDB).Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	if len(status) == 0 {
		fmt.Fprintln(out, "No migrations found")
		return nil
	}

	fmt.Fprintf(out, "%-10s %-10s %s\n", "Version", "Status", "Description")

	pending := 0
	for _, m := range status {
		state := "applied"
		if !m.Applied {
			state = "pending"
			pending++
		}
		fmt.Fprintf(out, "%-10d %-10s %s\n", m.Version, state, m.Description)
	}

	fmt.Fprintf(out, "\nApplied: %d | Pending: %d | Total: %d\n", len(status)-pending, pending, len(status))
	if pending > 0 {
		fmt.Fprintln(out, "Run 'vidpulse migrate up' to apply pending migrations")
	}
	return nil
}
