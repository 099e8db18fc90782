package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vidpulse/internal/config"
	"vidpulse/internal/core"
	"vidpulse/internal/logger"
)

// NewUsersCmd creates the users command for seeding and inspecting the user table
func NewUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Seed and inspect users",
		Long: `Seed and inspect the users table on the configured store.

Subcommands:
  import   Insert or update users from a JSON array
  stats    Show user counts

Examples:
  vidpulse users import users.json
  vidpulse users stats`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import <users.json>",
		Short: "Insert or update users from a JSON array",
		Long: `Read a JSON array of users and upsert each one. Only profile columns
(email, name, business description, timezone, email hour, notification
opt-in, auth id) are written; stored analysis results and delivery flags
are left alone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersImport(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show user counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersStats(cmd.Context(), cmd.OutOrStdout())
		},
	})

	return cmd
}

func runUsersImport(ctx context.Context, out io.Writer, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var users []core.User
	if err := json.Unmarshal(raw, &users); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for i, u := range users {
		if strings.TrimSpace(u.ID) == "" {
			return fmt.Errorf("user %d in %s has no id", i, path)
		}
	}

	st, err := openStore(config.Get())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	for _, u := range users {
		if err := st.UpsertUser(ctx, u); err != nil {
			return fmt.Errorf("user %s: %w", u.ID, err)
		}
	}
	logger.Info("Imported users", "count", len(users), "file", path)

	fmt.Fprintf(out, "Imported %d users\n", len(users))
	return printUserStats(ctx, out, st)
}

func runUsersStats(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStore(config.Get())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	return printUserStats(ctx, out, st)
}

func printUserStats(ctx context.Context, out io.Writer, st userStore) error {
	stats, err := st.GetStats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %d\n%s %d\n%s %d\n",
		labelStyle.Render("Users"), stats["users"],
		labelStyle.Render("Opted in"), stats["notifications"],
		labelStyle.Render("Email ready"), stats["ready_for_email"],
	)
	return nil
}
