package persistence

import (
	"context"
	"embed"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"vidpulse/internal/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is one embedded schema change, named "<version>_<description>.sql".
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// MigrationStatus pairs a migration with whether it has been applied.
type MigrationStatus struct {
	Migration
	Applied bool
}

// MigrationManager applies the embedded migrations to a PostgresDB
type MigrationManager struct {
	db  *PostgresDB
	log zerolog.Logger
}

func NewMigrationManager(db *PostgresDB) *MigrationManager {
	return &MigrationManager{
		db:  db,
		log: logger.Get().With().Str("component", "migrate").Logger(),
	}
}

// Migrate applies every pending migration, each in its own transaction.
func (m *MigrationManager) Migrate(ctx context.Context) error {
	plan, err := m.Status(ctx)
	if err != nil {
		return err
	}

	applied := 0
	for _, st := range plan {
		if st.Applied {
			continue
		}
		if err := m.apply(ctx, st.Migration); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", st.Version, err)
		}
		applied++
	}

	m.log.Info().Int("applied", applied).Int("total", len(plan)).Msg("Schema up to date")
	return nil
}

// Status lists the embedded migrations in version order.
func (m *MigrationManager) Status(ctx context.Context) ([]MigrationStatus, error) {
	_, err := m.db.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := m.db.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		done[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	migrations, err := loadMigrations()
	if err != nil {
		return nil, err
	}
	return markApplied(migrations, done), nil
}

func (m *MigrationManager) apply(ctx context.Context, mig Migration) error {
	m.log.Info().Int("version", mig.Version).Str("description", mig.Description).Msg("Applying migration")

	tx, err := m.db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
		mig.Version, mig.Description,
	); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}

func loadMigrations() ([]Migration, error) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return nil, err
	}

	var migrations []Migration
	for _, entry := range entries {
		name := entry.Name()
		prefix, rest, ok := strings.Cut(strings.TrimSuffix(name, ".sql"), "_")
		version, err := strconv.Atoi(prefix)
		if !ok || err != nil {
			return nil, fmt.Errorf("migration %s is not named <version>_<description>.sql", name)
		}

		body, err := migrationFiles.ReadFile(path.Join("migrations", name))
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, Migration{
			Version:     version,
			Description: strings.ReplaceAll(rest, "_", " "),
			SQL:         string(body),
		})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

func markApplied(migrations []Migration, done map[int]bool) []MigrationStatus {
	out := make([]MigrationStatus, len(migrations))
	for i, mig := range migrations {
		out[i] = MigrationStatus{Migration: mig, Applied: done[mig.Version]}
	}
	return out
}
