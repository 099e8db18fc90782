package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver

	"vidpulse/internal/core"
)

// PostgresDB is the PostgreSQL user store
type PostgresDB struct {
	db    *sql.DB
	users UserRepository
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(connectionString string, pingTimeout time.Duration) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{db: db, users: &postgresUserRepo{db: db}}, nil
}

func (p *PostgresDB) Close() error {
	return p.db.Close()
}

func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// UpsertUser inserts a user or updates its profile columns.
func (p *PostgresDB) UpsertUser(ctx context.Context, user core.User) error {
	return p.users.Upsert(ctx, &user)
}

// GetStats returns user counts for reporting.
func (p *PostgresDB) GetStats(ctx context.Context) (map[string]int, error) {
	return p.users.Stats(ctx)
}

// ListUsers loads the full user population.
func (p *PostgresDB) ListUsers(ctx context.Context) ([]core.User, error) {
	return p.users.List(ctx)
}

// SaveAnalysis persists a successful analysis and sets the ready flag.
func (p *PostgresDB) SaveAnalysis(ctx context.Context, userID string, result *core.AnalysisResult, at time.Time) error {
	return p.users.SaveAnalysis(ctx, userID, result, at)
}

// MarkEmailSent clears the ready flag after a successful send.
func (p *PostgresDB) MarkEmailSent(ctx context.Context, userID string, at time.Time) error {
	return p.users.MarkEmailSent(ctx, userID, at)
}
