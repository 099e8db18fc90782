package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"vidpulse/internal/core"
	"vidpulse/internal/logger"
)

// ErrUserNotFound is returned when an update matches no user.
var ErrUserNotFound = errors.New("user not found")

// Store is the SQLite-backed user store used for local runs
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the SQLite database at dbPath
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers; one connection avoids "database is locked".
	db.SetMaxOpenConns(1)

	store := &Store{
		db:   db,
		path: dbPath,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *Store) initialize() error {
	usersTable := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		full_name TEXT,
		business_description TEXT,
		timezone TEXT,
		email_time_hour INTEGER,
		email_notifications BOOLEAN NOT NULL DEFAULT 1,
		auth_id TEXT,
		last_analysis_results TEXT,
		analysis_ready_for_email BOOLEAN NOT NULL DEFAULT 0,
		last_analysis_run DATETIME,
		last_email_sent DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := s.db.Exec(usersTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertUser inserts a user or updates its profile columns
func (s *Store) UpsertUser(ctx context.Context, user core.User) error {
	query := `
	INSERT INTO users
	(id, email, full_name, business_description, timezone, email_time_hour, email_notifications, auth_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		email = excluded.email,
		full_name = excluded.full_name,
		business_description = excluded.business_description,
		timezone = excluded.timezone,
		email_time_hour = excluded.email_time_hour,
		email_notifications = excluded.email_notifications,
		auth_id = excluded.auth_id`

	var hour sql.NullInt64
	if user.EmailTimeHour != nil {
		hour = sql.NullInt64{Int64: int64(*user.EmailTimeHour), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Email, user.FullName, user.BusinessDescription, user.Timezone,
		hour, user.EmailNotifications, user.AuthID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// ListUsers loads the full user population
func (s *Store) ListUsers(ctx context.Context) ([]core.User, error) {
	query := `
	SELECT id, email, full_name, business_description, timezone, email_time_hour,
		email_notifications, auth_id, last_analysis_results, analysis_ready_for_email,
		last_analysis_run, last_email_sent
	FROM users ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var (
			user                                   core.User
			email, fullName, description, tz, auth sql.NullString
			hour                                   sql.NullInt64
			results                                sql.NullString
			lastRun, lastSent                      sql.NullTime
		)

		err := rows.Scan(
			&user.ID, &email, &fullName, &description, &tz, &hour,
			&user.EmailNotifications, &auth, &results, &user.AnalysisReadyForEmail,
			&lastRun, &lastSent,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		user.Email = email.String
		user.FullName = fullName.String
		user.BusinessDescription = description.String
		user.Timezone = tz.String
		user.AuthID = auth.String
		if hour.Valid {
			h := int(hour.Int64)
			user.EmailTimeHour = &h
		}
		if lastRun.Valid {
			t := lastRun.Time
			user.LastAnalysisRun = &t
		}
		if lastSent.Valid {
			t := lastSent.Time
			user.LastEmailSent = &t
		}
		if results.Valid && results.String != "" {
			// An unreadable result only costs this user their email.
			var result core.AnalysisResult
			if err := json.Unmarshal([]byte(results.String), &result); err != nil {
				logger.Warn("Ignoring unreadable analysis result", "user_id", user.ID, "error", err.Error())
			} else {
				user.LastAnalysisResults = &result
			}
		}

		users = append(users, user)
	}

	return users, rows.Err()
}

// SaveAnalysis stores a result, marks it ready for email and records the run time
func (s *Store) SaveAnalysis(ctx context.Context, userID string, result *core.AnalysisResult, at time.Time) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis result: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
	UPDATE users SET last_analysis_results = ?, analysis_ready_for_email = 1, last_analysis_run = ?
	WHERE id = ?`, string(resultJSON), at.UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return requireRow(res, userID)
}

// MarkEmailSent clears the ready flag and records the send time
func (s *Store) MarkEmailSent(ctx context.Context, userID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
	UPDATE users SET analysis_ready_for_email = 0, last_email_sent = ?
	WHERE id = ?`, at.UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to mark email sent: %w", err)
	}
	return requireRow(res, userID)
}

// GetStats returns statistics about the store
func (s *Store) GetStats(ctx context.Context) (map[string]int, error) {
	queries := map[string]string{
		"users":           `SELECT COUNT(*) FROM users`,
		"notifications":   `SELECT COUNT(*) FROM users WHERE email_notifications = 1`,
		"ready_for_email": `SELECT COUNT(*) FROM users WHERE analysis_ready_for_email = 1`,
	}

	stats := make(map[string]int, len(queries))
	for name, query := range queries {
		var count int
		if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		stats[name] = count
	}
	return stats, nil
}

func requireRow(res sql.Result, userID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return nil
}
