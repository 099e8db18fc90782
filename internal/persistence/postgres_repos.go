package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"vidpulse/internal/core"
	"vidpulse/internal/logger"
)

const userColumns = `
	id, email, full_name, business_description, timezone, email_time_hour,
	email_notifications, auth_id, last_analysis_results, analysis_ready_for_email,
	last_analysis_run, last_email_sent`

// postgresUserRepo implements UserRepository for PostgreSQL
type postgresUserRepo struct {
	db *sql.DB
}

func (r *postgresUserRepo) List(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *postgresUserRepo) Upsert(ctx context.Context, user *core.User) error {
	query := `
		INSERT INTO users (
			id, email, full_name, business_description, timezone,
			email_time_hour, email_notifications, auth_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name,
			business_description = EXCLUDED.business_description,
			timezone = EXCLUDED.timezone,
			email_time_hour = EXCLUDED.email_time_hour,
			email_notifications = EXCLUDED.email_notifications,
			auth_id = EXCLUDED.auth_id
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.FullName, user.BusinessDescription, user.Timezone,
		nullableHour(user.EmailTimeHour), user.EmailNotifications, user.AuthID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (r *postgresUserRepo) SaveAnalysis(ctx context.Context, userID string, result *core.AnalysisResult, at time.Time) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis result: %w", err)
	}

	query := `
		UPDATE users SET
			last_analysis_results = $2,
			analysis_ready_for_email = TRUE,
			last_analysis_run = $3
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, userID, string(resultJSON), at.UTC())
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return requireRow(res, userID)
}

func (r *postgresUserRepo) MarkEmailSent(ctx context.Context, userID string, at time.Time) error {
	query := `
		UPDATE users SET
			analysis_ready_for_email = FALSE,
			last_email_sent = $2
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, userID, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to mark email sent: %w", err)
	}
	return requireRow(res, userID)
}

func (r *postgresUserRepo) Stats(ctx context.Context) (map[string]int, error) {
	var users, notifications, ready int
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE email_notifications),
			COUNT(*) FILTER (WHERE analysis_ready_for_email)
		FROM users
	`).Scan(&users, &notifications, &ready)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	return map[string]int{
		"users":           users,
		"notifications":   notifications,
		"ready_for_email": ready,
	}, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*core.User, error) {
	var (
		user                                   core.User
		email, fullName, description, tz, auth sql.NullString
		hour                                   sql.NullInt64
		resultJSON                             []byte
		lastRun, lastSent                      sql.NullTime
	)

	err := row.Scan(
		&user.ID, &email, &fullName, &description, &tz, &hour,
		&user.EmailNotifications, &auth, &resultJSON, &user.AnalysisReadyForEmail,
		&lastRun, &lastSent,
	)
	if err != nil {
		return nil, err
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
		user.LastAnalysisRun = &lastRun.Time
	}
	if lastSent.Valid {
		user.LastEmailSent = &lastSent.Time
	}

	if len(resultJSON) > 0 && string(resultJSON) != "null" {
		var result core.AnalysisResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			logger.Warn("Ignoring unreadable analysis result", "user_id", user.ID, "error", err.Error())
		} else {
			user.LastAnalysisResults = &result
		}
	}

	return &user, nil
}

func nullableHour(hour *int) sql.NullInt64 {
	if hour == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*hour), Valid: true}
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
