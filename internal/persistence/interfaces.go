// Package persistence provides database abstraction interfaces for storing users and their delivery flags
package persistence

import (
	"context"
	"errors"
	"time"

	"vidpulse/internal/core"
)

// ErrUserNotFound is returned when an update or lookup matches no user.
var ErrUserNotFound = errors.New("user not found")

// UserRepository handles user persistence operations
type UserRepository interface {
	// List retrieves the full user population
	List(ctx context.Context) ([]core.User, error)

	// Upsert inserts a user or updates its profile columns
	Upsert(ctx context.Context, user *core.User) error

	// SaveAnalysis stores a result, marks it ready for email and records the run time
	SaveAnalysis(ctx context.Context, userID string, result *core.AnalysisResult, at time.Time) error

	// MarkEmailSent clears the ready flag and records the send time
	MarkEmailSent(ctx context.Context, userID string, at time.Time) error

	// Stats counts users, opted-in users and users with an email pending
	Stats(ctx context.Context) (map[string]int, error)
}
