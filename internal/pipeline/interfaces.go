package pipeline

import (
	"context"
	"time"

	"vidpulse/internal/core"
)

// UserSource loads the user population for a tick
type UserSource interface {
	// ListUsers returns every user; a failure aborts the tick
	ListUsers(ctx context.Context) ([]core.User, error)
}

// FlagStore persists per-user delivery state
type FlagStore interface {
	// SaveAnalysis stores the result, sets the ready-for-email flag and the last-run time
	SaveAnalysis(ctx context.Context, userID string, result *core.AnalysisResult, at time.Time) error

	// MarkEmailSent clears the ready-for-email flag and records the send time
	MarkEmailSent(ctx context.Context, userID string, at time.Time) error
}

// Store is a user source that also holds the flags, as both database backends do
type Store interface {
	UserSource
	FlagStore
}

// Analyzer runs the external trend analysis for one business
type Analyzer interface {
	Analyze(ctx context.Context, req core.AnalysisRequest) (*core.AnalysisResult, error)
}

// Mailer delivers one rendered email and returns the provider message id
type Mailer interface {
	Send(ctx context.Context, msg core.EmailMessage) (string, error)
}

// Notifier receives the report at the end of every tick (optional)
type Notifier interface {
	NotifyTick(ctx context.Context, report *TickReport) error
}
