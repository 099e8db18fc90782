package handlers

import (
	"context"
	"fmt"
	"time"

	"vidpulse/internal/analysis"
	"vidpulse/internal/config"
	"vidpulse/internal/core"
	"vidpulse/internal/email"
	"vidpulse/internal/messaging"
	"vidpulse/internal/persistence"
	"vidpulse/internal/pipeline"
	"vidpulse/internal/store"
)

// userStore is what every command needs from either database backend
type userStore interface {
	pipeline.Store
	UpsertUser(ctx context.Context, user core.User) error
	GetStats(ctx context.Context) (map[string]int, error)
	Ping(ctx context.Context) error
	Close() error
}

// openStore connects to the backend selected by database.driver
func openStore(cfg *config.Config) (userStore, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		st, err := store.NewStore(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return st, nil
	default:
		db, err := persistence.NewPostgresDB(cfg.Database.DSN, config.Duration(cfg.Database.Timeout, 10*time.Second))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return db, nil
	}
}

// runnerConfig maps application config onto the tick runner
func runnerConfig(cfg *config.Config, dryRun bool) *pipeline.Config {
	rc := pipeline.DefaultConfig()
	rc.VideosPerQuery = cfg.Analysis.VideosPerQuery
	rc.Sender = core.Contact{Email: cfg.Email.FromAddress, Name: cfg.Email.FromName}
	rc.Subject = cfg.Email.Subject
	rc.EmailTemplate = email.GetTemplate(cfg.Email.Template)
	rc.RatePerSecond = cfg.Email.RatePerSecond
	rc.DryRun = dryRun
	return rc
}

// buildRunner wires the store and the external clients into a tick runner
func buildRunner(cfg *config.Config, st pipeline.Store, dryRun bool) (*pipeline.Runner, error) {
	b := pipeline.NewBuilder().
		WithStore(st).
		WithConfig(runnerConfig(cfg, dryRun))

	if !dryRun {
		b = b.
			WithAnalyzer(analysis.NewClient(
				cfg.Analysis.BaseURL,
				cfg.Analysis.Path,
				cfg.Analysis.APIKey,
				config.Duration(cfg.Analysis.Timeout, 2*time.Minute),
			)).
			WithMailer(email.NewBrevoClient(
				cfg.Email.APIKey,
				cfg.Email.BaseURL,
				config.Duration(cfg.Email.Timeout, 30*time.Second),
			))
	}

	notifier := messaging.NewMessagingClient(cfg.Notifications.SlackWebhookURL, cfg.Notifications.DiscordWebhookURL)
	notifier.OnlyOnFailure = cfg.Notifications.OnlyOnFailure
	if notifier.Enabled() {
		b = b.WithNotifier(notifier)
	}

	runner, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build tick runner: %w", err)
	}
	return runner, nil
}

// tickTime returns now, or today's hour:00 UTC when an hour override is given
func tickTime(now time.Time, hour int) (time.Time, error) {
	now = now.UTC()
	if hour < 0 {
		return now, nil
	}
	if hour > 23 {
		return time.Time{}, fmt.Errorf("hour must be between 0 and 23, got %d", hour)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC), nil
}
