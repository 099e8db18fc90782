// Package pipeline runs the hourly tick: evaluate schedules, run due
// analyses, then deliver due strategy emails.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"vidpulse/internal/core"
	"vidpulse/internal/email"
	"vidpulse/internal/schedule"
)

// Per-user prerequisites. A user failing one is skipped, not counted as a failure.
var (
	ErrNotificationsDisabled      = errors.New("email notifications disabled")
	ErrMissingBusinessDescription = errors.New("no business description")
	ErrMissingIdentifier          = errors.New("no linkable user identifier")
	ErrMissingEmail               = errors.New("no email address")
	ErrNoAnalysisResult           = errors.New("no analysis result ready for email")
)

// ErrTickInProgress is returned when RunTick is called while another tick runs.
var ErrTickInProgress = errors.New("tick already in progress")

// Config holds runner configuration
type Config struct {
	VideosPerQuery int
	Sender         core.Contact
	Subject        string
	EmailTemplate  *email.EmailTemplate
	RatePerSecond  float64 // email sends; 0 means unlimited
	DryRun         bool
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		VideosPerQuery: 5,
		Subject:        email.DefaultSubject,
		EmailTemplate:  email.GetDefaultEmailTemplate(),
		RatePerSecond:  5,
	}
}

// Runner executes ticks. Users are processed one at a time.
type Runner struct {
	users    UserSource
	flags    FlagStore
	analyzer Analyzer
	mailer   Mailer
	notifier Notifier
	config   *Config
	limiter  *rate.Limiter
	log      zerolog.Logger

	running sync.Mutex
}

// TickReport summarizes one tick
type TickReport struct {
	RunID       string
	UTCHour     int
	StartedAt   time.Time
	FinishedAt  time.Time
	DryRun      bool
	Users       int
	AnalysisDue int
	EmailDue    int
	Analyzed    int
	Emailed     int
	Skipped     int
	Anomalies   []schedule.Anomaly
	Failures    *multierror.Error
}

// Failed reports the number of per-user failures
func (r *TickReport) Failed() int {
	if r.Failures == nil {
		return 0
	}
	return len(r.Failures.Errors)
}

// Err returns the aggregated per-user failures, or nil
func (r *TickReport) Err() error {
	return r.Failures.ErrorOrNil()
}

// RunTick performs one pass for the UTC hour of now. Only a user source
// failure or an overlapping tick is returned as an error; per-user failures
// land in the report.
func (r *Runner) RunTick(ctx context.Context, now time.Time) (*TickReport, error) {
	if !r.running.TryLock() {
		return nil, ErrTickInProgress
	}
	defer r.running.Unlock()

	now = now.UTC()
	report := &TickReport{
		RunID:     uuid.NewString(),
		UTCHour:   now.Hour(),
		StartedAt: time.Now().UTC(),
		DryRun:    r.config.DryRun,
	}
	log := r.log.With().Str("run_id", report.RunID).Int("utc_hour", report.UTCHour).Logger()

	users, err := r.users.ListUsers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load users, aborting tick")
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	report.Users = len(users)

	resolver := &schedule.Resolver{Now: func() time.Time { return now }}
	ev := schedule.Evaluate(report.UTCHour, users, resolver)
	report.AnalysisDue = len(ev.AnalysisDue)
	report.EmailDue = len(ev.EmailDue)
	report.Anomalies = ev.Anomalies

	for _, a := range ev.Anomalies {
		log.Warn().Err(a.Err).Str("user_id", a.UserID).Str("kind", string(a.Kind)).Msg("Scheduling anomaly")
	}

	log.Info().
		Int("users", report.Users).
		Int("analysis_due", report.AnalysisDue).
		Int("email_due", report.EmailDue).
		Bool("dry_run", report.DryRun).
		Msg("Evaluated schedules")

	for _, u := range ev.AnalysisDue {
		if err := ctx.Err(); err != nil {
			report.Failures = multierror.Append(report.Failures, fmt.Errorf("analysis pass interrupted: %w", err))
			break
		}
		r.record(report, log, "analysis", u, r.runAnalysis(ctx, log, u, now), &report.Analyzed)
	}

	for _, u := range ev.EmailDue {
		if err := ctx.Err(); err != nil {
			report.Failures = multierror.Append(report.Failures, fmt.Errorf("email pass interrupted: %w", err))
			break
		}
		r.record(report, log, "email", u, r.runEmail(ctx, log, u, now), &report.Emailed)
	}

	report.FinishedAt = time.Now().UTC()
	log.Info().
		Int("analyzed", report.Analyzed).
		Int("emailed", report.Emailed).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed()).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Tick complete")

	if r.notifier != nil {
		if err := r.notifier.NotifyTick(ctx, report); err != nil {
			log.Warn().Err(err).Msg("Failed to send tick notification")
		}
	}

	return report, nil
}

func (r *Runner) record(report *TickReport, log zerolog.Logger, stage string, u core.User, err error, done *int) {
	switch {
	case err == nil:
		*done++
	case isSkip(err):
		report.Skipped++
		log.Info().Str("user_id", u.ID).Str("stage", stage).Str("reason", err.Error()).Msg("Skipping user")
	default:
		report.Failures = multierror.Append(report.Failures, fmt.Errorf("%s for user %s: %w", stage, u.ID, err))
		log.Error().Err(err).Str("user_id", u.ID).Str("stage", stage).Msg("User processing failed")
	}
}

func isSkip(err error) bool {
	return errors.Is(err, ErrNotificationsDisabled) ||
		errors.Is(err, ErrMissingBusinessDescription) ||
		errors.Is(err, ErrMissingIdentifier) ||
		errors.Is(err, ErrMissingEmail) ||
		errors.Is(err, ErrNoAnalysisResult)
}

func (r *Runner) runAnalysis(ctx context.Context, log zerolog.Logger, u core.User, now time.Time) error {
	if !u.EmailNotifications {
		return ErrNotificationsDisabled
	}
	description := strings.TrimSpace(u.BusinessDescription)
	if description == "" {
		return ErrMissingBusinessDescription
	}
	if strings.TrimSpace(u.AuthID) == "" {
		return ErrMissingIdentifier
	}

	if r.config.DryRun {
		log.Info().Str("user_id", u.ID).Msg("Dry run: would run analysis")
		return nil
	}

	result, err := r.analyzer.Analyze(ctx, core.AnalysisRequest{
		BusinessDescription: description,
		UserID:              u.AuthID,
		VideosPerQuery:      r.config.VideosPerQuery,
	})
	if err != nil {
		return err
	}
	if result == nil {
		return ErrNoAnalysisResult
	}

	if err := r.flags.SaveAnalysis(ctx, u.ID, result, now); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	log.Info().Str("user_id", u.ID).Int("videos", result.VideosCount).Msg("Analysis stored")
	return nil
}

func (r *Runner) runEmail(ctx context.Context, log zerolog.Logger, u core.User, now time.Time) error {
	if !u.EmailNotifications {
		return ErrNotificationsDisabled
	}
	if strings.TrimSpace(u.Email) == "" {
		return ErrMissingEmail
	}
	if !u.AnalysisReadyForEmail || u.LastAnalysisResults == nil {
		return ErrNoAnalysisResult
	}

	msg, err := r.BuildMessage(u, now)
	if err != nil {
		return err
	}

	if r.config.DryRun {
		log.Info().Str("user_id", u.ID).Int("html_bytes", len(msg.HTMLContent)).Msg("Dry run: would send email")
		return nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	messageID, err := r.mailer.Send(ctx, msg)
	if err != nil {
		return err
	}

	if err := r.flags.MarkEmailSent(ctx, u.ID, now); err != nil {
		return fmt.Errorf("email sent but failed to clear ready flag: %w", err)
	}
	log.Info().Str("user_id", u.ID).Str("message_id", messageID).Msg("Strategy email sent")
	return nil
}

// BuildMessage renders the strategy email for a user's stored result.
func (r *Runner) BuildMessage(u core.User, now time.Time) (core.EmailMessage, error) {
	if u.LastAnalysisResults == nil {
		return core.EmailMessage{}, ErrNoAnalysisResult
	}

	tmpl := r.config.EmailTemplate
	if tmpl == nil {
		tmpl = email.GetDefaultEmailTemplate()
	}

	data := email.NewStrategyEmailData(*u.LastAnalysisResults, now)
	page, err := email.RenderStrategyEmail(data, tmpl)
	if err != nil {
		return core.EmailMessage{}, fmt.Errorf("failed to render email: %w", err)
	}

	subjectTemplate := *tmpl
	if r.config.Subject != "" {
		subjectTemplate.Subject = r.config.Subject
	}
	subject, err := email.GenerateSubject(&subjectTemplate, data.Title, data.Date)
	if err != nil {
		return core.EmailMessage{}, err
	}

	return core.EmailMessage{
		To:          core.Contact{Email: u.Email, Name: u.DisplayName()},
		Sender:      r.config.Sender,
		Subject:     subject,
		HTMLContent: page,
	}, nil
}
