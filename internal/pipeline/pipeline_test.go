package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidpulse/internal/core"
	"vidpulse/internal/pipeline"
	"vidpulse/test/mocks"
)

// 09:00 UTC: users at local 10 UTC are analysis-due, users at 9 UTC are email-due.
var tickTime = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

func hour(v int) *int { return &v }

func storedResult() *core.AnalysisResult {
	return &core.AnalysisResult{
		SearchQueries: []string{"q1", "q2"},
		VideosCount:   10,
		MarketingStrategy: core.StrategyDocument{
			core.KeyObservations: "- Hooks in the first second\n- Captions on",
		},
	}
}

func analysisUser(id string) core.User {
	return core.User{
		ID: id, Email: id + "@example.com", BusinessDescription: "Coffee shop",
		Timezone: "UTC", EmailTimeHour: hour(10), EmailNotifications: true, AuthID: "auth-" + id,
	}
}

func emailUser(id string) core.User {
	return core.User{
		ID: id, Email: id + "@example.com", FullName: strings.ToUpper(id),
		Timezone: "UTC", EmailTimeHour: hour(9), EmailNotifications: true,
		AnalysisReadyForEmail: true, LastAnalysisResults: storedResult(),
	}
}

type recordingNotifier struct {
	reports []*pipeline.TickReport
}

func (n *recordingNotifier) NotifyTick(_ context.Context, report *pipeline.TickReport) error {
	n.reports = append(n.reports, report)
	return errors.New("webhook down")
}

func newRunner(t *testing.T, store *mocks.MockStore, analyzer *mocks.MockAnalyzer, mailer *mocks.MockMailer, notifier pipeline.Notifier) *pipeline.Runner {
	t.Helper()
	config := pipeline.DefaultConfig()
	config.Sender = core.Contact{Email: "reports@example.com", Name: "Vidpulse"}
	config.VideosPerQuery = 7
	config.RatePerSecond = 0

	b := pipeline.NewBuilder().
		WithStore(store).
		WithAnalyzer(analyzer).
		WithMailer(mailer).
		WithConfig(config).
		WithLogger(zerolog.Nop())
	if notifier != nil {
		b = b.WithNotifier(notifier)
	}
	runner, err := b.Build()
	require.NoError(t, err)
	return runner
}

func TestRunTickIsolatesPerUserFailures(t *testing.T) {
	noDescription := analysisUser("a3")
	noDescription.BusinessDescription = "  "
	notReady := emailUser("e3")
	notReady.AnalysisReadyForEmail = false
	optedOut := emailUser("e4")
	optedOut.EmailNotifications = false

	store := &mocks.MockStore{
		ListUsersFunc: func(ctx context.Context) ([]core.User, error) {
			return []core.User{
				analysisUser("a1"), analysisUser("a2"), noDescription,
				emailUser("e1"), emailUser("e2"), notReady, optedOut,
			}, nil
		},
	}
	analyzer := &mocks.MockAnalyzer{
		AnalyzeFunc: func(ctx context.Context, req core.AnalysisRequest) (*core.AnalysisResult, error) {
			if req.UserID == "auth-a1" {
				return nil, errors.New("analysis endpoint returned status 500")
			}
			return storedResult(), nil
		},
	}
	mailer := &mocks.MockMailer{
		SendFunc: func(ctx context.Context, msg core.EmailMessage) (string, error) {
			if msg.To.Email == "e1@example.com" {
				return "", errors.New("email API returned status 401")
			}
			return "msg-1", nil
		},
	}
	notifier := &recordingNotifier{}

	report, err := newRunner(t, store, analyzer, mailer, notifier).RunTick(context.Background(), tickTime)
	require.NoError(t, err)

	assert.Equal(t, 9, report.UTCHour)
	assert.Equal(t, 7, report.Users)
	assert.Equal(t, 3, report.AnalysisDue)
	assert.Equal(t, 4, report.EmailDue)

	// a1 failed, a2 still ran; e1 failed, e2 still sent.
	assert.Equal(t, 1, report.Analyzed)
	assert.Equal(t, 1, report.Emailed)
	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, 2, report.Failed())
	assert.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), "analysis for user a1")
	assert.Contains(t, report.Err().Error(), "email for user e1")

	require.Len(t, analyzer.Requests, 2)
	assert.Equal(t, core.AnalysisRequest{BusinessDescription: "Coffee shop", UserID: "auth-a2", VideosPerQuery: 7}, analyzer.Requests[1])
	assert.Equal(t, []string{"a2"}, store.SavedAnalyses)
	assert.Equal(t, []string{"e2"}, store.SentEmails)
	assert.Len(t, mailer.Messages, 2)

	require.Len(t, notifier.reports, 1, "notifier failure is logged, not fatal")
	assert.Same(t, report, notifier.reports[0])
}

func TestRunTickAbortsWhenUsersCannotLoad(t *testing.T) {
	loadErr := errors.New("connection refused")
	store := &mocks.MockStore{
		ListUsersFunc: func(ctx context.Context) ([]core.User, error) { return nil, loadErr },
	}
	analyzer := &mocks.MockAnalyzer{}
	mailer := &mocks.MockMailer{}

	report, err := newRunner(t, store, analyzer, mailer, nil).RunTick(context.Background(), tickTime)

	assert.Nil(t, report)
	assert.ErrorIs(t, err, loadErr)
	assert.Empty(t, analyzer.Requests)
	assert.Empty(t, mailer.Messages)
}

func TestRunTickSkipsUsersMissingPrerequisites(t *testing.T) {
	noAuth := analysisUser("a1")
	noAuth.AuthID = ""
	noEmail := emailUser("e1")
	noEmail.Email = ""
	noResult := emailUser("e2")
	noResult.LastAnalysisResults = nil

	store := &mocks.MockStore{
		ListUsersFunc: func(ctx context.Context) ([]core.User, error) {
			return []core.User{noAuth, noEmail, noResult}, nil
		},
	}
	analyzer := &mocks.MockAnalyzer{}
	mailer := &mocks.MockMailer{}

	report, err := newRunner(t, store, analyzer, mailer, nil).RunTick(context.Background(), tickTime)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Skipped)
	assert.NoError(t, report.Err())
	assert.Empty(t, analyzer.Requests)
	assert.Empty(t, mailer.Messages)
}

func TestRunTickNilAnalysisResultIsSkipped(t *testing.T) {
	store := &mocks.MockStore{
		ListUsersFunc: func(ctx context.Context) ([]core.User, error) {
			return []core.User{analysisUser("a1")}, nil
		},
	}
	analyzer := &mocks.MockAnalyzer{
		AnalyzeFunc: func(ctx context.Context, req core.AnalysisRequest) (*core.AnalysisResult, error) { return nil, nil },
	}

	report, err := newRunner(t, store, analyzer, &mocks.MockMailer{}, nil).RunTick(context.Background(), tickTime)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, store.SavedAnalyses)
}

func TestRunTickDryRun(t *testing.T) {
	store := &mocks.MockStore{
		ListUsersFunc: func(ctx context.Context) ([]core.User, error) {
			return []core.User{analysisUser("a1"), emailUser("e1")}, nil
		},
	}

	runner, err := pipeline.NewBuilder().
		WithUserSource(store).
		WithLogger(zerolog.Nop()).
		DryRun().
		Build()
	require.NoError(t, err)

	report, err := runner.RunTick(context.Background(), tickTime)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Analyzed)
	assert.Equal(t, 1, report.Emailed)
	assert.Empty(t, store.SavedAnalyses)
	assert.Empty(t, store.SentEmails)
}

func TestRunTickCancelledContext(t *testing.T) {
	store := &mocks.MockStore{
		ListUsersFunc: func(ctx context.Context) ([]core.User, error) {
			return []core.User{analysisUser("a1"), emailUser("e1")}, nil
		},
	}
	analyzer := &mocks.MockAnalyzer{}
	mailer := &mocks.MockMailer{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newRunner(t, store, analyzer, mailer, nil).RunTick(ctx, tickTime)
	require.NoError(t, err)
	assert.ErrorIs(t, report.Err(), context.Canceled)
	assert.Empty(t, analyzer.Requests)
	assert.Empty(t, mailer.Messages)
}

func TestBuildMessage(t *testing.T) {
	runner := newRunner(t, &mocks.MockStore{}, &mocks.MockAnalyzer{}, &mocks.MockMailer{}, nil)

	msg, err := runner.BuildMessage(emailUser("ann"), tickTime)
	require.NoError(t, err)

	assert.Equal(t, core.Contact{Email: "ann@example.com", Name: "ANN"}, msg.To)
	assert.Equal(t, core.Contact{Email: "reports@example.com", Name: "Vidpulse"}, msg.Sender)
	assert.Equal(t, "Your Marketing Strategy Report", msg.Subject)
	assert.Contains(t, msg.HTMLContent, "<h3>Observations</h3><ul><li>Hooks in the first second</li><li>Captions on</li></ul>")

	_, err = runner.BuildMessage(core.User{ID: "x"}, tickTime)
	assert.ErrorIs(t, err, pipeline.ErrNoAnalysisResult)
}

func TestBuilderValidation(t *testing.T) {
	_, err := pipeline.NewBuilder().Build()
	assert.Error(t, err, "user source is required")

	_, err = pipeline.NewBuilder().WithStore(&mocks.MockStore{}).WithAnalyzer(&mocks.MockAnalyzer{}).Build()
	assert.Error(t, err, "mailer is required")

	_, err = pipeline.NewBuilder().
		WithStore(&mocks.MockStore{}).
		WithAnalyzer(&mocks.MockAnalyzer{}).
		WithMailer(&mocks.MockMailer{}).
		Build()
	assert.Error(t, err, "sender is required")
}

func TestRunTickRejectsOverlap(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	store := &mocks.MockStore{
		ListUsersFunc: func(ctx context.Context) ([]core.User, error) {
			return []core.User{analysisUser("a1")}, nil
		},
	}
	analyzer := &mocks.MockAnalyzer{
		AnalyzeFunc: func(ctx context.Context, req core.AnalysisRequest) (*core.AnalysisResult, error) {
			once.Do(func() { close(entered) })
			<-release
			return storedResult(), nil
		},
	}
	runner := newRunner(t, store, analyzer, &mocks.MockMailer{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := runner.RunTick(context.Background(), tickTime)
		done <- err
	}()

	<-entered
	_, err := runner.RunTick(context.Background(), tickTime)
	assert.ErrorIs(t, err, pipeline.ErrTickInProgress)

	close(release)
	require.NoError(t, <-done)

	_, err = runner.RunTick(context.Background(), tickTime)
	assert.NoError(t, err, "lock released after the first tick")
}
