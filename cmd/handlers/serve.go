package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"vidpulse/internal/config"
	"vidpulse/internal/logger"
	"vidpulse/internal/pipeline"
	"vidpulse/internal/server"
)

// NewServeCmd creates the serve command that drives ticks from cron
func NewServeCmd() *cobra.Command {
	var (
		port   int
		host   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run ticks on a cron schedule and expose health endpoints",
		Long: `Start the long-running scheduler.

The server provides:
  • An in-process cron that runs one tick per schedule.cron (hourly by default)
  • GET /health for liveness and database checks
  • POST /api/tick to trigger a pass manually (requires ADMIN_API_KEY)

A tick never overlaps another one: cron skips a run while the previous tick
is still going, and a manual trigger during a tick returns 409.

Examples:
  # Start with the configured schedule on port 8080
  vidpulse serve

  # Start on a custom port
  vidpulse serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host, dryRun)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run every tick in dry-run mode")

	return cmd
}

func runServe(ctx context.Context, port int, host string, dryRun bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.Get().With().Str("component", "serve").Logger()
	cfg := config.Get()

	serverCfg := cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w\n\n"+
			"Make sure the database is reachable and run 'vidpulse migrate' to create the users table.", err)
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("Database connection successful")

	runner, err := buildRunner(cfg, st, dryRun)
	if err != nil {
		return err
	}

	tickTimeout := config.Duration(cfg.Schedule.TickTimeout, 50*time.Minute)
	scheduler, err := startCron(cfg.Schedule.Cron, runner, tickTimeout, log)
	if err != nil {
		return err
	}

	srv := server.New(st, runner, serverCfg, tickTimeout)

	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Msgf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port)
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case err := <-serverErrors:
		serveErr = fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info().Str("signal", sig.String()).Msg("Shutdown initiated")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		serveErr = errors.Join(serveErr, err)
	}

	// Stop returns a context that is done once the running tick has finished
	select {
	case <-scheduler.Stop().Done():
		log.Info().Msg("Scheduler stopped")
	case <-shutdownCtx.Done():
		log.Warn().Msg("Timed out waiting for the running tick to finish")
	}

	return serveErr
}

// startCron schedules one tick per spec, skipping a run while the previous one is active
func startCron(spec string, runner *pipeline.Runner, tickTimeout time.Duration, log zerolog.Logger) (*cron.Cron, error) {
	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
		defer cancel()

		report, err := runner.RunTick(ctx, time.Now())
		if err != nil {
			log.Error().Err(err).Msg("cron: tick aborted")
			return
		}
		if report.Failed() > 0 {
			log.Warn().Str("run_id", report.RunID).Int("failed", report.Failed()).Msg("cron: tick finished with failures")
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}

	c.Start()
	log.Info().Str("schedule", spec).Msg("Scheduler started")
	return c, nil
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
