package handlers

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"vidpulse/internal/config"
	"vidpulse/internal/logger"
	"vidpulse/internal/pipeline"
)

// NewTickCmd creates the tick command that runs a single scheduler pass
func NewTickCmd() *cobra.Command {
	var (
		hour   int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one scheduler pass for the current UTC hour",
		Long: `Run one scheduler pass: load all users, run the analyses due this hour,
then send the strategy emails due this hour.

Per-user failures do not stop the pass. They are listed at the end and the
command exits non-zero so an external scheduler can alert on them.

Examples:
  # Run the pass for the current hour
  vidpulse tick

  # Replay the 14:00 UTC pass without calling any external service
  vidpulse tick --hour 14 --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTick(cmd.Context(), cmd.OutOrStdout(), hour, dryRun)
		},
	}

	cmd.Flags().IntVar(&hour, "hour", -1, "UTC hour to evaluate (default: current hour)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Evaluate and render only; no analysis calls, sends or flag writes")

	return cmd
}

func runTick(ctx context.Context, out io.Writer, hour int, dryRun bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Get()

	now, err := tickTime(time.Now(), hour)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("Failed to close store", "error", err.Error())
		}
	}()

	runner, err := buildRunner(cfg, st, dryRun)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, config.Duration(cfg.Schedule.TickTimeout, 50*time.Minute))
	defer cancel()

	report, err := runner.RunTick(ctx, now)
	if err != nil {
		return err
	}

	printTickReport(out, report)

	if report.Failed() > 0 {
		return fmt.Errorf("%d user(s) failed during the tick", report.Failed())
	}
	return nil
}

var (
	labelStyle   = lipgloss.NewStyle().Bold(true).Width(14)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func printTickReport(out io.Writer, report *pipeline.TickReport) {
	title := fmt.Sprintf("Tick %02d:00 UTC", report.UTCHour)
	if report.DryRun {
		title += " (dry run)"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title) + "\n")
	rows := [][2]string{
		{"Run", report.RunID},
		{"Users", fmt.Sprintf("%d", report.Users)},
		{"Analysis due", fmt.Sprintf("%d", report.AnalysisDue)},
		{"Email due", fmt.Sprintf("%d", report.EmailDue)},
		{"Analyzed", fmt.Sprintf("%d", report.Analyzed)},
		{"Emailed", fmt.Sprintf("%d", report.Emailed)},
		{"Skipped", fmt.Sprintf("%d", report.Skipped)},
		{"Failed", fmt.Sprintf("%d", report.Failed())},
		{"Anomalies", fmt.Sprintf("%d", len(report.Anomalies))},
		{"Duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond).String()},
	}
	for _, row := range rows {
		b.WriteString(labelStyle.Render(row[0]) + row[1] + "\n")
	}
	if report.Failures != nil {
		for _, err := range report.Failures.Errors {
			b.WriteString(failureStyle.Render("  ✗ "+err.Error()) + "\n")
		}
	}

	fmt.Fprint(out, b.String())
}
