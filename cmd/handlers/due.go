package handlers

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"vidpulse/internal/config"
	"vidpulse/internal/schedule"
)

// NewDueCmd creates the due command that previews schedule decisions
func NewDueCmd() *cobra.Command {
	var (
		hour    int
		dueOnly bool
	)

	cmd := &cobra.Command{
		Use:   "due",
		Short: "Show which users are due for analysis or email",
		Long: `Evaluate every user's delivery slot for a UTC hour and print the
decisions. Nothing is called or written.

Examples:
  vidpulse due
  vidpulse due --hour 8 --only-due`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDue(cmd.Context(), cmd.OutOrStdout(), hour, dueOnly)
		},
	}

	cmd.Flags().IntVar(&hour, "hour", -1, "UTC hour to evaluate (default: current hour)")
	cmd.Flags().BoolVar(&dueOnly, "only-due", false, "List only users due this hour")

	return cmd
}

func runDue(ctx context.Context, out io.Writer, hour int, dueOnly bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	now, err := tickTime(time.Now(), hour)
	if err != nil {
		return err
	}

	st, err := openStore(config.Get())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	users, err := st.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}

	resolver := &schedule.Resolver{Now: func() time.Time { return now }}
	ev := schedule.Evaluate(now.Hour(), users, resolver)

	fmt.Fprintln(out, renderDueTable(ev, dueOnly))
	fmt.Fprintf(out, "UTC hour %02d: %d users, %d analysis due, %d email due, %d anomalies\n",
		ev.CurrentUTCHour, len(users), len(ev.AnalysisDue), len(ev.EmailDue), len(ev.Anomalies))
	return nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dueStyle    = cellStyle.Foreground(lipgloss.Color("10"))
)

func renderDueTable(ev schedule.Evaluation, dueOnly bool) string {
	var rows [][]string
	for _, d := range ev.Decisions {
		if dueOnly && !d.AnalysisDue && !d.EmailDue {
			continue
		}
		var due []string
		if d.AnalysisDue {
			due = append(due, "analysis")
		}
		if d.EmailDue {
			due = append(due, "email")
		}
		tz := d.Timezone
		if d.Degraded {
			tz += " (degraded)"
		}
		rows = append(rows, []string{
			d.UserID,
			tz,
			fmt.Sprintf("%02d:00", d.LocalHour),
			fmt.Sprintf("%02d:00", d.UTCHour),
			fmt.Sprintf("%02d:00", d.AnalysisHour),
			strings.Join(due, ", "),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("USER", "TIMEZONE", "LOCAL", "EMAIL UTC", "ANALYSIS UTC", "DUE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 5:
				return dueStyle
			default:
				return cellStyle
			}
		})

	return t.String()
}
