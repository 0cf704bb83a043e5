package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/modbuild/internal/history"
	"github.com/harrison/modbuild/internal/models"
)

// NewHistoryCommand creates the 'modbuild history' command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent build runs",
		Long: `Display recently recorded build runs, newest first, including:
  - Run ID and start time
  - Total duration and outcome
  - The phase that failed, with its error`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().Int("limit", 10, "Maximum number of runs to show (0 = all)")
	cmd.Flags().Bool("phases", false, "List every phase of each run")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	output := cmd.OutOrStdout()

	if cfg.HistoryDB == "" {
		fmt.Fprintln(output, "Run history is disabled (history_db is empty)")
		return nil
	}
	if _, err := os.Stat(cfg.HistoryDB); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(output, "No runs recorded yet")
		return nil
	}

	store, err := history.NewStore(cfg.HistoryDB)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	showPhases, _ := cmd.Flags().GetBool("phases")

	runs, err := store.RecentRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("get run history: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(output, "No runs recorded yet")
		return nil
	}

	printRuns(output, runs, showPhases)
	return nil
}

// printRuns formats runs as a table, optionally with phase detail.
func printRuns(w io.Writer, runs []history.Run, showPhases bool) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	cyan.Fprintf(w, "%-8s  %-19s  %9s  %-9s  %s\n", "RUN", "STARTED", "DURATION", "STATUS", "FAILED PHASE")
	for _, r := range runs {
		fmt.Fprintf(w, "%-8s  %-19s  %9s  ", shortID(r.RunID), r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Duration.Round(time.Millisecond))
		if r.Success {
			green.Fprintf(w, "%-9s", models.StatusSucceeded)
		} else {
			red.Fprintf(w, "%-9s", models.StatusFailed)
		}
		fmt.Fprintf(w, "  %s\n", r.FailedPhase)

		if r.Error != "" {
			gray.Fprintf(w, "          %s\n", r.Error)
		}
		if showPhases {
			for _, p := range r.Phases {
				fmt.Fprintf(w, "          %-13s %-9s %s\n", p.Name, p.Status, p.Duration.Round(time.Millisecond))
			}
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
