package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/openfroyo/froyodesk/pkg/stores"
	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit int
		keep  int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past provisioning runs",
		Long: `Show runs recorded in the run journal.

The journal is written only when journal.enabled is set in the
configuration. Use --run to see every step of one run and --prune to
delete old runs.`,
		Example: `  # The last 10 runs
  froyodesk history

  # Steps of one run
  froyodesk history --run 6f1c...

  # Keep only the 20 newest runs
  froyodesk history --prune 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return fmt.Errorf("the run journal is disabled (set journal.enabled in the configuration)")
			}

			ctx := cmd.Context()
			journal, err := stores.Open(ctx, stores.Config{Path: cfg.Journal.Path})
			if err != nil {
				return err
			}
			defer journal.Close()

			out := cmd.OutOrStdout()
			switch {
			case cmd.Flags().Changed("prune"):
				removed, err := journal.Prune(ctx, keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "pruned %d runs\n", removed)
				return nil

			case runID != "":
				run, err := journal.GetRun(ctx, runID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(out, run)
				}
				return printRun(out, run)

			default:
				runs, err := journal.RecentRuns(ctx, limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(out, runs)
				}
				return printRuns(out, runs)
			}
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "show the steps of one run")
	cmd.Flags().IntVar(&keep, "prune", 0, "delete all but the newest N runs")

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRuns(w io.Writer, runs []*stores.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tUSER\tSTATUS\tFAILED")
	for _, r := range runs {
		status := string(r.Status)
		if r.DryRun {
			status += " (dry run)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Username, status, r.FailedCount, r.StepCount)
	}
	return tw.Flush()
}

func printRun(w io.Writer, r *stores.Run) error {
	fmt.Fprintf(w, "run %s: %s for %s on %s\n", r.ID, r.Status, r.Username, r.Hostname)
	if r.Error != nil {
		fmt.Fprintf(w, "error: %s\n", *r.Error)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTEP\tSTATUS\tDURATION\tREASON")
	for _, s := range r.Steps {
		name := s.Name
		if !s.Isolated {
			name += " (required)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			s.Position, name, s.Status, s.Duration.Round(time.Millisecond), strings.ReplaceAll(s.Reason, "\n", " "))
	}
	return tw.Flush()
}
