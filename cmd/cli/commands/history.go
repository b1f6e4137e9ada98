package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jakechorley/oncall-scheduler/pkg/core/services"
	"github.com/jakechorley/oncall-scheduler/pkg/db"
)

// HistoryCmd creates the history command
func HistoryCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run_id]",
		Short: "List stored schedule runs, or show the assignments of one run",
		Long: `Without arguments, lists every stored run newest first.
With a run ID, or --latest, prints that run's assignments.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			latest, _ := cmd.Flags().GetBool("latest")

			database, err := app.Database()
			if err != nil {
				return err
			}

			if len(args) == 0 && !latest {
				runs, err := services.ListScheduleRuns(app.Ctx, database, app.Logger)
				if err != nil {
					return err
				}
				return writeRuns(os.Stdout, runs)
			}

			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			stored, err := services.GetStoredSchedule(app.Ctx, database, app.Logger, runID)
			if err != nil {
				return err
			}
			return writeStoredSchedule(os.Stdout, stored)
		},
	}

	cmd.Flags().Bool("latest", false, "Show the most recent run")

	return cmd
}

func writeRuns(w io.Writer, runs []db.ScheduleRun) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No schedule runs stored")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Run ID\tGenerated\tFrom\tTo\tShifts\tSeed")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n", r.ID, r.GeneratedAt, r.RangeStart, r.RangeEnd, r.ShiftCount, r.Seed)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	return nil
}

func writeStoredSchedule(w io.Writer, stored *services.StoredSchedule) error {
	run := stored.Run
	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "Generated %s, seed %d, %s to %s\n\n", run.GeneratedAt, run.Seed, run.RangeStart, run.RangeEnd)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDate\tType\tPhysician\tNote")
	for _, a := range stored.Assignments {
		physician := a.Physician
		if physician == "" {
			physician = "-"
		}
		note := a.Label
		if !a.Included {
			note = joinNote(note, "excluded from fairness")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", a.ShiftIndex, a.ShiftDate, a.Kind, physician, note)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write assignments: %w", err)
	}
	return nil
}

func joinNote(note, extra string) string {
	if note == "" {
		return extra
	}
	return note + ", " + extra
}
