package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jakechorley/oncall-scheduler/internal/config"
	"github.com/jakechorley/oncall-scheduler/pkg/core/model"
	"github.com/jakechorley/oncall-scheduler/pkg/core/services"
)

// CalendarCmd creates the calendar command
func CalendarCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "calendar <config>",
		Short: "Show the shifts a config produces without assigning anyone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromPath(args[0])
			if err != nil {
				return err
			}

			shifts, err := services.BuildShifts(cfg, app.Logger)
			if err != nil {
				return err
			}

			return writeCalendar(os.Stdout, shifts)
		},
	}
}

func writeCalendar(w io.Writer, shifts []*model.Shift) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDate\tDay\tType\tStarts\tEnds\tHours\tName")

	counts := make(map[model.Kind]int)
	for i, s := range shifts {
		counts[s.Kind]++
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%.0f\t%s\n",
			i,
			s.DateKey(),
			s.Date.Format("Mon"),
			s.Kind,
			s.Start.Format("Mon 15:04"),
			s.End.Format("Mon 15:04"),
			s.Duration().Hours(),
			s.Label)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}

	fmt.Fprintf(w, "\n%d shifts:", len(shifts))
	for _, k := range model.Kinds {
		fmt.Fprintf(w, " %d %s", counts[k], k)
	}
	fmt.Fprintln(w)
	return nil
}
