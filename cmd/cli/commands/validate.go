package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/oncall-scheduler/internal/config"
	"github.com/jakechorley/oncall-scheduler/pkg/core/services"
)

// ValidateCmd creates the validate command
func ValidateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config>",
		Short: "Check a config file without generating a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromPath(args[0])
			if err != nil {
				return err
			}

			// Bad rules and empty horizons only surface once the calendar is built
			shifts, err := services.BuildShifts(cfg, app.Logger)
			if err != nil {
				return err
			}

			first, last := cfg.Horizon()
			fmt.Printf("✓ %s is valid\n", args[0])
			fmt.Printf("  Horizon:         %s to %s\n", first.Format("2006-01-02"), last.Format("2006-01-02"))
			fmt.Printf("  Shifts:          %d\n", len(shifts))
			fmt.Printf("  Physicians:      %d\n", len(cfg.Physicians))
			fmt.Printf("  Pre-assignments: %d\n", len(cfg.PreAssignments))
			fmt.Printf("  Seed:            %d\n", cfg.Seed())
			return nil
		},
	}
}
