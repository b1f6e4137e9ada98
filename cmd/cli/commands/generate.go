package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-scheduler/internal/config"
	"github.com/jakechorley/oncall-scheduler/pkg/core/services"
	"github.com/jakechorley/oncall-scheduler/pkg/export"
	"github.com/jakechorley/oncall-scheduler/pkg/metrics"
)

// GenerateCmd creates the generate command
func GenerateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <config>",
		Short: "Generate an on-call schedule from a config file",
		Long: `Builds the shift calendar for the configured period, assigns holidays by
utility and weekends and nights by fairness, then prints a review report.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonPath, _ := cmd.Flags().GetString("json")
			icsPath, _ := cmd.Flags().GetString("ics")
			xlsxPath, _ := cmd.Flags().GetString("xlsx")
			nextConfigPath, _ := cmd.Flags().GetString("next-config")
			save, _ := cmd.Flags().GetBool("save")
			publish, _ := cmd.Flags().GetBool("publish")
			quiet, _ := cmd.Flags().GetBool("quiet")

			cfg, err := config.LoadFromPath(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				seed, _ := cmd.Flags().GetInt64("seed")
				cfg.RandomSeed = &seed
			}

			app.Logger.Info("Generating schedule",
				zap.String("config", args[0]),
				zap.Int64("seed", cfg.Seed()),
				zap.Int("physicians", len(cfg.Physicians)))

			recorder := metrics.Recorder{}
			result, err := services.GenerateSchedule(app.Ctx, cfg, services.NewRand(cfg.Seed()), recorder, app.Logger)
			if err != nil {
				flushMetrics(app)
				return err
			}
			recorder.ObserveRoster(result.Roster, result.GeneratedAt)
			defer flushMetrics(app)

			if !quiet {
				if err := services.BuildScheduleReport(cfg, result.Roster).Write(os.Stdout); err != nil {
					return err
				}
			}

			shifts := result.Roster.Shifts
			runID := result.RunID.String()

			if jsonPath != "" {
				err := writeFile(jsonPath, func(w io.Writer) error {
					return export.WriteJSON(w, shifts, runID, result.GeneratedAt, app.Debug)
				})
				if err != nil {
					return err
				}
				fmt.Printf("Schedule written to %s\n", jsonPath)
			}

			if icsPath != "" {
				err := writeFile(icsPath, func(w io.Writer) error {
					return export.WriteICS(w, shifts, runID, result.GeneratedAt)
				})
				if err != nil {
					return err
				}
				fmt.Printf("Calendar written to %s\n", icsPath)
			}

			if xlsxPath != "" {
				err := writeFile(xlsxPath, func(w io.Writer) error {
					return export.WriteXLSX(w, shifts, app.Debug)
				})
				if err != nil {
					return err
				}
				fmt.Printf("Workbook written to %s\n", xlsxPath)
			}

			if nextConfigPath != "" {
				next, err := services.NextPeriodConfig(cfg, result.Roster)
				if err != nil {
					return err
				}
				if err := config.Save(next, nextConfigPath); err != nil {
					return err
				}
				fmt.Printf("Next period config written to %s\n", nextConfigPath)
			}

			if save {
				database, err := app.Database()
				if err != nil {
					return err
				}
				run, err := services.SaveSchedule(app.Ctx, database, result, app.Logger)
				if err != nil {
					return err
				}
				fmt.Printf("Saved run %s (%d shifts)\n", run.ID, run.ShiftCount)
			}

			if publish {
				client, err := app.SheetsClient()
				if err != nil {
					return err
				}
				if err := services.PublishSchedule(app.Ctx, client, result.Roster, app.Runtime.Sheets.Tab, app.Logger); err != nil {
					return err
				}
				fmt.Printf("Published to sheet tab %q\n", app.Runtime.Sheets.Tab)
			}

			fmt.Printf("\n✓ Schedule %s generated with seed %d\n", runID, result.Seed)
			return nil
		},
	}

	cmd.Flags().Int64("seed", config.DefaultRandomSeed, "Seed for the roster shuffle (overrides randomSeed in the config)")
	cmd.Flags().String("json", "", "Write the schedule as JSON to this path")
	cmd.Flags().String("ics", "", "Write the schedule as an iCalendar file to this path")
	cmd.Flags().String("xlsx", "", "Write the schedule as an Excel workbook to this path")
	cmd.Flags().String("next-config", "", "Write the config for the next period, with holiday history rolled forward, to this path")
	cmd.Flags().Bool("save", false, "Store the run in the database")
	cmd.Flags().Bool("publish", false, "Publish the schedule to Google Sheets")
	cmd.Flags().BoolP("quiet", "q", false, "Do not print the report")

	return cmd
}

// writeFile creates path and hands it to write, closing it afterwards
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// flushMetrics exports the run's metrics where configured. Failures are logged, not returned.
func flushMetrics(app *AppContext) {
	rt := app.Runtime
	if rt.Metrics.File != "" {
		if err := metrics.WriteTextfile(rt.Metrics.File); err != nil {
			app.Logger.Warn("Failed to write metrics file", zap.Error(err))
		} else {
			app.Logger.Debug("Metrics written", zap.String("path", rt.Metrics.File))
		}
	}
	if rt.Metrics.PushgatewayURL != "" {
		started := time.Now()
		if err := metrics.Push(rt.Metrics.PushgatewayURL); err != nil {
			app.Logger.Warn("Failed to push metrics", zap.Error(err))
		} else {
			app.Logger.Debug("Metrics pushed", zap.Duration("duration", time.Since(started)))
		}
	}
}
