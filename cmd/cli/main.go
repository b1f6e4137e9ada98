package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-scheduler/cmd/cli/commands"
	"github.com/jakechorley/oncall-scheduler/internal/config"
	"github.com/jakechorley/oncall-scheduler/pkg/utils/logging"
)

var (
	env     string
	debug   bool
	app     = &commands.AppContext{}
	cleanup = func() {}
	stop    = func() {}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scheduler",
		Short: "On-call scheduler - Build fair physician call schedules",
		Long: `A CLI tool for laying out night, weekend and holiday on-call shifts and
assigning physicians to them fairly.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Close()
			stop()
			cleanup()
		},
	}

	// Add persistent flags
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Print scheduler traces and add them to exports")
	rootCmd.MarkPersistentFlagRequired("env")

	// Add all commands
	rootCmd.AddCommand(commands.GenerateCmd(app))
	rootCmd.AddCommand(commands.CalendarCmd(app))
	rootCmd.AddCommand(commands.ValidateCmd(app))
	rootCmd.AddCommand(commands.HistoryCmd(app))

	if err := rootCmd.Execute(); err != nil {
		app.Close()
		stop()
		cleanup()
		os.Exit(1)
	}
}

// initApp reads the runtime environment and sets up the logger
func initApp() error {
	var err error

	app.Runtime, err = config.LoadRuntime()
	if err != nil {
		return err
	}

	// Initialize logger
	var closeLogger func()
	app.Logger, closeLogger, err = logging.InitLogger(logging.Options{
		Env:   env,
		Dir:   app.Runtime.LogDir,
		Debug: debug,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	cleanup = closeLogger
	app.Debug = debug

	app.Ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	app.Logger.Info("Starting application", zap.String("environment", env))
	return nil
}
