package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every runtime setting read from the environment
const EnvPrefix = "SCHEDULER_"

// Runtime holds settings that belong to the machine running the scheduler rather than to
// the schedule itself
type Runtime struct {
	DatabaseURL string `env:"DATABASE_URL"`
	LogDir      string `env:"LOG_DIR" envDefault:"logs"`

	Metrics struct {
		// File is a node_exporter textfile collector target
		File string `env:"FILE"`

		PushgatewayURL string `env:"PUSHGATEWAY_URL"`
	} `envPrefix:"METRICS_"`

	Sheets struct {
		// Credentials is the path to a service account JSON key
		Credentials   string `env:"CREDENTIALS"`
		SpreadsheetID string `env:"SPREADSHEET_ID"`
		Tab           string `env:"TAB" envDefault:"Schedule"`
	} `envPrefix:"SHEETS_"`
}

// LoadRuntime reads runtime settings from the process environment
func LoadRuntime() (*Runtime, error) {
	return loadRuntime(env.Options{Prefix: EnvPrefix})
}

// LoadRuntimeFrom reads runtime settings from the given variables instead of the process environment
func LoadRuntimeFrom(vars map[string]string) (*Runtime, error) {
	return loadRuntime(env.Options{Prefix: EnvPrefix, Environment: vars})
}

func loadRuntime(opts env.Options) (*Runtime, error) {
	var rt Runtime
	if err := env.ParseWithOptions(&rt, opts); err != nil {
		var aggErr env.AggregateError
		if errors.As(err, &aggErr) && len(aggErr.Errors) > 0 {
			return nil, fmt.Errorf("failed to read environment: %w", aggErr.Errors[0])
		}
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &rt, nil
}

// SheetsEnabled reports whether publishing to Google Sheets is configured
func (r *Runtime) SheetsEnabled() bool {
	return r.Sheets.Credentials != "" && r.Sheets.SpreadsheetID != ""
}
