package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-scheduler/internal/config"
	"github.com/jakechorley/oncall-scheduler/pkg/clients/sheetsclient"
	"github.com/jakechorley/oncall-scheduler/pkg/db"
	"github.com/jakechorley/oncall-scheduler/pkg/postgres"
)

// AppContext holds the application dependencies shared across all commands.
// The database and sheets client are opened on first use since most runs need neither.
type AppContext struct {
	Runtime *config.Runtime
	Logger  *zap.Logger
	Ctx     context.Context

	// Debug adds scheduler traces to exports
	Debug bool

	database     *postgres.DB
	sheetsClient *sheetsclient.Client
}

// Database connects to Postgres and applies pending migrations
func (a *AppContext) Database() (db.Database, error) {
	if a.database != nil {
		return a.database, nil
	}
	if a.Runtime.DatabaseURL == "" {
		return nil, fmt.Errorf("no database configured, set %sDATABASE_URL", config.EnvPrefix)
	}

	a.Logger.Info("Connecting to database")
	database, err := postgres.NewDB(a.Ctx, a.Runtime.DatabaseURL, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.RunMigrations(a.Ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	a.Logger.Debug("Database ready")

	a.database = database
	return a.database, nil
}

// SheetsClient creates the Google Sheets client used for publishing
func (a *AppContext) SheetsClient() (*sheetsclient.Client, error) {
	if a.sheetsClient != nil {
		return a.sheetsClient, nil
	}
	if !a.Runtime.SheetsEnabled() {
		return nil, fmt.Errorf("google sheets not configured, set %sSHEETS_CREDENTIALS and %sSHEETS_SPREADSHEET_ID",
			config.EnvPrefix, config.EnvPrefix)
	}

	a.Logger.Info("Initializing sheets client")
	client, err := sheetsclient.NewClient(a.Ctx, a.Runtime.Sheets.Credentials, a.Runtime.Sheets.SpreadsheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	a.Logger.Debug("Sheets client initialized successfully")

	a.sheetsClient = client
	return a.sheetsClient, nil
}

// Close releases anything opened during the command
func (a *AppContext) Close() {
	if a.database != nil {
		a.database.Close()
		a.database = nil
	}
}
