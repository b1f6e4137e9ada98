package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-scheduler/pkg/core/model"
	"github.com/jakechorley/oncall-scheduler/pkg/export"
)

// SchedulePublisher writes rows to a named tab of a shared spreadsheet
type SchedulePublisher interface {
	ReplaceRows(ctx context.Context, tab string, rows [][]string) error
}

// PublishSchedule replaces the contents of tab with the schedule table
func PublishSchedule(
	ctx context.Context,
	publisher SchedulePublisher,
	roster *model.Roster,
	tab string,
	logger *zap.Logger,
) error {
	if tab == "" {
		return fmt.Errorf("no sheet tab given")
	}

	rows := export.Table(roster.Shifts, false)
	logger.Debug("Publishing schedule",
		zap.String("tab", tab),
		zap.Int("rows", len(rows)-1))

	if err := publisher.ReplaceRows(ctx, tab, rows); err != nil {
		return fmt.Errorf("failed to publish schedule: %w", err)
	}
	return nil
}
