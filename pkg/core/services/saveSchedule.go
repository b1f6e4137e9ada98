package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-scheduler/pkg/db"
)

// SaveSchedule stores a generated schedule as a run with one assignment per shift
func SaveSchedule(
	ctx context.Context,
	store db.ScheduleRunStore,
	result *GenerateScheduleResult,
	logger *zap.Logger,
) (*db.ScheduleRun, error) {
	shifts := result.Roster.Shifts
	if len(shifts) == 0 {
		return nil, fmt.Errorf("schedule has no shifts")
	}

	runID := result.RunID.String()
	run := &db.ScheduleRun{
		ID:          runID,
		Seed:        result.Seed,
		RangeStart:  shifts[0].DateKey(),
		RangeEnd:    shifts[len(shifts)-1].DateKey(),
		ShiftCount:  len(shifts),
		GeneratedAt: result.GeneratedAt.UTC().Format(time.RFC3339),
	}

	assignments := make([]db.Assignment, 0, len(shifts))
	for _, s := range shifts {
		assignments = append(assignments, db.Assignment{
			ID:         uuid.New().String(),
			RunID:      runID,
			ShiftIndex: s.Index,
			Kind:       string(s.Kind),
			Label:      s.Label,
			ShiftDate:  s.DateKey(),
			StartsAt:   s.Start.Format(time.RFC3339),
			EndsAt:     s.End.Format(time.RFC3339),
			Physician:  s.Physician,
			Included:   s.Included,
		})
	}

	logger.Debug("Saving schedule run",
		zap.String("run_id", runID),
		zap.Int("assignments", len(assignments)))

	if err := store.InsertScheduleRun(ctx, run, assignments); err != nil {
		return nil, fmt.Errorf("failed to save schedule run: %w", err)
	}
	return run, nil
}
