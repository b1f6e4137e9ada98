package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-scheduler/pkg/db"
)

// ScheduleHistoryStore defines the database operations needed to browse stored runs
type ScheduleHistoryStore interface {
	GetScheduleRuns(ctx context.Context) ([]db.ScheduleRun, error)
	GetAssignments(ctx context.Context, runID string) ([]db.Assignment, error)
}

// StoredSchedule is a run with its assignments in shift order
type StoredSchedule struct {
	Run         db.ScheduleRun
	Assignments []db.Assignment
}

// ListScheduleRuns returns every stored run, newest first
func ListScheduleRuns(ctx context.Context, store ScheduleHistoryStore, logger *zap.Logger) ([]db.ScheduleRun, error) {
	runs, err := store.GetScheduleRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule runs: %w", err)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].GeneratedAt > runs[j].GeneratedAt
	})
	logger.Debug("Fetched schedule runs", zap.Int("count", len(runs)))
	return runs, nil
}

// GetStoredSchedule loads one run and its assignments.
// If runID is empty, it defaults to the latest run.
func GetStoredSchedule(ctx context.Context, store ScheduleHistoryStore, logger *zap.Logger, runID string) (*StoredSchedule, error) {
	runs, err := ListScheduleRuns(ctx, store, logger)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no schedule runs found")
	}

	var target *db.ScheduleRun
	if runID == "" {
		target = &runs[0]
		logger.Debug("No run ID provided, using latest run", zap.String("id", target.ID))
	} else {
		for i := range runs {
			if runs[i].ID == runID {
				target = &runs[i]
				break
			}
		}
		if target == nil {
			return nil, fmt.Errorf("schedule run not found: %s", runID)
		}
	}

	assignments, err := store.GetAssignments(ctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignments: %w", err)
	}
	sort.SliceStable(assignments, func(i, j int) bool {
		return assignments[i].ShiftIndex < assignments[j].ShiftIndex
	})

	return &StoredSchedule{Run: *target, Assignments: assignments}, nil
}
