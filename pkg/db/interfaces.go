package db

import "context"

// ScheduleRunStore defines the interface for schedule run database operations
type ScheduleRunStore interface {
	GetScheduleRuns(ctx context.Context) ([]ScheduleRun, error)
	InsertScheduleRun(ctx context.Context, run *ScheduleRun, assignments []Assignment) error
}

// Database defines the interface for all database operations.
// postgres.DB implements this interface.
type Database interface {
	ScheduleRunStore
	GetAssignments(ctx context.Context, runID string) ([]Assignment, error)
}
