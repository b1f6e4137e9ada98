package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-scheduler/pkg/db"
)

// GetScheduleRuns retrieves all schedule run records, newest first
func (d *DB) GetScheduleRuns(ctx context.Context) ([]db.ScheduleRun, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, seed, range_start, range_end, shift_count, generated_at
		FROM schedule_run
		ORDER BY generated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule runs: %w", err)
	}
	defer rows.Close()

	var runs []db.ScheduleRun
	for rows.Next() {
		var r db.ScheduleRun
		var rangeStart, rangeEnd, generatedAt time.Time
		if err := rows.Scan(&r.ID, &r.Seed, &rangeStart, &rangeEnd, &r.ShiftCount, &generatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan schedule run: %w", err)
		}
		r.RangeStart = rangeStart.Format("2006-01-02")
		r.RangeEnd = rangeEnd.Format("2006-01-02")
		r.GeneratedAt = generatedAt.UTC().Format(time.RFC3339)
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule runs: %w", err)
	}

	return runs, nil
}

// InsertScheduleRun stores a run and its assignments in one transaction
func (d *DB) InsertScheduleRun(ctx context.Context, run *db.ScheduleRun, assignments []db.Assignment) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO schedule_run (id, seed, range_start, range_end, shift_count, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.Seed, run.RangeStart, run.RangeEnd, run.ShiftCount, run.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to insert schedule run: %w", err)
	}

	for _, a := range assignments {
		var label *string
		if a.Label != "" {
			label = &a.Label
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO assignment (id, run_id, shift_index, kind, label, shift_date, starts_at, ends_at, physician, included)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, a.ID, a.RunID, a.ShiftIndex, a.Kind, label, a.ShiftDate, a.StartsAt, a.EndsAt, a.Physician, a.Included)
		if err != nil {
			return fmt.Errorf("failed to insert assignment for shift %d: %w", a.ShiftIndex, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	d.logger.Debug("Stored schedule run",
		zap.String("run_id", run.ID),
		zap.Int("assignments", len(assignments)))
	return nil
}

// GetAssignments retrieves the assignments of a run in shift order
func (d *DB) GetAssignments(ctx context.Context, runID string) ([]db.Assignment, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, run_id, shift_index, kind, label, shift_date, starts_at, ends_at, physician, included
		FROM assignment
		WHERE run_id = $1
		ORDER BY shift_index
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []db.Assignment
	for rows.Next() {
		var a db.Assignment
		var label *string
		var shiftDate, startsAt, endsAt time.Time
		if err := rows.Scan(&a.ID, &a.RunID, &a.ShiftIndex, &a.Kind, &label, &shiftDate, &startsAt, &endsAt, &a.Physician, &a.Included); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		if label != nil {
			a.Label = *label
		}
		a.ShiftDate = shiftDate.Format("2006-01-02")
		a.StartsAt = startsAt.Format(time.RFC3339)
		a.EndsAt = endsAt.Format(time.RFC3339)
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return assignments, nil
}
