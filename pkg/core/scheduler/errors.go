package scheduler

import (
	"fmt"
	"time"

	"github.com/jakechorley/oncall-scheduler/pkg/core/model"
)

var (
	// ErrAssignmentExhausted means no physician could take a shift
	ErrAssignmentExhausted = fmt.Errorf("no eligible physician")

	// ErrNoFeasibleAssignment means the optimal solve did not produce a schedule
	ErrNoFeasibleAssignment = fmt.Errorf("no feasible assignment")
)

// AssignmentError reports the shift (or span of shifts) a scheduling pass failed on
type AssignmentError struct {
	Kind  model.Kind
	Start time.Time
	End   time.Time
	Err   error
}

func (e *AssignmentError) Error() string {
	start := model.DateKey(e.Start)
	end := model.DateKey(e.End)
	if start == end {
		return fmt.Sprintf("%s shift on %s: %v", e.Kind, start, e.Err)
	}
	return fmt.Sprintf("%s shifts from %s to %s: %v", e.Kind, start, end, e.Err)
}

func (e *AssignmentError) Unwrap() error {
	return e.Err
}
