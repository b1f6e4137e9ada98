package scheduler

import (
	"fmt"

	"github.com/jakechorley/oncall-scheduler/pkg/core/model"
)

// Scheduler assigns a physician to every open shift in subset.
//
// subset holds roster shift indices of a single kind. Shifts outside the subset are read
// (for separation and adjacency) but never assigned.
type Scheduler interface {
	AssignShifts(roster *model.Roster, subset []int) (*Result, error)
}

// Result summarises one scheduling pass
type Result struct {
	Kind model.Kind

	// Assigned lists the shift indices this pass assigned, in assignment order
	Assigned []int

	// Objective is the optimal total utility (utility scheduler only)
	Objective float64

	// Nodes is the number of branch and bound nodes explored (utility scheduler only)
	Nodes int
}

// subsetKind checks subset indices and returns their common kind
func subsetKind(roster *model.Roster, subset []int) (model.Kind, error) {
	kind := model.KindAny
	for _, idx := range subset {
		if idx < 0 || idx >= len(roster.Shifts) {
			return model.KindAny, fmt.Errorf("shift index %d out of range", idx)
		}
		s := roster.Shifts[idx]
		if kind == model.KindAny {
			kind = s.Kind
			continue
		}
		if s.Kind != kind {
			return model.KindAny, fmt.Errorf("subset mixes %s and %s shifts", kind, s.Kind)
		}
	}
	return kind, nil
}

// openShifts returns the subset's included, unassigned shifts in chronological order
func openShifts(roster *model.Roster, subset []int) []*model.Shift {
	var open []*model.Shift
	for _, idx := range subset {
		s := roster.Shifts[idx]
		if s.Included && !s.IsAssigned() {
			open = append(open, s)
		}
	}
	model.SortShifts(open)
	return open
}
