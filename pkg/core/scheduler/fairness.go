package scheduler

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-scheduler/pkg/core/model"
)

// FairnessScheduler is a greedy round robin.
//
// Shifts are filled in chronological order. For each shift every physician gets a priority
// of days since their last shift of the kind divided by the interval at which they still need
// shifts to reach their fair share; the highest priority physician who is available and
// clears every separation constraint takes the shift.
type FairnessScheduler struct {
	Constraints []model.SeparationConstraint
	Logger      *zap.Logger
}

// NewFairnessScheduler creates a fairness scheduler
func NewFairnessScheduler(constraints []model.SeparationConstraint, logger *zap.Logger) *FairnessScheduler {
	return &FairnessScheduler{Constraints: constraints, Logger: logger}
}

// priority is one physician's score for the shift being filled
type priority struct {
	physician       *model.Physician
	remainingTarget float64
	remainingSlots  int
	interval        float64
	daysSince       float64
	score           float64
}

// AssignShifts implements Scheduler
func (f *FairnessScheduler) AssignShifts(roster *model.Roster, subset []int) (*Result, error) {
	logger := f.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	kind, err := subsetKind(roster, subset)
	if err != nil {
		return nil, err
	}
	result := &Result{Kind: kind}

	open := openShifts(roster, subset)
	if len(open) == 0 {
		return result, nil
	}
	if len(roster.Physicians) == 0 {
		first := open[0]
		return nil, &AssignmentError{Kind: kind, Start: first.Date, End: first.Date, Err: ErrAssignmentExhausted}
	}

	target := fairShare(roster, subset, kind)
	logger.Debug("Starting fairness pass",
		zap.String("kind", string(kind)),
		zap.Int("open_shifts", len(open)),
		zap.Float64("target_per_physician", target))

	for _, shift := range open {
		priorities := f.priorities(roster, subset, kind, target, shift)

		var chosen *model.Physician
		for _, pr := range priorities {
			p := pr.physician
			if !p.IsAvailable(shift.Date, kind) {
				continue
			}
			if !f.separated(roster, p.Name, shift.Index) {
				continue
			}
			chosen = p
			break
		}

		if chosen == nil {
			logger.Debug("No eligible physician", zap.String("shift", shift.String()))
			return nil, &AssignmentError{Kind: kind, Start: shift.Date, End: shift.Date, Err: ErrAssignmentExhausted}
		}

		if err := roster.Assign(shift.Index, chosen.Name, formatPriorities(shift, priorities)); err != nil {
			return nil, fmt.Errorf("failed to assign %s: %w", shift, err)
		}
		result.Assigned = append(result.Assigned, shift.Index)

		logger.Debug("Assigned shift",
			zap.String("shift", shift.String()),
			zap.String("physician", chosen.Name))
	}

	return result, nil
}

// fairShare is the number of included shifts of the subset each physician should hold,
// with carryover counted as capacity already used
func fairShare(roster *model.Roster, subset []int, kind model.Kind) float64 {
	total := 0
	for _, idx := range subset {
		if roster.Shifts[idx].Included {
			total++
		}
	}
	for _, p := range roster.Physicians {
		total += p.CarryoverFor(kind)
	}
	return float64(total) / float64(len(roster.Physicians))
}

// priorities scores every physician for shift and returns them highest first.
// Ties keep roster order.
func (f *FairnessScheduler) priorities(roster *model.Roster, subset []int, kind model.Kind, target float64, shift *model.Shift) []priority {
	result := make([]priority, 0, len(roster.Physicians))
	for _, p := range roster.Physicians {
		assigned := 0
		slots := 0
		for _, idx := range subset {
			s := roster.Shifts[idx]
			if !s.Included {
				continue
			}
			switch {
			case s.Physician == p.Name:
				assigned++
			case !s.IsAssigned() && p.IsAvailable(s.Date, kind):
				slots++
			}
		}

		pr := priority{
			physician:       p,
			remainingTarget: target - float64(p.CarryoverFor(kind)) - float64(assigned),
			remainingSlots:  slots,
			interval:        math.Inf(1),
			daysSince:       math.Inf(1),
		}
		if pr.remainingTarget > 0 {
			pr.interval = float64(slots) / pr.remainingTarget
		}
		if last, ok := roster.LastAssignedBefore(p.Name, kind, shift.Start); ok {
			pr.daysSince = float64(model.DaysBetween(last.Date, shift.Date))
		}
		if pr.interval != 0 && !math.IsInf(pr.interval, 0) && !math.IsNaN(pr.interval) {
			pr.score = pr.daysSince / pr.interval
		}
		result = append(result, pr)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].score > result[j].score
	})
	return result
}

// separated reports whether name can take the shift at idx without breaking a constraint
func (f *FairnessScheduler) separated(roster *model.Roster, name string, idx int) bool {
	for _, c := range f.Constraints {
		lo, hi := idx-c.Distance, idx+c.Distance
		if c.SelfSeparated(name) && roster.HeldInWindow(name, lo, hi, idx) {
			return false
		}
		if partner, ok := c.Partner(name); ok && roster.HeldInWindow(partner, lo, hi, idx) {
			return false
		}
	}
	return true
}

func formatPriorities(shift *model.Shift, priorities []priority) string {
	parts := make([]string, len(priorities))
	for i, pr := range priorities {
		parts[i] = pr.physician.Name + "=" + strconv.FormatFloat(pr.score, 'f', 3, 64)
	}
	return fmt.Sprintf("%s priorities: %s", shift, strings.Join(parts, ", "))
}
