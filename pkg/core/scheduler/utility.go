package scheduler

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-scheduler/pkg/core/model"
	"github.com/jakechorley/oncall-scheduler/pkg/milp"
)

// DefaultHolidayUtility is the cost of a holiday that has no row in the utility matrix
const DefaultHolidayUtility = 10

// RoundBasis selects how the shift list is cut into rounds for the per-round cap
type RoundBasis string

const (
	// RoundsByCalendar chunks the full chronological shift list
	RoundsByCalendar RoundBasis = "calendar"

	// RoundsByKind chunks only the shifts of the kind being scheduled
	RoundsByKind RoundBasis = "kind"
)

func (b RoundBasis) IsValid() bool {
	return b == RoundsByCalendar || b == RoundsByKind
}

// UtilityScheduler assigns a subset optimally, minimising total utility.
//
// Every open shift gets exactly one available physician; within a round a physician holds
// at most one shift of the kind; nobody takes a shift directly next to one they already hold.
type UtilityScheduler struct {
	Matrix         model.UtilityMatrix
	Past           model.PastAssignments
	DefaultUtility int
	RoundBasis     RoundBasis
	MaxNodes       int
	Logger         *zap.Logger
}

// NewUtilityScheduler creates a utility scheduler with the default utility and calendar rounds
func NewUtilityScheduler(matrix model.UtilityMatrix, past model.PastAssignments, logger *zap.Logger) *UtilityScheduler {
	return &UtilityScheduler{
		Matrix:         matrix,
		Past:           past,
		DefaultUtility: DefaultHolidayUtility,
		RoundBasis:     RoundsByCalendar,
		Logger:         logger,
	}
}

// Utility is the cost of giving the holiday called label to the named physician:
// the base cost plus one penalty per past year they held it
func (u *UtilityScheduler) Utility(name, label string) int {
	row, ok := u.Matrix[label]
	if !ok {
		return u.DefaultUtility
	}
	total := row["0"]
	for _, yearsAgo := range u.Past[name][label] {
		total += row[yearsAgo]
	}
	return total
}

// AssignShifts implements Scheduler
func (u *UtilityScheduler) AssignShifts(roster *model.Roster, subset []int) (*Result, error) {
	logger := u.Logger
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
	span := &AssignmentError{Kind: kind, Start: open[0].Date, End: open[len(open)-1].Date}
	if len(roster.Physicians) == 0 {
		span.Err = fmt.Errorf("%w: no physicians", ErrNoFeasibleAssignment)
		return nil, span
	}

	problem, vars := u.formulate(roster, subset, kind, open)
	logger.Debug("Solving utility assignment",
		zap.String("kind", string(kind)),
		zap.Int("open_shifts", len(open)),
		zap.Int("variables", len(problem.Costs)),
		zap.Int("rows", len(problem.Rows)))

	solution, err := milp.Solve(problem, milp.Options{MaxNodes: u.MaxNodes})
	if err != nil {
		span.Err = fmt.Errorf("%w: %w", ErrNoFeasibleAssignment, err)
		return nil, span
	}
	logger.Debug("Utility assignment solved",
		zap.Float64("objective", solution.Objective),
		zap.Int("nodes", solution.Nodes))

	// Pick every chosen physician before touching the roster so a bad solution changes nothing
	chosen := make([]string, len(open))
	for si, shift := range open {
		for pi, p := range roster.Physicians {
			j, ok := vars[pi][si]
			if ok && solution.Values[j] {
				chosen[si] = p.Name
				break
			}
		}
		if chosen[si] == "" {
			span.Err = fmt.Errorf("%w: solution leaves %s uncovered", ErrNoFeasibleAssignment, shift)
			return nil, span
		}
	}

	for si, shift := range open {
		if err := roster.Assign(shift.Index, chosen[si], u.formatUtilities(roster, shift)); err != nil {
			return nil, fmt.Errorf("failed to assign %s: %w", shift, err)
		}
		result.Assigned = append(result.Assigned, shift.Index)
		logger.Debug("Assigned shift",
			zap.String("shift", shift.String()),
			zap.String("physician", chosen[si]))
	}

	result.Objective = solution.Objective
	result.Nodes = solution.Nodes
	return result, nil
}

// formulate builds the 0/1 program. vars[p][s] is the variable for physician p on open[s];
// pairs ruled out by availability or adjacency get no variable.
func (u *UtilityScheduler) formulate(roster *model.Roster, subset []int, kind model.Kind, open []*model.Shift) (*milp.Problem, []map[int]int) {
	problem := &milp.Problem{}
	vars := make([]map[int]int, len(roster.Physicians))

	for pi, p := range roster.Physicians {
		vars[pi] = make(map[int]int)
		for si, shift := range open {
			if !p.IsAvailable(shift.Date, kind) {
				continue
			}
			if heldNextTo(roster, p.Name, shift.Index) {
				continue
			}
			vars[pi][si] = problem.AddVar(float64(u.Utility(p.Name, shift.Label)))
		}
	}

	// Coverage
	for si, shift := range open {
		row := milp.Row{Name: "cover " + shift.String(), Sense: milp.EQ, RHS: 1}
		for pi := range roster.Physicians {
			if j, ok := vars[pi][si]; ok {
				row.Vars = append(row.Vars, j)
				row.Coefs = append(row.Coefs, 1)
			}
		}
		problem.AddRow(row)
	}

	// One shift of the kind per physician per round, counting shifts already held
	rounds := u.rounds(roster, subset, kind)
	openPos := make(map[int]int, len(open))
	for si, shift := range open {
		openPos[shift.Index] = si
	}
	for r, members := range rounds {
		for pi, p := range roster.Physicians {
			row := milp.Row{Name: fmt.Sprintf("round %d %s", r, p.Name), Sense: milp.LE, RHS: 1}
			for _, idx := range members {
				shift := roster.Shifts[idx]
				if shift.Physician == p.Name {
					row.RHS--
					continue
				}
				si, isOpen := openPos[idx]
				if !isOpen {
					continue
				}
				if j, ok := vars[pi][si]; ok {
					row.Vars = append(row.Vars, j)
					row.Coefs = append(row.Coefs, 1)
				}
			}
			if len(row.Vars) > 0 {
				row.RHS = max(row.RHS, 0)
				problem.AddRow(row)
			}
		}
	}

	return problem, vars
}

// rounds returns, per round, the indices of the kind's shifts that fall in it
func (u *UtilityScheduler) rounds(roster *model.Roster, subset []int, kind model.Kind) [][]int {
	size := len(roster.Physicians)
	var rounds [][]int
	add := func(round, idx int) {
		for len(rounds) <= round {
			rounds = append(rounds, nil)
		}
		rounds[round] = append(rounds[round], idx)
	}

	if u.RoundBasis == RoundsByKind {
		ordered := make([]*model.Shift, 0, len(subset))
		for _, idx := range subset {
			ordered = append(ordered, roster.Shifts[idx])
		}
		model.SortShifts(ordered)
		for pos, s := range ordered {
			add(pos/size, s.Index)
		}
		return rounds
	}

	for _, s := range roster.Shifts {
		if s.Kind == kind {
			add(s.Index/size, s.Index)
		}
	}
	return rounds
}

// heldNextTo reports whether name holds the shift directly before or after idx
func heldNextTo(roster *model.Roster, name string, idx int) bool {
	return roster.HeldInWindow(name, idx-1, idx+1, idx)
}

func (u *UtilityScheduler) formatUtilities(roster *model.Roster, shift *model.Shift) string {
	parts := make([]string, len(roster.Physicians))
	for i, p := range roster.Physicians {
		parts[i] = fmt.Sprintf("%s=%d", p.Name, u.Utility(p.Name, shift.Label))
	}
	return fmt.Sprintf("%s utilities: %s", shift, strings.Join(parts, ", "))
}
