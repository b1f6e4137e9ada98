package milp

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bruteForce enumerates every 0/1 vector and returns the best objective (or +Inf)
func bruteForce(p *Problem) float64 {
	n := len(p.Costs)
	best := math.Inf(1)
	values := make([]int8, n)
	s := &search{problem: p, opts: Options{Tolerance: DefaultTolerance}}
	for mask := 0; mask < 1<<n; mask++ {
		cost := 0.0
		for j := 0; j < n; j++ {
			values[j] = int8((mask >> j) & 1)
			if values[j] == 1 {
				cost += p.Costs[j]
			}
		}
		if cost < best && s.feasible(values) {
			best = cost
		}
	}
	return best
}

func objectiveOf(p *Problem, values []bool) float64 {
	total := 0.0
	for j, v := range values {
		if v {
			total += p.Costs[j]
		}
	}
	return total
}

func TestSolve_Knapsack(t *testing.T) {
	// max 10a + 13b + 7c with weights 3, 4, 2 and capacity 6, written as a minimisation
	p := &Problem{}
	a := p.AddVar(-10)
	b := p.AddVar(-13)
	c := p.AddVar(-7)
	p.AddRow(Row{Name: "capacity", Vars: []int{a, b, c}, Coefs: []float64{3, 4, 2}, Sense: LE, RHS: 6})

	sol, err := Solve(p, Options{})
	require.NoError(t, err)

	assert.InDelta(t, -20, sol.Objective, 1e-9)
	assert.Equal(t, []bool{false, true, true}, sol.Values)
	assert.Positive(t, sol.Nodes)
}

func TestSolve_GreaterEqualRow(t *testing.T) {
	p := &Problem{Costs: []float64{4, 3, 5, 1}}
	p.AddRow(Row{Vars: []int{0, 1, 2, 3}, Coefs: []float64{1, 1, 1, 1}, Sense: GE, RHS: 2})
	p.AddRow(Row{Vars: []int{1, 3}, Coefs: []float64{1, 1}, Sense: LE, RHS: 1})

	sol, err := Solve(p, Options{})
	require.NoError(t, err)
	assert.InDelta(t, 5, sol.Objective, 1e-9)
	assert.Equal(t, []bool{true, false, false, true}, sol.Values)
}

func TestSolve_Infeasible(t *testing.T) {
	p := &Problem{Costs: []float64{1, 1}}
	p.AddRow(Row{Vars: []int{0, 1}, Coefs: []float64{1, 1}, Sense: EQ, RHS: 1})
	p.Fix(0, false)
	p.Fix(1, false)

	_, err := Solve(p, Options{})
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestSolve_FractionalRootNeedsBranching(t *testing.T) {
	// Odd cycle: the LP optimum is x = 0.5 everywhere
	p := &Problem{Costs: []float64{-1, -1, -1}}
	p.AddRow(Row{Vars: []int{0, 1}, Coefs: []float64{1, 1}, Sense: LE, RHS: 1})
	p.AddRow(Row{Vars: []int{1, 2}, Coefs: []float64{1, 1}, Sense: LE, RHS: 1})
	p.AddRow(Row{Vars: []int{0, 2}, Coefs: []float64{1, 1}, Sense: LE, RHS: 1})

	sol, err := Solve(p, Options{})
	require.NoError(t, err)
	assert.InDelta(t, -1, sol.Objective, 1e-9)
	assert.Greater(t, sol.Nodes, 1)

	_, err = Solve(p, Options{MaxNodes: 1})
	assert.ErrorIs(t, err, ErrNodeLimit)
}

func TestSolve_EmptyProblem(t *testing.T) {
	sol, err := Solve(&Problem{}, Options{})
	require.NoError(t, err)
	assert.Empty(t, sol.Values)
	assert.Zero(t, sol.Objective)
}

func TestProblem_Validate(t *testing.T) {
	tests := []struct {
		name string
		row  Row
	}{
		{"mismatched lengths", Row{Vars: []int{0}, Coefs: []float64{1, 2}}},
		{"variable out of range", Row{Vars: []int{3}, Coefs: []float64{1}}},
		{"negative variable", Row{Vars: []int{-1}, Coefs: []float64{1}}},
		{"bad sense", Row{Vars: []int{0}, Coefs: []float64{1}, Sense: Sense(9)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Problem{Costs: []float64{1}}
			p.AddRow(tt.row)
			_, err := Solve(p, Options{})
			assert.Error(t, err)
		})
	}
}

// Assignment problems shaped like holiday scheduling: every shift covered once, random
// unavailability, and a per-person cap.
func TestSolve_MatchesBruteForceOnAssignmentProblems(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for trial := 0; trial < 40; trial++ {
		people := 2 + rng.IntN(3)
		shifts := 2 + rng.IntN(3)

		p := &Problem{}
		vars := make([][]int, people)
		for i := range vars {
			vars[i] = make([]int, shifts)
			for s := range vars[i] {
				vars[i][s] = p.AddVar(float64(rng.IntN(21)))
			}
		}
		for s := 0; s < shifts; s++ {
			row := Row{Sense: EQ, RHS: 1}
			for i := 0; i < people; i++ {
				row.Vars = append(row.Vars, vars[i][s])
				row.Coefs = append(row.Coefs, 1)
			}
			p.AddRow(row)
		}
		capacity := float64((shifts + people - 1) / people)
		for i := 0; i < people; i++ {
			row := Row{Sense: LE, RHS: capacity}
			for s := 0; s < shifts; s++ {
				row.Vars = append(row.Vars, vars[i][s])
				row.Coefs = append(row.Coefs, 1)
			}
			p.AddRow(row)
		}
		for i := 0; i < people; i++ {
			for s := 0; s < shifts; s++ {
				if rng.IntN(5) == 0 {
					p.Fix(vars[i][s], false)
				}
			}
		}

		expected := bruteForce(p)
		sol, err := Solve(p, Options{})

		if math.IsInf(expected, 1) {
			assert.ErrorIs(t, err, ErrInfeasible, "trial %d", trial)
			continue
		}
		require.NoError(t, err, "trial %d", trial)
		assert.InDelta(t, expected, sol.Objective, 1e-6, "trial %d", trial)
		assert.InDelta(t, sol.Objective, objectiveOf(p, sol.Values), 1e-6, "trial %d", trial)

		check := &search{problem: p, opts: Options{Tolerance: DefaultTolerance}}
		values := make([]int8, len(sol.Values))
		for j, v := range sol.Values {
			if v {
				values[j] = 1
			}
		}
		assert.True(t, check.feasible(values), "trial %d", trial)
	}
}
