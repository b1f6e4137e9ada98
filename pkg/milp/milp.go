// Package milp solves small 0/1 integer programs by depth-first branch and bound,
// using the simplex method from gonum for the LP relaxation at each node.
package milp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

var (
	// ErrInfeasible is returned when no 0/1 assignment satisfies every row
	ErrInfeasible = errors.New("milp: problem is infeasible")

	// ErrNodeLimit is returned when the search stops before optimality is proven
	ErrNodeLimit = errors.New("milp: node limit reached before optimality was proven")
)

const (
	// DefaultMaxNodes bounds the search tree when Options.MaxNodes is zero
	DefaultMaxNodes = 200000

	// DefaultTolerance is the integrality and feasibility tolerance
	DefaultTolerance = 1e-6

	simplexTolerance = 1e-10
)

// Sense is the relation between a row's activity and its right hand side
type Sense int

const (
	LE Sense = iota
	EQ
	GE
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case EQ:
		return "="
	case GE:
		return ">="
	}
	return fmt.Sprintf("Sense(%d)", int(s))
}

// Row is a linear constraint Σ Coefs[k]·x[Vars[k]] (Sense) RHS
type Row struct {
	Name  string
	Vars  []int
	Coefs []float64
	Sense Sense
	RHS   float64
}

// Problem minimises Σ Costs[j]·x[j] over x ∈ {0,1}^n subject to Rows
type Problem struct {
	Costs []float64
	Rows  []Row
}

// AddVar adds a binary variable and returns its index
func (p *Problem) AddVar(cost float64) int {
	p.Costs = append(p.Costs, cost)
	return len(p.Costs) - 1
}

// AddRow appends a constraint
func (p *Problem) AddRow(row Row) {
	p.Rows = append(p.Rows, row)
}

// Fix forces variable j to value v with an equality row
func (p *Problem) Fix(j int, v bool) {
	rhs := 0.0
	if v {
		rhs = 1
	}
	p.AddRow(Row{Name: fmt.Sprintf("fix_%d", j), Vars: []int{j}, Coefs: []float64{1}, Sense: EQ, RHS: rhs})
}

// Validate checks that every row refers to existing variables
func (p *Problem) Validate() error {
	n := len(p.Costs)
	for i, r := range p.Rows {
		if len(r.Vars) != len(r.Coefs) {
			return fmt.Errorf("row %d (%s): %d vars but %d coefficients", i, r.Name, len(r.Vars), len(r.Coefs))
		}
		if r.Sense < LE || r.Sense > GE {
			return fmt.Errorf("row %d (%s): invalid sense %d", i, r.Name, r.Sense)
		}
		for _, j := range r.Vars {
			if j < 0 || j >= n {
				return fmt.Errorf("row %d (%s): variable %d out of range", i, r.Name, j)
			}
		}
	}
	return nil
}

// Options tunes the search
type Options struct {
	MaxNodes  int
	Tolerance float64
}

// Solution is an optimal assignment
type Solution struct {
	Values    []bool
	Objective float64

	// Nodes is the number of branch and bound nodes explored
	Nodes int
}

// Solve returns a provably optimal solution of p, ErrInfeasible, or ErrNodeLimit
func Solve(p *Problem, opts Options) (*Solution, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}

	s := &search{
		problem: p,
		opts:    opts,
		fixed:   make([]int8, len(p.Costs)),
		best:    math.Inf(1),
	}
	for j := range s.fixed {
		s.fixed[j] = free
	}

	s.branch()

	switch {
	case s.limitHit:
		return nil, ErrNodeLimit
	case s.incumbent == nil:
		return nil, ErrInfeasible
	}

	values := make([]bool, len(s.incumbent))
	for j, v := range s.incumbent {
		values[j] = v == 1
	}
	return &Solution{Values: values, Objective: s.best, Nodes: s.nodes}, nil
}

const free int8 = -1

type search struct {
	problem *Problem
	opts    Options

	// fixed holds 0, 1 or free per variable for the current node
	fixed []int8

	incumbent []int8
	best      float64
	nodes     int
	limitHit  bool
}

// branch explores the subtree rooted at the current fixing
func (s *search) branch() {
	if s.limitHit {
		return
	}
	s.nodes++
	if s.nodes > s.opts.MaxNodes {
		s.limitHit = true
		return
	}

	r := s.relax()
	if r.infeasible {
		return
	}
	if s.incumbent != nil && r.bound >= s.best-s.opts.Tolerance {
		return
	}

	j := -1
	if r.x != nil {
		j = s.mostFractional(r.x)
		if j < 0 {
			candidate := s.round(r.x)
			if s.feasible(candidate) {
				s.accept(candidate)
				return
			}
		}
	}
	if j < 0 {
		j = s.firstFree()
	}
	if j < 0 {
		candidate := make([]int8, len(s.fixed))
		copy(candidate, s.fixed)
		if s.feasible(candidate) {
			s.accept(candidate)
		}
		return
	}

	for _, v := range []int8{1, 0} {
		s.fixed[j] = v
		s.branch()
	}
	s.fixed[j] = free
}

func (s *search) accept(candidate []int8) {
	cost := 0.0
	for j, v := range candidate {
		if v == 1 {
			cost += s.problem.Costs[j]
		}
	}
	if s.incumbent == nil || cost < s.best-s.opts.Tolerance {
		s.incumbent = candidate
		s.best = cost
	}
}

func (s *search) firstFree() int {
	for j, v := range s.fixed {
		if v == free {
			return j
		}
	}
	return -1
}

// mostFractional returns the free variable closest to 0.5, or -1 when x is integral
func (s *search) mostFractional(x []float64) int {
	best := -1
	bestDist := 0.5
	for j, v := range s.fixed {
		if v != free {
			continue
		}
		frac := x[j] - math.Floor(x[j])
		if frac <= s.opts.Tolerance || frac >= 1-s.opts.Tolerance {
			continue
		}
		if dist := math.Abs(frac - 0.5); best < 0 || dist < bestDist {
			best = j
			bestDist = dist
		}
	}
	return best
}

func (s *search) round(x []float64) []int8 {
	out := make([]int8, len(x))
	for j, v := range x {
		if v >= 0.5 {
			out[j] = 1
		}
	}
	return out
}

// feasible checks a full 0/1 assignment against the original rows
func (s *search) feasible(values []int8) bool {
	eps := s.opts.Tolerance
	for _, row := range s.problem.Rows {
		activity := 0.0
		for k, j := range row.Vars {
			if values[j] == 1 {
				activity += row.Coefs[k]
			}
		}
		switch row.Sense {
		case LE:
			if activity > row.RHS+eps {
				return false
			}
		case GE:
			if activity < row.RHS-eps {
				return false
			}
		case EQ:
			if math.Abs(activity-row.RHS) > eps {
				return false
			}
		}
	}
	return true
}

type relaxation struct {
	infeasible bool
	bound      float64

	// x is the LP optimum over all variables, nil when only a combinatorial bound is known
	x []float64
}

type reducedRow struct {
	cols  []int
	coefs []float64
	sense Sense
	rhs   float64
}

// relax solves the LP relaxation of the current node.
//
// Fixed variables are substituted out. Each free variable gets an explicit x + t = 1 row,
// inequality rows get slack or surplus columns, and the result is handed to lp.Simplex in
// standard form (min cᵀx, Ax = b, x >= 0).
func (s *search) relax() relaxation {
	eps := s.opts.Tolerance
	p := s.problem

	fixedCost := 0.0
	col := make([]int, len(s.fixed))
	var freeVars []int
	for j, v := range s.fixed {
		switch v {
		case 1:
			fixedCost += p.Costs[j]
			col[j] = -1
		case 0:
			col[j] = -1
		default:
			col[j] = len(freeVars)
			freeVars = append(freeVars, j)
		}
	}

	rows := make([]reducedRow, 0, len(p.Rows))
	for _, row := range p.Rows {
		rr := reducedRow{sense: row.Sense, rhs: row.RHS}
		minAct, maxAct := 0.0, 0.0
		for k, j := range row.Vars {
			a := row.Coefs[k]
			switch {
			case s.fixed[j] == 1:
				rr.rhs -= a
			case s.fixed[j] == free && a != 0:
				rr.cols = append(rr.cols, col[j])
				rr.coefs = append(rr.coefs, a)
				minAct += math.Min(0, a)
				maxAct += math.Max(0, a)
			}
		}

		if (rr.sense == LE || rr.sense == EQ) && minAct > rr.rhs+eps {
			return relaxation{infeasible: true}
		}
		if (rr.sense == GE || rr.sense == EQ) && maxAct < rr.rhs-eps {
			return relaxation{infeasible: true}
		}
		if len(rr.cols) == 0 {
			continue
		}
		rows = append(rows, rr)
	}

	nFree := len(freeVars)
	if nFree == 0 {
		return relaxation{bound: fixedCost, x: s.values(nil, freeVars)}
	}

	nSlack, nEq := 0, 0
	for _, rr := range rows {
		if rr.sense == EQ {
			nEq++
		} else {
			nSlack++
		}
	}
	// lp.Simplex needs at least as many columns as rows
	if nEq > nFree {
		return s.combinatorialBound(fixedCost, freeVars)
	}

	m := len(rows) + nFree
	n := 2*nFree + nSlack
	A := mat.NewDense(m, n, nil)
	b := make([]float64, m)
	c := make([]float64, n)
	for k, j := range freeVars {
		c[k] = p.Costs[j]
	}

	slack := 2 * nFree
	for i, rr := range rows {
		sign := 1.0
		if rr.rhs < 0 {
			sign = -1
		}
		for k, cIdx := range rr.cols {
			A.Set(i, cIdx, A.At(i, cIdx)+sign*rr.coefs[k])
		}
		switch rr.sense {
		case LE:
			A.Set(i, slack, sign)
			slack++
		case GE:
			A.Set(i, slack, -sign)
			slack++
		}
		b[i] = sign * rr.rhs
	}
	for k := range freeVars {
		i := len(rows) + k
		A.Set(i, k, 1)
		A.Set(i, nFree+k, 1)
		b[i] = 1
	}

	optF, optX, err := lp.Simplex(c, A, b, simplexTolerance, nil)
	if errors.Is(err, lp.ErrInfeasible) {
		return relaxation{infeasible: true}
	}
	if err != nil {
		return s.combinatorialBound(fixedCost, freeVars)
	}

	return relaxation{bound: fixedCost + optF, x: s.values(optX[:nFree], freeVars)}
}

// combinatorialBound is the fallback when the LP cannot be solved numerically:
// every free variable with a negative cost taken, ignoring the rows.
func (s *search) combinatorialBound(fixedCost float64, freeVars []int) relaxation {
	bound := fixedCost
	for _, j := range freeVars {
		bound += math.Min(0, s.problem.Costs[j])
	}
	return relaxation{bound: bound}
}

// values expands LP values over free variables into a full vector
func (s *search) values(freeX []float64, freeVars []int) []float64 {
	x := make([]float64, len(s.fixed))
	for j, v := range s.fixed {
		if v == 1 {
			x[j] = 1
		}
	}
	for k, j := range freeVars {
		x[j] = freeX[k]
	}
	return x
}
