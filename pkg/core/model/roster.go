package model

import (
	"fmt"
	"sort"
	"time"
)

// Roster owns the full chronological shift list and the physicians for one run.
//
// Shifts are addressed by index. Assign is the only way to link a shift and a physician,
// so shift.Physician and the physician's assigned list never diverge.
type Roster struct {
	Shifts     []*Shift
	Physicians []*Physician

	byName map[string]*Physician
}

// NewRoster builds a roster over shifts (already in chronological order) and physicians
// (in roster order, which breaks scheduler ties). Shift indices are renumbered to their
// position in the list.
func NewRoster(shifts []*Shift, physicians []*Physician) (*Roster, error) {
	byName := make(map[string]*Physician, len(physicians))
	for _, p := range physicians {
		if p.Name == "" {
			return nil, fmt.Errorf("physician with empty name")
		}
		if _, exists := byName[p.Name]; exists {
			return nil, fmt.Errorf("duplicate physician name %q", p.Name)
		}
		byName[p.Name] = p
	}

	for i, s := range shifts {
		if !s.End.After(s.Start) {
			return nil, fmt.Errorf("shift %s ends before it starts", s)
		}
		s.Index = i
		if s.Physician != "" {
			return nil, fmt.Errorf("shift %s is already assigned to %s", s, s.Physician)
		}
	}

	return &Roster{
		Shifts:     shifts,
		Physicians: physicians,
		byName:     byName,
	}, nil
}

// Physician returns the physician with the given name, or nil
func (r *Roster) Physician(name string) *Physician {
	return r.byName[name]
}

// Assign links shift index to the named physician and records the trace.
// It fails without side effects if the shift is unknown or taken or the physician is unknown.
func (r *Roster) Assign(index int, name, trace string) error {
	if index < 0 || index >= len(r.Shifts) {
		return fmt.Errorf("shift index %d out of range", index)
	}
	p := r.byName[name]
	if p == nil {
		return fmt.Errorf("unknown physician %q", name)
	}
	shift := r.Shifts[index]
	if shift.IsAssigned() {
		return fmt.Errorf("shift %s is already assigned to %s", shift, shift.Physician)
	}

	shift.Physician = name
	shift.Trace = trace
	p.assigned = append(p.assigned, index)
	return nil
}

// Indices returns the indices of all shifts of a kind in chronological order
func (r *Roster) Indices(kind Kind) []int {
	indices := make([]int, 0)
	for i, s := range r.Shifts {
		if s.Kind == kind {
			indices = append(indices, i)
		}
	}
	return indices
}

// AssignedShifts returns the physician's shifts in assignment order
func (r *Roster) AssignedShifts(name string) []*Shift {
	p := r.byName[name]
	if p == nil {
		return nil
	}
	shifts := make([]*Shift, len(p.assigned))
	for i, idx := range p.assigned {
		shifts[i] = r.Shifts[idx]
	}
	return shifts
}

// CountAssigned counts the physician's included shifts of a kind
func (r *Roster) CountAssigned(name string, kind Kind) int {
	p := r.byName[name]
	if p == nil {
		return 0
	}
	count := 0
	for _, idx := range p.assigned {
		s := r.Shifts[idx]
		if s.Kind == kind && s.Included {
			count++
		}
	}
	return count
}

// LastAssignedBefore returns the physician's latest shift of a kind starting before t
func (r *Roster) LastAssignedBefore(name string, kind Kind, t time.Time) (*Shift, bool) {
	p := r.byName[name]
	if p == nil {
		return nil, false
	}
	var last *Shift
	for _, idx := range p.assigned {
		s := r.Shifts[idx]
		if s.Kind != kind || !s.Start.Before(t) {
			continue
		}
		if last == nil || s.Start.After(last.Start) {
			last = s
		}
	}
	return last, last != nil
}

// HeldInWindow reports whether name holds any shift with index in [lo, hi], ignoring
// the exclude index. Bounds are clamped to the list.
func (r *Roster) HeldInWindow(name string, lo, hi, exclude int) bool {
	lo = max(lo, 0)
	hi = min(hi, len(r.Shifts)-1)
	for i := lo; i <= hi; i++ {
		if i == exclude {
			continue
		}
		if r.Shifts[i].Physician == name {
			return true
		}
	}
	return false
}

// Unassigned returns the shifts that still have no physician
func (r *Roster) Unassigned() []*Shift {
	var result []*Shift
	for _, s := range r.Shifts {
		if !s.IsAssigned() {
			result = append(result, s)
		}
	}
	return result
}

// Verify checks that every shift/physician link is consistent in both directions
func (r *Roster) Verify() error {
	seen := make(map[int]string)
	for _, p := range r.Physicians {
		for _, idx := range p.assigned {
			if owner, dup := seen[idx]; dup {
				return fmt.Errorf("shift %d listed for both %s and %s", idx, owner, p.Name)
			}
			seen[idx] = p.Name
			if r.Shifts[idx].Physician != p.Name {
				return fmt.Errorf("physician %s lists shift %s held by %q", p.Name, r.Shifts[idx], r.Shifts[idx].Physician)
			}
		}
	}
	for i, s := range r.Shifts {
		if s.IsAssigned() && seen[i] != s.Physician {
			return fmt.Errorf("shift %s names %s but is missing from their assignments", s, s.Physician)
		}
	}
	return nil
}

// SortShifts orders shifts by start time, keeping the input order for equal starts
func SortShifts(shifts []*Shift) {
	sort.SliceStable(shifts, func(i, j int) bool {
		return shifts[i].Start.Before(shifts[j].Start)
	})
}
