package model

import (
	"slices"
	"time"
)

// Physician represents a member of the on-call roster
type Physician struct {
	Name string

	// blocked maps a civil date key to the kinds blocked on that date.
	// An empty set means the whole day is blocked for every kind.
	blocked map[string]map[Kind]bool

	// Carryover is unresolved fairness debt from a prior period, per kind.
	// It counts as capacity already consumed.
	Carryover map[Kind]int

	// assigned holds shift indices in assignment order. Only Roster.Assign appends to it.
	assigned []int
}

// NewPhysician creates a physician with no blocks and no carryover
func NewPhysician(name string) *Physician {
	return &Physician{
		Name:      name,
		blocked:   make(map[string]map[Kind]bool),
		Carryover: make(map[Kind]int),
	}
}

// Block marks a date as unavailable. With no kinds the whole day is blocked.
// A fully blocked day stays fully blocked when narrower blocks are added later.
func (p *Physician) Block(date time.Time, kinds ...Kind) {
	if p.blocked == nil {
		p.blocked = make(map[string]map[Kind]bool)
	}
	key := DateKey(date)
	existing, ok := p.blocked[key]
	if ok && len(existing) == 0 {
		return
	}
	if len(kinds) == 0 {
		p.blocked[key] = map[Kind]bool{}
		return
	}
	if !ok {
		existing = make(map[Kind]bool, len(kinds))
		p.blocked[key] = existing
	}
	for _, k := range kinds {
		existing[k] = true
	}
}

// BlockRange blocks every date from start to end inclusive
func (p *Physician) BlockRange(start, end time.Time, kinds ...Kind) {
	for d := CivilDate(start); !d.After(CivilDate(end)); d = d.AddDate(0, 0, 1) {
		p.Block(d, kinds...)
	}
}

// IsAvailable reports whether the physician can take a shift of the given kind on date.
// Passing KindAny asks whether the day carries any block at all.
func (p *Physician) IsAvailable(date time.Time, kind Kind) bool {
	kinds, ok := p.blocked[DateKey(date)]
	if !ok {
		return true
	}
	if kind == KindAny || len(kinds) == 0 {
		return false
	}
	return !kinds[kind]
}

// BlockedKinds returns the kinds blocked on date and whether the date is blocked at all.
// An empty slice with true means fully blocked.
func (p *Physician) BlockedKinds(date time.Time) ([]Kind, bool) {
	kinds, ok := p.blocked[DateKey(date)]
	if !ok {
		return nil, false
	}
	result := make([]Kind, 0, len(kinds))
	for _, k := range Kinds {
		if kinds[k] {
			result = append(result, k)
		}
	}
	return result, true
}

// CarryoverFor returns the carryover count for a kind (0 when absent)
func (p *Physician) CarryoverFor(kind Kind) int {
	return p.Carryover[kind]
}

// AssignedIndices returns a copy of the assigned shift indices in assignment order
func (p *Physician) AssignedIndices() []int {
	return slices.Clone(p.assigned)
}
