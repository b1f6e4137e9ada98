package model

import "strings"

// WildcardSubject matches any physician in a separation constraint
const WildcardSubject = "any"

// SeparationConstraint forbids assignments closer than Distance positions in the
// chronological shift list. An empty subject is the same as the wildcard.
//
//   - {any, *}: no physician may hold two shifts within the window
//   - {name, any}: the named physician may not hold two shifts within the window
//   - {nameA, nameB}: A and B may not both hold shifts within the window
type SeparationConstraint struct {
	SubjectA string
	SubjectB string
	Distance int
}

// SelfSeparated reports whether the constraint keeps name's own shifts apart
func (c SeparationConstraint) SelfSeparated(name string) bool {
	switch {
	case isAny(c.SubjectA):
		return true
	case isAny(c.SubjectB):
		return c.SubjectA == name
	}
	return false
}

// IsPair reports whether both subjects name a physician
func (c SeparationConstraint) IsPair() bool {
	return !isAny(c.SubjectA) && !isAny(c.SubjectB)
}

// Partner returns the other subject when name is one side of a named pair
func (c SeparationConstraint) Partner(name string) (string, bool) {
	if !c.IsPair() {
		return "", false
	}
	switch name {
	case c.SubjectA:
		return c.SubjectB, true
	case c.SubjectB:
		return c.SubjectA, true
	}
	return "", false
}

func isAny(subject string) bool {
	return strings.TrimSpace(subject) == "" || IsWildcard(subject)
}

// IsWildcard reports whether a subject string is the wildcard (case-insensitive)
func IsWildcard(subject string) bool {
	return strings.EqualFold(strings.TrimSpace(subject), WildcardSubject)
}

// UtilityMatrix maps holiday name -> years-ago index ("0", "1", ...) -> utility.
// Lower utility is a more desirable assignment.
type UtilityMatrix map[string]map[string]int

// PastAssignments maps physician name -> holiday name -> years-ago indices
type PastAssignments map[string]map[string][]string
