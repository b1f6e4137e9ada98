package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func nightShift(date time.Time) *Shift {
	return &Shift{
		Kind:     KindNight,
		Date:     date,
		Start:    date.Add(17 * time.Hour),
		End:      date.AddDate(0, 0, 1).Add(8 * time.Hour),
		Included: true,
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input    string
		expected Kind
		wantErr  bool
	}{
		{"Night", KindNight, false},
		{"weekend", KindWeekend, false},
		{" HOLIDAY ", KindHoliday, false},
		{"Day", KindAny, true},
		{"", KindAny, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, err := ParseKind(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kind)
		})
	}
}

func TestPhysician_IsAvailable(t *testing.T) {
	p := NewPhysician("Alice")
	p.Block(day(2025, 1, 6))
	p.Block(day(2025, 1, 7), KindNight)
	p.Block(day(2025, 1, 8), KindNight, KindHoliday)

	tests := []struct {
		name     string
		date     time.Time
		kind     Kind
		expected bool
	}{
		{"unblocked date", day(2025, 1, 9), KindNight, true},
		{"unblocked date, no kind", day(2025, 1, 9), KindAny, true},
		{"fully blocked, night", day(2025, 1, 6), KindNight, false},
		{"fully blocked, holiday", day(2025, 1, 6), KindHoliday, false},
		{"kind blocked", day(2025, 1, 7), KindNight, false},
		{"other kind on partially blocked date", day(2025, 1, 7), KindWeekend, true},
		{"no kind on partially blocked date", day(2025, 1, 7), KindAny, false},
		{"second blocked kind", day(2025, 1, 8), KindHoliday, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.IsAvailable(tt.date, tt.kind))
		})
	}
}

func TestPhysician_FullBlockIsNotNarrowed(t *testing.T) {
	p := NewPhysician("Alice")
	p.Block(day(2025, 1, 6))
	p.Block(day(2025, 1, 6), KindNight)

	assert.False(t, p.IsAvailable(day(2025, 1, 6), KindWeekend))
	kinds, blocked := p.BlockedKinds(day(2025, 1, 6))
	assert.True(t, blocked)
	assert.Empty(t, kinds)
}

func TestPhysician_BlockRange(t *testing.T) {
	p := &Physician{Name: "Bob"}
	p.BlockRange(day(2025, 1, 30), day(2025, 2, 2), KindWeekend)

	for d := 30; d <= 33; d++ {
		date := day(2025, 1, d)
		assert.False(t, p.IsAvailable(date, KindWeekend), date)
		assert.True(t, p.IsAvailable(date, KindNight), date)
	}
	assert.True(t, p.IsAvailable(day(2025, 2, 3), KindWeekend))
}

func TestNewRoster_RejectsDuplicateNames(t *testing.T) {
	_, err := NewRoster(nil, []*Physician{NewPhysician("A"), NewPhysician("A")})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate physician")
}

func TestRoster_AssignUpdatesBothSides(t *testing.T) {
	shifts := []*Shift{nightShift(day(2025, 1, 6)), nightShift(day(2025, 1, 7))}
	roster, err := NewRoster(shifts, []*Physician{NewPhysician("A"), NewPhysician("B")})
	require.NoError(t, err)

	require.NoError(t, roster.Assign(1, "B", "trace"))

	assert.Equal(t, "B", shifts[1].Physician)
	assert.Equal(t, "trace", shifts[1].Trace)
	assert.Equal(t, []int{1}, roster.Physician("B").AssignedIndices())
	assert.Empty(t, roster.Physician("A").AssignedIndices())
	assert.NoError(t, roster.Verify())
}

func TestRoster_AssignFailuresLeaveStateUntouched(t *testing.T) {
	shifts := []*Shift{nightShift(day(2025, 1, 6))}
	roster, err := NewRoster(shifts, []*Physician{NewPhysician("A"), NewPhysician("B")})
	require.NoError(t, err)
	require.NoError(t, roster.Assign(0, "A", ""))

	tests := []struct {
		name  string
		index int
		who   string
	}{
		{"already assigned", 0, "B"},
		{"index out of range", 5, "B"},
		{"negative index", -1, "B"},
		{"unknown physician", 0, "Zed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, roster.Assign(tt.index, tt.who, ""))
			assert.Equal(t, "A", shifts[0].Physician)
			assert.Empty(t, roster.Physician("B").AssignedIndices())
			assert.NoError(t, roster.Verify())
		})
	}
}

func TestRoster_Verify_DetectsDivergence(t *testing.T) {
	shifts := []*Shift{nightShift(day(2025, 1, 6))}
	roster, err := NewRoster(shifts, []*Physician{NewPhysician("A")})
	require.NoError(t, err)

	shifts[0].Physician = "A" // bypasses Assign
	assert.Error(t, roster.Verify())
}

func TestRoster_Queries(t *testing.T) {
	shifts := []*Shift{
		nightShift(day(2025, 1, 6)),
		nightShift(day(2025, 1, 7)),
		nightShift(day(2025, 1, 8)),
		nightShift(day(2025, 1, 9)),
	}
	shifts[2].Included = false
	roster, err := NewRoster(shifts, []*Physician{NewPhysician("A"), NewPhysician("B")})
	require.NoError(t, err)

	require.NoError(t, roster.Assign(0, "A", ""))
	require.NoError(t, roster.Assign(2, "A", ""))
	require.NoError(t, roster.Assign(1, "B", ""))

	assert.Equal(t, []int{0, 1, 2, 3}, roster.Indices(KindNight))
	assert.Empty(t, roster.Indices(KindHoliday))
	assert.Equal(t, 1, roster.CountAssigned("A", KindNight), "excluded shifts are not counted")

	last, ok := roster.LastAssignedBefore("A", KindNight, shifts[3].Start)
	require.True(t, ok)
	assert.Equal(t, 2, last.Index)

	_, ok = roster.LastAssignedBefore("A", KindNight, shifts[0].Start)
	assert.False(t, ok)

	assert.True(t, roster.HeldInWindow("B", 0, 2, 0))
	assert.False(t, roster.HeldInWindow("B", 1, 1, 1))
	assert.True(t, roster.HeldInWindow("A", -3, 0, 5))
	assert.False(t, roster.HeldInWindow("B", 2, 99, -1))

	assert.Len(t, roster.Unassigned(), 1)
	assert.Len(t, roster.AssignedShifts("A"), 2)
}

func TestSeparationConstraint(t *testing.T) {
	tests := []struct {
		name       string
		constraint SeparationConstraint
		self       map[string]bool
		partners   map[string]string
	}{
		{
			name:       "any any separates everyone",
			constraint: SeparationConstraint{SubjectA: "Any", SubjectB: "Any", Distance: 1},
			self:       map[string]bool{"Alice": true, "Bob": true},
		},
		{
			name:       "any with a name still separates everyone",
			constraint: SeparationConstraint{SubjectA: "any", SubjectB: "Bob", Distance: 1},
			self:       map[string]bool{"Alice": true, "Bob": true},
		},
		{
			name:       "name with any separates only that physician",
			constraint: SeparationConstraint{SubjectA: "Alice", SubjectB: "any", Distance: 2},
			self:       map[string]bool{"Alice": true, "Bob": false},
		},
		{
			name:       "empty second subject reads as any",
			constraint: SeparationConstraint{SubjectA: "Alice", Distance: 2},
			self:       map[string]bool{"Alice": true, "Bob": false},
		},
		{
			name:       "named pair",
			constraint: SeparationConstraint{SubjectA: "Alice", SubjectB: "Bob", Distance: 1},
			self:       map[string]bool{"Alice": false, "Bob": false, "Carol": false},
			partners:   map[string]string{"Alice": "Bob", "Bob": "Alice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for name, want := range tt.self {
				assert.Equal(t, want, tt.constraint.SelfSeparated(name), "SelfSeparated(%s)", name)

				partner, ok := tt.constraint.Partner(name)
				wantPartner, isPair := tt.partners[name]
				assert.Equal(t, isPair, ok, "Partner(%s)", name)
				assert.Equal(t, wantPartner, partner)
			}
			assert.Equal(t, len(tt.partners) > 0, tt.constraint.IsPair())
		})
	}
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 1, DaysBetween(day(2025, 1, 6), day(2025, 1, 7).Add(17*time.Hour)))
	assert.Equal(t, 0, DaysBetween(day(2025, 1, 6).Add(8*time.Hour), day(2025, 1, 6).Add(17*time.Hour)))

	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	// Spans the March 2025 DST change
	a := time.Date(2025, 3, 8, 0, 0, 0, 0, loc)
	b := time.Date(2025, 3, 10, 0, 0, 0, 0, loc)
	assert.Equal(t, 2, DaysBetween(a, b))
}
