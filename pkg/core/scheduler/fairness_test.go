package scheduler

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-scheduler/pkg/core/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func night(d time.Time) *model.Shift {
	return &model.Shift{
		Kind:     model.KindNight,
		Date:     d,
		Start:    d.Add(17 * time.Hour),
		End:      d.AddDate(0, 0, 1).Add(8 * time.Hour),
		Included: true,
	}
}

// weeknights returns n night shifts on consecutive Mon-Thu dates from start
func weeknights(start time.Time, n int) []*model.Shift {
	var shifts []*model.Shift
	for d := start; len(shifts) < n; d = d.AddDate(0, 0, 1) {
		switch d.Weekday() {
		case time.Friday, time.Saturday, time.Sunday:
			continue
		}
		shifts = append(shifts, night(d))
	}
	return shifts
}

func newRoster(t *testing.T, shifts []*model.Shift, names ...string) *model.Roster {
	t.Helper()
	physicians := make([]*model.Physician, len(names))
	for i, name := range names {
		physicians[i] = model.NewPhysician(name)
	}
	roster, err := model.NewRoster(shifts, physicians)
	require.NoError(t, err)
	return roster
}

func allIndices(roster *model.Roster) []int {
	indices := make([]int, len(roster.Shifts))
	for i := range indices {
		indices[i] = i
	}
	return indices
}

func physicianSequence(roster *model.Roster) []string {
	names := make([]string, len(roster.Shifts))
	for i, s := range roster.Shifts {
		names[i] = s.Physician
	}
	return names
}

func TestFairnessScheduler_SevenNightsThreePhysicians(t *testing.T) {
	// Mon 2025-07-07 .. Thu 07-10, Mon 07-14 .. Wed 07-16
	roster := newRoster(t, weeknights(date(2025, 7, 7), 7), "A", "B", "C")

	result, err := NewFairnessScheduler(nil, zap.NewNop()).AssignShifts(roster, allIndices(roster))
	require.NoError(t, err)

	assert.Equal(t, model.KindNight, result.Kind)
	assert.Len(t, result.Assigned, 7)
	assert.Equal(t, []string{"A", "B", "C", "A", "B", "C", "A"}, physicianSequence(roster))
	assert.Equal(t, 3, roster.CountAssigned("A", model.KindNight))
	assert.Equal(t, 2, roster.CountAssigned("B", model.KindNight))
	assert.Equal(t, 2, roster.CountAssigned("C", model.KindNight))
	assert.NoError(t, roster.Verify())
}

func TestFairnessScheduler_NobodyExceedsFairShare(t *testing.T) {
	names := []string{"A", "B", "C", "D"}

	for physicians := 2; physicians <= 4; physicians++ {
		for n := 1; n <= 13; n++ {
			roster := newRoster(t, weeknights(date(2025, 9, 1), n), names[:physicians]...)
			_, err := NewFairnessScheduler(nil, nil).AssignShifts(roster, allIndices(roster))
			require.NoError(t, err)

			ceiling := int(math.Ceil(float64(n) / float64(physicians)))
			for _, name := range names[:physicians] {
				count := roster.CountAssigned(name, model.KindNight)
				assert.LessOrEqual(t, count, ceiling, "%d shifts, %d physicians, %s", n, physicians, name)
				if n%physicians == 0 {
					assert.Equal(t, n/physicians, count, "%d shifts, %d physicians, %s", n, physicians, name)
				}
			}
		}
	}
}

func TestFairnessScheduler_CarryoverCountsAsConsumed(t *testing.T) {
	roster := newRoster(t, weeknights(date(2025, 7, 7), 4), "A", "B")
	roster.Physician("A").Carryover[model.KindNight] = 2

	_, err := NewFairnessScheduler(nil, nil).AssignShifts(roster, allIndices(roster))
	require.NoError(t, err)

	// Target is (4 + 2) / 2 = 3: A only has one shift left to take
	assert.Equal(t, 1, roster.CountAssigned("A", model.KindNight))
	assert.Equal(t, 3, roster.CountAssigned("B", model.KindNight))
}

func TestFairnessScheduler_WildcardSeparation(t *testing.T) {
	setup := func() *model.Roster {
		roster := newRoster(t, weeknights(date(2025, 7, 7), 7), "A", "B", "C")
		roster.Physician("A").Carryover[model.KindNight] = -3
		return roster
	}

	t.Run("without constraint the favoured physician repeats", func(t *testing.T) {
		roster := setup()
		_, err := NewFairnessScheduler(nil, nil).AssignShifts(roster, allIndices(roster))
		require.NoError(t, err)
		assert.Equal(t, "A", roster.Shifts[3].Physician)
		assert.Equal(t, "A", roster.Shifts[4].Physician)
	})

	t.Run("any/any distance 1 keeps neighbours apart", func(t *testing.T) {
		roster := setup()
		constraints := []model.SeparationConstraint{{SubjectA: "any", SubjectB: "any", Distance: 1}}
		_, err := NewFairnessScheduler(constraints, nil).AssignShifts(roster, allIndices(roster))
		require.NoError(t, err)

		for i := 1; i < len(roster.Shifts); i++ {
			assert.NotEqual(t, roster.Shifts[i-1].Physician, roster.Shifts[i].Physician, "shifts %d and %d", i-1, i)
		}
	})

	t.Run("named wildcard only applies to that physician", func(t *testing.T) {
		roster := setup()
		constraints := []model.SeparationConstraint{{SubjectA: "A", SubjectB: "Any", Distance: 1}}
		_, err := NewFairnessScheduler(constraints, nil).AssignShifts(roster, allIndices(roster))
		require.NoError(t, err)

		for i := 1; i < len(roster.Shifts); i++ {
			if roster.Shifts[i].Physician == "A" {
				assert.NotEqual(t, "A", roster.Shifts[i-1].Physician, "shift %d", i)
			}
		}
	})
}

func TestFairnessScheduler_EmptySubjectIsWildcard(t *testing.T) {
	roster := newRoster(t, weeknights(date(2025, 7, 7), 6), "A", "B")
	constraints := []model.SeparationConstraint{{SubjectA: "A", Distance: 1}}

	_, err := NewFairnessScheduler(constraints, nil).AssignShifts(roster, allIndices(roster))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "A", "B", "A", "B"}, physicianSequence(roster))
	assert.Equal(t, 3, roster.CountAssigned("A", model.KindNight))
	assert.Equal(t, 3, roster.CountAssigned("B", model.KindNight))
}

func TestFairnessScheduler_AnyFirstSeparatesEveryone(t *testing.T) {
	roster := newRoster(t, weeknights(date(2025, 7, 7), 7), "A", "B", "C")
	roster.Physician("A").Carryover[model.KindNight] = -3
	constraints := []model.SeparationConstraint{{SubjectA: "any", SubjectB: "B", Distance: 1}}

	_, err := NewFairnessScheduler(constraints, nil).AssignShifts(roster, allIndices(roster))
	require.NoError(t, err)

	for i := 1; i < len(roster.Shifts); i++ {
		assert.NotEqual(t, roster.Shifts[i-1].Physician, roster.Shifts[i].Physician, "shifts %d and %d", i-1, i)
	}
}

func TestFairnessScheduler_NamedPairSeparation(t *testing.T) {
	roster := newRoster(t, weeknights(date(2025, 7, 7), 7), "A", "B", "C")
	constraints := []model.SeparationConstraint{{SubjectA: "A", SubjectB: "B", Distance: 1}}

	_, err := NewFairnessScheduler(constraints, nil).AssignShifts(roster, allIndices(roster))
	require.NoError(t, err)

	pair := map[string]bool{"A": true, "B": true}
	for i := 1; i < len(roster.Shifts); i++ {
		prev, cur := roster.Shifts[i-1].Physician, roster.Shifts[i].Physician
		if pair[prev] && pair[cur] {
			assert.Equal(t, prev, cur, "A and B on neighbouring shifts %d and %d", i-1, i)
		}
	}
}

func TestFairnessScheduler_Exhausted(t *testing.T) {
	t.Run("only physician blocked", func(t *testing.T) {
		roster := newRoster(t, []*model.Shift{night(date(2025, 7, 8))}, "A")
		roster.Physician("A").Block(date(2025, 7, 8))

		_, err := NewFairnessScheduler(nil, nil).AssignShifts(roster, allIndices(roster))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAssignmentExhausted))

		var assignmentErr *AssignmentError
		require.True(t, errors.As(err, &assignmentErr))
		assert.Equal(t, model.KindNight, assignmentErr.Kind)
		assert.True(t, date(2025, 7, 8).Equal(assignmentErr.Start))
		assert.Contains(t, err.Error(), "2025-07-08")
		assert.False(t, roster.Shifts[0].IsAssigned())
	})

	t.Run("separation leaves nobody", func(t *testing.T) {
		roster := newRoster(t, weeknights(date(2025, 7, 7), 2), "A", "B")
		roster.Physician("B").Block(date(2025, 7, 8), model.KindNight)
		constraints := []model.SeparationConstraint{{SubjectA: "any", SubjectB: "any", Distance: 1}}

		_, err := NewFairnessScheduler(constraints, nil).AssignShifts(roster, allIndices(roster))
		var assignmentErr *AssignmentError
		require.True(t, errors.As(err, &assignmentErr))
		assert.ErrorIs(t, err, ErrAssignmentExhausted)
		assert.True(t, date(2025, 7, 8).Equal(assignmentErr.Start))
	})
}

func TestFairnessScheduler_BlockedKindOnly(t *testing.T) {
	roster := newRoster(t, weeknights(date(2025, 7, 7), 2), "A", "B")
	roster.Physician("A").Block(date(2025, 7, 7), model.KindWeekend)
	roster.Physician("B").Block(date(2025, 7, 7), model.KindNight)

	_, err := NewFairnessScheduler(nil, nil).AssignShifts(roster, allIndices(roster))
	require.NoError(t, err)

	assert.Equal(t, "A", roster.Shifts[0].Physician)
	for _, s := range roster.Shifts {
		assert.True(t, roster.Physician(s.Physician).IsAvailable(s.Date, s.Kind))
	}
}

func TestFairnessScheduler_SkipsAssignedAndExcluded(t *testing.T) {
	shifts := weeknights(date(2025, 7, 7), 4)
	shifts[2].Included = false
	roster := newRoster(t, shifts, "A", "B")
	require.NoError(t, roster.Assign(0, "B", "pre-assigned"))

	result, err := NewFairnessScheduler(nil, nil).AssignShifts(roster, allIndices(roster))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3}, result.Assigned)
	assert.Equal(t, "pre-assigned", roster.Shifts[0].Trace)
	assert.False(t, roster.Shifts[2].IsAssigned())
}

func TestFairnessScheduler_RejectsMixedKinds(t *testing.T) {
	shifts := weeknights(date(2025, 7, 7), 2)
	shifts[1].Kind = model.KindHoliday
	roster := newRoster(t, shifts, "A")

	_, err := NewFairnessScheduler(nil, nil).AssignShifts(roster, allIndices(roster))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mixes")
}

func TestFairnessScheduler_TraceListsEveryPhysician(t *testing.T) {
	roster := newRoster(t, weeknights(date(2025, 7, 7), 1), "A", "B", "C")

	_, err := NewFairnessScheduler(nil, nil).AssignShifts(roster, allIndices(roster))
	require.NoError(t, err)

	trace := roster.Shifts[0].Trace
	for _, name := range []string{"A=", "B=", "C="} {
		assert.Contains(t, trace, name)
	}
	assert.Contains(t, trace, "2025-07-07 Night")
}

// Days since the last shift exclude the earlier date and include the current one:
// a Monday night followed by a Tuesday night is one day apart.
func TestFairnessScheduler_DaysSinceBoundary(t *testing.T) {
	tests := []struct {
		name     string
		previous time.Time
		current  time.Time
		expected float64
	}{
		{"consecutive nights", date(2025, 7, 7), date(2025, 7, 8), 1},
		{"monday to thursday", date(2025, 7, 7), date(2025, 7, 10), 3},
		{"across a weekend", date(2025, 7, 10), date(2025, 7, 14), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roster := newRoster(t, []*model.Shift{night(tt.previous), night(tt.current)}, "A", "B")
			require.NoError(t, roster.Assign(0, "A", ""))

			f := NewFairnessScheduler(nil, nil)
			subset := allIndices(roster)
			priorities := f.priorities(roster, subset, model.KindNight, fairShare(roster, subset, model.KindNight), roster.Shifts[1])

			var a priority
			for _, pr := range priorities {
				if pr.physician.Name == "A" {
					a = pr
				}
			}
			assert.Equal(t, tt.expected, a.daysSince)
			// Target 1 per physician and A already has it
			assert.Zero(t, a.score)
			assert.Equal(t, "B", priorities[0].physician.Name)
			assert.True(t, math.IsInf(priorities[0].daysSince, 1))
		})
	}
}
