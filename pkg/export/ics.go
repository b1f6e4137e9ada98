package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/jakechorley/oncall-scheduler/pkg/core/model"
)

// ProductID identifies the calendars this package writes
const ProductID = "-//oncall-scheduler//schedule//EN"

// WriteICS writes one all-day event per assigned shift. Each event covers the civil dates
// the shift touches before its handover, so a night is a single day and a weekend is
// Friday to Sunday.
func WriteICS(w io.Writer, shifts []*model.Shift, runID string, generatedAt time.Time) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetXWRCalName("On-call schedule")

	ordered := append([]*model.Shift(nil), shifts...)
	model.SortShifts(ordered)

	for _, s := range ordered {
		if !s.IsAssigned() {
			continue
		}

		event := cal.AddEvent(eventID(runID, s))
		event.SetDtStampTime(generatedAt.UTC())
		event.SetSummary(s.Physician)
		event.SetDescription(describe(s))

		first := model.CivilDate(s.Start)
		last := model.CivilDate(s.End)
		if !last.After(first) {
			last = first.AddDate(0, 0, 1)
		}
		event.SetAllDayStartAt(first)
		event.SetAllDayEndAt(last)
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	return nil
}

func eventID(runID string, s *model.Shift) string {
	if runID == "" {
		runID = "schedule"
	}
	return fmt.Sprintf("%s-%d-%s@oncall-scheduler", runID, s.Index, s.DateKey())
}

// describe reads like "Christmas Holiday Call - coverage begins at 08:00AM Thursday and goes
// through 08:00AM Friday."
func describe(s *model.Shift) string {
	parts := make([]string, 0, 2)
	if s.Label != "" {
		parts = append(parts, s.Label)
	}
	parts = append(parts, fmt.Sprintf("%s Call - coverage begins at %s %s and goes through %s %s.",
		s.Kind,
		s.Start.Format("03:04PM"), s.Start.Weekday(),
		s.End.Format("03:04PM"), s.End.Weekday()))
	return strings.Join(parts, " ")
}
