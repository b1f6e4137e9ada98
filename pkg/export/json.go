package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jakechorley/oncall-scheduler/pkg/core/model"
)

const jsonTimeLayout = "2006-01-02 15:04"

// jsonSchedule is the document written by WriteJSON
type jsonSchedule struct {
	RunID             string           `json:"run_id,omitempty"`
	ScheduleGenerated string           `json:"schedule_generated"`
	Assignments       []jsonAssignment `json:"assignments"`
}

type jsonAssignment struct {
	Date        string  `json:"date"`
	Type        string  `json:"type"`
	DayOfWeek   string  `json:"day_of_week"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Physician   *string `json:"physician"`
	HolidayName string  `json:"holiday_name,omitempty"`
	Debug       string  `json:"debug,omitempty"`
}

// WriteJSON writes the schedule as an indented JSON document. Unassigned shifts carry a
// null physician.
func WriteJSON(w io.Writer, shifts []*model.Shift, runID string, generatedAt time.Time, debug bool) error {
	ordered := append([]*model.Shift(nil), shifts...)
	model.SortShifts(ordered)

	doc := jsonSchedule{
		RunID:             runID,
		ScheduleGenerated: generatedAt.Format("2006-01-02 15:04:05"),
		Assignments:       make([]jsonAssignment, 0, len(ordered)),
	}
	for _, s := range ordered {
		a := jsonAssignment{
			Date:        s.DateKey(),
			Type:        string(s.Kind),
			DayOfWeek:   s.Date.Weekday().String(),
			StartTime:   s.Start.Format(jsonTimeLayout),
			EndTime:     s.End.Format(jsonTimeLayout),
			HolidayName: s.Label,
		}
		if s.IsAssigned() {
			name := s.Physician
			a.Physician = &name
		}
		if debug {
			a.Debug = s.Trace
		}
		doc.Assignments = append(doc.Assignments, a)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}
	return nil
}
