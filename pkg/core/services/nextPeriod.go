package services

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/jakechorley/oncall-scheduler/internal/config"
	"github.com/jakechorley/oncall-scheduler/pkg/core/model"
)

// NextPeriodConfig returns a copy of cfg with the holiday history rolled forward a year:
// every past years-ago index grows by one and each holiday in roster is recorded as "1"
// for the physician who held it. Nothing else changes.
func NextPeriodConfig(cfg *config.Config, roster *model.Roster) (*config.Config, error) {
	past := make(map[string]map[string][]int)

	for name, byHoliday := range cfg.Holidays.PastAssignments {
		past[name] = make(map[string][]int)
		for label, indices := range byHoliday {
			for _, idx := range indices {
				yearsAgo, err := strconv.Atoi(idx)
				if err != nil {
					return nil, fmt.Errorf("past assignment %s/%s has invalid index %q: %w", name, label, idx, err)
				}
				past[name][label] = append(past[name][label], yearsAgo+1)
			}
		}
	}

	for _, s := range roster.Shifts {
		if s.Kind != model.KindHoliday || !s.IsAssigned() {
			continue
		}
		if past[s.Physician] == nil {
			past[s.Physician] = make(map[string][]int)
		}
		past[s.Physician][s.Label] = append(past[s.Physician][s.Label], 1)
	}

	history := make(map[string]map[string][]string, len(past))
	for name, byHoliday := range past {
		history[name] = make(map[string][]string, len(byHoliday))
		for label, years := range byHoliday {
			sort.Ints(years)
			indices := make([]string, len(years))
			for i, y := range years {
				indices[i] = strconv.Itoa(y)
			}
			history[name][label] = indices
		}
	}

	next := *cfg
	next.Holidays.PastAssignments = history
	return &next, nil
}
