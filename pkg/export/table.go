// Package export writes a generated schedule to files other tools can read.
package export

import (
	"github.com/jakechorley/oncall-scheduler/pkg/core/model"
)

// Header is the column layout shared by the spreadsheet exports
var Header = []string{"Date", "Day", "Type", "Physician", "Note"}

// Table renders shifts as rows under Header, one row per shift in chronological order.
// With debug set a trailing column holds each shift's scheduler trace.
func Table(shifts []*model.Shift, debug bool) [][]string {
	header := Header
	if debug {
		header = append(append([]string{}, Header...), "Debug")
	}

	ordered := append([]*model.Shift(nil), shifts...)
	model.SortShifts(ordered)

	rows := make([][]string, 0, len(ordered)+1)
	rows = append(rows, header)
	for _, s := range ordered {
		row := []string{
			s.DateKey(),
			s.Date.Weekday().String(),
			string(s.Kind),
			s.Physician,
			s.Label,
		}
		if debug {
			row = append(row, s.Trace)
		}
		rows = append(rows, row)
	}
	return rows
}

// Counts tallies the shifts each physician holds per kind
func Counts(shifts []*model.Shift) map[string]map[model.Kind]int {
	counts := make(map[string]map[model.Kind]int)
	for _, s := range shifts {
		if !s.IsAssigned() {
			continue
		}
		if counts[s.Physician] == nil {
			counts[s.Physician] = make(map[model.Kind]int)
		}
		counts[s.Physician][s.Kind]++
	}
	return counts
}
