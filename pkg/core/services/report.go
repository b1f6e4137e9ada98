package services

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jakechorley/oncall-scheduler/internal/config"
	"github.com/jakechorley/oncall-scheduler/pkg/core/model"
)

// PhysicianStats is one physician's share of the schedule
type PhysicianStats struct {
	Name string

	// Counts holds every shift the physician holds, per kind
	Counts map[model.Kind]int

	// Excluded counts held shifts that do not take part in fairness
	Excluded int

	Total int
}

// ShiftPair is two shifts close together in the shift list
type ShiftPair struct {
	First  *model.Shift
	Second *model.Shift
}

// Report summarises a generated schedule for review
type Report struct {
	Shifts []*model.Shift

	// Stats is in physician name order
	Stats []PhysicianStats

	Holidays []*model.Shift

	// BackToBack lists consecutive shifts held by the same physician
	BackToBack []ShiftPair

	// NearPartners lists shifts held by the two sides of a named separation constraint
	// within its distance. The fairness passes avoid these, so any found involve holidays
	// or pre-assignments.
	NearPartners []ShiftPair
}

// BuildReport collects the statistics and review lists for a roster
func BuildReport(roster *model.Roster, constraints []model.SeparationConstraint) *Report {
	report := &Report{Shifts: roster.Shifts}

	names := make([]string, 0, len(roster.Physicians))
	for _, p := range roster.Physicians {
		names = append(names, p.Name)
	}
	sort.Strings(names)

	for _, name := range names {
		stats := PhysicianStats{Name: name, Counts: make(map[model.Kind]int)}
		for _, s := range roster.AssignedShifts(name) {
			stats.Counts[s.Kind]++
			stats.Total++
			if !s.Included {
				stats.Excluded++
			}
		}
		report.Stats = append(report.Stats, stats)
	}

	for i, s := range roster.Shifts {
		if s.Kind == model.KindHoliday {
			report.Holidays = append(report.Holidays, s)
		}
		if i > 0 && s.IsAssigned() && roster.Shifts[i-1].Physician == s.Physician {
			report.BackToBack = append(report.BackToBack, ShiftPair{First: roster.Shifts[i-1], Second: s})
		}
	}

	report.NearPartners = nearPartners(roster, constraints)
	return report
}

// BuildScheduleReport is BuildReport using the separation constraints configured in cfg
func BuildScheduleReport(cfg *config.Config, roster *model.Roster) *Report {
	return BuildReport(roster, convertConstraints(cfg.Fairness.Constraints))
}

func nearPartners(roster *model.Roster, constraints []model.SeparationConstraint) []ShiftPair {
	var pairs []ShiftPair
	for _, c := range constraints {
		if !c.IsPair() {
			continue
		}
		for i, first := range roster.Shifts {
			for j := i + 1; j <= i+c.Distance && j < len(roster.Shifts); j++ {
				second := roster.Shifts[j]
				if isPair(c, first.Physician, second.Physician) {
					pairs = append(pairs, ShiftPair{First: first, Second: second})
				}
			}
		}
	}
	return pairs
}

func isPair(c model.SeparationConstraint, a, b string) bool {
	return (a == c.SubjectA && b == c.SubjectB) || (a == c.SubjectB && b == c.SubjectA)
}

// Write renders the report as plain text
func (r *Report) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "SCHEDULE")
	month := ""
	for _, s := range r.Shifts {
		if m := s.Date.Format("January 2006"); m != month {
			month = m
			fmt.Fprintf(tw, "\n%s\n", month)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", s.Date.Format("Mon"), s.DateKey(), s.Kind, s.Physician, s.Label)
	}

	fmt.Fprintln(tw, "\nSTATISTICS")
	header := []string{"Physician"}
	for _, k := range model.Kinds {
		header = append(header, string(k))
	}
	header = append(header, "Total", "Excluded")
	fmt.Fprintln(tw, "  "+strings.Join(header, "\t"))
	for _, st := range r.Stats {
		row := []string{st.Name}
		for _, k := range model.Kinds {
			row = append(row, fmt.Sprint(st.Counts[k]))
		}
		row = append(row, fmt.Sprint(st.Total), fmt.Sprint(st.Excluded))
		fmt.Fprintln(tw, "  "+strings.Join(row, "\t"))
	}

	fmt.Fprintln(tw, "\nHOLIDAYS")
	if len(r.Holidays) == 0 {
		fmt.Fprintln(tw, "  none")
	}
	for _, s := range r.Holidays {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", s.DateKey(), s.Label, s.Physician)
	}

	fmt.Fprintln(tw, "\nBACK-TO-BACK")
	writePairs(tw, r.BackToBack)

	fmt.Fprintln(tw, "\nSEPARATED PHYSICIANS CLOSE TOGETHER")
	writePairs(tw, r.NearPartners)

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func writePairs(w io.Writer, pairs []ShiftPair) {
	if len(pairs) == 0 {
		fmt.Fprintln(w, "  none")
		return
	}
	for _, p := range pairs {
		fmt.Fprintf(w, "  %s\t%s\t->\t%s\t%s\n", p.First.Physician, p.First, p.Second.Physician, p.Second)
	}
}
