package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/jakechorley/oncall-scheduler/pkg/core/model"
)

const (
	// HandoverHour is when holiday and day-boundary shifts start and end
	HandoverHour = 8

	// EveningHour is when nights and ordinary weekends start
	EveningHour = 17
)

// Holiday is a named date that gets its own shift
type Holiday struct {
	Date time.Time
	Name string
}

// DateRange is an inclusive span of civil dates to cover with nights and weekends
type DateRange struct {
	Start time.Time
	End   time.Time
}

// builder holds the working state of a single Build call
type builder struct {
	holidays map[string]Holiday
	covered  map[string]bool
	shifts   []*model.Shift
}

// Build turns holidays and date ranges into a chronologically ordered shift list.
//
// Holidays are laid out first and always win: any date a holiday span touches is skipped
// when the ranges are expanded. Mon-Thu dates become nights and each Fri-Sun block becomes
// a single weekend anchored on the Friday.
func Build(holidays []Holiday, ranges []DateRange) ([]*model.Shift, error) {
	b := &builder{
		holidays: make(map[string]Holiday, len(holidays)),
		covered:  make(map[string]bool),
	}

	for _, h := range holidays {
		if h.Name == "" {
			return nil, fmt.Errorf("holiday on %s has no name", model.DateKey(h.Date))
		}
		key := model.DateKey(h.Date)
		if existing, dup := b.holidays[key]; dup {
			return nil, fmt.Errorf("duplicate holiday date %s (%s and %s)", key, existing.Name, h.Name)
		}
		b.holidays[key] = Holiday{Date: model.CivilDate(h.Date), Name: h.Name}
	}

	for _, r := range ranges {
		if model.CivilDate(r.End).Before(model.CivilDate(r.Start)) {
			return nil, fmt.Errorf("date range %s to %s ends before it starts",
				model.DateKey(r.Start), model.DateKey(r.End))
		}
	}

	// Step 1: holidays, in date order so the output does not depend on input order
	ordered := make([]Holiday, 0, len(b.holidays))
	for _, h := range b.holidays {
		ordered = append(ordered, h)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})
	for _, h := range ordered {
		b.addHoliday(h)
	}

	// Step 2: ranges
	for _, r := range ranges {
		b.expandRange(r)
	}

	model.SortShifts(b.shifts)
	for i, s := range b.shifts {
		s.Index = i
	}
	return b.shifts, nil
}

func (b *builder) isHoliday(d time.Time) bool {
	_, ok := b.holidays[model.DateKey(d)]
	return ok
}

// addHoliday emits the shift(s) for one holiday date
func (b *builder) addHoliday(h Holiday) {
	d := h.Date
	start := at(d, HandoverHour)
	end := at(d.AddDate(0, 0, 1), HandoverHour)

	switch d.Weekday() {
	case time.Friday:
		sat := d.AddDate(0, 0, 1)
		sun := d.AddDate(0, 0, 2)
		if !b.isHoliday(sat) && !b.isHoliday(sun) {
			b.emit(model.KindWeekend, "", sat, at(sat, HandoverHour), at(d.AddDate(0, 0, 3), HandoverHour))
		}

	case time.Saturday:
		fri := d.AddDate(0, 0, -1)
		sun := d.AddDate(0, 0, 1)
		start = at(fri, EveningHour)
		if b.isHoliday(fri) {
			start = at(d, HandoverHour)
		}
		end = at(d.AddDate(0, 0, 2), HandoverHour)
		if b.isHoliday(sun) {
			end = at(sun, HandoverHour)
		}

	case time.Sunday:
		fri := d.AddDate(0, 0, -2)
		sat := d.AddDate(0, 0, -1)
		switch {
		case b.isHoliday(sat):
			start = at(d, HandoverHour)
		case b.isHoliday(fri):
			start = at(sat, HandoverHour)
		default:
			start = at(fri, EveningHour)
		}
	}

	b.emit(model.KindHoliday, h.Name, d, start, end)
}

// expandRange walks a range day by day, skipping covered dates
func (b *builder) expandRange(r DateRange) {
	last := model.CivilDate(r.End)
	for d := model.CivilDate(r.Start); !d.After(last); d = d.AddDate(0, 0, 1) {
		if b.covered[model.DateKey(d)] {
			continue
		}

		switch d.Weekday() {
		case time.Friday, time.Saturday, time.Sunday:
			fri := fridayOf(d)
			weekend := []time.Time{fri, fri.AddDate(0, 0, 1), fri.AddDate(0, 0, 2)}
			if b.anyCovered(weekend) {
				continue
			}
			b.emit(model.KindWeekend, "", fri, at(fri, EveningHour), at(fri.AddDate(0, 0, 3), HandoverHour))
		default:
			b.emit(model.KindNight, "", d, at(d, EveningHour), at(d.AddDate(0, 0, 1), HandoverHour))
		}
	}
}

// emit appends a shift and marks every date from its start up to (not including) its end date
func (b *builder) emit(kind model.Kind, label string, date, start, end time.Time) {
	b.shifts = append(b.shifts, &model.Shift{
		Kind:     kind,
		Label:    label,
		Date:     model.CivilDate(date),
		Start:    start,
		End:      end,
		Included: true,
	})

	last := model.CivilDate(end)
	for d := model.CivilDate(start); d.Before(last); d = d.AddDate(0, 0, 1) {
		b.covered[model.DateKey(d)] = true
	}
}

func (b *builder) anyCovered(dates []time.Time) bool {
	for _, d := range dates {
		if b.covered[model.DateKey(d)] {
			return true
		}
	}
	return false
}

func at(d time.Time, hour int) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, d.Location())
}

// fridayOf returns the Friday that opens the weekend containing d (d must be Fri, Sat or Sun)
func fridayOf(d time.Time) time.Time {
	offset := (int(d.Weekday()) - int(time.Friday) + 7) % 7
	return d.AddDate(0, 0, -offset)
}
