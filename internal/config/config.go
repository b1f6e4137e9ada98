package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/oncall-scheduler/pkg/core/model"
)

// DefaultRandomSeed seeds the roster shuffle when the config does not set one
const DefaultRandomSeed int64 = 12345

// Config is the schedule definition for one planning period
type Config struct {
	RandomSeed     *int64                  `yaml:"randomSeed,omitempty"`
	Timezone       string                  `yaml:"timezone,omitempty"`
	Dates          DatesConfig             `yaml:"dates"`
	Physicians     []PhysicianConfig       `yaml:"physicians" validate:"required,min=1,dive"`
	PreAssignments []PreAssignment         `yaml:"preAssignments,omitempty" validate:"dive"`
	Holidays       HolidaySchedulerConfig  `yaml:"holidayScheduler,omitempty"`
	Fairness       FairnessSchedulerConfig `yaml:"fairnessScheduler,omitempty"`
}

// DatesConfig defines the planning horizon
type DatesConfig struct {
	Holidays          []HolidayConfig   `yaml:"holidays,omitempty" validate:"dive"`
	RecurringHolidays []RecurringConfig `yaml:"recurringHolidays,omitempty" validate:"dive"`
	Ranges            []RangeConfig     `yaml:"ranges" validate:"required,min=1,dive"`
}

// HolidayConfig is a single named holiday
type HolidayConfig struct {
	Date string `yaml:"date" validate:"required,datetime=2006-01-02"`
	Name string `yaml:"name" validate:"required"`
}

// RecurringConfig is a named holiday repeated by an RRULE inside the horizon
type RecurringConfig struct {
	Name  string `yaml:"name" validate:"required"`
	RRule string `yaml:"rrule" validate:"required"`
}

// RangeConfig is an inclusive span of dates to schedule
type RangeConfig struct {
	Start string `yaml:"start" validate:"required,datetime=2006-01-02"`
	End   string `yaml:"end" validate:"required,datetime=2006-01-02"`
}

// PhysicianConfig describes one roster member
type PhysicianConfig struct {
	Name    string        `yaml:"name" validate:"required"`
	Blocked []BlockConfig `yaml:"blocked,omitempty" validate:"dive"`

	// Carryover is fairness debt per kind from the previous period
	Carryover map[string]int `yaml:"carryover,omitempty"`
}

// BlockConfig marks dates a physician cannot work. Exactly one of Date, Start/End or RRule
// is set. With no kinds the whole day is blocked.
type BlockConfig struct {
	Date  string   `yaml:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Start string   `yaml:"start,omitempty" validate:"omitempty,datetime=2006-01-02"`
	End   string   `yaml:"end,omitempty" validate:"omitempty,datetime=2006-01-02"`
	RRule string   `yaml:"rrule,omitempty"`
	Kinds []string `yaml:"kinds,omitempty"`
}

// PreAssignment fixes a shift to a physician before scheduling
type PreAssignment struct {
	Date      string `yaml:"date" validate:"required,datetime=2006-01-02"`
	Kind      string `yaml:"kind" validate:"required"`
	Physician string `yaml:"physician" validate:"required"`

	// ExcludeFromFairness keeps the shift out of fair share targets and counts
	ExcludeFromFairness bool `yaml:"excludeFromFairness,omitempty"`
}

// HolidaySchedulerConfig tunes the optimal holiday pass
type HolidaySchedulerConfig struct {
	DefaultUtility  *int                           `yaml:"defaultUtility,omitempty"`
	RoundBasis      string                         `yaml:"roundBasis,omitempty" validate:"omitempty,oneof=calendar kind"`
	MaxNodes        int                            `yaml:"maxNodes,omitempty" validate:"gte=0"`
	UtilityMatrix   map[string]map[string]int      `yaml:"utilityMatrix,omitempty"`
	PastAssignments map[string]map[string][]string `yaml:"pastAssignments,omitempty"`
}

// FairnessSchedulerConfig tunes the round robin passes
type FairnessSchedulerConfig struct {
	Constraints []ConstraintConfig `yaml:"constraints,omitempty" validate:"dive"`
}

// ConstraintConfig keeps physicians apart in the shift list. Either side may be "any";
// an empty physicianB means "any".
type ConstraintConfig struct {
	PhysicianA string `yaml:"physicianA" validate:"required"`
	PhysicianB string `yaml:"physicianB,omitempty"`
	Distance   int    `yaml:"distance" validate:"min=1"`
}

// ValidationError collects every semantic problem found in a config
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadFromPath loads and validates a schedule config. JSON files are accepted since they
// are valid YAML. Unknown keys are rejected.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a schedule config
func Parse(data []byte) (*Config, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var cfg Config
	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config file is empty")
		}
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg as YAML
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate runs struct validation and then the cross-field checks
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	verr := &ValidationError{}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		verr.add("timezone: %v", err)
	}

	for i, r := range cfg.Dates.Ranges {
		start, _ := ParseDate(r.Start)
		end, _ := ParseDate(r.End)
		if end.Before(start) {
			verr.add("dates.ranges[%d]: end %s is before start %s", i, r.End, r.Start)
		}
	}

	holidayDates := make(map[string]bool)
	for i, h := range cfg.Dates.Holidays {
		if holidayDates[h.Date] {
			verr.add("dates.holidays[%d]: duplicate date %s", i, h.Date)
		}
		holidayDates[h.Date] = true
	}
	for i, h := range cfg.Dates.RecurringHolidays {
		if _, err := rrule.StrToRRule(h.RRule); err != nil {
			verr.add("dates.recurringHolidays[%d]: invalid rrule: %v", i, err)
		}
	}

	names := make(map[string]bool)
	for i, p := range cfg.Physicians {
		if names[p.Name] {
			verr.add("physicians[%d]: duplicate name %q", i, p.Name)
		}
		names[p.Name] = true
		if model.IsWildcard(p.Name) {
			verr.add("physicians[%d]: %q is reserved", i, p.Name)
		}

		for kind := range p.Carryover {
			if _, err := model.ParseKind(kind); err != nil {
				verr.add("physicians[%d].carryover: %v", i, err)
			}
		}

		for j, b := range p.Blocked {
			validateBlock(verr, fmt.Sprintf("physicians[%d].blocked[%d]", i, j), b)
		}
	}

	for i, pa := range cfg.PreAssignments {
		if _, err := model.ParseKind(pa.Kind); err != nil {
			verr.add("preAssignments[%d]: %v", i, err)
		}
		if !names[pa.Physician] {
			verr.add("preAssignments[%d]: unknown physician %q", i, pa.Physician)
		}
	}

	for i, c := range cfg.Fairness.Constraints {
		for _, subject := range []string{c.PhysicianA, c.PhysicianB} {
			if subject == "" || model.IsWildcard(subject) {
				continue
			}
			if !names[subject] {
				verr.add("fairnessScheduler.constraints[%d]: unknown physician %q", i, subject)
			}
		}
	}

	for label, row := range cfg.Holidays.UtilityMatrix {
		if _, ok := row["0"]; !ok {
			verr.add("holidayScheduler.utilityMatrix[%s]: missing base utility \"0\"", label)
		}
		for idx := range row {
			if _, err := strconv.Atoi(idx); err != nil {
				verr.add("holidayScheduler.utilityMatrix[%s]: years ago index %q is not a number", label, idx)
			}
		}
	}
	for name, byHoliday := range cfg.Holidays.PastAssignments {
		for label, indices := range byHoliday {
			for _, idx := range indices {
				if _, err := strconv.Atoi(idx); err != nil {
					verr.add("holidayScheduler.pastAssignments[%s][%s]: years ago index %q is not a number", name, label, idx)
				}
			}
		}
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

func validateBlock(verr *ValidationError, path string, b BlockConfig) {
	set := 0
	for _, v := range []string{b.Date, b.Start, b.RRule} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		verr.add("%s: exactly one of date, start/end or rrule must be set", path)
	}
	if (b.Start == "") != (b.End == "") {
		verr.add("%s: start and end must be set together", path)
	}
	if b.Start != "" && b.End != "" {
		start, _ := ParseDate(b.Start)
		end, _ := ParseDate(b.End)
		if end.Before(start) {
			verr.add("%s: end %s is before start %s", path, b.End, b.Start)
		}
	}
	if b.RRule != "" {
		if _, err := rrule.StrToRRule(b.RRule); err != nil {
			verr.add("%s: invalid rrule: %v", path, err)
		}
	}
	for _, k := range b.Kinds {
		if _, err := model.ParseKind(k); err != nil {
			verr.add("%s: %v", path, err)
		}
	}
}

// Seed returns the configured random seed or DefaultRandomSeed
func (c *Config) Seed() int64 {
	if c.RandomSeed == nil {
		return DefaultRandomSeed
	}
	return *c.RandomSeed
}

// Location returns the zone shift times are laid out in (UTC when unset)
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// InLocation moves a civil date parsed by ParseDate to midnight in loc
func InLocation(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// Horizon returns the first and last date touched by the ranges and single holidays
func (c *Config) Horizon() (time.Time, time.Time) {
	var first, last time.Time
	extend := func(d time.Time) {
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if last.IsZero() || d.After(last) {
			last = d
		}
	}
	for _, r := range c.Dates.Ranges {
		if d, err := ParseDate(r.Start); err == nil {
			extend(d)
		}
		if d, err := ParseDate(r.End); err == nil {
			extend(d)
		}
	}
	for _, h := range c.Dates.Holidays {
		if d, err := ParseDate(h.Date); err == nil {
			extend(d)
		}
	}
	return first, last
}

// ParseDate parses a YYYY-MM-DD civil date at midnight UTC
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(model.DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// Occurrences expands an RRULE between start and end inclusive, anchored at start
func Occurrences(rule string, start, end time.Time) ([]time.Time, error) {
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rrule %q: %w", rule, err)
	}
	r.DTStart(start)
	return r.Between(start, end, true), nil
}
