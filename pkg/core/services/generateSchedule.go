package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-scheduler/internal/config"
	"github.com/jakechorley/oncall-scheduler/pkg/core/calendar"
	"github.com/jakechorley/oncall-scheduler/pkg/core/model"
	"github.com/jakechorley/oncall-scheduler/pkg/core/scheduler"
)

// PassRecorder receives the outcome of every scheduling pass
type PassRecorder interface {
	ObservePass(kind model.Kind, duration time.Duration, result *scheduler.Result, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObservePass(model.Kind, time.Duration, *scheduler.Result, error) {}

// GenerateScheduleResult contains a complete schedule
type GenerateScheduleResult struct {
	RunID       uuid.UUID
	Seed        int64
	Roster      *model.Roster
	Passes      []*scheduler.Result
	GeneratedAt time.Time
}

// pass runs one scheduler over every shift of a kind
type pass struct {
	kind      model.Kind
	scheduler scheduler.Scheduler
}

// NewRand returns the generator GenerateSchedule expects for a seed
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

// GenerateSchedule builds the shift calendar for cfg and fills it.
//
// Holidays go first to the optimal utility scheduler, then weekends and nights to the
// fairness scheduler. Any failed pass aborts the run and no partial schedule is returned.
// rng only decides the roster order, which breaks ties inside the schedulers.
func GenerateSchedule(
	ctx context.Context,
	cfg *config.Config,
	rng *rand.Rand,
	recorder PassRecorder,
	logger *zap.Logger,
) (*GenerateScheduleResult, error) {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	logger.Debug("Starting generateSchedule", zap.Int64("seed", cfg.Seed()))

	// Step 1: Lay out the shifts
	shifts, err := BuildShifts(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Step 2: Build physicians with their blocks and carryover
	first, last := anchorSpan(shifts)
	physicians, err := convertPhysicians(cfg.Physicians, cfg.Location(), first, last)
	if err != nil {
		return nil, err
	}

	// Step 3: Shuffle the roster order
	rng.Shuffle(len(physicians), func(i, j int) {
		physicians[i], physicians[j] = physicians[j], physicians[i]
	})
	order := make([]string, len(physicians))
	for i, p := range physicians {
		order[i] = p.Name
	}
	logger.Debug("Roster order", zap.Strings("physicians", order))

	roster, err := model.NewRoster(shifts, physicians)
	if err != nil {
		return nil, fmt.Errorf("failed to build roster: %w", err)
	}

	// Step 4: Pre-assignments
	if err := applyPreAssignments(roster, cfg.PreAssignments, cfg.Location(), logger); err != nil {
		return nil, err
	}

	// Step 5: Scheduling passes
	result := &GenerateScheduleResult{
		RunID: uuid.New(),
		Seed:  cfg.Seed(),
	}
	for _, p := range schedulerPasses(cfg, logger) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("schedule generation cancelled: %w", err)
		}

		started := time.Now()
		passResult, err := p.scheduler.AssignShifts(roster, roster.Indices(p.kind))
		recorder.ObservePass(p.kind, time.Since(started), passResult, err)
		if err != nil {
			return nil, fmt.Errorf("failed to schedule %s shifts: %w", p.kind, err)
		}

		logger.Debug("Finished pass",
			zap.String("kind", string(p.kind)),
			zap.Int("assigned", len(passResult.Assigned)),
			zap.Duration("duration", time.Since(started)))
		result.Passes = append(result.Passes, passResult)
	}

	// Step 6: Check the result
	if err := roster.Verify(); err != nil {
		return nil, fmt.Errorf("roster is inconsistent: %w", err)
	}
	if open := roster.Unassigned(); len(open) > 0 {
		return nil, fmt.Errorf("%d shifts left unassigned, first %s", len(open), open[0])
	}

	result.Roster = roster
	result.GeneratedAt = time.Now()

	logger.Debug("Schedule generated",
		zap.String("run_id", result.RunID.String()),
		zap.Int("shifts", len(roster.Shifts)))

	return result, nil
}

// BuildShifts expands the configured holidays and date ranges into the shift calendar
func BuildShifts(cfg *config.Config, logger *zap.Logger) ([]*model.Shift, error) {
	loc := cfg.Location()

	holidays, err := convertHolidays(cfg, loc, logger)
	if err != nil {
		return nil, err
	}
	ranges, err := convertRanges(cfg.Dates.Ranges, loc)
	if err != nil {
		return nil, err
	}

	shifts, err := calendar.Build(holidays, ranges)
	if err != nil {
		return nil, fmt.Errorf("failed to build calendar: %w", err)
	}
	if len(shifts) == 0 {
		return nil, fmt.Errorf("no shifts to schedule")
	}

	logger.Debug("Built calendar",
		zap.Int("shifts", len(shifts)),
		zap.Int("holidays", len(holidays)))
	return shifts, nil
}

// schedulerPasses returns the passes in the order they run
func schedulerPasses(cfg *config.Config, logger *zap.Logger) []pass {
	utility := scheduler.NewUtilityScheduler(
		model.UtilityMatrix(cfg.Holidays.UtilityMatrix),
		model.PastAssignments(cfg.Holidays.PastAssignments),
		logger,
	)
	if cfg.Holidays.DefaultUtility != nil {
		utility.DefaultUtility = *cfg.Holidays.DefaultUtility
	}
	if cfg.Holidays.RoundBasis != "" {
		utility.RoundBasis = scheduler.RoundBasis(cfg.Holidays.RoundBasis)
	}
	if cfg.Holidays.MaxNodes > 0 {
		utility.MaxNodes = cfg.Holidays.MaxNodes
	}

	fairness := scheduler.NewFairnessScheduler(convertConstraints(cfg.Fairness.Constraints), logger)

	return []pass{
		{kind: model.KindHoliday, scheduler: utility},
		{kind: model.KindWeekend, scheduler: fairness},
		{kind: model.KindNight, scheduler: fairness},
	}
}

// convertHolidays merges the single holidays with every occurrence of the recurring ones
// inside the configured horizon. A single holiday wins over a recurring one on the same date.
func convertHolidays(cfg *config.Config, loc *time.Location, logger *zap.Logger) ([]calendar.Holiday, error) {
	holidays := make([]calendar.Holiday, 0, len(cfg.Dates.Holidays))
	seen := make(map[string]bool)

	for _, h := range cfg.Dates.Holidays {
		d, err := config.ParseDate(h.Date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse holiday %s: %w", h.Name, err)
		}
		holidays = append(holidays, calendar.Holiday{Date: config.InLocation(d, loc), Name: h.Name})
		seen[h.Date] = true
	}

	if len(cfg.Dates.RecurringHolidays) == 0 {
		return holidays, nil
	}

	start, end := cfg.Horizon()
	for _, h := range cfg.Dates.RecurringHolidays {
		dates, err := config.Occurrences(h.RRule, start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to expand holiday %s: %w", h.Name, err)
		}
		for _, d := range dates {
			key := model.DateKey(d)
			if seen[key] {
				logger.Debug("Skipping recurring holiday on a date that already has one",
					zap.String("name", h.Name),
					zap.String("date", key))
				continue
			}
			seen[key] = true
			holidays = append(holidays, calendar.Holiday{Date: config.InLocation(d, loc), Name: h.Name})
		}
	}

	return holidays, nil
}

func convertRanges(ranges []config.RangeConfig, loc *time.Location) ([]calendar.DateRange, error) {
	result := make([]calendar.DateRange, 0, len(ranges))
	for _, r := range ranges {
		start, err := config.ParseDate(r.Start)
		if err != nil {
			return nil, fmt.Errorf("failed to parse range start: %w", err)
		}
		end, err := config.ParseDate(r.End)
		if err != nil {
			return nil, fmt.Errorf("failed to parse range end: %w", err)
		}
		result = append(result, calendar.DateRange{
			Start: config.InLocation(start, loc),
			End:   config.InLocation(end, loc),
		})
	}
	return result, nil
}

// convertPhysicians builds physicians in config order. Recurring blocks are expanded
// between first and last, the earliest and latest shift anchor dates.
func convertPhysicians(configs []config.PhysicianConfig, loc *time.Location, first, last time.Time) ([]*model.Physician, error) {
	physicians := make([]*model.Physician, 0, len(configs))

	for _, pc := range configs {
		p := model.NewPhysician(pc.Name)

		for kindName, count := range pc.Carryover {
			kind, err := model.ParseKind(kindName)
			if err != nil {
				return nil, fmt.Errorf("physician %s: %w", pc.Name, err)
			}
			p.Carryover[kind] = count
		}

		for i, b := range pc.Blocked {
			if err := applyBlock(p, b, loc, first, last); err != nil {
				return nil, fmt.Errorf("physician %s block %d: %w", pc.Name, i, err)
			}
		}

		physicians = append(physicians, p)
	}

	return physicians, nil
}

func applyBlock(p *model.Physician, b config.BlockConfig, loc *time.Location, first, last time.Time) error {
	kinds := make([]model.Kind, 0, len(b.Kinds))
	for _, k := range b.Kinds {
		kind, err := model.ParseKind(k)
		if err != nil {
			return err
		}
		kinds = append(kinds, kind)
	}

	switch {
	case b.Date != "":
		d, err := config.ParseDate(b.Date)
		if err != nil {
			return err
		}
		p.Block(config.InLocation(d, loc), kinds...)

	case b.Start != "":
		start, err := config.ParseDate(b.Start)
		if err != nil {
			return err
		}
		end, err := config.ParseDate(b.End)
		if err != nil {
			return err
		}
		p.BlockRange(config.InLocation(start, loc), config.InLocation(end, loc), kinds...)

	case b.RRule != "":
		// Expand on UTC civil dates so the rule sees the same calendar as the config
		start, _ := config.ParseDate(model.DateKey(first))
		end, _ := config.ParseDate(model.DateKey(last))
		dates, err := config.Occurrences(b.RRule, start, end)
		if err != nil {
			return err
		}
		for _, d := range dates {
			p.Block(config.InLocation(d, loc), kinds...)
		}

	default:
		return fmt.Errorf("block has no date, range or rrule")
	}

	return nil
}

func convertConstraints(configs []config.ConstraintConfig) []model.SeparationConstraint {
	constraints := make([]model.SeparationConstraint, 0, len(configs))
	for _, c := range configs {
		constraints = append(constraints, model.SeparationConstraint{
			SubjectA: c.PhysicianA,
			SubjectB: c.PhysicianB,
			Distance: c.Distance,
		})
	}
	return constraints
}

// applyPreAssignments fixes configured shifts before any pass runs. The shift is the one of
// the given kind whose civil dates (from its start up to, not including, its end) contain
// the configured date, so any day of a weekend selects it.
func applyPreAssignments(roster *model.Roster, preAssignments []config.PreAssignment, loc *time.Location, logger *zap.Logger) error {
	for i, pa := range preAssignments {
		kind, err := model.ParseKind(pa.Kind)
		if err != nil {
			return fmt.Errorf("pre-assignment %d: %w", i, err)
		}
		d, err := config.ParseDate(pa.Date)
		if err != nil {
			return fmt.Errorf("pre-assignment %d: %w", i, err)
		}
		day := config.InLocation(d, loc)

		shift := findCovering(roster, kind, day)
		if shift == nil {
			return fmt.Errorf("pre-assignment %d: no %s shift covers %s", i, kind, pa.Date)
		}

		p := roster.Physician(pa.Physician)
		if p == nil {
			return fmt.Errorf("pre-assignment %d: unknown physician %q", i, pa.Physician)
		}
		if !p.IsAvailable(shift.Date, shift.Kind) {
			logger.Warn("Pre-assigned physician is blocked on that shift",
				zap.String("physician", pa.Physician),
				zap.String("shift", shift.String()))
		}

		if err := roster.Assign(shift.Index, pa.Physician, "pre-assigned"); err != nil {
			return fmt.Errorf("pre-assignment %d: %w", i, err)
		}
		shift.Included = !pa.ExcludeFromFairness

		logger.Debug("Applied pre-assignment",
			zap.String("physician", pa.Physician),
			zap.String("shift", shift.String()),
			zap.Bool("included", shift.Included))
	}
	return nil
}

func findCovering(roster *model.Roster, kind model.Kind, day time.Time) *model.Shift {
	for _, s := range roster.Shifts {
		if s.Kind != kind {
			continue
		}
		from := model.CivilDate(s.Start)
		to := model.CivilDate(s.End)
		if !day.Before(from) && day.Before(to) {
			return s
		}
	}
	return nil
}

// anchorSpan returns the earliest and latest shift anchor dates
func anchorSpan(shifts []*model.Shift) (time.Time, time.Time) {
	first, last := shifts[0].Date, shifts[0].Date
	for _, s := range shifts[1:] {
		if s.Date.Before(first) {
			first = s.Date
		}
		if s.Date.After(last) {
			last = s.Date
		}
	}
	return first, last
}
