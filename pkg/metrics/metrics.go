// Package metrics exposes Prometheus metrics for schedule generation runs.
//
// A run is a short-lived CLI process, so metrics are either written to a node_exporter
// textfile or pushed to a Pushgateway when the run ends.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/jakechorley/oncall-scheduler/pkg/core/model"
	"github.com/jakechorley/oncall-scheduler/pkg/core/scheduler"
)

// JobName groups pushed metrics on the Pushgateway
const JobName = "oncall_scheduler"

// Registry is the custom prometheus registry for the scheduler
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// PassesTotal counts scheduling passes by kind and outcome
var PassesTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "scheduler",
	Name:      "passes_total",
	Help:      "Scheduling passes run, by shift kind and outcome",
}, []string{"kind", "outcome"})

// PassDurationSeconds tracks how long each pass takes
var PassDurationSeconds = factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "scheduler",
	Name:      "pass_duration_seconds",
	Help:      "Time taken by a scheduling pass",
	Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
}, []string{"kind"})

// ShiftsAssigned is the number of shifts the latest pass of each kind assigned
var ShiftsAssigned = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "shifts_assigned",
	Help:      "Shifts assigned by the latest pass of each kind",
}, []string{"kind"})

// SolverNodes is the branch and bound node count of the latest holiday solve
var SolverNodes = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "solver_nodes",
	Help:      "Branch and bound nodes explored by the latest holiday solve",
})

// HolidayUtility is the optimal total utility of the latest holiday solve
var HolidayUtility = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "holiday_utility",
	Help:      "Total utility of the latest holiday assignment (lower is better)",
})

// PhysicianShifts is the number of shifts each physician holds after the run
var PhysicianShifts = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "physician_shifts",
	Help:      "Shifts held per physician and kind in the generated schedule",
}, []string{"physician", "kind"})

// RunTimestampSeconds is when the last successful run finished
var RunTimestampSeconds = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "last_success_timestamp_seconds",
	Help:      "Unix time of the last successful schedule generation",
})

// Recorder records pass and run outcomes into Registry
type Recorder struct{}

// ObservePass records one scheduling pass
func (Recorder) ObservePass(kind model.Kind, duration time.Duration, result *scheduler.Result, err error) {
	label := string(kind)
	PassDurationSeconds.WithLabelValues(label).Observe(duration.Seconds())
	PassesTotal.WithLabelValues(label, outcome(err)).Inc()
	if result == nil {
		return
	}

	ShiftsAssigned.WithLabelValues(label).Set(float64(len(result.Assigned)))
	if kind == model.KindHoliday {
		SolverNodes.Set(float64(result.Nodes))
		HolidayUtility.Set(result.Objective)
	}
}

// ObserveRoster records the per physician totals of a finished schedule
func (Recorder) ObserveRoster(roster *model.Roster, finished time.Time) {
	PhysicianShifts.Reset()
	for _, p := range roster.Physicians {
		for _, kind := range model.Kinds {
			PhysicianShifts.WithLabelValues(p.Name, string(kind)).Set(0)
		}
	}
	for _, s := range roster.Shifts {
		if s.IsAssigned() {
			PhysicianShifts.WithLabelValues(s.Physician, string(s.Kind)).Inc()
		}
	}
	RunTimestampSeconds.Set(float64(finished.Unix()))
}

// outcome maps an error to a low cardinality label
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, scheduler.ErrAssignmentExhausted):
		return "exhausted"
	case errors.Is(err, scheduler.ErrNoFeasibleAssignment):
		return "infeasible"
	default:
		return "error"
	}
}

// WriteTextfile writes the registry in the node_exporter textfile format
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Push sends the registry to a Pushgateway
func Push(url string) error {
	if err := push.New(url, JobName).Gatherer(Registry).Push(); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
