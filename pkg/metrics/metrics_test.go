package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/oncall-scheduler/pkg/core/model"
	"github.com/jakechorley/oncall-scheduler/pkg/core/scheduler"
)

func TestRecorder_ObservePass(t *testing.T) {
	r := Recorder{}

	before := testutil.ToFloat64(PassesTotal.WithLabelValues("Holiday", "success"))
	r.ObservePass(model.KindHoliday, 20*time.Millisecond, &scheduler.Result{
		Kind:      model.KindHoliday,
		Assigned:  []int{2, 3, 8},
		Objective: 18,
		Nodes:     7,
	}, nil)

	assert.Equal(t, before+1, testutil.ToFloat64(PassesTotal.WithLabelValues("Holiday", "success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(ShiftsAssigned.WithLabelValues("Holiday")))
	assert.Equal(t, 7.0, testutil.ToFloat64(SolverNodes))
	assert.Equal(t, 18.0, testutil.ToFloat64(HolidayUtility))
}

func TestRecorder_ObservePassFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome string
	}{
		{"exhausted", &scheduler.AssignmentError{Kind: model.KindNight, Err: scheduler.ErrAssignmentExhausted}, "exhausted"},
		{"infeasible", fmt.Errorf("wrapped: %w", scheduler.ErrNoFeasibleAssignment), "infeasible"},
		{"other", fmt.Errorf("boom"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := PassesTotal.WithLabelValues("Night", tt.outcome)
			before := testutil.ToFloat64(counter)
			Recorder{}.ObservePass(model.KindNight, time.Millisecond, nil, tt.err)
			assert.Equal(t, before+1, testutil.ToFloat64(counter))
		})
	}
}

func TestRecorder_ObserveRoster(t *testing.T) {
	d := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	shifts := []*model.Shift{
		{Kind: model.KindNight, Date: d, Start: d.Add(17 * time.Hour), End: d.Add(32 * time.Hour), Included: true},
		{Kind: model.KindNight, Date: d.AddDate(0, 0, 1), Start: d.Add(41 * time.Hour), End: d.Add(56 * time.Hour), Included: true},
	}
	roster, err := model.NewRoster(shifts, []*model.Physician{model.NewPhysician("A"), model.NewPhysician("B")})
	require.NoError(t, err)
	require.NoError(t, roster.Assign(0, "A", ""))
	require.NoError(t, roster.Assign(1, "A", ""))

	finished := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	Recorder{}.ObserveRoster(roster, finished)

	assert.Equal(t, 2.0, testutil.ToFloat64(PhysicianShifts.WithLabelValues("A", "Night")))
	assert.Equal(t, 0.0, testutil.ToFloat64(PhysicianShifts.WithLabelValues("B", "Night")))
	assert.Equal(t, 0.0, testutil.ToFloat64(PhysicianShifts.WithLabelValues("A", "Holiday")))
	assert.Equal(t, float64(finished.Unix()), testutil.ToFloat64(RunTimestampSeconds))
}

func TestWriteTextfile(t *testing.T) {
	Recorder{}.ObservePass(model.KindWeekend, time.Millisecond, &scheduler.Result{Kind: model.KindWeekend}, nil)

	path := filepath.Join(t.TempDir(), "scheduler.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scheduler_passes_total")
	assert.Contains(t, string(data), `kind="Weekend"`)
}

func TestPush(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, Push(server.URL))
	assert.Equal(t, "/metrics/job/"+JobName, gotPath)
}
