package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/oncall-scheduler/internal/config"
)

func TestNextPeriodConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Holidays.PastAssignments = map[string]map[string][]string{
		"A": {"Christmas": {"3", "1"}},
		"B": {"New Year": {"2"}},
	}
	roster := christmasWeek(t, map[int]string{0: "B", 1: "C", 2: "B", 3: "A", 4: "C"})

	next, err := NextPeriodConfig(cfg, roster)
	require.NoError(t, err)

	assert.Equal(t, map[string]map[string][]string{
		"A": {"Christmas": {"1", "2", "4"}},
		"B": {"New Year": {"3"}},
	}, next.Holidays.PastAssignments)

	// The input is untouched and the rest of the config carries over
	assert.Equal(t, []string{"3", "1"}, cfg.Holidays.PastAssignments["A"]["Christmas"])
	assert.Equal(t, cfg.Physicians, next.Physicians)
	assert.Equal(t, cfg.Holidays.UtilityMatrix, next.Holidays.UtilityMatrix)
}

func TestNextPeriodConfig_NewPhysicianGetsHistory(t *testing.T) {
	cfg := testConfig()
	roster := christmasWeek(t, map[int]string{0: "A", 1: "B", 2: "A", 3: "C", 4: "B"})

	next, err := NextPeriodConfig(cfg, roster)
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string][]string{"C": {"Christmas": {"1"}}}, next.Holidays.PastAssignments)
	assert.NoError(t, config.Validate(next))
}

func TestNextPeriodConfig_InvalidIndex(t *testing.T) {
	cfg := testConfig()
	cfg.Holidays.PastAssignments = map[string]map[string][]string{"A": {"Christmas": {"last"}}}

	_, err := NextPeriodConfig(cfg, christmasWeek(t, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid index")
}
