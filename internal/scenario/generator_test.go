package scenario

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/contracts"
)

func TestGenerateFourWeightedScenarios(t *testing.T) {
	now := time.Now().UTC()
	base := &BaseForecast{PointEstimate: 1000, CILower: 900, CIUpper: 1100}

	projections, err := Generate("monthly_revenue", 30, base, now)
	require.NoError(t, err)
	require.Len(t, projections, 4)

	byName := map[contracts.ScenarioName]contracts.ScenarioProjection{}
	sum := 0.0
	for _, p := range projections {
		byName[p.ScenarioName] = p
		sum += p.ProbabilityScore
		assert.Equal(t, "monthly_revenue", p.MetricName)
		assert.Equal(t, 30, p.HorizonDays)
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, now, p.GeneratedAt)
	}

	assert.InDelta(t, 1.0, sum, 1e-12, "weights must sum to 1.0")
	require.Len(t, byName, 4)

	assert.InDelta(t, 1200, byName[contracts.ScenarioOptimistic].ProjectedOutcome, 1e-9)
	assert.InDelta(t, 1000, byName[contracts.ScenarioRealistic].ProjectedOutcome, 1e-9)
	assert.InDelta(t, 800, byName[contracts.ScenarioPessimistic].ProjectedOutcome, 1e-9)
	assert.InDelta(t, 600, byName[contracts.ScenarioDisruption].ProjectedOutcome, 1e-9)

	assert.InDelta(t, 0.25, byName[contracts.ScenarioOptimistic].ProbabilityScore, 1e-12)
	assert.InDelta(t, 0.50, byName[contracts.ScenarioRealistic].ProbabilityScore, 1e-12)
	assert.InDelta(t, 0.20, byName[contracts.ScenarioPessimistic].ProbabilityScore, 1e-12)
	assert.InDelta(t, 0.05, byName[contracts.ScenarioDisruption].ProbabilityScore, 1e-12)

	// realistic: lower 900*1.0*0.9, upper 1100*1.0*1.1
	assert.InDelta(t, 810, byName[contracts.ScenarioRealistic].CILower, 1e-9)
	assert.InDelta(t, 1210, byName[contracts.ScenarioRealistic].CIUpper, 1e-9)
}

func TestGenerateIntervalOrderingHolds(t *testing.T) {
	now := time.Now().UTC()

	cases := []*BaseForecast{
		{PointEstimate: 1000, CILower: 900, CIUpper: 1100},
		{PointEstimate: -50, CILower: -80, CIUpper: -20},
		{PointEstimate: 0, CILower: -10, CIUpper: 10},
		{PointEstimate: -100, CILower: -110, CIUpper: -105},
	}

	for _, base := range cases {
		projections, err := Generate("m", 14, base, now)
		require.NoError(t, err)
		for _, p := range projections {
			assert.LessOrEqual(t, p.CILower, p.CIUpper,
				"scenario %s for base [%v, %v]", p.ScenarioName, base.CILower, base.CIUpper)
		}
	}
}

func TestGenerateMissingForecast(t *testing.T) {
	projections, err := Generate("monthly_revenue", 30, nil, time.Now().UTC())

	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrDataUnavailable))
	assert.Empty(t, projections, "no partially populated scenario rows")
}

func TestGenerateRejectsInvalidHorizon(t *testing.T) {
	base := &BaseForecast{PointEstimate: 100, CILower: 90, CIUpper: 110}

	_, err := Generate("m", 0, base, time.Now().UTC())
	require.Error(t, err)

	_, err = Generate("m", -7, base, time.Now().UTC())
	require.Error(t, err)
}
