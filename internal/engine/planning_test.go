package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/contracts"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/montecarlo"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/scenario"
)

type fakePlanningStore struct {
	mu           sync.Mutex
	history      map[string][]contracts.MetricObservation
	scenarioSets [][]contracts.ScenarioProjection
	simulations  []*montecarlo.Run
}

func newFakePlanningStore() *fakePlanningStore {
	return &fakePlanningStore{history: make(map[string][]contracts.MetricObservation)}
}

func (f *fakePlanningStore) seedHistory(metric string, values ...float64) {
	base := time.Now().UTC().AddDate(0, -6, 0)
	for i, v := range values {
		f.history[metric] = append(f.history[metric], contracts.MetricObservation{
			MetricName: metric,
			Timestamp:  base.AddDate(0, 0, i),
			Value:      v,
		})
	}
}

func (f *fakePlanningStore) ObservationsSince(_ context.Context, metric string, _ time.Time) ([]contracts.MetricObservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[metric], nil
}

func (f *fakePlanningStore) InsertScenarioSet(_ context.Context, projections []contracts.ScenarioProjection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scenarioSets = append(f.scenarioSets, projections)
	return nil
}

func (f *fakePlanningStore) InsertSimulation(_ context.Context, run *montecarlo.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simulations = append(f.simulations, run)
	return nil
}

type fakeForecaster struct {
	missing map[string]bool
}

func (f *fakeForecaster) Horizon(_ context.Context, metric string, horizonDays int, _ float64) (*scenario.BaseForecast, error) {
	if f.missing[metric] {
		return nil, fmt.Errorf("forecast %s/%dd: %w", metric, horizonDays, contracts.ErrDataUnavailable)
	}
	return &scenario.BaseForecast{PointEstimate: 1000, CILower: 900, CIUpper: 1100}, nil
}

func planningConfig() PlanningConfig {
	return PlanningConfig{
		HorizonDays:       30,
		Confidence:        0.95,
		SimulationRuns:    200,
		SimulationSeed:    99,
		HistoryWindowDays: 365,
		NarrativeTimeout:  time.Second,
	}
}

func TestPlanningCycleFansOutPerMetric(t *testing.T) {
	store := newFakePlanningStore()
	store.seedHistory("revenue_total", 95, 100, 105, 98, 102)
	store.seedHistory("customer_churn", 3.4, 3.6, 3.5, 3.3, 3.7)

	cycle := NewPlanningCycle(store, &fakeForecaster{}, &fakeNarrator{}, planningConfig())

	summary := cycle.Run(context.Background(), []string{"revenue_total", "customer_churn"}, time.Now().UTC())

	assert.Equal(t, 2, summary.Metrics)
	assert.Equal(t, 2, summary.ScenarioSets)
	assert.Equal(t, 2, summary.Simulations)
	assert.Equal(t, 0, summary.Skipped)

	require.Len(t, store.scenarioSets, 2)
	for _, set := range store.scenarioSets {
		require.Len(t, set, 4)
		for _, p := range set {
			require.NotNil(t, p.Narrative, "scenarios carry narrative enrichment")
		}
	}
	assert.Len(t, store.simulations, 2)
}

func TestPlanningCycleMissingForecastStillSimulates(t *testing.T) {
	store := newFakePlanningStore()
	store.seedHistory("revenue_total", 95, 100, 105, 98, 102)

	forecaster := &fakeForecaster{missing: map[string]bool{"revenue_total": true}}
	cycle := NewPlanningCycle(store, forecaster, &fakeNarrator{}, planningConfig())

	summary := cycle.Run(context.Background(), []string{"revenue_total"}, time.Now().UTC())

	assert.Equal(t, 0, summary.ScenarioSets, "DataUnavailable blocks scenarios only")
	assert.Equal(t, 1, summary.Simulations)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, store.scenarioSets)
	assert.Len(t, store.simulations, 1)
}

func TestPlanningCycleNarrativeFailureUsesFallback(t *testing.T) {
	store := newFakePlanningStore()
	store.seedHistory("revenue_total", 95, 100, 105, 98, 102)

	narrator := &fakeNarrator{scenarioErr: contracts.ErrExternalServiceTimeout}
	cycle := NewPlanningCycle(store, &fakeForecaster{}, narrator, planningConfig())

	summary := cycle.Run(context.Background(), []string{"revenue_total"}, time.Now().UTC())

	assert.Equal(t, 1, summary.ScenarioSets, "numeric contract holds without the narrative service")
	require.Len(t, store.scenarioSets, 1)
	for _, p := range store.scenarioSets[0] {
		require.NotNil(t, p.Narrative)
		assert.NotEmpty(t, p.Narrative.Assumptions)
	}
}

func TestPlanningCycleCancelledBeforeStart(t *testing.T) {
	store := newFakePlanningStore()
	store.seedHistory("revenue_total", 95, 100, 105, 98, 102)

	cycle := NewPlanningCycle(store, &fakeForecaster{}, &fakeNarrator{}, planningConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := cycle.Run(ctx, []string{"revenue_total", "customer_churn"}, time.Now().UTC())

	assert.Equal(t, 0, summary.ScenarioSets)
	assert.Equal(t, 0, summary.Simulations)
	assert.Empty(t, store.scenarioSets)
	assert.Empty(t, store.simulations)
}

func TestPlanningCycleDeterministicPerMetric(t *testing.T) {
	runOnce := func() []*montecarlo.Run {
		store := newFakePlanningStore()
		store.seedHistory("revenue_total", 95, 100, 105, 98, 102)
		cycle := NewPlanningCycle(store, &fakeForecaster{}, &fakeNarrator{}, planningConfig())
		cycle.Run(context.Background(), []string{"revenue_total"}, time.Now().UTC())
		return store.simulations
	}

	first := runOnce()
	second := runOnce()
	require.Len(t, first, 1)
	require.Len(t, second, 1)

	assert.Equal(t, first[0].Samples, second[0].Samples, "fixed seed reproduces simulation output across cycles")
}
