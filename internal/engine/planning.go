package engine

import (
	"context"
	"errors"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/contracts"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/montecarlo"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/narrative"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/scenario"
)

// PlanningStore is the repository slice the planning cycle uses.
type PlanningStore interface {
	ObservationsSince(ctx context.Context, metricName string, since time.Time) ([]contracts.MetricObservation, error)
	InsertScenarioSet(ctx context.Context, projections []contracts.ScenarioProjection) error
	InsertSimulation(ctx context.Context, run *montecarlo.Run) error
}

// Forecaster supplies the base forecast for a (metric, horizon).
type Forecaster interface {
	Horizon(ctx context.Context, metricName string, horizonDays int, confidence float64) (*scenario.BaseForecast, error)
}

type PlanningConfig struct {
	HorizonDays       int
	Confidence        float64
	SimulationRuns    int
	SimulationSeed    int64
	HistoryWindowDays int
	NarrativeTimeout  time.Duration
}

// PlanningCycle runs scenario generation and Monte Carlo simulation over
// an explicit batch of metric names. Per-metric work fans out in parallel;
// each metric's results persist as soon as they complete, so an aborted
// cycle keeps everything already finished.
type PlanningCycle struct {
	store      PlanningStore
	forecaster Forecaster
	narrator   Narrator
	cfg        PlanningConfig
}

type PlanningSummary struct {
	Metrics      int `json:"metrics"`
	ScenarioSets int `json:"scenario_sets"`
	Simulations  int `json:"simulations"`
	Skipped      int `json:"skipped"`
}

func NewPlanningCycle(store PlanningStore, forecaster Forecaster, narrator Narrator, cfg PlanningConfig) *PlanningCycle {
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 30
	}
	if cfg.Confidence <= 0 || cfg.Confidence >= 1 {
		cfg.Confidence = 0.95
	}
	if cfg.SimulationRuns <= 0 {
		cfg.SimulationRuns = montecarlo.DefaultRuns
	}
	if cfg.HistoryWindowDays <= 0 {
		cfg.HistoryWindowDays = montecarlo.HistoryWindowDays
	}
	if cfg.NarrativeTimeout <= 0 {
		cfg.NarrativeTimeout = 10 * time.Second
	}
	return &PlanningCycle{
		store:      store,
		forecaster: forecaster,
		narrator:   narrator,
		cfg:        cfg,
	}
}

func (c *PlanningCycle) Run(ctx context.Context, metrics []string, now time.Time) PlanningSummary {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		summary PlanningSummary
	)
	summary.Metrics = len(metrics)

	for _, metric := range metrics {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(metric string) {
			defer wg.Done()

			sets, sims, skipped := c.planMetric(ctx, metric, now)

			mu.Lock()
			summary.ScenarioSets += sets
			summary.Simulations += sims
			summary.Skipped += skipped
			mu.Unlock()
		}(metric)
	}

	wg.Wait()
	return summary
}

func (c *PlanningCycle) planMetric(ctx context.Context, metric string, now time.Time) (sets, sims, skipped int) {
	base, err := c.forecaster.Horizon(ctx, metric, c.cfg.HorizonDays, c.cfg.Confidence)
	switch {
	case err == nil:
		projections, genErr := scenario.Generate(metric, c.cfg.HorizonDays, base, now)
		if genErr != nil {
			log.Printf("planning scenarios for %s: %v", metric, genErr)
			skipped++
		} else {
			c.enrichScenarios(ctx, projections)
			if err := c.store.InsertScenarioSet(ctx, projections); err != nil {
				log.Printf("planning persist scenarios for %s: %v", metric, err)
				skipped++
			} else {
				sets++
			}
		}
	case errors.Is(err, contracts.ErrDataUnavailable):
		log.Printf("planning no forecast for %s over %d days", metric, c.cfg.HorizonDays)
		skipped++
	default:
		log.Printf("planning forecast for %s: %v", metric, err)
		skipped++
	}

	since := now.AddDate(0, 0, -c.cfg.HistoryWindowDays)
	history, err := c.store.ObservationsSince(ctx, metric, since)
	if err != nil {
		log.Printf("planning history for %s: %v", metric, err)
		skipped++
		return sets, sims, skipped
	}

	simulator := montecarlo.NewSimulator(c.seedFor(metric))
	run, err := simulator.Simulate(metric, history, c.cfg.SimulationRuns, c.cfg.HorizonDays)
	if err != nil {
		if errors.Is(err, contracts.ErrInsufficientData) || errors.Is(err, contracts.ErrComputationDegenerate) {
			log.Printf("planning simulation skipped for %s: %v", metric, err)
		} else {
			log.Printf("planning simulation for %s: %v", metric, err)
		}
		skipped++
		return sets, sims, skipped
	}

	if err := c.store.InsertSimulation(ctx, run); err != nil {
		log.Printf("planning persist simulation for %s: %v", metric, err)
		skipped++
		return sets, sims, skipped
	}
	sims++

	return sets, sims, skipped
}

func (c *PlanningCycle) enrichScenarios(ctx context.Context, projections []contracts.ScenarioProjection) {
	if c.narrator == nil {
		return
	}

	for i := range projections {
		payload := narrative.ScenarioContext{
			MetricName:       projections[i].MetricName,
			ScenarioName:     projections[i].ScenarioName,
			ProbabilityScore: projections[i].ProbabilityScore,
			ProjectedOutcome: projections[i].ProjectedOutcome,
			HorizonDays:      projections[i].HorizonDays,
		}

		nctx, cancel := context.WithTimeout(ctx, c.cfg.NarrativeTimeout)
		described, err := c.narrator.DescribeScenario(nctx, payload)
		cancel()
		if err != nil {
			log.Printf("scenario narrative fallback for %s/%s: %v", payload.MetricName, payload.ScenarioName, err)
			described = narrative.FallbackScenario(payload)
		}
		projections[i].Narrative = described
	}
}

// seedFor derives an independent deterministic stream per metric from the
// configured seed. Seed 0 keeps the wall-clock behavior.
func (c *PlanningCycle) seedFor(metric string) int64 {
	if c.cfg.SimulationSeed == 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(metric))
	return c.cfg.SimulationSeed ^ int64(h.Sum64())
}
