package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/config"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/engine"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/forecast"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/narrative"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/storage"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("planning-engine database error: %v", err)
	}
	defer dbPool.Close()

	repo := storage.NewRepository(dbPool)

	forecaster := forecast.NewClient(cfg.ForecastURL, cfg.ForecastTimeout)
	narrator := narrative.NewClient(cfg.NarrativeURL, cfg.NarrativeTimeout)

	cycle := engine.NewPlanningCycle(repo, forecaster, narrator, engine.PlanningConfig{
		HorizonDays:       cfg.ScenarioHorizonDays,
		Confidence:        cfg.ForecastConfidence,
		SimulationRuns:    cfg.SimulationRuns,
		SimulationSeed:    cfg.SimulationSeed,
		HistoryWindowDays: cfg.HistoryWindowDays,
		NarrativeTimeout:  cfg.NarrativeTimeout,
	})

	log.Printf("planning-engine horizon=%dd runs=%d every %s", cfg.ScenarioHorizonDays, cfg.SimulationRuns, cfg.PlanningInterval)

	ticker := time.NewTicker(cfg.PlanningInterval)
	defer ticker.Stop()

	runOnce(ctx, repo, cycle, cfg.BaselineWindowDays)
	for {
		select {
		case <-ctx.Done():
			log.Println("planning-engine shutting down")
			return
		case <-ticker.C:
			runOnce(ctx, repo, cycle, cfg.BaselineWindowDays)
		}
	}
}

func runOnce(ctx context.Context, repo *storage.Repository, cycle *engine.PlanningCycle, activeWindowDays int) {
	now := time.Now().UTC()

	metrics, err := repo.ActiveMetricNames(ctx, now.AddDate(0, 0, -activeWindowDays))
	if err != nil {
		log.Printf("planning-engine active metrics error: %v", err)
		return
	}
	if len(metrics) == 0 {
		log.Println("planning-engine no active metrics")
		return
	}

	summary := cycle.Run(ctx, metrics, now)
	log.Printf("planning-engine cycle metrics=%d scenario_sets=%d simulations=%d skipped=%d",
		summary.Metrics, summary.ScenarioSets, summary.Simulations, summary.Skipped)
}
