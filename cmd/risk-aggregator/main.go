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
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/mq"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/riskpattern"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/storage"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("risk-aggregator database error: %v", err)
	}
	defer dbPool.Close()

	repo := storage.NewRepository(dbPool)

	alertWriter := mq.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopicAlerts)
	defer alertWriter.Close()

	aggregator := riskpattern.NewAggregator(cfg.RiskWindowDays, cfg.RiskMinRepeat)
	cycle := engine.NewRiskCycle(repo, aggregator, mq.AlertPublisher{Writer: alertWriter}, cfg.RiskWindowDays)

	log.Printf("risk-aggregator window=%dd min_repeat=%d every %s", cfg.RiskWindowDays, cfg.RiskMinRepeat, cfg.RiskCycleInterval)

	ticker := time.NewTicker(cfg.RiskCycleInterval)
	defer ticker.Stop()

	runOnce(ctx, cycle)
	for {
		select {
		case <-ctx.Done():
			log.Println("risk-aggregator shutting down")
			return
		case <-ticker.C:
			runOnce(ctx, cycle)
		}
	}
}

func runOnce(ctx context.Context, cycle *engine.RiskCycle) {
	patterns, err := cycle.Run(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("risk-aggregator cycle error: %v", err)
		return
	}
	if len(patterns) > 0 {
		log.Printf("risk-aggregator emitted %d patterns", len(patterns))
	}
}
