package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/anomaly"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/config"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/contracts"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/engine"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/mq"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/narrative"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/storage"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("anomaly-engine database error: %v", err)
	}
	defer dbPool.Close()

	repo := storage.NewRepository(dbPool)

	reader := mq.NewReader(cfg.KafkaBrokers, cfg.KafkaTopicMetrics, cfg.ConsumerGroupPrefix+"-anomaly-engine")
	defer reader.Close()

	anomalyWriter := mq.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopicAnomalies)
	defer anomalyWriter.Close()

	alertWriter := mq.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopicAlerts)
	defer alertWriter.Close()

	detector := anomaly.NewDetector(cfg.AnomalyZThreshold, cfg.MinBaselineSamples)
	narrator := narrative.NewClient(cfg.NarrativeURL, cfg.NarrativeTimeout)

	pipeline := engine.NewDetectionPipeline(repo, detector, cfg.BaselineWindowDays, cfg.NarrativeTimeout).
		WithNarrator(narrator).
		WithPublishers(mq.JSONPublisher{Writer: anomalyWriter}, mq.AlertPublisher{Writer: alertWriter})

	log.Printf("anomaly-engine consuming %s, window=%dd z>%.1f", cfg.KafkaTopicMetrics, cfg.BaselineWindowDays, cfg.AnomalyZThreshold)
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Println("anomaly-engine shutting down")
				return
			}
			log.Printf("anomaly-engine read error: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		obs, err := mq.ParseMessageJSON[contracts.MetricObservation](msg)
		if err != nil {
			log.Printf("anomaly-engine decode observation error: %v", err)
			continue
		}
		if obs.Timestamp.IsZero() {
			obs.Timestamp = time.Now().UTC()
		}

		result, err := pipeline.Handle(ctx, obs)
		if err != nil {
			log.Printf("anomaly-engine detection error: %v", err)
			continue
		}

		if result.IsAnomaly {
			log.Printf("anomaly %s value=%.2f score=%.2f tier=%s", obs.MetricName, obs.Value, result.AnomalyScore, result.SeverityTier)
		}
	}
}
