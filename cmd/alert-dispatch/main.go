package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/config"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/contracts"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/mq"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/storage"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("alert-dispatch database error: %v", err)
	}
	defer dbPool.Close()

	repo := storage.NewRepository(dbPool)

	reader := mq.NewReader(cfg.KafkaBrokers, cfg.KafkaTopicAlerts, cfg.ConsumerGroupPrefix+"-alert-dispatch")
	defer reader.Close()

	log.Printf("alert-dispatch consuming %s cooldown=%s", cfg.KafkaTopicAlerts, cfg.AlertCooldown)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Println("alert-dispatch shutting down")
				return
			}
			log.Printf("alert-dispatch read error: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		event, err := mq.ParseMessageJSON[contracts.AlertEvent](msg)
		if err != nil {
			log.Printf("alert-dispatch decode event error: %v", err)
			continue
		}

		if !event.Severity.Actionable() {
			continue
		}

		exists, err := repo.HasOpenAlertInCooldown(ctx, event.MetricName, cfg.AlertCooldown)
		if err != nil {
			log.Printf("alert-dispatch cooldown check error: %v", err)
			continue
		}
		if exists {
			continue
		}

		alert := contracts.AlertRecord{
			ID:          uuid.NewString(),
			SourceID:    event.SourceID,
			SourceKind:  event.Kind,
			MetricName:  event.MetricName,
			Title:       title(event),
			Description: event.Summary,
			Score:       event.Score,
			Severity:    strings.ToLower(string(event.Severity)),
			Status:      "open",
		}

		if err := repo.InsertAlert(ctx, alert); err != nil {
			log.Printf("alert-dispatch insert alert error: %v", err)
			continue
		}

		log.Printf("alert created id=%s metric=%s severity=%s", alert.ID, alert.MetricName, alert.Severity)
	}
}

func title(event contracts.AlertEvent) string {
	if event.Kind == contracts.AlertKindRiskPattern {
		return fmt.Sprintf("Recurring risk on %s", event.MetricName)
	}
	return fmt.Sprintf("%s anomaly on %s", event.Severity, event.MetricName)
}
