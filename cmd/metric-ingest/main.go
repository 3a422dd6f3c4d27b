package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/kafka-go"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/config"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/contracts"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/httpx"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/mq"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/storage"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("metric-ingest database error: %v", err)
	}
	defer dbPool.Close()

	if err := storage.RunMigrations(ctx, dbPool); err != nil {
		log.Fatalf("metric-ingest migration error: %v", err)
	}

	repo := storage.NewRepository(dbPool)

	writer := mq.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopicMetrics)
	defer writer.Close()

	if cfg.SimulatorTick > 0 {
		go runSimulator(ctx, repo, writer, cfg.SimulatorTick)
	}

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "metric-ingest"})
	})

	router.Post("/v1/observations", func(w http.ResponseWriter, r *http.Request) {
		var payload contracts.MetricObservation
		if err := httpx.DecodeJSON(r, &payload); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err)
			return
		}

		if strings.TrimSpace(payload.MetricName) == "" {
			httpx.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "metric_name is required"})
			return
		}
		normalize(&payload)

		if err := repo.UpsertObservation(r.Context(), payload); err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, err)
			return
		}

		if err := mq.PublishJSON(r.Context(), writer, payload.Key(), payload); err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, err)
			return
		}

		httpx.WriteJSON(w, http.StatusAccepted, payload)
	})

	router.Post("/v1/observations/batch", func(w http.ResponseWriter, r *http.Request) {
		var payload []contracts.MetricObservation
		if err := httpx.DecodeJSON(r, &payload); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err)
			return
		}

		accepted := 0
		for i := range payload {
			if strings.TrimSpace(payload[i].MetricName) == "" {
				continue
			}
			normalize(&payload[i])
			if err := repo.UpsertObservation(r.Context(), payload[i]); err != nil {
				log.Printf("metric-ingest batch store error: %v", err)
				break
			}
			if err := mq.PublishJSON(r.Context(), writer, payload[i].Key(), payload[i]); err != nil {
				log.Printf("metric-ingest batch publish error: %v", err)
				break
			}
			accepted++
		}

		httpx.WriteJSON(w, http.StatusAccepted, map[string]any{"received": len(payload), "accepted": accepted})
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("metric-ingest listening on %s", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("metric-ingest server error: %v", err)
	}
}

func normalize(obs *contracts.MetricObservation) {
	obs.MetricName = strings.ToLower(strings.TrimSpace(obs.MetricName))
	if obs.Timestamp.IsZero() {
		obs.Timestamp = time.Now().UTC()
	}
}

func runSimulator(ctx context.Context, repo *storage.Repository, writer *kafka.Writer, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			obs := randomObservation()
			if err := repo.UpsertObservation(ctx, obs); err != nil {
				log.Printf("simulator store error: %v", err)
				continue
			}
			if err := mq.PublishJSON(ctx, writer, obs.Key(), obs); err != nil {
				log.Printf("simulator publish error: %v", err)
			}
		}
	}
}

func randomObservation() contracts.MetricObservation {
	metrics := []string{
		"revenue_growth_rate",
		"customer_acquisition",
		"customer_churn_rate",
		"operational_throughput",
		"support_ticket_volume",
	}
	bases := map[string]float64{
		"revenue_growth_rate":    12,
		"customer_acquisition":   100,
		"customer_churn_rate":    3.5,
		"operational_throughput": 4800,
		"support_ticket_volume":  220,
	}

	name := metrics[rand.Intn(len(metrics))]
	base := bases[name]

	return contracts.MetricObservation{
		MetricName: name,
		Timestamp:  time.Now().UTC(),
		Value:      base * (0.8 + rand.Float64()*0.4),
	}
}
