package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/anomaly"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/contracts"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/narrative"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/riskpattern"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/stats"
)

// Publisher pushes a JSON payload onto a topic.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

// AlertSink dispatches actionable events to the alert channel.
type AlertSink interface {
	PublishAlert(ctx context.Context, event contracts.AlertEvent) error
}

// Narrator is the best-effort narrative boundary.
type Narrator interface {
	ExplainAnomaly(ctx context.Context, payload narrative.AnomalyContext) (*contracts.AnomalyNarrative, error)
	DescribeScenario(ctx context.Context, payload narrative.ScenarioContext) (*contracts.ScenarioNarrative, error)
}

// DetectionStore is the slice of the repository detection needs.
type DetectionStore interface {
	ObservationsSince(ctx context.Context, metricName string, since time.Time) ([]contracts.MetricObservation, error)
	UpsertAnomaly(ctx context.Context, record contracts.AnomalyRecord) error
}

// DetectionPipeline scores one observation at a time: baseline from the
// metric store, z-score detection, idempotent persistence, then optional
// narrative enrichment and alert dispatch. Numeric persistence always
// happens before and independent of the narrative call.
type DetectionPipeline struct {
	store            DetectionStore
	detector         *anomaly.Detector
	narrator         Narrator
	anomalies        Publisher
	alerts           AlertSink
	windowDays       int
	narrativeTimeout time.Duration
}

func NewDetectionPipeline(store DetectionStore, detector *anomaly.Detector, windowDays int, narrativeTimeout time.Duration) *DetectionPipeline {
	if windowDays <= 0 {
		windowDays = 30
	}
	if narrativeTimeout <= 0 {
		narrativeTimeout = 10 * time.Second
	}
	return &DetectionPipeline{
		store:            store,
		detector:         detector,
		windowDays:       windowDays,
		narrativeTimeout: narrativeTimeout,
	}
}

func (p *DetectionPipeline) WithNarrator(n Narrator) *DetectionPipeline {
	p.narrator = n
	return p
}

func (p *DetectionPipeline) WithPublishers(anomalies Publisher, alerts AlertSink) *DetectionPipeline {
	p.anomalies = anomalies
	p.alerts = alerts
	return p
}

func (p *DetectionPipeline) Handle(ctx context.Context, obs contracts.MetricObservation) (anomaly.Result, error) {
	since := obs.Timestamp.AddDate(0, 0, -p.windowDays)
	history, err := p.store.ObservationsSince(ctx, obs.MetricName, since)
	if err != nil {
		return anomaly.Result{}, fmt.Errorf("load history for %s: %w", obs.MetricName, err)
	}

	baseline := stats.Compute(obs.MetricName, history, p.windowDays)
	result := p.detector.Detect(obs.MetricName, obs.Value, baseline)
	if !result.IsAnomaly {
		return result, nil
	}

	record := contracts.AnomalyRecord{
		ID:            uuid.NewString(),
		MetricName:    obs.MetricName,
		ObservedValue: obs.Value,
		AnomalyScore:  result.AnomalyScore,
		SeverityTier:  result.SeverityTier,
		DetectedAt:    obs.Timestamp,
	}

	if err := p.store.UpsertAnomaly(ctx, record); err != nil {
		return result, fmt.Errorf("persist anomaly for %s: %w", obs.MetricName, err)
	}

	if result.NeedsExplanation && p.narrator != nil {
		record.Narrative = p.explain(ctx, record, baseline)
		if record.Narrative != nil {
			if err := p.store.UpsertAnomaly(ctx, record); err != nil {
				log.Printf("detection attach narrative for %s: %v", obs.MetricName, err)
			}
		}
	}

	if p.anomalies != nil {
		if err := p.anomalies.Publish(ctx, record.MetricName, record); err != nil {
			log.Printf("detection publish anomaly for %s: %v", obs.MetricName, err)
		}
	}

	if result.SeverityTier.Actionable() && p.alerts != nil {
		event := contracts.AlertEvent{
			ID:         uuid.NewString(),
			Kind:       contracts.AlertKindAnomaly,
			SourceID:   record.ID,
			MetricName: record.MetricName,
			Severity:   record.SeverityTier,
			Score:      record.AnomalyScore,
			Summary:    fmt.Sprintf("%s observed at %.2f scored %.2f", record.MetricName, record.ObservedValue, record.AnomalyScore),
			Timestamp:  record.DetectedAt,
		}
		if err := p.alerts.PublishAlert(ctx, event); err != nil {
			log.Printf("detection alert dispatch for %s: %v", obs.MetricName, err)
		}
	}

	return result, nil
}

func (p *DetectionPipeline) explain(ctx context.Context, record contracts.AnomalyRecord, baseline contracts.MetricBaseline) *contracts.AnomalyNarrative {
	payload := narrative.AnomalyContext{
		MetricName:    record.MetricName,
		ObservedValue: record.ObservedValue,
		AnomalyScore:  record.AnomalyScore,
		SeverityTier:  record.SeverityTier,
		Category:      riskpattern.Categorize(record.MetricName),
		Baseline:      baseline,
	}

	nctx, cancel := context.WithTimeout(ctx, p.narrativeTimeout)
	defer cancel()

	explanation, err := p.narrator.ExplainAnomaly(nctx, payload)
	if err != nil {
		log.Printf("narrative fallback for %s: %v", record.MetricName, err)
		return narrative.FallbackAnomaly(payload)
	}
	return explanation
}
