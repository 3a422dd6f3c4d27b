package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/contracts"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/riskpattern"
)

// RiskStore is the repository slice the risk cycle reads and writes.
type RiskStore interface {
	AnomaliesSince(ctx context.Context, since time.Time) ([]contracts.AnomalyRecord, error)
	InsertRiskPatterns(ctx context.Context, patterns []contracts.RiskPattern) error
}

// RiskCycle recomputes risk patterns from the anomaly store each run.
// An eventually consistent read of the window is acceptable; no
// cross-metric isolation is required.
type RiskCycle struct {
	store      RiskStore
	aggregator *riskpattern.Aggregator
	alerts     AlertSink
	windowDays int
}

func NewRiskCycle(store RiskStore, aggregator *riskpattern.Aggregator, alerts AlertSink, windowDays int) *RiskCycle {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &RiskCycle{
		store:      store,
		aggregator: aggregator,
		alerts:     alerts,
		windowDays: windowDays,
	}
}

func (c *RiskCycle) Run(ctx context.Context, now time.Time) ([]contracts.RiskPattern, error) {
	since := now.AddDate(0, 0, -c.windowDays)
	records, err := c.store.AnomaliesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("scan anomalies since %s: %w", since.Format(time.RFC3339), err)
	}

	patterns := c.aggregator.Aggregate(records, now)
	if len(patterns) == 0 {
		return nil, nil
	}

	if err := c.store.InsertRiskPatterns(ctx, patterns); err != nil {
		return nil, fmt.Errorf("persist risk patterns: %w", err)
	}

	if c.alerts != nil {
		for _, p := range patterns {
			if !p.RiskLevel.Actionable() {
				continue
			}
			event := contracts.AlertEvent{
				ID:         uuid.NewString(),
				Kind:       contracts.AlertKindRiskPattern,
				SourceID:   p.ID,
				MetricName: p.MetricName,
				Severity:   p.RiskLevel,
				Score:      p.ProbabilityScore,
				Summary:    fmt.Sprintf("%s: %d anomalies in %d days, act %s", p.RiskCategory, p.AnomalyCount, p.WindowDays, p.TimelineUrgency),
				Timestamp:  now,
			}
			if err := c.alerts.PublishAlert(ctx, event); err != nil {
				log.Printf("risk cycle alert dispatch for %s: %v", p.MetricName, err)
			}
		}
	}

	return patterns, nil
}
