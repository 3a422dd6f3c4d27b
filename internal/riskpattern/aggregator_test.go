package riskpattern

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/contracts"
)

func anomalies(metric string, scores ...float64) []contracts.AnomalyRecord {
	base := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	out := make([]contracts.AnomalyRecord, len(scores))
	for i, score := range scores {
		out[i] = contracts.AnomalyRecord{
			ID:            uuid.NewString(),
			MetricName:    metric,
			ObservedValue: 100 + score,
			AnomalyScore:  score,
			SeverityTier:  contracts.SeverityMedium,
			DetectedAt:    base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func TestAggregateMinRepeatBoundary(t *testing.T) {
	agg := NewAggregator(7, 3)
	now := time.Now().UTC()

	two := agg.Aggregate(anomalies("revenue_growth", 3, 3), now)
	assert.Empty(t, two, "below min repeat count")

	three := agg.Aggregate(anomalies("revenue_growth", 3, 3, 3), now)
	require.Len(t, three, 1, "at min repeat count")
	assert.Equal(t, 3, three[0].AnomalyCount)
}

func TestAggregateRiskLevels(t *testing.T) {
	agg := NewAggregator(7, 3)
	now := time.Now().UTC()

	critical := agg.Aggregate(anomalies("m", 4.5, 1, 1, 1, 1, 1), now)
	require.Len(t, critical, 1)
	assert.Equal(t, contracts.SeverityCritical, critical[0].RiskLevel)
	assert.Equal(t, "within 24 hours", critical[0].TimelineUrgency)

	high := agg.Aggregate(anomalies("m", 3.5, 1, 1, 1), now)
	require.Len(t, high, 1)
	assert.Equal(t, contracts.SeverityHigh, high[0].RiskLevel)
	assert.Equal(t, "within 72 hours", high[0].TimelineUrgency)

	medium := agg.Aggregate(anomalies("m", 2.5, 2.5, 2.5), now)
	require.Len(t, medium, 1)
	assert.Equal(t, contracts.SeverityMedium, medium[0].RiskLevel)
	assert.Equal(t, "within 1 week", medium[0].TimelineUrgency)

	low := agg.Aggregate(anomalies("m", 1, 1, 1), now)
	require.Len(t, low, 1)
	assert.Equal(t, contracts.SeverityLow, low[0].RiskLevel)
	assert.Equal(t, "within 1 month", low[0].TimelineUrgency)
}

func TestAggregateProbabilityScore(t *testing.T) {
	agg := NewAggregator(7, 3)
	now := time.Now().UTC()

	// 4 anomalies averaging 2.5 -> 4*2.5/20 = 0.5
	patterns := agg.Aggregate(anomalies("m", 2.5, 2.5, 2.5, 2.5), now)
	require.Len(t, patterns, 1)
	assert.InDelta(t, 0.5, patterns[0].ProbabilityScore, 1e-9)
	assert.InDelta(t, 2.5, patterns[0].AvgSeverity, 1e-9)
}

func TestAggregateProbabilityBounded(t *testing.T) {
	agg := NewAggregator(7, 3)

	patterns := agg.Aggregate(anomalies("m", 10, 10, 10, 10, 10, 10, 10, 10), time.Now().UTC())
	require.Len(t, patterns, 1)
	assert.Equal(t, 1.0, patterns[0].ProbabilityScore, "heuristic caps at 1.0")
}

func TestAggregateGroupsByMetric(t *testing.T) {
	agg := NewAggregator(7, 3)
	records := append(anomalies("revenue_total", 5, 5, 5, 5), anomalies("customer_churn", 1, 1)...)

	patterns := agg.Aggregate(records, time.Now().UTC())
	require.Len(t, patterns, 1, "only the repeated metric qualifies")
	assert.Equal(t, "revenue_total", patterns[0].MetricName)
	assert.Equal(t, CategoryFinancial, patterns[0].RiskCategory)
	assert.Equal(t, 7, patterns[0].WindowDays)
}

func TestAggregateSortsByProbability(t *testing.T) {
	agg := NewAggregator(7, 3)
	records := append(anomalies("metric_a", 1, 1, 1), anomalies("metric_b", 4, 4, 4, 4)...)

	patterns := agg.Aggregate(records, time.Now().UTC())
	require.Len(t, patterns, 2)
	assert.Equal(t, "metric_b", patterns[0].MetricName)
	assert.Equal(t, "metric_a", patterns[1].MetricName)
}

func TestCategorize(t *testing.T) {
	cases := map[string]string{
		"revenue_growth_rate":    CategoryFinancial,
		"financial_margin":       CategoryFinancial,
		"customer_churn_rate":    CategoryCustomer,
		"operational_throughput": CategoryOperational,
		"website_visits":         CategoryGeneral,
		"Customer_Acquisition":   CategoryCustomer,
	}
	for metric, want := range cases {
		assert.Equal(t, want, Categorize(metric), metric)
	}
}
