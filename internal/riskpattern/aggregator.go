package riskpattern

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/contracts"
)

// DefaultMinRepeat is the anomaly count at which a metric is promoted to a
// risk pattern.
const DefaultMinRepeat = 3

// probabilityDivisor bounds the count*severity heuristic into [0,1].
// Tunable constant, not statistically derived.
const probabilityDivisor = 20.0

const (
	CategoryFinancial   = "Financial Performance"
	CategoryCustomer    = "Customer Satisfaction"
	CategoryOperational = "Operational Efficiency"
	CategoryGeneral     = "General Business"
)

type Aggregator struct {
	windowDays int
	minRepeat  int
}

func NewAggregator(windowDays, minRepeat int) *Aggregator {
	if windowDays <= 0 {
		windowDays = 7
	}
	if minRepeat <= 0 {
		minRepeat = DefaultMinRepeat
	}
	return &Aggregator{windowDays: windowDays, minRepeat: minRepeat}
}

// Aggregate scans anomaly records already scoped to the analysis window and
// promotes metrics with at least minRepeat anomalies into risk patterns.
// Patterns are snapshots recomputed per run, not incremental state.
func (a *Aggregator) Aggregate(records []contracts.AnomalyRecord, computedAt time.Time) []contracts.RiskPattern {
	byMetric := make(map[string][]contracts.AnomalyRecord)
	for _, rec := range records {
		byMetric[rec.MetricName] = append(byMetric[rec.MetricName], rec)
	}

	patterns := make([]contracts.RiskPattern, 0, len(byMetric))
	for metric, group := range byMetric {
		if len(group) < a.minRepeat {
			continue
		}

		maxScore := 0.0
		total := 0.0
		for _, rec := range group {
			if rec.AnomalyScore > maxScore {
				maxScore = rec.AnomalyScore
			}
			total += rec.AnomalyScore
		}
		count := len(group)
		avgScore := total / float64(count)

		level := riskLevel(maxScore, avgScore, count)

		patterns = append(patterns, contracts.RiskPattern{
			ID:               uuid.NewString(),
			MetricName:       metric,
			RiskCategory:     Categorize(metric),
			RiskLevel:        level,
			ProbabilityScore: math.Min(1.0, float64(count)*avgScore/probabilityDivisor),
			AnomalyCount:     count,
			AvgSeverity:      avgScore,
			TimelineUrgency:  urgency(level),
			WindowDays:       a.windowDays,
			ComputedAt:       computedAt,
		})
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].ProbabilityScore != patterns[j].ProbabilityScore {
			return patterns[i].ProbabilityScore > patterns[j].ProbabilityScore
		}
		return patterns[i].MetricName < patterns[j].MetricName
	})

	return patterns
}

// Categorize derives a business category from the metric name via a fixed
// keyword taxonomy.
func Categorize(metricName string) string {
	name := strings.ToLower(metricName)
	switch {
	case strings.Contains(name, "revenue") || strings.Contains(name, "financial"):
		return CategoryFinancial
	case strings.Contains(name, "customer"):
		return CategoryCustomer
	case strings.Contains(name, "operational"):
		return CategoryOperational
	default:
		return CategoryGeneral
	}
}

func riskLevel(maxScore, avgScore float64, count int) contracts.SeverityTier {
	switch {
	case maxScore > 4 && count > 5:
		return contracts.SeverityCritical
	case maxScore > 3 && count > 3:
		return contracts.SeverityHigh
	case avgScore > 2:
		return contracts.SeverityMedium
	default:
		return contracts.SeverityLow
	}
}

func urgency(level contracts.SeverityTier) string {
	switch level {
	case contracts.SeverityCritical:
		return "within 24 hours"
	case contracts.SeverityHigh:
		return "within 72 hours"
	case contracts.SeverityMedium:
		return "within 1 week"
	default:
		return "within 1 month"
	}
}
