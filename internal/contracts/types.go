package contracts

import "time"

type SeverityTier string

const (
	SeverityLow      SeverityTier = "LOW"
	SeverityMedium   SeverityTier = "MEDIUM"
	SeverityHigh     SeverityTier = "HIGH"
	SeverityCritical SeverityTier = "CRITICAL"
)

// Actionable reports whether a tier is severe enough to dispatch an alert.
func (s SeverityTier) Actionable() bool {
	return s == SeverityHigh || s == SeverityCritical
}

type ScenarioName string

const (
	ScenarioOptimistic  ScenarioName = "optimistic"
	ScenarioRealistic   ScenarioName = "realistic"
	ScenarioPessimistic ScenarioName = "pessimistic"
	ScenarioDisruption  ScenarioName = "disruption"
)

type OutcomeBand string

const (
	BandHighlyOptimistic  OutcomeBand = "Highly Optimistic"
	BandOptimistic        OutcomeBand = "Optimistic"
	BandRealistic         OutcomeBand = "Realistic"
	BandPessimistic       OutcomeBand = "Pessimistic"
	BandHighlyPessimistic OutcomeBand = "Highly Pessimistic"
)

type MetricObservation struct {
	MetricName string    `json:"metric_name"`
	Timestamp  time.Time `json:"timestamp"`
	Value      float64   `json:"value"`
}

func (m MetricObservation) Key() string {
	return m.MetricName
}

// MetricBaseline is the rolling distribution summary for a metric over a
// lookback window. Recomputed per cycle, never persisted.
type MetricBaseline struct {
	MetricName  string  `json:"metric_name"`
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"stddev"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	SampleCount int     `json:"sample_count"`
	WindowDays  int     `json:"window_days"`
}

// Sufficient reports whether the baseline carries enough samples to score
// against. A short baseline is a sentinel state, not an error.
func (b MetricBaseline) Sufficient(minSamples int) bool {
	return b.SampleCount >= minSamples
}

// AnomalyNarrative is the structured enrichment returned by the external
// narrative service. Optional; never load-bearing for numeric results.
type AnomalyNarrative struct {
	Explanation        string   `json:"explanation"`
	RecommendedActions []string `json:"recommended_actions"`
}

type AnomalyRecord struct {
	ID            string            `json:"id"`
	MetricName    string            `json:"metric_name"`
	ObservedValue float64           `json:"observed_value"`
	AnomalyScore  float64           `json:"anomaly_score"`
	SeverityTier  SeverityTier      `json:"severity_tier"`
	DetectedAt    time.Time         `json:"detected_at"`
	Resolved      bool              `json:"resolved"`
	Narrative     *AnomalyNarrative `json:"narrative,omitempty"`
}

type RiskPattern struct {
	ID               string       `json:"id"`
	MetricName       string       `json:"metric_name"`
	RiskCategory     string       `json:"risk_category"`
	RiskLevel        SeverityTier `json:"risk_level"`
	ProbabilityScore float64      `json:"probability_score"`
	AnomalyCount     int          `json:"anomaly_count"`
	AvgSeverity      float64      `json:"avg_severity"`
	TimelineUrgency  string       `json:"timeline_urgency"`
	WindowDays       int          `json:"window_days"`
	ComputedAt       time.Time    `json:"computed_at"`
}

// ScenarioNarrative holds the per-scenario free-text fields supplied by the
// narrative service under the strict schema contract.
type ScenarioNarrative struct {
	Assumptions       []string `json:"assumptions"`
	RiskFactors       []string `json:"risk_factors"`
	SuccessIndicators []string `json:"success_indicators"`
}

type ScenarioProjection struct {
	ID               string             `json:"id"`
	MetricName       string             `json:"metric_name"`
	ScenarioName     ScenarioName       `json:"scenario_name"`
	ProbabilityScore float64            `json:"probability_score"`
	ProjectedOutcome float64            `json:"projected_outcome"`
	CILower          float64            `json:"ci_lower"`
	CIUpper          float64            `json:"ci_upper"`
	HorizonDays      int                `json:"horizon_days"`
	Narrative        *ScenarioNarrative `json:"narrative,omitempty"`
	GeneratedAt      time.Time          `json:"generated_at"`
}

type MonteCarloSample struct {
	MetricName             string      `json:"metric_name"`
	OutcomePercentile      float64     `json:"outcome_percentile"`
	ProjectedValue         float64     `json:"projected_value"`
	ProbabilityDensity     float64     `json:"probability_density"`
	ScenarioClassification OutcomeBand `json:"scenario_classification"`
}

// AlertEvent travels over the alerts topic. Kind distinguishes single
// anomalies from aggregated risk patterns.
type AlertEvent struct {
	ID         string       `json:"id"`
	Kind       string       `json:"kind"`
	SourceID   string       `json:"source_id"`
	MetricName string       `json:"metric_name"`
	Severity   SeverityTier `json:"severity"`
	Score      float64      `json:"score"`
	Summary    string       `json:"summary"`
	Timestamp  time.Time    `json:"timestamp"`
}

const (
	AlertKindAnomaly     = "anomaly"
	AlertKindRiskPattern = "risk_pattern"
)

type AlertRecord struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"source_id"`
	SourceKind  string    `json:"source_kind"`
	MetricName  string    `json:"metric_name"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Score       float64   `json:"score"`
	Severity    string    `json:"severity"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
