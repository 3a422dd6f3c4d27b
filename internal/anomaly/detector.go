package anomaly

import (
	"math"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/contracts"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/stats"
)

// Status reports how a detection attempt concluded.
type Status string

const (
	// StatusScored means a full z-score comparison ran.
	StatusScored Status = "scored"
	// StatusInsufficientData means the baseline was too short to score.
	StatusInsufficientData Status = "insufficient_data"
	// StatusZeroVariance means the baseline has no spread; only the
	// range bounds were checked.
	StatusZeroVariance Status = "zero_variance"
)

// DefaultZThreshold is the z-score above which an observation is anomalous.
const DefaultZThreshold = 3.0

const (
	rangeUpperFactor = 1.5
	rangeLowerFactor = 0.5
)

type Result struct {
	MetricName       string                   `json:"metric_name"`
	ObservedValue    float64                  `json:"observed_value"`
	IsAnomaly        bool                     `json:"is_anomaly"`
	AnomalyScore     float64                  `json:"anomaly_score"`
	SeverityTier     contracts.SeverityTier   `json:"severity_tier"`
	NeedsExplanation bool                     `json:"needs_explanation"`
	Status           Status                   `json:"status"`
	Baseline         contracts.MetricBaseline `json:"baseline"`
}

type Detector struct {
	zThreshold float64
	minSamples int
}

func NewDetector(zThreshold float64, minSamples int) *Detector {
	if zThreshold <= 0 {
		zThreshold = DefaultZThreshold
	}
	if minSamples <= 0 {
		minSamples = stats.MinSamples
	}
	return &Detector{zThreshold: zThreshold, minSamples: minSamples}
}

// Detect scores a current observation against its baseline. A missing or
// short baseline never faults: it yields an insufficient-data result with
// IsAnomaly=false. Zero variance falls back to the range check alone.
func (d *Detector) Detect(metricName string, current float64, baseline contracts.MetricBaseline) Result {
	result := Result{
		MetricName:    metricName,
		ObservedValue: current,
		SeverityTier:  contracts.SeverityLow,
		Baseline:      baseline,
	}

	if !baseline.Sufficient(d.minSamples) {
		result.Status = StatusInsufficientData
		return result
	}

	z := 0.0
	if baseline.StdDev > 0 {
		z = math.Abs(current-baseline.Mean) / baseline.StdDev
		result.Status = StatusScored
	} else {
		result.Status = StatusZeroVariance
	}

	outOfRange := current > baseline.Max*rangeUpperFactor || current < baseline.Min*rangeLowerFactor

	result.AnomalyScore = z
	result.IsAnomaly = z > d.zThreshold || outOfRange
	result.SeverityTier = SeverityFromScore(z)
	result.NeedsExplanation = result.IsAnomaly

	return result
}

// SeverityFromScore maps an anomaly score onto its tier. Pure threshold
// function; tiers are never assigned any other way.
func SeverityFromScore(score float64) contracts.SeverityTier {
	switch {
	case score > 4:
		return contracts.SeverityCritical
	case score > 3:
		return contracts.SeverityHigh
	case score > 2:
		return contracts.SeverityMedium
	default:
		return contracts.SeverityLow
	}
}
