package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/contracts"
)

func baseline(mean, stddev, min, max float64, count int) contracts.MetricBaseline {
	return contracts.MetricBaseline{
		MetricName:  "test_metric",
		Mean:        mean,
		StdDev:      stddev,
		Min:         min,
		Max:         max,
		SampleCount: count,
		WindowDays:  30,
	}
}

func TestDetectCriticalRevenueSpike(t *testing.T) {
	d := NewDetector(0, 0)

	result := d.Detect("monthly_revenue", 75000, baseline(50000, 5000, 40000, 60000, 30))

	assert.True(t, result.IsAnomaly)
	assert.InDelta(t, 5.0, result.AnomalyScore, 1e-9)
	assert.Equal(t, contracts.SeverityCritical, result.SeverityTier)
	assert.True(t, result.NeedsExplanation)
	assert.Equal(t, StatusScored, result.Status)
}

func TestDetectCustomerAcquisitionSpike(t *testing.T) {
	d := NewDetector(0, 0)

	result := d.Detect("customer_acquisition", 500, baseline(100, 20, 60, 140, 90))

	assert.True(t, result.IsAnomaly)
	assert.InDelta(t, 20.0, result.AnomalyScore, 1e-9)
	assert.Equal(t, contracts.SeverityCritical, result.SeverityTier)
}

func TestDetectZeroStdDevNeverFaults(t *testing.T) {
	d := NewDetector(0, 0)

	result := d.Detect("flat_metric", 100, baseline(100, 0, 100, 100, 10))

	assert.False(t, result.IsAnomaly)
	assert.Zero(t, result.AnomalyScore)
	assert.Equal(t, StatusZeroVariance, result.Status)
	assert.Equal(t, contracts.SeverityLow, result.SeverityTier)
}

func TestDetectZeroStdDevRangeViolation(t *testing.T) {
	d := NewDetector(0, 0)

	result := d.Detect("flat_metric", 200, baseline(100, 0, 100, 100, 10))

	assert.True(t, result.IsAnomaly, "range bound above max*1.5 still flags")
	assert.Zero(t, result.AnomalyScore)
	assert.Equal(t, StatusZeroVariance, result.Status)
}

func TestDetectRangeBounds(t *testing.T) {
	d := NewDetector(0, 0)
	b := baseline(100, 50, 80, 120, 30)

	above := d.Detect("m", 181, b) // > 120*1.5
	assert.True(t, above.IsAnomaly)

	below := d.Detect("m", 39, b) // < 80*0.5
	assert.True(t, below.IsAnomaly)

	inside := d.Detect("m", 110, b)
	assert.False(t, inside.IsAnomaly)
}

func TestDetectInsufficientBaseline(t *testing.T) {
	d := NewDetector(0, 0)

	result := d.Detect("new_metric", 1000, baseline(1000, 0, 1000, 1000, 1))

	assert.False(t, result.IsAnomaly)
	assert.Equal(t, StatusInsufficientData, result.Status)
	assert.False(t, result.NeedsExplanation)
}

func TestSeverityFromScoreThresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  contracts.SeverityTier
	}{
		{0, contracts.SeverityLow},
		{2, contracts.SeverityLow},
		{2.1, contracts.SeverityMedium},
		{3, contracts.SeverityMedium},
		{3.1, contracts.SeverityHigh},
		{4, contracts.SeverityHigh},
		{4.1, contracts.SeverityCritical},
		{20, contracts.SeverityCritical},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, SeverityFromScore(tc.score), "score %.1f", tc.score)
	}
}
