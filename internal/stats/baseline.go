package stats

import (
	"math"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/contracts"
)

// MinSamples is the smallest window that yields a usable baseline.
const MinSamples = 2

// Compute aggregates the rolling distribution summary for a metric. The
// caller supplies observations already filtered to the lookback window.
// A short or empty window produces an insufficient baseline, not an error,
// and a zero standard deviation is a valid result.
func Compute(metricName string, observations []contracts.MetricObservation, windowDays int) contracts.MetricBaseline {
	baseline := contracts.MetricBaseline{
		MetricName: metricName,
		WindowDays: windowDays,
	}
	if len(observations) == 0 {
		return baseline
	}

	min := observations[0].Value
	max := observations[0].Value
	sum := 0.0
	for _, obs := range observations {
		if obs.Value < min {
			min = obs.Value
		}
		if obs.Value > max {
			max = obs.Value
		}
		sum += obs.Value
	}

	n := len(observations)
	mean := sum / float64(n)

	variance := 0.0
	if n >= MinSamples {
		for _, obs := range observations {
			d := obs.Value - mean
			variance += d * d
		}
		variance /= float64(n - 1)
	}

	baseline.Mean = mean
	baseline.StdDev = math.Sqrt(variance)
	baseline.Min = min
	baseline.Max = max
	baseline.SampleCount = n

	return baseline
}
