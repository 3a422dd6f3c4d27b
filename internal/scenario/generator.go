package scenario

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/contracts"
)

// BaseForecast is the point estimate and confidence interval supplied by
// the external forecasting collaborator for one (metric, horizon).
type BaseForecast struct {
	PointEstimate float64 `json:"point_estimate"`
	CILower       float64 `json:"ci_lower"`
	CIUpper       float64 `json:"ci_upper"`
}

// The fixed scenario table. Weights sum to exactly 1.0; multipliers and
// weights are tunable constants, not fitted probabilities.
var table = []struct {
	name       contracts.ScenarioName
	multiplier float64
	weight     float64
}{
	{contracts.ScenarioOptimistic, 1.2, 0.25},
	{contracts.ScenarioRealistic, 1.0, 0.50},
	{contracts.ScenarioPessimistic, 0.8, 0.20},
	{contracts.ScenarioDisruption, 0.6, 0.05},
}

// Asymmetric interval spread: tails widen under every scenario.
const (
	lowerSpread = 0.9
	upperSpread = 1.1
)

// Generate produces exactly four weighted projections for a metric and
// horizon, or none at all. A missing base forecast is DataUnavailable;
// partially populated scenario sets are never emitted.
func Generate(metricName string, horizonDays int, base *BaseForecast, generatedAt time.Time) ([]contracts.ScenarioProjection, error) {
	if horizonDays <= 0 {
		return nil, fmt.Errorf("horizon_days %d: must be positive", horizonDays)
	}
	if base == nil {
		return nil, fmt.Errorf("no base forecast for %s over %d days: %w", metricName, horizonDays, contracts.ErrDataUnavailable)
	}

	projections := make([]contracts.ScenarioProjection, 0, len(table))
	for _, row := range table {
		lower := base.CILower * row.multiplier * lowerSpread
		upper := base.CIUpper * row.multiplier * upperSpread
		if lower > upper {
			lower, upper = upper, lower
		}

		projections = append(projections, contracts.ScenarioProjection{
			ID:               uuid.NewString(),
			MetricName:       metricName,
			ScenarioName:     row.name,
			ProbabilityScore: row.weight,
			ProjectedOutcome: base.PointEstimate * row.multiplier,
			CILower:          lower,
			CIUpper:          upper,
			HorizonDays:      horizonDays,
			GeneratedAt:      generatedAt,
		})
	}

	return projections, nil
}
