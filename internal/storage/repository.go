package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/contracts"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/montecarlo"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) UpsertObservation(ctx context.Context, obs contracts.MetricObservation) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO metric_observations (metric_name, observed_at, value)
        VALUES ($1, $2, $3)
        ON CONFLICT (metric_name, observed_at) DO UPDATE SET value = EXCLUDED.value
    `, obs.MetricName, obs.Timestamp, obs.Value)
	if err != nil {
		return fmt.Errorf("upsert observation: %w", err)
	}
	return nil
}

func (r *Repository) ObservationsSince(ctx context.Context, metricName string, since time.Time) ([]contracts.MetricObservation, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT metric_name, observed_at, value
        FROM metric_observations
        WHERE metric_name = $1 AND observed_at >= $2
        ORDER BY observed_at ASC
    `, metricName, since)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var observations []contracts.MetricObservation
	for rows.Next() {
		var obs contracts.MetricObservation
		if err := rows.Scan(&obs.MetricName, &obs.Timestamp, &obs.Value); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		observations = append(observations, obs)
	}

	return observations, nil
}

// ActiveMetricNames lists metrics with observations since the cutoff. Each
// cycle receives this as its explicit input collection.
func (r *Repository) ActiveMetricNames(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT DISTINCT metric_name
        FROM metric_observations
        WHERE observed_at >= $1
        ORDER BY metric_name
    `, since)
	if err != nil {
		return nil, fmt.Errorf("query active metrics: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan metric name: %w", err)
		}
		names = append(names, name)
	}

	return names, nil
}

// UpsertAnomaly persists an anomaly record keyed on (metric_name,
// detected_at) so overlapping cycle runs never duplicate records.
func (r *Repository) UpsertAnomaly(ctx context.Context, record contracts.AnomalyRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	var narrative any
	if record.Narrative != nil {
		body, err := json.Marshal(record.Narrative)
		if err != nil {
			return fmt.Errorf("marshal narrative: %w", err)
		}
		narrative = string(body)
	}

	_, err := r.pool.Exec(ctx, `
        INSERT INTO anomalies
            (id, metric_name, observed_value, anomaly_score, severity_tier, detected_at, resolved, narrative)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
        ON CONFLICT (metric_name, detected_at) DO UPDATE SET
            observed_value = EXCLUDED.observed_value,
            anomaly_score = EXCLUDED.anomaly_score,
            severity_tier = EXCLUDED.severity_tier,
            narrative = COALESCE(EXCLUDED.narrative, anomalies.narrative)
    `, record.ID, record.MetricName, record.ObservedValue, record.AnomalyScore, record.SeverityTier, record.DetectedAt, record.Resolved, narrative)
	if err != nil {
		return fmt.Errorf("upsert anomaly: %w", err)
	}

	return nil
}

func (r *Repository) AnomaliesSince(ctx context.Context, since time.Time) ([]contracts.AnomalyRecord, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, metric_name, observed_value, anomaly_score, severity_tier, detected_at, resolved, narrative
        FROM anomalies
        WHERE detected_at >= $1
        ORDER BY detected_at DESC
    `, since)
	if err != nil {
		return nil, fmt.Errorf("query anomalies: %w", err)
	}
	defer rows.Close()

	return scanAnomalies(rows)
}

func (r *Repository) ListAnomalies(ctx context.Context, metricName string, limit int) ([]contracts.AnomalyRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
        SELECT id, metric_name, observed_value, anomaly_score, severity_tier, detected_at, resolved, narrative
        FROM anomalies
        WHERE ($1 = '' OR metric_name = $1)
        ORDER BY detected_at DESC
        LIMIT $2
    `, metricName, limit)
	if err != nil {
		return nil, fmt.Errorf("query anomalies: %w", err)
	}
	defer rows.Close()

	return scanAnomalies(rows)
}

func scanAnomalies(rows pgx.Rows) ([]contracts.AnomalyRecord, error) {
	records := make([]contracts.AnomalyRecord, 0, 64)
	for rows.Next() {
		var record contracts.AnomalyRecord
		var narrativeRaw []byte
		if err := rows.Scan(
			&record.ID,
			&record.MetricName,
			&record.ObservedValue,
			&record.AnomalyScore,
			&record.SeverityTier,
			&record.DetectedAt,
			&record.Resolved,
			&narrativeRaw,
		); err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		if len(narrativeRaw) > 0 {
			var narrative contracts.AnomalyNarrative
			if err := json.Unmarshal(narrativeRaw, &narrative); err == nil {
				record.Narrative = &narrative
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// ResolveAnomaly is the operator workflow's only mutation on anomalies.
func (r *Repository) ResolveAnomaly(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE anomalies SET resolved = TRUE WHERE id = $1
    `, id)
	if err != nil {
		return fmt.Errorf("resolve anomaly: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) InsertRiskPatterns(ctx context.Context, patterns []contracts.RiskPattern) error {
	for _, p := range patterns {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		_, err := r.pool.Exec(ctx, `
            INSERT INTO risk_patterns
                (id, metric_name, risk_category, risk_level, probability_score, anomaly_count, avg_severity, timeline_urgency, window_days, computed_at)
            VALUES
                ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
            ON CONFLICT (id) DO NOTHING
        `, p.ID, p.MetricName, p.RiskCategory, p.RiskLevel, p.ProbabilityScore, p.AnomalyCount, p.AvgSeverity, p.TimelineUrgency, p.WindowDays, p.ComputedAt)
		if err != nil {
			return fmt.Errorf("insert risk pattern: %w", err)
		}
	}
	return nil
}

func (r *Repository) ListRiskPatterns(ctx context.Context, level string, limit int) ([]contracts.RiskPattern, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
        SELECT id, metric_name, risk_category, risk_level, probability_score, anomaly_count, avg_severity, timeline_urgency, window_days, computed_at
        FROM risk_patterns
        WHERE ($1 = '' OR risk_level = $1)
        ORDER BY computed_at DESC, probability_score DESC
        LIMIT $2
    `, level, limit)
	if err != nil {
		return nil, fmt.Errorf("query risk patterns: %w", err)
	}
	defer rows.Close()

	patterns := make([]contracts.RiskPattern, 0, limit)
	for rows.Next() {
		var p contracts.RiskPattern
		if err := rows.Scan(
			&p.ID,
			&p.MetricName,
			&p.RiskCategory,
			&p.RiskLevel,
			&p.ProbabilityScore,
			&p.AnomalyCount,
			&p.AvgSeverity,
			&p.TimelineUrgency,
			&p.WindowDays,
			&p.ComputedAt,
		); err != nil {
			return nil, fmt.Errorf("scan risk pattern: %w", err)
		}
		patterns = append(patterns, p)
	}

	return patterns, nil
}

// InsertScenarioSet writes one four-row scenario set atomically so a
// generation call never leaves partial multipliers behind.
func (r *Repository) InsertScenarioSet(ctx context.Context, projections []contracts.ScenarioProjection) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin scenario set: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range projections {
		var narrative any
		if p.Narrative != nil {
			body, err := json.Marshal(p.Narrative)
			if err != nil {
				return fmt.Errorf("marshal scenario narrative: %w", err)
			}
			narrative = string(body)
		}

		_, err := tx.Exec(ctx, `
            INSERT INTO scenario_projections
                (id, metric_name, scenario_name, probability_score, projected_outcome, ci_lower, ci_upper, horizon_days, narrative, generated_at)
            VALUES
                ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10)
        `, p.ID, p.MetricName, p.ScenarioName, p.ProbabilityScore, p.ProjectedOutcome, p.CILower, p.CIUpper, p.HorizonDays, narrative, p.GeneratedAt)
		if err != nil {
			return fmt.Errorf("insert scenario projection: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit scenario set: %w", err)
	}
	return nil
}

func (r *Repository) ListScenarios(ctx context.Context, metricName string, limit int) ([]contracts.ScenarioProjection, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
        SELECT id, metric_name, scenario_name, probability_score, projected_outcome, ci_lower, ci_upper, horizon_days, narrative, generated_at
        FROM scenario_projections
        WHERE ($1 = '' OR metric_name = $1)
        ORDER BY generated_at DESC, probability_score DESC
        LIMIT $2
    `, metricName, limit)
	if err != nil {
		return nil, fmt.Errorf("query scenarios: %w", err)
	}
	defer rows.Close()

	projections := make([]contracts.ScenarioProjection, 0, limit)
	for rows.Next() {
		var p contracts.ScenarioProjection
		var narrativeRaw []byte
		if err := rows.Scan(
			&p.ID,
			&p.MetricName,
			&p.ScenarioName,
			&p.ProbabilityScore,
			&p.ProjectedOutcome,
			&p.CILower,
			&p.CIUpper,
			&p.HorizonDays,
			&narrativeRaw,
			&p.GeneratedAt,
		); err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		if len(narrativeRaw) > 0 {
			var narrative contracts.ScenarioNarrative
			if err := json.Unmarshal(narrativeRaw, &narrative); err == nil {
				p.Narrative = &narrative
			}
		}
		projections = append(projections, p)
	}

	return projections, nil
}

// InsertSimulation stores the run row and batch-copies its samples.
func (r *Repository) InsertSimulation(ctx context.Context, run *montecarlo.Run) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin simulation insert: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
        INSERT INTO simulation_runs (id, metric_name, horizon_days, total_runs, volatility_ratio, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, run.RunID, run.MetricName, run.HorizonDays, run.TotalRuns, run.VolatilityRatio, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert simulation run: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"simulation_samples"},
		[]string{"run_id", "metric_name", "outcome_percentile", "projected_value", "probability_density", "scenario_classification"},
		pgx.CopyFromSlice(len(run.Samples), func(i int) ([]any, error) {
			s := run.Samples[i]
			return []any{run.RunID, s.MetricName, s.OutcomePercentile, s.ProjectedValue, s.ProbabilityDensity, string(s.ScenarioClassification)}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy simulation samples: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit simulation insert: %w", err)
	}
	return nil
}

// SimulationSummary aggregates one run's samples by outcome band.
type SimulationSummary struct {
	RunID           string         `json:"run_id"`
	MetricName      string         `json:"metric_name"`
	HorizonDays     int            `json:"horizon_days"`
	TotalRuns       int            `json:"total_runs"`
	VolatilityRatio float64        `json:"volatility_ratio"`
	CreatedAt       time.Time      `json:"created_at"`
	BandCounts      map[string]int `json:"band_counts"`
}

func (r *Repository) ListSimulations(ctx context.Context, metricName string, limit int) ([]SimulationSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
        WITH recent AS (
            SELECT id, metric_name, horizon_days, total_runs, volatility_ratio, created_at
            FROM simulation_runs
            WHERE ($1 = '' OR metric_name = $1)
            ORDER BY created_at DESC
            LIMIT $2
        )
        SELECT r.id, r.metric_name, r.horizon_days, r.total_runs, r.volatility_ratio, r.created_at,
               ss.scenario_classification, COUNT(*)
        FROM recent r
        JOIN simulation_samples ss ON ss.run_id = r.id
        GROUP BY r.id, r.metric_name, r.horizon_days, r.total_runs, r.volatility_ratio, r.created_at, ss.scenario_classification
        ORDER BY r.created_at DESC
    `, metricName, limit)
	if err != nil {
		return nil, fmt.Errorf("query simulations: %w", err)
	}
	defer rows.Close()

	byRun := make(map[string]*SimulationSummary)
	order := make([]string, 0, limit)
	for rows.Next() {
		var (
			summary SimulationSummary
			band    string
			count   int
		)
		if err := rows.Scan(
			&summary.RunID,
			&summary.MetricName,
			&summary.HorizonDays,
			&summary.TotalRuns,
			&summary.VolatilityRatio,
			&summary.CreatedAt,
			&band,
			&count,
		); err != nil {
			return nil, fmt.Errorf("scan simulation summary: %w", err)
		}

		existing, ok := byRun[summary.RunID]
		if !ok {
			summary.BandCounts = map[string]int{band: count}
			byRun[summary.RunID] = &summary
			order = append(order, summary.RunID)
			continue
		}
		existing.BandCounts[band] = count
	}

	summaries := make([]SimulationSummary, 0, len(order))
	for _, id := range order {
		summaries = append(summaries, *byRun[id])
		if len(summaries) == limit {
			break
		}
	}

	return summaries, nil
}

func (r *Repository) HasOpenAlertInCooldown(ctx context.Context, metricName string, cooldown time.Duration) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1
            FROM alerts
            WHERE status IN ('open', 'acknowledged')
              AND metric_name = $1
              AND created_at >= NOW() - $2::interval
        )
    `, metricName, fmt.Sprintf("%f seconds", cooldown.Seconds())).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check cooldown alert: %w", err)
	}
	return exists, nil
}

func (r *Repository) InsertAlert(ctx context.Context, alert contracts.AlertRecord) error {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}

	_, err := r.pool.Exec(ctx, `
        INSERT INTO alerts
            (id, source_id, source_kind, metric_name, title, description, score, severity, status)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, alert.ID, nullableUUID(alert.SourceID), alert.SourceKind, alert.MetricName, alert.Title, alert.Description, alert.Score, alert.Severity, alert.Status)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}

	return nil
}

func (r *Repository) ListAlerts(ctx context.Context, status string, limit int) ([]contracts.AlertRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
        SELECT id, COALESCE(source_id::text,''), source_kind, metric_name, title, description, score, severity, status, created_at, updated_at
        FROM alerts
        WHERE ($1 = '' OR status = $1)
        ORDER BY created_at DESC
        LIMIT $2
    `, status, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]contracts.AlertRecord, 0, limit)
	for rows.Next() {
		var alert contracts.AlertRecord
		if err := rows.Scan(
			&alert.ID,
			&alert.SourceID,
			&alert.SourceKind,
			&alert.MetricName,
			&alert.Title,
			&alert.Description,
			&alert.Score,
			&alert.Severity,
			&alert.Status,
			&alert.CreatedAt,
			&alert.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}

	return alerts, nil
}

func (r *Repository) UpdateAlertStatus(ctx context.Context, id, status string) error {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE alerts
        SET status = $2,
            updated_at = NOW(),
            acknowledged_at = CASE WHEN $2 = 'acknowledged' THEN NOW() ELSE acknowledged_at END,
            resolved_at = CASE WHEN $2 = 'resolved' THEN NOW() ELSE resolved_at END
        WHERE id = $1
    `, id, status)
	if err != nil {
		return fmt.Errorf("update alert status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type DashboardSummary struct {
	OpenAnomalies    int     `json:"open_anomalies"`
	CriticalPatterns int     `json:"critical_patterns_24h"`
	OpenAlerts       int     `json:"open_alerts"`
	AvgAnomalyScore  float64 `json:"avg_anomaly_score_24h"`
}

func (r *Repository) DashboardSummary(ctx context.Context) (DashboardSummary, error) {
	var summary DashboardSummary
	err := r.pool.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM anomalies WHERE NOT resolved),
            (SELECT COUNT(*) FROM risk_patterns WHERE risk_level = 'CRITICAL' AND computed_at >= NOW() - INTERVAL '24 hours'),
            (SELECT COUNT(*) FROM alerts WHERE status = 'open'),
            COALESCE((SELECT AVG(anomaly_score) FROM anomalies WHERE detected_at >= NOW() - INTERVAL '24 hours'), 0)
    `).Scan(&summary.OpenAnomalies, &summary.CriticalPatterns, &summary.OpenAlerts, &summary.AvgAnomalyScore)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("dashboard summary: %w", err)
	}
	return summary, nil
}

func nullableUUID(v string) any {
	if v == "" {
		return nil
	}
	return v
}
