// Package narrative is the boundary to the external text-generation
// service. The service must honor a strict schema contract: structured
// request in, structured response with named fields out. No free-text
// pattern extraction happens on this side of the boundary, and narrative
// availability never gates numeric results.
package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/contracts"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// AnomalyContext is the structured payload describing an anomaly to the
// narrative service.
type AnomalyContext struct {
	MetricName    string                   `json:"metric_name"`
	ObservedValue float64                  `json:"observed_value"`
	AnomalyScore  float64                  `json:"anomaly_score"`
	SeverityTier  contracts.SeverityTier   `json:"severity_tier"`
	Category      string                   `json:"category"`
	Baseline      contracts.MetricBaseline `json:"baseline"`
}

// ScenarioContext describes one projected scenario to the narrative service.
type ScenarioContext struct {
	MetricName       string                 `json:"metric_name"`
	ScenarioName     contracts.ScenarioName `json:"scenario_name"`
	ProbabilityScore float64                `json:"probability_score"`
	ProjectedOutcome float64                `json:"projected_outcome"`
	HorizonDays      int                    `json:"horizon_days"`
}

// ExplainAnomaly requests explanation text and recommended actions.
// Callers fall back to FallbackAnomaly on any error.
func (c *Client) ExplainAnomaly(ctx context.Context, payload AnomalyContext) (*contracts.AnomalyNarrative, error) {
	var out contracts.AnomalyNarrative
	if err := c.post(ctx, "/v1/narratives/anomaly", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DescribeScenario requests assumptions, risk factors and success
// indicators for one scenario. Callers fall back to FallbackScenario.
func (c *Client) DescribeScenario(ctx context.Context, payload ScenarioContext) (*contracts.ScenarioNarrative, error) {
	var out contracts.ScenarioNarrative
	if err := c.post(ctx, "/v1/narratives/scenario", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal narrative payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build narrative request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("narrative %s: %w", path, contracts.ErrExternalServiceTimeout)
		}
		return fmt.Errorf("narrative request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("narrative service returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode narrative response: %w", err)
	}
	return nil
}

// FallbackAnomaly is the templated narrative used when the service is slow
// or unreachable.
func FallbackAnomaly(payload AnomalyContext) *contracts.AnomalyNarrative {
	return &contracts.AnomalyNarrative{
		Explanation: fmt.Sprintf("%s observed at %.2f deviates %.2f standard deviations from its %d-day baseline mean of %.2f.",
			payload.MetricName, payload.ObservedValue, payload.AnomalyScore, payload.Baseline.WindowDays, payload.Baseline.Mean),
		RecommendedActions: []string{
			fmt.Sprintf("Review recent changes affecting %s.", payload.MetricName),
			"Confirm data quality for the reporting pipeline.",
		},
	}
}

// FallbackScenario is the templated scenario narrative.
func FallbackScenario(payload ScenarioContext) *contracts.ScenarioNarrative {
	return &contracts.ScenarioNarrative{
		Assumptions: []string{fmt.Sprintf("%s scenario holds over the next %d days.", payload.ScenarioName, payload.HorizonDays)},
		RiskFactors: []string{"Narrative service unavailable; factors not elaborated."},
		SuccessIndicators: []string{
			fmt.Sprintf("%s tracks toward %.2f.", payload.MetricName, payload.ProjectedOutcome),
		},
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
