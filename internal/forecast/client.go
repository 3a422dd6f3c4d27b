package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/contracts"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/scenario"
)

// Client talks to the external forecasting service, which owns the point
// estimate and interval for a (metric, horizon) pair.
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

type response struct {
	MetricName      string  `json:"metric_name"`
	HorizonDays     int     `json:"horizon_days"`
	PointEstimate   float64 `json:"point_estimate"`
	CILower         float64 `json:"ci_lower"`
	CIUpper         float64 `json:"ci_upper"`
	ConfidenceLevel float64 `json:"confidence_level"`
}

// Horizon fetches the base forecast for a metric. A 404 means the service
// has no forecast for that horizon and maps to DataUnavailable; a missed
// deadline maps to ExternalServiceTimeout.
func (c *Client) Horizon(ctx context.Context, metricName string, horizonDays int, confidence float64) (*scenario.BaseForecast, error) {
	if horizonDays <= 0 {
		return nil, fmt.Errorf("horizon_days %d: must be positive", horizonDays)
	}

	q := url.Values{}
	q.Set("metric", metricName)
	q.Set("horizon_days", fmt.Sprintf("%d", horizonDays))
	q.Set("confidence", fmt.Sprintf("%.2f", confidence))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/forecast?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build forecast request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("forecast %s/%dd: %w", metricName, horizonDays, contracts.ErrExternalServiceTimeout)
		}
		return nil, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("forecast %s/%dd: %w", metricName, horizonDays, contracts.ErrDataUnavailable)
	default:
		return nil, fmt.Errorf("forecast service returned %d", resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode forecast response: %w", err)
	}

	return &scenario.BaseForecast{
		PointEstimate: body.PointEstimate,
		CILower:       body.CILower,
		CIUpper:       body.CIUpper,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
