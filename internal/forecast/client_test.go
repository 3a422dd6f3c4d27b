package forecast

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/contracts"
	"github.com/shiroonigami23-ui/predictive-risk-intelligence/internal/httpx"
)

func TestHorizonParsesForecast(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "monthly_revenue", r.URL.Query().Get("metric"))
		assert.Equal(t, "30", r.URL.Query().Get("horizon_days"))

		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"metric_name":      "monthly_revenue",
			"horizon_days":     30,
			"point_estimate":   52000.0,
			"ci_lower":         48000.0,
			"ci_upper":         56000.0,
			"confidence_level": 0.95,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)

	base, err := client.Horizon(context.Background(), "monthly_revenue", 30, 0.95)
	require.NoError(t, err)

	assert.InDelta(t, 52000, base.PointEstimate, 1e-9)
	assert.InDelta(t, 48000, base.CILower, 1e-9)
	assert.InDelta(t, 56000, base.CIUpper, 1e-9)
}

func TestHorizonMissingForecastIsDataUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)

	_, err := client.Horizon(context.Background(), "monthly_revenue", 90, 0.95)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrDataUnavailable))
}

func TestHorizonTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, 50*time.Millisecond)

	_, err := client.Horizon(context.Background(), "monthly_revenue", 30, 0.95)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrExternalServiceTimeout))
}

func TestHorizonRejectsInvalidHorizon(t *testing.T) {
	client := NewClient("http://localhost:0", time.Second)

	_, err := client.Horizon(context.Background(), "monthly_revenue", 0, 0.95)
	require.Error(t, err)
}
