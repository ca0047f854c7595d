package waqi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecodrive/ecodrive/internal/conditions"
	"github.com/ecodrive/ecodrive/internal/conditions/waqi"
	"github.com/ecodrive/ecodrive/internal/geo"
)

func TestClient_CurrentAQI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/feed/geo:48.850000;2.350000/", r.URL.Path)
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","data":{"aqi":42}}`))
	}))
	defer server.Close()

	client := waqi.NewClient(waqi.ClientConfig{
		Token:      "test-token",
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	aqi, err := client.CurrentAQI(context.Background(), geo.Coordinate{Lat: 48.85, Lon: 2.35})
	require.NoError(t, err)
	assert.Equal(t, 42, aqi)
}

func TestClient_CurrentAQI_StatusGatesValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"error","data":{"aqi":42}}`))
	}))
	defer server.Close()

	client := waqi.NewClient(waqi.ClientConfig{
		Token:      "test-token",
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	_, err := client.CurrentAQI(context.Background(), geo.Coordinate{Lat: 48.85, Lon: 2.35})
	assert.ErrorIs(t, err, conditions.ErrUnavailable)
}

func TestClient_CurrentAQI_NonNumericSample(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","data":{"aqi":"-"}}`))
	}))
	defer server.Close()

	client := waqi.NewClient(waqi.ClientConfig{
		Token:      "test-token",
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	_, err := client.CurrentAQI(context.Background(), geo.Coordinate{Lat: 48.85, Lon: 2.35})
	assert.ErrorIs(t, err, conditions.ErrUnavailable)
}

func TestClient_CurrentAQI_NoToken(t *testing.T) {
	client := waqi.NewClient(waqi.ClientConfig{
		BaseURL:    "http://unused.invalid",
		HTTPClient: http.DefaultClient,
	})

	_, err := client.CurrentAQI(context.Background(), geo.Coordinate{Lat: 48.85, Lon: 2.35})
	assert.ErrorIs(t, err, conditions.ErrUnavailable)
}
