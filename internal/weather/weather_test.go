package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxsync-io/luxsync/pkg/options"
)

const sampleResponse = `{
	"name": "Medan",
	"sys": {"country": "ID"},
	"main": {"temp": 31.4, "humidity": 62},
	"wind": {"speed": 2.1},
	"weather": [{"main": "Clouds"}]
}`

func TestClientRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/weather", r.URL.Path)
		require.Equal(t, "Medan,id", r.URL.Query().Get("q"))
		require.Equal(t, "metric", r.URL.Query().Get("units"))
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c := NewClient(&options.WeatherOptions{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		City:    "Medan,id",
	})

	got := c.Refresh(context.Background())
	assert.Equal(t, "31° C", got.Temperature)
	assert.Equal(t, "Clouds", got.Condition)
	assert.Equal(t, 62, got.Humidity)
	assert.Equal(t, 2.1, got.Wind)
	assert.Equal(t, "Medan, ID", got.Location)
	assert.Equal(t, got, c.Latest())
}

func TestClientFallbackOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"city not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(&options.WeatherOptions{BaseURL: srv.URL, APIKey: "k", City: "Nowhere,xx"})
	got := c.Refresh(context.Background())
	assert.Equal(t, Fallback, got)
}

func TestClientFallbackWithoutAPIKey(t *testing.T) {
	c := NewClient(&options.WeatherOptions{BaseURL: "http://127.0.0.1:0", City: "Binjai,id"})
	assert.Equal(t, Fallback, c.Refresh(context.Background()))
	assert.Equal(t, Fallback, c.Latest())
}

func TestClientKeepsLastGoodReport(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			http.Error(w, `{"error":"upstream down"}`, http.StatusBadGateway)
			return
		}
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c := NewClient(&options.WeatherOptions{BaseURL: srv.URL, APIKey: "k", City: "Medan,id"})
	first := c.Refresh(context.Background())
	require.Equal(t, "31° C", first.Temperature)

	healthy = false
	got := c.Refresh(context.Background())
	assert.Equal(t, first, got)
}
