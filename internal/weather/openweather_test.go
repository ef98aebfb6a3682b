package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/moodcast/internal/catalog"
)

const sampleResponse = `{
  "coord": {"lon": 16.6068, "lat": 49.1952},
  "weather": [{"id": 800, "main": "Clear"}],
  "main": {"temp": 21.7, "feels_like": 21.2, "temp_min": 19.9, "temp_max": 23.1, "pressure": 1016, "humidity": 48.9},
  "name": "Brno",
  "cod": 200
}`

func TestParseConditions(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    Conditions
		wantErr bool
	}{
		{"openweather body", sampleResponse, Conditions{Temperature: 21, Humidity: 48}, false},
		{"top level fields", `{"temp": 5, "humidity": 90}`, Conditions{Temperature: 5, Humidity: 90}, false},
		{"negative truncates toward zero", `{"main": {"temp": -3.6, "humidity": 80}}`, Conditions{Temperature: -3, Humidity: 80}, false},
		{"inside array", `{"list": [{"main": {"temp": 12.2, "humidity": 55}}]}`, Conditions{Temperature: 12, Humidity: 55}, false},
		{"first occurrence wins", `{"a": {"temp": 1, "humidity": 2}, "b": {"temp": 3, "humidity": 4}}`, Conditions{Temperature: 1, Humidity: 2}, false},
		{"non-numeric temp skipped", `{"temp": "hot", "main": {"temp": 30, "humidity": 10}}`, Conditions{Temperature: 30, Humidity: 10}, false},
		{"similar keys ignored", `{"temp_min": 1, "temp": 2, "humidity": 3}`, Conditions{Temperature: 2, Humidity: 3}, false},
		{"missing temp", `{"main": {"humidity": 50}}`, Conditions{}, true},
		{"missing humidity", `{"main": {"temp": 10}}`, Conditions{}, true},
		{"invalid json", `{"main": {"temp": 10`, Conditions{}, true},
		{"empty body", ``, Conditions{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConditions([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUpstream)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrent_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Brno", r.URL.Query().Get("q"))
		assert.Equal(t, "secret", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c := NewOpenWeatherClient(Options{BaseURL: srv.URL, APIKey: "secret"})
	got, err := c.Current(context.Background(), "Brno")

	require.NoError(t, err)
	assert.Equal(t, Conditions{Temperature: 21, Humidity: 48}, got)
}

func TestCurrent_EscapesCity(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`{"temp": 1, "humidity": 1}`))
	}))
	defer srv.Close()

	c := NewOpenWeatherClient(Options{BaseURL: srv.URL})
	_, err := c.Current(context.Background(), "Zürich&units=imperial")

	require.NoError(t, err)
	assert.Equal(t, "Zürich&units=imperial", gotQuery)
}

func TestCurrent_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	}))
	defer srv.Close()

	c := NewOpenWeatherClient(Options{BaseURL: srv.URL})
	_, err := c.Current(context.Background(), "Atlantis")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "status=404")
	assert.Contains(t, err.Error(), "city not found")
}

func TestCurrent_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewOpenWeatherClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Current(context.Background(), "Brno")

	assert.ErrorIs(t, err, ErrUpstream)
}

func TestCurrent_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewOpenWeatherClient(Options{BaseURL: url, Timeout: time.Second})
	_, err := c.Current(context.Background(), "Brno")

	assert.ErrorIs(t, err, ErrUpstream)
}

func TestCurrent_CityRequired(t *testing.T) {
	c := NewOpenWeatherClient(Options{})
	_, err := c.Current(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrCityRequired)
}

func TestCurrent_RateLimitHonoursContext(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"temp": 1, "humidity": 1}`))
	}))
	defer srv.Close()

	// One token, refilled once a minute.
	c := NewOpenWeatherClient(Options{BaseURL: srv.URL, RateLimit: 1.0 / 60, Burst: 1})

	_, err := c.Current(context.Background(), "Brno")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Current(ctx, "Brno")

	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, int32(1), hits.Load())
}

func TestNewOpenWeatherClient_Defaults(t *testing.T) {
	c := NewOpenWeatherClient(Options{BaseURL: "http://example.com/weather/"})

	assert.Equal(t, "http://example.com/weather", c.baseURL)
	assert.Equal(t, DefaultUnits, c.units)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
}

func TestProviderFunc(t *testing.T) {
	var p Provider = ProviderFunc(func(_ context.Context, city catalog.City) (Conditions, error) {
		return Conditions{Temperature: len(city)}, nil
	})
	got, err := p.Current(context.Background(), "Brno")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Temperature)
}
