package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/nerrad567/moodcast/internal/catalog"
)

// Default values for OpenWeatherClient.
const (
	DefaultBaseURL = "http://api.openweathermap.org/data/2.5/weather"
	DefaultUnits   = "metric"
	DefaultTimeout = 10 * time.Second

	// maxBodySize caps how much of a response is read.
	maxBodySize = 1 << 20

	// maxErrorBodySize caps how much of an error body ends up in a message.
	maxErrorBodySize = 4 << 10
)

// Field names searched for in the response body.
const (
	fieldTemperature = "temp"
	fieldHumidity    = "humidity"
)

// Options configures an OpenWeatherClient.
type Options struct {
	// BaseURL is the current-weather endpoint. Defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is sent as the appid query parameter.
	APIKey string

	// Units is sent as the units query parameter. Defaults to "metric".
	Units string

	// Timeout bounds each HTTP request. Defaults to DefaultTimeout.
	// Ignored when HTTPClient is set.
	Timeout time.Duration

	// RateLimit is the sustained requests per second allowed upstream.
	// Zero or negative disables limiting.
	RateLimit float64

	// Burst is the limiter's bucket size. Defaults to 1.
	Burst int

	// HTTPClient overrides the client used for requests.
	HTTPClient *http.Client
}

// OpenWeatherClient implements Provider against OpenWeatherMap.
type OpenWeatherClient struct {
	baseURL    string
	apiKey     string
	units      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewOpenWeatherClient builds a client from opts, filling in defaults.
func NewOpenWeatherClient(opts Options) *OpenWeatherClient {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	units := strings.TrimSpace(opts.Units)
	if units == "" {
		units = DefaultUnits
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	return &OpenWeatherClient{
		baseURL:    strings.TrimRight(base, "/"),
		apiKey:     opts.APIKey,
		units:      units,
		httpClient: client,
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// Current fetches conditions for city.
//
// The call waits for the rate limiter before going upstream, so a
// cancelled ctx can fail it before any request is made.
func (c *OpenWeatherClient) Current(ctx context.Context, city catalog.City) (Conditions, error) {
	if strings.TrimSpace(string(city)) == "" {
		return Conditions{}, ErrCityRequired
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Conditions{}, fmt.Errorf("%w: rate limiter: %w", ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(city), nil)
	if err != nil {
		return Conditions{}, fmt.Errorf("%w: building request: %w", ErrUpstream, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Conditions{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize)) //nolint:errcheck // Best effort
		return Conditions{}, fmt.Errorf("%w: status=%d body=%s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Conditions{}, fmt.Errorf("%w: reading body: %w", ErrUpstream, err)
	}

	return ParseConditions(body)
}

func (c *OpenWeatherClient) endpoint(city catalog.City) string {
	q := url.Values{}
	q.Set("q", string(city))
	q.Set("appid", c.apiKey)
	q.Set("units", c.units)
	return c.baseURL + "?" + q.Encode()
}

// ParseConditions extracts temperature and humidity from a JSON body.
// The first numeric "temp" and "humidity" values in document order win,
// at any nesting depth.
func ParseConditions(body []byte) (Conditions, error) {
	if !gjson.ValidBytes(body) {
		return Conditions{}, fmt.Errorf("%w: response is not valid JSON", ErrUpstream)
	}
	doc := gjson.ParseBytes(body)

	temp, ok := findNumber(doc, fieldTemperature)
	if !ok {
		return Conditions{}, fmt.Errorf("%w: response has no %q field", ErrUpstream, fieldTemperature)
	}
	hum, ok := findNumber(doc, fieldHumidity)
	if !ok {
		return Conditions{}, fmt.Errorf("%w: response has no %q field", ErrUpstream, fieldHumidity)
	}

	return Conditions{
		Temperature: int(temp),
		Humidity:    int(hum),
	}, nil
}

// findNumber walks res depth-first and returns the first numeric value
// stored under key in any object.
func findNumber(res gjson.Result, key string) (float64, bool) {
	var (
		value float64
		found bool
	)
	isObject := res.IsObject()
	res.ForEach(func(k, v gjson.Result) bool {
		if isObject && k.String() == key && v.Type == gjson.Number {
			value, found = v.Float(), true
			return false
		}
		if v.IsObject() || v.IsArray() {
			if f, ok := findNumber(v, key); ok {
				value, found = f, true
				return false
			}
		}
		return true
	})
	return value, found
}
