package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-widgets/internal/weather"
)

const (
	DefaultOpenWeatherBaseURL = "https://api.openweathermap.org"

	currentPath  = "/data/2.5/weather"
	forecastPath = "/data/2.5/forecast"
	geocodePath  = "/geo/1.0/direct"

	// geocodeLimit matches the number of suggestions surfaced to the user.
	geocodeLimit = 5
)

// Option customizes an OpenWeatherProvider.
type Option func(*OpenWeatherProvider)

// WithBaseURL points the provider at another host (tests, proxies).
func WithBaseURL(u string) Option {
	return func(p *OpenWeatherProvider) {
		if u != "" {
			p.baseURL = u
		}
	}
}

// WithBackoff overrides the retry policy.
func WithBackoff(b BackoffConfig) Option {
	return func(p *OpenWeatherProvider) {
		p.httpCfg.Backoff = b
	}
}

// WithRateLimit caps outbound requests to rps with the given burst. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(p *OpenWeatherProvider) {
		if rps <= 0 {
			p.httpCfg.Limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		p.httpCfg.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// OpenWeatherProvider talks to OpenWeatherMap's current, forecast and geocoding endpoints.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

var (
	_ weather.Provider = (*OpenWeatherProvider)(nil)
	_ weather.Geocoder = (*OpenWeatherProvider)(nil)
)

func NewOpenWeatherProvider(client *http.Client, apiKey string, opts ...Option) *OpenWeatherProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,

		// client errors such as an unknown city say nothing about upstream health
		IsSuccessful: func(err error) bool {
			return err == nil || !retryable(err)
		},
	})

	p := &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: DefaultOpenWeatherBaseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// FetchCurrentConditions returns current conditions for city in metric units.
func (p *OpenWeatherProvider) FetchCurrentConditions(ctx context.Context, city string) (weather.RawCurrentConditions, error) {
	var payload weather.RawCurrentConditions
	values := url.Values{}
	values.Set("q", city)
	values.Set("units", "metric")

	if err := p.getJSON(ctx, "weather", currentPath, values, &payload); err != nil {
		return weather.RawCurrentConditions{}, err
	}
	return payload, nil
}

// FetchForecastSeries returns the 3-hourly forecast series for city in metric units.
func (p *OpenWeatherProvider) FetchForecastSeries(ctx context.Context, city string) (weather.RawForecastSeries, error) {
	var payload weather.RawForecastSeries
	values := url.Values{}
	values.Set("q", city)
	values.Set("units", "metric")

	if err := p.getJSON(ctx, "forecast", forecastPath, values, &payload); err != nil {
		return weather.RawForecastSeries{}, err
	}
	return payload, nil
}

// SearchGeocode resolves free text to candidate locations, in provider order.
func (p *OpenWeatherProvider) SearchGeocode(ctx context.Context, query string) ([]weather.GeoCandidate, error) {
	var payload []weather.GeoCandidate
	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", strconv.Itoa(geocodeLimit))

	if err := p.getJSON(ctx, "geocoding", geocodePath, values, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (p *OpenWeatherProvider) getJSON(ctx context.Context, op, path string, values url.Values, out any) error {
	if p.apiKey == "" {
		return fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		q := url.Values{}
		for k, v := range values {
			q[k] = v
		}
		q.Set("appid", p.apiKey)

		u := fmt.Sprintf("%s%s?%s", p.baseURL, path, q.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, op, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
