package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-assistant/internal/weather"
)

const defaultOpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// OpenWeatherConfig holds the per-deployment request settings.
type OpenWeatherConfig struct {
	BaseURL    string
	Lang       string
	Units      string
	MaxRetries int
}

// OpenWeatherProvider implements weather.Provider for OpenWeatherMap's
// current weather and 5 day / 3 hour forecast endpoints.
type OpenWeatherProvider struct {
	name     string
	baseURL  string
	lang     string
	units    string
	httpCfg  HTTPClientConfig
	current  *gobreaker.CircuitBreaker
	forecast *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, cfg OpenWeatherConfig) *OpenWeatherProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenWeatherBaseURL
	}
	lang := cfg.Lang
	if lang == "" {
		lang = "kr"
	}
	units := cfg.Units
	if units == "" {
		units = "metric"
	}

	return &OpenWeatherProvider{
		name:    "openweathermap",
		baseURL: baseURL,
		lang:    lang,
		units:   units,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      cfg.MaxRetries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		current:  newCircuitBreaker("openweather-current"),
		forecast: newCircuitBreaker("openweather-forecast"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// owmEntry is the shape shared by the current payload and forecast list items.
// Pointers let us tell a missing field from a zero value.
type owmEntry struct {
	Dt   *int64 `json:"dt"`
	Main *struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Description *string `json:"description"`
	} `json:"weather"`
}

func (e owmEntry) reading() (weather.Reading, error) {
	if e.Main == nil || e.Main.Temp == nil {
		return weather.Reading{}, fmt.Errorf("%w: missing main.temp", weather.ErrMalformedPayload)
	}
	if len(e.Weather) == 0 || e.Weather[0].Description == nil || *e.Weather[0].Description == "" {
		return weather.Reading{}, fmt.Errorf("%w: missing weather[0].description", weather.ErrMalformedPayload)
	}

	r := weather.Reading{
		Temperature: *e.Main.Temp,
		Condition:   *e.Weather[0].Description,
	}
	if e.Dt != nil {
		r.Time = time.Unix(*e.Dt, 0).UTC()
	}
	return r, nil
}

func (p *OpenWeatherProvider) FetchCurrent(ctx context.Context, q weather.Query) (weather.Reading, error) {
	var payload owmEntry
	if err := p.getJSON(ctx, p.current, "/weather", q, &payload); err != nil {
		return weather.Reading{}, err
	}
	return payload.reading()
}

func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, q weather.Query) ([]weather.Reading, error) {
	var payload struct {
		List *[]owmEntry `json:"list"`
	}
	if err := p.getJSON(ctx, p.forecast, "/forecast", q, &payload); err != nil {
		return nil, err
	}
	if payload.List == nil {
		return nil, fmt.Errorf("%w: missing list", weather.ErrMalformedPayload)
	}

	readings := make([]weather.Reading, 0, len(*payload.List))
	for i, item := range *payload.List {
		if item.Dt == nil {
			return nil, fmt.Errorf("%w: list[%d] missing dt", weather.ErrMalformedPayload, i)
		}
		r, err := item.reading()
		if err != nil {
			return nil, fmt.Errorf("list[%d]: %w", i, err)
		}
		readings = append(readings, r)
	}
	return readings, nil
}

func (p *OpenWeatherProvider) getJSON(ctx context.Context, cb *gobreaker.CircuitBreaker, path string, q weather.Query, out any) error {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", q.City)
		values.Set("appid", q.APIKey)
		values.Set("lang", p.lang)
		values.Set("units", p.units)

		u := fmt.Sprintf("%s%s?%s", p.baseURL, path, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, cb, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", weather.ErrMalformedPayload, err)
	}
	return nil
}
