package weather

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const (
	DefaultNowcastTolerance = time.Hour
	DefaultHorizon          = 5 * 24 * time.Hour
)

// Selector resolves a city and target time into an Observation.
// It makes exactly one provider call per Resolve and never retries or caches.
type Selector struct {
	provider      Provider
	forecastSlots SlotPolicy
	nowcastSlots  SlotPolicy
	tolerance     time.Duration
	horizon       time.Duration
	observer      Observer
	logger        *slog.Logger
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

func WithForecastSlots(p SlotPolicy) SelectorOption {
	return func(s *Selector) { s.forecastSlots = p }
}

func WithNowcastSlots(p SlotPolicy) SelectorOption {
	return func(s *Selector) { s.nowcastSlots = p }
}

// WithNowcastTolerance sets how far into the previous day a target may lie
// and still be served from the current observation.
func WithNowcastTolerance(d time.Duration) SelectorOption {
	return func(s *Selector) { s.tolerance = d }
}

// WithHorizon sets the furthest future time the provider has forecasts for.
func WithHorizon(d time.Duration) SelectorOption {
	return func(s *Selector) { s.horizon = d }
}

func WithObserver(o Observer) SelectorOption {
	return func(s *Selector) { s.observer = o }
}

func WithLogger(l *slog.Logger) SelectorOption {
	return func(s *Selector) { s.logger = l }
}

// NewSelector creates a Selector backed by provider.
func NewSelector(provider Provider, opts ...SelectorOption) *Selector {
	s := &Selector{
		provider:      provider,
		forecastSlots: OpenWeatherForecastSlots,
		nowcastSlots:  OpenWeatherNowcastSlots,
		tolerance:     DefaultNowcastTolerance,
		horizon:       DefaultHorizon,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Classify places target relative to now. Calendar days are taken in
// now's location.
func (s *Selector) Classify(target, now time.Time) Window {
	t := target.In(now.Location())

	if sameDay(t, now) {
		return WindowCurrent
	}
	if t.Before(now) {
		if now.Sub(t) <= s.tolerance {
			return WindowCurrent
		}
		return WindowOutOfRange
	}
	if t.Sub(now) > s.horizon {
		return WindowOutOfRange
	}
	return WindowForecast
}

// Resolve returns the observation for city at target, or one of the typed
// errors in this package. The returned observation is nil on error.
func (s *Selector) Resolve(ctx context.Context, city string, target time.Time, creds Credentials, now time.Time) (*Observation, error) {
	start := time.Now()
	obs, window, err := s.resolve(ctx, city, target, creds, now)

	outcome := Outcome(err)
	if s.observer != nil {
		s.observer.ObserveResolve(window, outcome, time.Since(start))
	}
	if err != nil {
		s.logger.Warn("weather resolve failed",
			"provider", s.provider.Name(),
			"city", city,
			"target", FormatCanonical(target),
			"window", window,
			"outcome", outcome,
			"error", err)
		return nil, err
	}

	s.logger.Debug("weather resolved",
		"provider", s.provider.Name(),
		"city", city,
		"window", window,
		"effective", obs.EffectiveTime.Format(DisplayLayout))
	return obs, nil
}

func (s *Selector) resolve(ctx context.Context, city string, target time.Time, creds Credentials, now time.Time) (*Observation, Window, error) {
	if creds.WeatherAPIKey == "" {
		return nil, WindowUnclassified, ErrMissingCredentials
	}
	if target.IsZero() {
		return nil, WindowUnclassified, ErrInvalidTimestamp
	}
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, WindowUnclassified, &CityNotFoundError{City: city}
	}

	window := s.Classify(target, now)
	q := Query{City: city, APIKey: creds.WeatherAPIKey}

	switch window {
	case WindowCurrent:
		r, err := s.provider.FetchCurrent(ctx, q)
		if err != nil {
			return nil, window, classifyFetchError(err, city)
		}
		return &Observation{
			City:          city,
			Temperature:   r.Temperature,
			Condition:     r.Condition,
			EffectiveTime: now,
			Window:        WindowCurrent,
			ReportWindow:  s.nowcastSlots.Round(target, now),
		}, window, nil

	case WindowForecast:
		slot := s.forecastSlots.Round(target.In(now.Location()), now)
		entries, err := s.provider.FetchForecast(ctx, q)
		if err != nil {
			return nil, window, classifyFetchError(err, city)
		}
		for _, e := range entries {
			if !e.Time.Equal(slot) {
				continue
			}
			return &Observation{
				City:          city,
				Temperature:   e.Temperature,
				Condition:     e.Condition,
				EffectiveTime: e.Time.In(now.Location()),
				Window:        WindowForecast,
			}, window, nil
		}
		return nil, window, ErrNoMatchingForecastSlot

	default:
		return nil, window, ErrTimestampOutOfRange
	}
}
