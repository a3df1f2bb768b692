package weather

import (
	"time"
)

// Window classifies a requested time relative to now.
type Window string

const (
	WindowCurrent    Window = "current"
	WindowForecast   Window = "forecast"
	WindowOutOfRange Window = "out_of_range"

	// WindowUnclassified marks requests rejected before classification.
	WindowUnclassified Window = "unclassified"
)

// Credentials carries the provider key for a single resolve call.
type Credentials struct {
	WeatherAPIKey string
}

// Query is what a provider needs to look up one city.
type Query struct {
	City   string
	APIKey string
}

// Reading is one validated entry of a provider payload.
// Providers never return a Reading with missing fields; they return
// ErrMalformedPayload instead.
type Reading struct {
	Time        time.Time
	Temperature float64
	Condition   string
}

// Observation is the weather actually matched for a request.
type Observation struct {
	City        string  `json:"city"`
	Temperature float64 `json:"temperatureC"`
	Condition   string  `json:"condition"`

	// EffectiveTime is the time the provider data refers to: now for
	// current observations, the matched slot for forecasts. It may differ
	// from the requested time.
	EffectiveTime time.Time `json:"effectiveTime"`
	Window        Window    `json:"window"`

	// ReportWindow is the start of the most recently completed nowcast
	// window. Only set for current observations.
	ReportWindow time.Time `json:"reportWindow,omitempty"`
}
