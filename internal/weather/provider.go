package weather

import (
	"context"
	"time"
)

// Provider abstracts a weather data source with a current observation
// endpoint and an ordered forecast list endpoint.
// Non-2xx responses are reported as *StatusError and unusable payloads as
// ErrMalformedPayload.
type Provider interface {
	Name() string
	FetchCurrent(ctx context.Context, q Query) (Reading, error)
	FetchForecast(ctx context.Context, q Query) ([]Reading, error)
}

// Observer receives one event per resolve call.
type Observer interface {
	ObserveResolve(window Window, outcome string, elapsed time.Duration)
}
