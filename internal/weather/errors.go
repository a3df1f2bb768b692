package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingCredentials     = errors.New("weather api key is not configured")
	ErrInvalidTimestamp       = errors.New("invalid target timestamp")
	ErrInvalidCredentials     = errors.New("weather api rejected credentials")
	ErrMalformedPayload       = errors.New("malformed provider payload")
	ErrNoMatchingForecastSlot = errors.New("no forecast entry for requested slot")
	ErrTimestampOutOfRange    = errors.New("target timestamp outside provider range")
)

// StatusError is how providers report a non-2xx HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider returned status %d", e.Code)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.Code, e.Body)
}

// CityNotFoundError means the provider does not know the city.
type CityNotFoundError struct {
	City string
}

func (e *CityNotFoundError) Error() string {
	return fmt.Sprintf("city not found: %q", e.City)
}

// ProviderError is any non-2xx status other than 401 and 404.
type ProviderError struct {
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error: status %d", e.StatusCode)
}

// TransportError wraps network failures, timeouts and open circuits.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// classifyFetchError maps a provider error onto the typed failures.
func classifyFetchError(err error, city string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrMalformedPayload) {
		return ErrMalformedPayload
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusNotFound:
			return &CityNotFoundError{City: city}
		case http.StatusUnauthorized:
			return ErrInvalidCredentials
		default:
			return &ProviderError{StatusCode: se.Code}
		}
	}

	return &TransportError{Cause: err}
}

// Outcome returns a short stable label for err, used for logs and metrics.
func Outcome(err error) string {
	var (
		notFound  *CityNotFoundError
		provErr   *ProviderError
		transport *TransportError
	)

	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, ErrInvalidTimestamp):
		return "invalid_timestamp"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, ErrNoMatchingForecastSlot):
		return "no_matching_slot"
	case errors.Is(err, ErrTimestampOutOfRange):
		return "out_of_range"
	case errors.As(err, &notFound):
		return "city_not_found"
	case errors.As(err, &provErr):
		return "provider_error"
	case errors.As(err, &transport):
		return "transport_failure"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "transport_failure"
	default:
		return "unknown"
	}
}
