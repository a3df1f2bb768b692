package httpapi

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/weather-assistant/internal/assistant"
	"github.com/i474232898/weather-assistant/internal/metrics"
	"github.com/i474232898/weather-assistant/internal/weather"
)

var validate = validator.New()

// SessionStore hands out the conversation behind a chat session id.
type SessionStore interface {
	GetOrCreate(id string) (string, *assistant.Conversation)
	Get(id string) (*assistant.Conversation, bool)
}

// Deps are the collaborators behind the HTTP handlers. Metrics may be nil.
type Deps struct {
	Sessions    SessionStore
	Resolver    assistant.Resolver
	Credentials weather.Credentials
	Clock       func() time.Time
	Metrics     *metrics.Metrics
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	clock := d.Clock
	if clock == nil {
		clock = time.Now
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-assistant",
		})
	})
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	}

	v1 := app.Group("/api/v1")

	v1.Post("/chat", func(c *fiber.Ctx) error {
		var req chatRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}
		req.Message = strings.TrimSpace(req.Message)
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		id, conv := d.Sessions.GetOrCreate(req.SessionID)
		turn := conv.Ask(c.UserContext(), req.Message)
		if d.Metrics != nil {
			d.Metrics.ObserveTurn("http", turn.Outcome)
		}

		return c.JSON(chatResponse{
			SessionID: id,
			Reply:     turn.Reply,
			City:      turn.Intent.City,
			Target:    weather.FormatCanonical(turn.Intent.Target),
			Outcome:   turn.Outcome,
		})
	})

	v1.Get("/chat/:session_id/transcript", func(c *fiber.Ctx) error {
		id := c.Params("session_id")
		conv, ok := d.Sessions.Get(id)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown session")
		}
		return c.JSON(fiber.Map{
			"session_id": id,
			"turns":      conv.Transcript(),
		})
	})

	v1.Get("/weather", func(c *fiber.Ctx) error {
		q := weatherQuery{
			City: strings.TrimSpace(c.Query("city")),
			At:   strings.TrimSpace(c.Query("at")),
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		now := clock()
		target := now
		if q.At != "" {
			ts, err := weather.ParseCanonical(q.At, now.Location())
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			target = ts
		}

		obs, err := d.Resolver.Resolve(c.UserContext(), q.City, target, d.Credentials, now)
		if err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.JSON(obs)
	})
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// statusFor maps a lookup failure onto an HTTP status.
func statusFor(err error) int {
	var (
		notFound  *weather.CityNotFoundError
		provider  *weather.ProviderError
		transport *weather.TransportError
	)
	switch {
	case errors.Is(err, weather.ErrInvalidTimestamp):
		return fiber.StatusBadRequest
	case errors.As(err, &notFound),
		errors.Is(err, weather.ErrTimestampOutOfRange),
		errors.Is(err, weather.ErrNoMatchingForecastSlot):
		return fiber.StatusNotFound
	case errors.Is(err, weather.ErrMissingCredentials):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, weather.ErrInvalidCredentials),
		errors.Is(err, weather.ErrMalformedPayload),
		errors.As(err, &provider),
		errors.As(err, &transport):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

type chatRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=64"`
	Message   string `json:"message" validate:"required,max=500"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	City      string `json:"city"`
	Target    string `json:"target"`
	Outcome   string `json:"outcome"`
}

// weatherQuery holds query parameters for the weather endpoint.
type weatherQuery struct {
	City string `validate:"required,max=100"`
	At   string `validate:"omitempty,len=14,numeric"`
}
