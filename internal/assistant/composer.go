package assistant

import (
	"context"
	"log/slog"

	"github.com/i474232898/weather-assistant/internal/llm"
	"github.com/i474232898/weather-assistant/internal/weather"
)

// Composer phrases an observation as a user-facing reply.
type Composer struct {
	llm    llm.Completer
	logger *slog.Logger
}

func NewComposer(c llm.Completer, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{llm: c, logger: logger}
}

// Compose returns ComposeFallback instead of surfacing LLM errors.
func (c *Composer) Compose(ctx context.Context, obs *weather.Observation) string {
	if obs == nil {
		return ComposeFallback
	}

	reply, err := c.llm.Complete(ctx, llm.Request{
		Stage:       StageCompose,
		System:      composeSystemRole,
		Prompt:      CompositionPrompt(obs),
		MaxTokens:   composeMaxTokens,
		Temperature: llmTemperature,
	})
	if err != nil || reply == "" {
		c.logger.Warn("reply composition failed", "city", obs.City, "error", err)
		return ComposeFallback
	}
	return reply
}
