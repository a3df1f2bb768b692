package assistant

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/i474232898/weather-assistant/internal/common"
	"github.com/i474232898/weather-assistant/internal/llm"
	"github.com/i474232898/weather-assistant/internal/weather"
)

// Intent is the city and time a query asks about.
type Intent struct {
	City   string    `json:"city"`
	Target time.Time `json:"target"`
}

// Interpreter extracts an Intent from free text through the LLM.
// It never fails: anything it cannot read falls back to the default city
// and now.
type Interpreter struct {
	llm         llm.Completer
	defaultCity string
	logger      *slog.Logger
}

func NewInterpreter(c llm.Completer, defaultCity string, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{
		llm:         c,
		defaultCity: common.TitleWords(defaultCity),
		logger:      logger,
	}
}

func (i *Interpreter) Extract(ctx context.Context, query string, now time.Time) Intent {
	reply, err := i.llm.Complete(ctx, llm.Request{
		Stage:       StageExtract,
		System:      extractSystemRole,
		Prompt:      ExtractionPrompt(query, now),
		MaxTokens:   extractMaxTokens,
		Temperature: llmTemperature,
	})
	if err != nil {
		i.logger.Warn("intent extraction failed, using defaults", "error", err)
		return Intent{City: i.defaultCity, Target: now}
	}
	return i.Parse(reply, now)
}

// Parse reads the first JSON object in reply. Missing or unusable fields get
// their defaults independently.
func (i *Interpreter) Parse(reply string, now time.Time) Intent {
	intent := Intent{City: i.defaultCity, Target: now}

	obj, ok := common.FirstJSONObject(reply)
	if !ok || !gjson.Valid(obj) {
		i.logger.Warn("no JSON object in extraction reply", "reply", truncateForLog(reply, 80))
		return intent
	}

	if city := gjson.Get(obj, "city"); city.Type == gjson.String {
		if name := common.TitleWords(city.String()); name != "" {
			intent.City = name
		}
	}
	if date := gjson.Get(obj, "date"); date.Exists() {
		intent.Target = weather.ParseExtractedTimestamp(strings.TrimSpace(date.String()), now)
	}
	return intent
}

func truncateForLog(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
