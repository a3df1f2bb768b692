package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-assistant/internal/assistant"
	"github.com/i474232898/weather-assistant/internal/config"
	"github.com/i474232898/weather-assistant/internal/llm"
	"github.com/i474232898/weather-assistant/internal/metrics"
	"github.com/i474232898/weather-assistant/internal/weather"
	"github.com/i474232898/weather-assistant/internal/weather/providers"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "weather-assistant",
		Short:        "Conversational weather assistant",
		SilenceUsage: true,
	}
	root.AddCommand(newChatCmd(), newServeCmd())
	return root
}

// services is everything both subcommands share.
type services struct {
	cfg       *config.AppConfig
	logger    *slog.Logger
	metrics   *metrics.Metrics
	selector  *weather.Selector
	assistant *assistant.Assistant
}

func loadServices() (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	provider := providers.NewOpenWeatherProvider(httpClient, providers.OpenWeatherConfig{
		BaseURL:    cfg.WeatherBaseURL,
		Lang:       cfg.WeatherLang,
		Units:      cfg.WeatherUnits,
		MaxRetries: cfg.ProviderMaxRetries,
	})

	m := metrics.New()
	completer := m.InstrumentCompleter(llm.NewOpenAIClient(llm.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.LLMTimeout,
	}, logger))

	selector := weather.NewSelector(provider,
		weather.WithObserver(m),
		weather.WithLogger(logger))

	svc := &services{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		selector: selector,
	}
	svc.assistant = assistant.New(assistant.Deps{
		Interpreter: assistant.NewInterpreter(completer, cfg.DefaultCity, logger),
		Resolver:    selector,
		Composer:    assistant.NewComposer(completer, logger),
		Credentials: weather.Credentials{WeatherAPIKey: cfg.WeatherAPIKey},
		Clock:       svc.clock,
		Logger:      logger,
	})

	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set; every reply will use defaults or fallbacks")
	}
	if cfg.WeatherAPIKey == "" {
		logger.Warn("WEATHER_API_KEY is not set; weather lookups will fail")
	}
	return svc, nil
}

func (s *services) clock() time.Time {
	return time.Now().In(s.cfg.Location)
}
