package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const fileName = "weather-assistant"

type AppConfig struct {
	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIBaseURL string `mapstructure:"openai_base_url" validate:"omitempty,url"`
	OpenAIModel   string `mapstructure:"openai_model" validate:"required"`

	WeatherAPIKey  string `mapstructure:"weather_api_key"`
	WeatherBaseURL string `mapstructure:"weather_base_url" validate:"required,url"`
	WeatherLang    string `mapstructure:"weather_lang" validate:"required"`
	WeatherUnits   string `mapstructure:"weather_units" validate:"oneof=standard metric imperial"`

	// DefaultCity is used when a query names no city.
	DefaultCity string `mapstructure:"default_city" validate:"required"`
	TimeZone    string `mapstructure:"timezone" validate:"required"`

	HTTPTimeout        time.Duration `mapstructure:"http_timeout" validate:"gt=0"`
	LLMTimeout         time.Duration `mapstructure:"llm_timeout" validate:"gte=0"`
	ProviderMaxRetries int           `mapstructure:"provider_max_retries" validate:"gte=0,lte=5"`

	// Idle chat sessions older than SessionMaxAge are swept every
	// SessionSweepInterval (0 = never).
	SessionMaxAge        time.Duration `mapstructure:"session_max_age" validate:"gte=0"`
	SessionSweepInterval time.Duration `mapstructure:"session_sweep_interval" validate:"gte=0"`

	Port     string `mapstructure:"port" validate:"required,numeric"`
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`

	// Location is TimeZone resolved.
	Location *time.Location `mapstructure:"-" validate:"-"`
}

var defaults = map[string]any{
	"openai_api_key":         "",
	"openai_base_url":        "",
	"openai_model":           "gpt-4o-mini",
	"weather_api_key":        "",
	"weather_base_url":       "https://api.openweathermap.org/data/2.5",
	"weather_lang":           "kr",
	"weather_units":          "metric",
	"default_city":           "Seoul",
	"timezone":               "Asia/Seoul",
	"http_timeout":           "10s",
	"llm_timeout":            "30s",
	"provider_max_retries":   0,
	"session_max_age":        "30m",
	"session_sweep_interval": "5m",
	"port":                   "8080",
	"log_level":              "info",
}

// Load reads configuration from .env, an optional weather-assistant.yaml in
// the working directory and the environment, in increasing precedence.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	return LoadFrom(".")
}

// LoadFrom is Load without the .env step, looking for the yaml file in dir.
func LoadFrom(dir string) (*AppConfig, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc
	return cfg, nil
}

// SlogLevel maps LogLevel onto slog.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
