package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/i474232898/weather-widget/internal/weather"
)

// EnvPrefix is prepended to every environment override, e.g. WIDGET_LOCATION.
const EnvPrefix = "WIDGET"

// AppConfig holds all configuration for the widget.
type AppConfig struct {
	// Location is an optional initial hint, as if it had been typed in.
	Location string `mapstructure:"location"`
	// AutoStart submits once at startup instead of waiting for <ENTER>.
	AutoStart bool `mapstructure:"autostart"`

	TimezoneCommand []string `mapstructure:"timezone_command" validate:"min=1,dive,required"`
	GeocodeURL      string   `mapstructure:"geocode_url" validate:"required,url"`
	ForecastURL     string   `mapstructure:"forecast_url" validate:"required,url"`

	HTTP    HTTPConfig    `mapstructure:"http"`
	Command CommandConfig `mapstructure:"command"`
	Rate    RateConfig    `mapstructure:"rate"`
	Refresh RefreshConfig `mapstructure:"refresh"`
	Store   StoreConfig   `mapstructure:"store"`
	API     APIConfig     `mapstructure:"api"`
	Log     LogConfig     `mapstructure:"log"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"required"`
}

type CommandConfig struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"required"`
}

// RateConfig limits outbound requests to the weather APIs.
type RateConfig struct {
	RPS   float64 `mapstructure:"rps" validate:"gt=0"`
	Burst int     `mapstructure:"burst" validate:"min=1"`
}

type RefreshConfig struct {
	// Interval between automatic reloads; 0 disables them.
	Interval time.Duration `mapstructure:"interval"`
}

// StoreConfig controls in-memory forecast history retention.
type StoreConfig struct {
	MaxHistory int           `mapstructure:"max_history" validate:"min=0"` // 0 = unlimited
	MaxAge     time.Duration `mapstructure:"max_age"`                      // 0 = unlimited
}

type APIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    string `mapstructure:"port" validate:"required,numeric"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
	// File receives log output; empty means stderr.
	File string `mapstructure:"file"`
}

var validate = validator.New()

// Load reads configuration from .env, an optional config file and
// environment variables, in increasing order of precedence.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found or error loading it", "error", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.weather-widget")

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return load(v)
}

func load(v *viper.Viper) (*AppConfig, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("location", "")
	v.SetDefault("autostart", true)
	v.SetDefault("timezone_command", weather.DefaultTimezoneCommand)
	v.SetDefault("geocode_url", weather.DefaultGeocodeURL)
	v.SetDefault("forecast_url", weather.DefaultForecastURL)
	v.SetDefault("http.timeout", 10*time.Second)
	v.SetDefault("command.timeout", 5*time.Second)
	v.SetDefault("rate.rps", 1.0)
	v.SetDefault("rate.burst", 3)
	v.SetDefault("refresh.interval", 15*time.Minute)
	v.SetDefault("store.max_history", 96) // a day of 15-minute refreshes
	v.SetDefault("store.max_age", 24*time.Hour)
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// Resolver returns the request builder for the configured endpoints.
func (c *AppConfig) Resolver() weather.Resolver {
	return weather.Resolver{
		GeocodeURL:      c.GeocodeURL,
		ForecastURL:     c.ForecastURL,
		TimezoneCommand: c.TimezoneCommand,
	}
}

// GetServerAddr returns the API listen address in the format ":port".
func (c *AppConfig) GetServerAddr() string {
	return ":" + c.API.Port
}

// NewLogger creates a new slog.Logger writing to w.
func (c *AppConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch strings.ToLower(c.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default: // "text" or anything else
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
