package config

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"

	"github.com/i474232898/weather-widget/internal/weather"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.AutoStart {
		t.Error("expected autostart by default")
	}
	if cfg.Location != "" {
		t.Errorf("expected no default location, got %q", cfg.Location)
	}
	if diff := cmp.Diff(weather.NewResolver(), cfg.Resolver()); diff != "" {
		t.Errorf("resolver mismatch (-want +got):\n%s", diff)
	}
	if cfg.HTTP.Timeout != 10*time.Second || cfg.Command.Timeout != 5*time.Second {
		t.Errorf("unexpected timeouts: http=%v command=%v", cfg.HTTP.Timeout, cfg.Command.Timeout)
	}
	if cfg.Refresh.Interval != 15*time.Minute {
		t.Errorf("expected 15m refresh, got %v", cfg.Refresh.Interval)
	}
	if cfg.Store.MaxHistory != 96 || cfg.Store.MaxAge != 24*time.Hour {
		t.Errorf("unexpected store retention: %+v", cfg.Store)
	}
	if got := cfg.GetServerAddr(); got != ":8080" {
		t.Errorf("expected :8080, got %q", got)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WIDGET_LOCATION", "Europe/Lisbon")
	t.Setenv("WIDGET_AUTOSTART", "false")
	t.Setenv("WIDGET_HTTP_TIMEOUT", "3s")
	t.Setenv("WIDGET_REFRESH_INTERVAL", "0s")
	t.Setenv("WIDGET_API_PORT", "9090")
	t.Setenv("WIDGET_LOG_LEVEL", "debug")
	t.Setenv("WIDGET_FORECAST_URL", "http://localhost:8081/v1/forecast")

	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Location != "Europe/Lisbon" {
		t.Errorf("expected location override, got %q", cfg.Location)
	}
	if cfg.AutoStart {
		t.Error("expected autostart disabled")
	}
	if cfg.HTTP.Timeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %v", cfg.HTTP.Timeout)
	}
	if cfg.Refresh.Interval != 0 {
		t.Errorf("expected refresh disabled, got %v", cfg.Refresh.Interval)
	}
	if got := cfg.GetServerAddr(); got != ":9090" {
		t.Errorf("expected :9090, got %q", got)
	}
	if cfg.Resolver().ForecastURL != "http://localhost:8081/v1/forecast" {
		t.Errorf("expected forecast URL override, got %q", cfg.Resolver().ForecastURL)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		errContains string
	}{
		{
			name:        "zero rate",
			env:         map[string]string{"WIDGET_RATE_RPS": "0"},
			errContains: "RPS",
		},
		{
			name:        "bad log format",
			env:         map[string]string{"WIDGET_LOG_FORMAT": "xml"},
			errContains: "Format",
		},
		{
			name:        "geocode url not a url",
			env:         map[string]string{"WIDGET_GEOCODE_URL": "geocoder"},
			errContains: "GeocodeURL",
		},
		{
			name:        "non-numeric port",
			env:         map[string]string{"WIDGET_API_PORT": "http"},
			errContains: "Port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := load(viper.New())
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), "invalid config") || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("expected invalid config mentioning %q, got %v", tt.errContains, err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := &AppConfig{Log: LogConfig{Level: "warn", Format: "json"}}

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "component", "test")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one log line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if entry["msg"] != "shown" || entry["level"] != "WARN" || entry["component"] != "test" {
		t.Errorf("unexpected log entry %v", entry)
	}
}
