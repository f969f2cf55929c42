package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/i474232898/weather-widget/internal/store"
	"github.com/i474232898/weather-widget/internal/weather"
)

type fakeWidget struct {
	*store.MemoryStore
	state   weather.State
	posted  []weather.Event
	postErr error
}

func (f *fakeWidget) Snapshot() weather.State { return f.state }

func (f *fakeWidget) Post(_ context.Context, ev weather.Event) error {
	if f.postErr != nil {
		return f.postErr
	}
	f.posted = append(f.posted, ev)
	return nil
}

func newTestApp(widget *fakeWidget) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app, widget)
	return app
}

func TestStateEndpoint(t *testing.T) {
	widget := &fakeWidget{
		MemoryStore: store.NewMemoryStore(10, time.Hour),
		state:       weather.State{Phase: weather.PhaseFetching, Hint: "Berlin", Attempt: "a1"},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	resp, err := newTestApp(widget).Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["phase"] != "fetching" || body["fetching"] != true || body["hint"] != "Berlin" {
		t.Errorf("unexpected state body %v", body)
	}
}

func TestLatestForecastEndpoint(t *testing.T) {
	widget := &fakeWidget{MemoryStore: store.NewMemoryStore(10, time.Hour)}
	app := newTestApp(widget)

	// No forecast fetched yet should return 404.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/forecast/latest", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}

	widget.SaveSnapshot(weather.ForecastSnapshot{Label: "Berlin, Germany", FetchedAt: time.Now().UTC()})

	req = httptest.NewRequest(http.MethodGet, "/api/v1/forecast/latest", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var snap weather.ForecastSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if snap.Label != "Berlin, Germany" {
		t.Errorf("expected Berlin snapshot, got %q", snap.Label)
	}
}

// TestForecastHistoryValidation verifies that the history endpoint requires
// a well-formed, ordered time range.
func TestForecastHistoryValidation(t *testing.T) {
	widget := &fakeWidget{MemoryStore: store.NewMemoryStore(10, 0)}
	widget.SaveSnapshot(weather.ForecastSnapshot{
		Label:     "Berlin, Germany",
		FetchedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	app := newTestApp(widget)

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{name: "missing range", query: "", wantStatus: http.StatusBadRequest},
		{name: "missing to", query: "?from=2024-03-01T00:00:00Z", wantStatus: http.StatusBadRequest},
		{name: "garbage time", query: "?from=yesterday&to=today", wantStatus: http.StatusBadRequest},
		{name: "reversed range", query: "?from=2024-03-02T00:00:00Z&to=2024-03-01T00:00:00Z", wantStatus: http.StatusBadRequest},
		{name: "rfc3339 range", query: "?from=2024-03-01T00:00:00Z&to=2024-03-02T00:00:00Z", wantStatus: http.StatusOK},
		{name: "unix range", query: "?from=1709251200&to=1709337600", wantStatus: http.StatusOK},
		{name: "empty range", query: "?from=2024-01-01T00:00:00Z&to=2024-01-02T00:00:00Z", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/forecast/history"+tt.query, nil)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				body, _ := io.ReadAll(resp.Body)
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, resp.StatusCode, body)
			}
		})
	}
}

func TestKeysEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		postErr    error
		wantStatus int
		wantEvents []weather.Event
	}{
		{
			name:       "confirm",
			body:       `{"key":"confirm"}`,
			wantStatus: http.StatusAccepted,
			wantEvents: []weather.Event{weather.KeyEvent{Kind: weather.KeyConfirm}},
		},
		{
			name:       "character",
			body:       `{"key":"char","char":"ü"}`,
			wantStatus: http.StatusAccepted,
			wantEvents: []weather.Event{weather.KeyEvent{Kind: weather.KeyChar, Char: 'ü'}},
		},
		{
			name:       "unknown key",
			body:       `{"key":"escape"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "char without character",
			body:       `{"key":"char"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "char with several characters",
			body:       `{"key":"char","char":"ab"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{"key":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "widget stopped",
			body:       `{"key":"refresh"}`,
			postErr:    errors.New("stopped"),
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			widget := &fakeWidget{MemoryStore: store.NewMemoryStore(10, 0), postErr: tt.postErr}
			app := newTestApp(widget)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/keys", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if diff := cmp.Diff(tt.wantEvents, widget.posted); diff != "" {
				t.Errorf("posted events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
