package weather

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"
)

type fakeRunner struct {
	stdout string
}

func (f fakeRunner) Run(_ context.Context, req CommandRequest) CommandResult {
	return CommandResult{Tag: req.Tag, Attempt: req.Attempt, Stdout: []byte(f.stdout)}
}

type fakeDoer struct {
	forecast      []byte
	weatherStatus int
}

func (f fakeDoer) Do(_ context.Context, req HTTPRequest) HTTPResult {
	res := HTTPResult{Tag: req.Tag, Attempt: req.Attempt, Status: http.StatusOK}
	switch req.Tag {
	case TagGeocode:
		res.Body = []byte(berlinGeocode)
	case TagWeather:
		res.Status = f.weatherStatus
		res.Body = f.forecast
	}
	return res
}

type fakeStore struct {
	mu        sync.Mutex
	snapshots []ForecastSnapshot
}

func (f *fakeStore) SaveSnapshot(s ForecastSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, s)
}

func (f *fakeStore) GetLatest() (ForecastSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.snapshots) == 0 {
		return ForecastSnapshot{}, errors.New("empty")
	}
	return f.snapshots[len(f.snapshots)-1], nil
}

func (f *fakeStore) GetRange(from, to time.Time) ([]ForecastSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ForecastSnapshot(nil), f.snapshots...), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startService(t *testing.T, doer HTTPDoer, st Store) (*Service, context.CancelFunc, <-chan error) {
	t.Helper()

	svc, err := NewService(newTestMachine(), NewState(""), fakeRunner{stdout: "Europe/Berlin\n"}, doer, st, testLogger())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Run(ctx)
	}()
	t.Cleanup(cancel)
	return svc, cancel, done
}

// waitForPhase reads published states until one in the wanted phase arrives.
func waitForPhase(t *testing.T, svc *Service, want Phase) State {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case s := <-svc.Updates():
			if s.Phase == want {
				return s
			}
		case <-timeout:
			t.Fatalf("timed out waiting for phase %s, last snapshot %s", want, svc.Snapshot().Phase)
		}
	}
}

func TestService_FetchesAndStoresForecast(t *testing.T) {
	st := &fakeStore{}
	svc, _, _ := startService(t, fakeDoer{forecast: forecastBody(t, ForecastHours, nil), weatherStatus: http.StatusOK}, st)

	if err := svc.Post(context.Background(), KeyEvent{Kind: KeyConfirm}); err != nil {
		t.Fatalf("Post() error = %v", err)
	}

	s := waitForPhase(t, svc, PhaseDisplaying)
	if s.Label != "Berlin, Germany" {
		t.Errorf("expected label %q, got %q", "Berlin, Germany", s.Label)
	}
	if s.Hint != "Europe/Berlin" {
		t.Errorf("expected discovered hint, got %q", s.Hint)
	}

	latest, err := svc.GetLatest()
	if err != nil {
		t.Fatalf("GetLatest() error = %v", err)
	}
	if latest.Label != "Berlin, Germany" || len(latest.Forecast) != ForecastHours {
		t.Errorf("unexpected snapshot: label=%q records=%d", latest.Label, len(latest.Forecast))
	}
	if latest.Geolocation != (Geolocation{Latitude: 52.52, Longitude: 13.41}) {
		t.Errorf("unexpected snapshot geolocation %v", latest.Geolocation)
	}
	if latest.FetchedAt.IsZero() || latest.FetchedAt.Location() != time.UTC {
		t.Errorf("expected UTC fetch time, got %v", latest.FetchedAt)
	}
}

func TestService_FailedFetchIsNotStored(t *testing.T) {
	st := &fakeStore{}
	svc, _, _ := startService(t, fakeDoer{weatherStatus: http.StatusServiceUnavailable}, st)

	if err := svc.Post(context.Background(), KeyEvent{Kind: KeyConfirm}); err != nil {
		t.Fatalf("Post() error = %v", err)
	}

	s := waitForPhase(t, svc, PhaseError)
	if s.LastError == "" {
		t.Error("expected error message")
	}
	if _, err := svc.GetLatest(); err == nil {
		t.Error("expected no stored snapshot after a failed fetch")
	}
}

func TestService_StopsOnCancel(t *testing.T) {
	svc, cancel, done := startService(t, fakeDoer{}, &fakeStore{})
	waitForPhase(t, svc, PhaseIdle)

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// Fill the queue so Post can only return through the stopped signal.
	for len(svc.events) < cap(svc.events) {
		svc.events <- KeyEvent{Kind: KeyChar, Char: 'x'}
	}
	if err := svc.Post(context.Background(), KeyEvent{Kind: KeyConfirm}); !errors.Is(err, ErrServiceStopped) {
		t.Errorf("expected ErrServiceStopped, got %v", err)
	}

	if err := svc.Run(context.Background()); err == nil {
		t.Error("expected error when running twice")
	}
}

func TestNewService_RejectsInvalidState(t *testing.T) {
	_, err := NewService(newTestMachine(), State{Phase: PhaseTyping}, fakeRunner{}, fakeDoer{}, &fakeStore{}, testLogger())
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}
