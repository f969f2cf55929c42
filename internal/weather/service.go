package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// ErrServiceStopped is returned by Post once Run has returned.
var ErrServiceStopped = errors.New("weather service stopped")

const eventQueueSize = 64

// Service owns the application state. Run applies events one at a time on a
// single goroutine; executors run on their own goroutines and post their
// completions back into the same queue.
type Service struct {
	machine  *Machine
	commands CommandRunner
	web      HTTPDoer
	store    Store
	logger   *slog.Logger

	events  chan Event
	done    chan struct{}
	running atomic.Bool

	mu       sync.RWMutex
	snapshot State
	updates  chan State
}

// NewService creates a new Service starting from the given state.
func NewService(
	machine *Machine,
	initial State,
	commands CommandRunner,
	web HTTPDoer,
	store Store,
	logger *slog.Logger,
) (*Service, error) {
	if err := initial.Validate(); err != nil {
		return nil, fmt.Errorf("invalid initial state: %w", err)
	}
	return &Service{
		machine:  machine,
		commands: commands,
		web:      web,
		store:    store,
		logger:   logger.With("component", "weather-service"),
		events:   make(chan Event, eventQueueSize),
		done:     make(chan struct{}),
		snapshot: initial,
		updates:  make(chan State, 1),
	}, nil
}

// Run processes events until ctx is cancelled. It must be called once.
func (s *Service) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("weather service already running")
	}
	defer close(s.done)

	state := s.Snapshot()
	s.publish(state)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.events:
			state = s.handle(ctx, state, ev)
		}
	}
}

// Post enqueues an event. It is safe to call from any goroutine.
func (s *Service) Post(ctx context.Context, ev Event) error {
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrServiceStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the most recently published state.
func (s *Service) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Updates delivers published states. Only the latest unread state is kept,
// so slow readers skip intermediate states rather than blocking the loop.
func (s *Service) Updates() <-chan State {
	return s.updates
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest() (ForecastSnapshot, error) {
	return s.store.GetLatest()
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(from, to time.Time) ([]ForecastSnapshot, error) {
	return s.store.GetRange(from, to)
}

func (s *Service) handle(ctx context.Context, state State, ev Event) State {
	next, reqs, err := s.machine.Update(state, ev)
	if err != nil {
		s.logger.Warn("event rejected", "event", fmt.Sprintf("%T", ev), "phase", state.Phase, "error", err)
		return state
	}
	if err := next.Validate(); err != nil {
		s.logger.Error("state machine produced an invalid state", "event", fmt.Sprintf("%T", ev), "error", err)
		return state
	}

	if next.Phase != state.Phase {
		s.logger.Debug("state transition", "from", state.Phase, "to", next.Phase)
	}
	if next.Phase == PhaseError && state.Phase != PhaseError {
		s.logger.Warn("fetch failed", "error", next.LastError)
	}
	if tag, attempt, ok := completion(ev); ok && (tag == TagUnknown || !accepts(state, attempt)) {
		s.logger.Debug("stale completion discarded", "tag", tag, "attempt", attempt, "current_attempt", state.Attempt)
	}

	if next.Phase == PhaseDisplaying && state.Phase == PhaseFetching && s.store != nil {
		snap := ForecastSnapshot{
			Label:     next.Label,
			Forecast:  next.Forecast,
			FetchedAt: time.Now().UTC(),
		}
		if next.Geolocation != nil {
			snap.Geolocation = *next.Geolocation
		}
		s.store.SaveSnapshot(snap)
	}

	s.publish(next)
	for _, req := range reqs {
		s.dispatch(ctx, req)
	}
	return next
}

func (s *Service) publish(state State) {
	s.mu.Lock()
	s.snapshot = state
	s.mu.Unlock()

	// Drop a stale unread state before offering the new one.
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- state:
	default:
	}
}

// dispatch hands a request to its executor without blocking the loop.
func (s *Service) dispatch(ctx context.Context, req Request) {
	tag, attempt := req.Correlation()
	s.logger.Debug("dispatching request", "tag", tag, "attempt", attempt)

	go func() {
		var result Event
		switch r := req.(type) {
		case CommandRequest:
			result = s.commands.Run(ctx, r)
		case HTTPRequest:
			result = s.web.Do(ctx, r)
		default:
			s.logger.Error("unsupported request", "type", fmt.Sprintf("%T", req))
			return
		}
		if err := s.Post(ctx, result); err != nil {
			s.logger.Debug("completion dropped", "tag", tag, "error", err)
		}
	}()
}

func completion(ev Event) (Tag, string, bool) {
	switch ev := ev.(type) {
	case CommandResult:
		return ev.Tag, ev.Attempt, true
	case HTTPResult:
		return ev.Tag, ev.Attempt, true
	}
	return TagUnknown, "", false
}
