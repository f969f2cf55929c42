package weather

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Machine is the reducer of the fetch pipeline. Update is a pure function of
// its inputs apart from drawing fresh attempt ids.
type Machine struct {
	resolver   Resolver
	newAttempt func() string
}

// NewMachine returns a Machine that stamps attempts with random UUIDs.
func NewMachine(resolver Resolver) *Machine {
	return NewMachineWithAttempts(resolver, uuid.NewString)
}

// NewMachineWithAttempts lets callers control attempt ids, mostly for tests.
func NewMachineWithAttempts(resolver Resolver, newAttempt func() string) *Machine {
	return &Machine{
		resolver:   resolver,
		newAttempt: newAttempt,
	}
}

// Update applies ev to s and returns the next state together with the
// requests to dispatch. On ErrInvalidTransition the input state is returned
// unchanged and no requests are emitted.
func (m *Machine) Update(s State, ev Event) (State, []Request, error) {
	var (
		next State
		reqs []Request
	)

	switch ev := ev.(type) {
	case KeyEvent:
		next, reqs = m.onKey(s, ev)
	case CommandResult:
		next, reqs = m.onCommand(s, ev)
	case HTTPResult:
		next, reqs = m.onHTTP(s, ev)
	default:
		return s, nil, fmt.Errorf("unsupported event %T", ev)
	}

	if !CanTransition(s.Phase, next.Phase) {
		return s, nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Phase, next.Phase)
	}
	return next, reqs, nil
}

func (m *Machine) onKey(s State, ev KeyEvent) (State, []Request) {
	switch ev.Kind {
	case KeyConfirm:
		if s.Phase == PhaseTyping {
			s.Hint = strings.TrimSpace(*s.Draft)
			s.Draft = nil
		}
		return m.submit(s)

	case KeyRefresh:
		if s.Phase != PhaseDisplaying {
			return s, nil
		}
		return m.submit(s)

	case KeyNewLocation:
		draft := ""
		s.Phase = PhaseTyping
		s.Draft = &draft
		s.LastError = ""
		s.Attempt = ""
		return s, nil

	case KeyBackspace:
		if s.Phase != PhaseTyping {
			return s, nil
		}
		draft := *s.Draft
		if _, size := utf8.DecodeLastRuneInString(draft); size > 0 {
			draft = draft[:len(draft)-size]
		}
		s.Draft = &draft
		return s, nil

	case KeyChar:
		if s.Phase != PhaseTyping || ev.Char == utf8.RuneError {
			return s, nil
		}
		draft := *s.Draft + string(ev.Char)
		s.Draft = &draft
		return s, nil
	}
	return s, nil
}

// submit starts a fresh resolution attempt. Only the hint and the displayed
// forecast carry over; the location is resolved again.
func (m *Machine) submit(s State) (State, []Request) {
	s.Phase = PhaseFetching
	s.LastError = ""
	s.Draft = nil
	s.Label = ""
	s.Geolocation = nil
	s.Attempt = m.newAttempt()
	return s, []Request{m.resolver.Next(s.Hint, s.Attempt)}
}

// accepts reports whether a completion belongs to the attempt in flight.
func accepts(s State, attempt string) bool {
	return s.Phase == PhaseFetching && attempt == s.Attempt
}

func (m *Machine) onCommand(s State, ev CommandResult) (State, []Request) {
	if ev.Tag != TagTimezone || !accepts(s, ev.Attempt) {
		return s, nil
	}

	if ev.Err != nil || ev.ExitCode != 0 || len(ev.Stderr) > 0 {
		return fail(s, &RequestFailedError{
			Stage:    TagTimezone,
			ExitCode: ev.ExitCode,
			Detail:   strings.TrimSpace(strings.ToValidUTF8(string(ev.Stderr), "")),
			Err:      ev.Err,
		}), nil
	}
	if !utf8.Valid(ev.Stdout) {
		return fail(s, fmt.Errorf("failed to read timezone: %w", ErrEncoding)), nil
	}

	hint := strings.TrimSpace(string(ev.Stdout))
	if hint == "" {
		return fail(s, &RequestFailedError{Stage: TagTimezone, Detail: "empty output"}), nil
	}

	s.Hint = hint
	return s, []Request{m.resolver.Geocode(hint, s.Attempt)}
}

func (m *Machine) onHTTP(s State, ev HTTPResult) (State, []Request) {
	if !accepts(s, ev.Attempt) {
		return s, nil
	}

	switch ev.Tag {
	case TagGeocode:
		if err := checkStatus(ev); err != nil {
			return fail(s, err), nil
		}
		res, err := ParseGeocode(ev.Body)
		if err != nil {
			return fail(s, fmt.Errorf("could not resolve location: %w", err)), nil
		}
		geo := res.Geolocation
		s.Geolocation = &geo
		s.Label = res.Label
		return s, []Request{m.resolver.Weather(geo, s.Attempt)}

	case TagWeather:
		if err := checkStatus(ev); err != nil {
			return fail(s, err), nil
		}
		forecast, err := ParseForecast(ev.Body)
		if err != nil {
			return fail(s, fmt.Errorf("failed to parse weather data: %w", err)), nil
		}
		s.Forecast = forecast
		s.Phase = PhaseDisplaying
		s.Attempt = ""
		return s, nil
	}
	return s, nil
}

func checkStatus(ev HTTPResult) error {
	if ev.Err != nil || ev.Status < 200 || ev.Status > 299 {
		return &RequestFailedError{Stage: ev.Tag, Status: ev.Status, Err: ev.Err}
	}
	return nil
}

// fail moves to the error phase. The displayed forecast is kept so a stale
// view stays visible behind the error.
func fail(s State, err error) State {
	s.Phase = PhaseError
	s.LastError = err.Error()
	s.Attempt = ""
	return s
}
