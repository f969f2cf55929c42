package weather

import (
	"encoding/json"
	"fmt"
)

// Phase is the explicit state of the fetch pipeline.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseTyping
	PhaseFetching
	PhaseDisplaying
	PhaseError
)

var phaseNames = [...]string{
	PhaseIdle:       "idle",
	PhaseTyping:     "typing",
	PhaseFetching:   "fetching",
	PhaseDisplaying: "displaying",
	PhaseError:      "error",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// transitions lists the allowed phase changes. Staying in the same phase is
// always allowed.
var transitions = map[Phase][]Phase{
	PhaseIdle:       {PhaseTyping, PhaseFetching},
	PhaseTyping:     {PhaseFetching},
	PhaseFetching:   {PhaseTyping, PhaseDisplaying, PhaseError},
	PhaseDisplaying: {PhaseTyping, PhaseFetching},
	PhaseError:      {PhaseTyping, PhaseFetching},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to Phase) bool {
	if from == to {
		return true
	}
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// State is the orchestrator's application state. Values are treated as
// immutable: the reducer returns a new State instead of mutating its input.
type State struct {
	Phase    Phase       `json:"phase"`
	Forecast ForecastSet `json:"forecast"`
	// Hint is a timezone path ("Region/City") or a free-text place name.
	Hint        string       `json:"hint,omitempty"`
	Label       string       `json:"label,omitempty"`
	Geolocation *Geolocation `json:"geolocation,omitempty"`
	LastError   string       `json:"lastError,omitempty"`
	// Draft is non-nil only while a location is being typed.
	Draft *string `json:"draft,omitempty"`

	// Attempt identifies the resolution attempt whose completions are
	// currently accepted. Empty when nothing is in flight.
	Attempt string `json:"-"`
}

// NewState returns the startup state, optionally seeded with a configured
// location hint.
func NewState(hint string) State {
	return State{Phase: PhaseIdle, Hint: hint}
}

// Fetching reports whether a resolution attempt is in flight.
func (s State) Fetching() bool {
	return s.Phase == PhaseFetching
}

// MarshalJSON adds the derived fetching flag.
func (s State) MarshalJSON() ([]byte, error) {
	type plain State
	return json.Marshal(struct {
		plain
		Fetching bool `json:"fetching"`
	}{plain(s), s.Fetching()})
}

// Validate checks the invariants tying the optional fields to the phase.
func (s State) Validate() error {
	if s.Phase < PhaseIdle || s.Phase > PhaseError {
		return fmt.Errorf("%w: unknown phase %d", ErrInvalidState, int(s.Phase))
	}
	if (s.Draft != nil) != (s.Phase == PhaseTyping) {
		return fmt.Errorf("%w: draft input present in phase %s", ErrInvalidState, s.Phase)
	}
	if (s.LastError != "") != (s.Phase == PhaseError) {
		return fmt.Errorf("%w: error message present in phase %s", ErrInvalidState, s.Phase)
	}
	if (s.Attempt != "") != (s.Phase == PhaseFetching) {
		return fmt.Errorf("%w: attempt id present in phase %s", ErrInvalidState, s.Phase)
	}
	if s.Phase == PhaseDisplaying && len(s.Forecast) == 0 {
		return fmt.Errorf("%w: displaying an empty forecast", ErrInvalidState)
	}
	if s.Phase == PhaseIdle && len(s.Forecast) != 0 {
		return fmt.Errorf("%w: idle with a forecast", ErrInvalidState)
	}
	if s.Geolocation != nil && s.Label == "" {
		return fmt.Errorf("%w: geolocation without label", ErrInvalidState)
	}
	return nil
}

// DraftText returns the draft, or "" outside the typing phase.
func (s State) DraftText() string {
	if s.Draft == nil {
		return ""
	}
	return *s.Draft
}
