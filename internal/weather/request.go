package weather

import (
	"net/http"
)

// Tag identifies the pipeline stage an outbound request belongs to. Completion
// events are routed solely by their tag; TagUnknown completions are ignored.
type Tag int

const (
	TagUnknown Tag = iota
	TagTimezone
	TagGeocode
	TagWeather
)

func (t Tag) String() string {
	switch t {
	case TagTimezone:
		return "timezone"
	case TagGeocode:
		return "geocode"
	case TagWeather:
		return "weather"
	default:
		return "unknown"
	}
}

// Request is an outbound side effect emitted by the state machine. The set of
// implementations is closed: CommandRequest and HTTPRequest.
type Request interface {
	Correlation() (Tag, string)
	request()
}

// CommandRequest asks the host to run a local command.
type CommandRequest struct {
	Tag     Tag
	Attempt string
	Argv    []string
}

func (r CommandRequest) Correlation() (Tag, string) { return r.Tag, r.Attempt }
func (CommandRequest) request()                     {}

// HTTPRequest asks the host to perform an HTTP call.
type HTTPRequest struct {
	Tag     Tag
	Attempt string
	Method  string
	URL     string
	Header  http.Header
	Body    []byte
}

func (r HTTPRequest) Correlation() (Tag, string) { return r.Tag, r.Attempt }
func (HTTPRequest) request()                     {}

// Event is anything the state machine reacts to: a key press, a command
// completion or an HTTP completion.
type Event interface {
	event()
}

// KeyKind enumerates the discrete user input events.
type KeyKind int

const (
	KeyConfirm KeyKind = iota + 1
	KeyNewLocation
	KeyBackspace
	KeyChar
	// KeyRefresh reloads the forecast, but only while one is displayed.
	KeyRefresh
)

var keyKindNames = map[KeyKind]string{
	KeyConfirm:     "confirm",
	KeyNewLocation: "new_location",
	KeyBackspace:   "backspace",
	KeyChar:        "char",
	KeyRefresh:     "refresh",
}

func (k KeyKind) String() string {
	if name, ok := keyKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKeyKind is the inverse of KeyKind.String.
func ParseKeyKind(s string) (KeyKind, bool) {
	for k, name := range keyKindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// KeyEvent is a single user keystroke. Char is only meaningful for KeyChar.
type KeyEvent struct {
	Kind KeyKind
	Char rune
}

// CommandResult is the completion of a CommandRequest. ExitCode is -1 when
// the process did not run to completion.
type CommandResult struct {
	Tag      Tag
	Attempt  string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Err      error
}

// HTTPResult is the completion of an HTTPRequest. Status is 0 when no
// response was received, in which case Err is set.
type HTTPResult struct {
	Tag     Tag
	Attempt string
	Status  int
	Header  http.Header
	Body    []byte
	Err     error
}

func (KeyEvent) event()      {}
func (CommandResult) event() {}
func (HTTPResult) event()    {}
