package weather

import (
	"context"
	"time"
)

// CommandRunner executes local commands on behalf of the state machine.
// Run must not panic and always returns a result, reporting failures in it.
type CommandRunner interface {
	Run(ctx context.Context, req CommandRequest) CommandResult
}

// HTTPDoer performs HTTP calls on behalf of the state machine. Like
// CommandRunner it reports failures inside the result.
type HTTPDoer interface {
	Do(ctx context.Context, req HTTPRequest) HTTPResult
}

// Store is the contract the in-memory forecast history must satisfy.
type Store interface {
	SaveSnapshot(snapshot ForecastSnapshot)
	GetLatest() (ForecastSnapshot, error)
	GetRange(from, to time.Time) ([]ForecastSnapshot, error)
}
