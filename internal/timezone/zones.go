package timezone

import (
	"fmt"
	"sync"
	"time"

	"github.com/ringsaturn/tzf"
)

// Finder maps coordinates to an IANA zone name, or "" when none matches.
// tzf.F satisfies it.
type Finder interface {
	GetTimezoneName(lng float64, lat float64) string
}

// Zones turns geolocations into *time.Location values. Loaded locations are
// cached by zone name. A nil *Zones resolves everything to time.Local.
type Zones struct {
	finder Finder

	mu        sync.Mutex
	locations map[string]*time.Location
}

// New builds Zones on tzf's embedded polygon data. Building the finder is
// slow and memory hungry, so callers should share the result.
func New() (*Zones, error) {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize timezone finder: %w", err)
	}
	return NewWithFinder(finder), nil
}

// NewWithFinder wraps an existing Finder.
func NewWithFinder(finder Finder) *Zones {
	return &Zones{
		finder:    finder,
		locations: make(map[string]*time.Location),
	}
}

// Name returns the zone name for the coordinates, e.g. "Europe/Berlin".
func (z *Zones) Name(latitude, longitude float64) (string, error) {
	name := z.finder.GetTimezoneName(longitude, latitude)
	if name == "" {
		return "", fmt.Errorf("no timezone at lat=%f, lon=%f", latitude, longitude)
	}
	return name, nil
}

// Location resolves the coordinates to a location, falling back to
// time.Local when no zone matches or the zone is unknown to the system.
func (z *Zones) Location(latitude, longitude float64) *time.Location {
	if z == nil {
		return time.Local
	}
	name, err := z.Name(latitude, longitude)
	if err != nil {
		return time.Local
	}

	z.mu.Lock()
	defer z.mu.Unlock()

	if loc, ok := z.locations[name]; ok {
		return loc
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc = time.Local
	}
	z.locations[name] = loc
	return loc
}
