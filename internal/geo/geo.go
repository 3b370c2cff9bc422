// Package geo supplies the user's last known position to the tool layer.
package geo

import "sync"

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64
	Lng float64
}

// Provider reports the user's last known position. Implementations must be
// safe for concurrent use.
type Provider interface {
	// LastKnown returns the most recent position fix, or ok=false when no fix
	// is available.
	LastKnown() (loc Location, ok bool)
}

// Static is a Provider pinned to one position. Useful for kiosk deployments
// and tests.
type Static struct {
	Location Location
}

func (s Static) LastKnown() (Location, bool) { return s.Location, true }

// None is a Provider with no position fix.
type None struct{}

func (None) LastKnown() (Location, bool) { return Location{}, false }

// Tracker is a Provider fed by an external position source.
type Tracker struct {
	mu  sync.Mutex
	loc Location
	set bool
}

// Update records a new position fix.
func (t *Tracker) Update(loc Location) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loc = loc
	t.set = true
}

func (t *Tracker) LastKnown() (Location, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loc, t.set
}
