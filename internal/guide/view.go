// Package guide executes the agent's tool calls against the visual guide
// surface: a map view the agent can point at, and an on-screen cursor that
// acts out each action before it lands.
package guide

import "sync"

// ViewKind distinguishes the two map presentations.
type ViewKind string

const (
	// ViewSearch shows a single place highlighted on the map.
	ViewSearch ViewKind = "search"

	// ViewDirections shows a route between two places.
	ViewDirections ViewKind = "directions"
)

// MapEvent is one change of the map presentation.
type MapEvent struct {
	Kind        ViewKind
	Query       string // place query, set for ViewSearch
	Origin      string // route start, set for ViewDirections
	Destination string // route end, set for ViewDirections
}

// MapView holds the current map presentation and streams changes to the UI.
// Safe for concurrent use.
type MapView struct {
	mu      sync.Mutex
	current MapEvent
	set     bool

	events chan MapEvent
}

// NewMapView creates an empty map view.
func NewMapView() *MapView {
	return &MapView{events: make(chan MapEvent, 16)}
}

// ShowSearch switches the map to a place search.
func (v *MapView) ShowSearch(query string) {
	v.apply(MapEvent{Kind: ViewSearch, Query: query})
}

// ShowDirections switches the map to a route.
func (v *MapView) ShowDirections(origin, destination string) {
	v.apply(MapEvent{Kind: ViewDirections, Origin: origin, Destination: destination})
}

func (v *MapView) apply(ev MapEvent) {
	v.mu.Lock()
	v.current = ev
	v.set = true
	v.mu.Unlock()

	// Best-effort delivery; Current always reflects the latest state.
	select {
	case v.events <- ev:
	default:
	}
}

// Current returns the active presentation, or ok=false before the first
// change.
func (v *MapView) Current() (MapEvent, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current, v.set
}

// Events returns the stream of presentation changes.
func (v *MapView) Events() <-chan MapEvent { return v.events }
