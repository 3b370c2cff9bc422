package guide_test

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cicerone-ai/cicerone/internal/geo"
	"github.com/cicerone-ai/cicerone/internal/guide"
	"github.com/cicerone-ai/cicerone/pkg/live"
)

// resultRecorder collects tool results in a test-friendly way.
type resultRecorder struct {
	mu      sync.Mutex
	results []recordedResult
	sent    chan struct{}

	err error
}

type recordedResult struct {
	ID       string
	Name     string
	Response map[string]any
}

func newRecorder() *resultRecorder {
	return &resultRecorder{sent: make(chan struct{}, 16)}
}

func (r *resultRecorder) send(id, name string, response map[string]any) error {
	r.mu.Lock()
	if r.err != nil {
		defer r.mu.Unlock()
		return r.err
	}
	r.results = append(r.results, recordedResult{ID: id, Name: name, Response: response})
	r.mu.Unlock()
	r.sent <- struct{}{}
	return nil
}

func (r *resultRecorder) wait(t *testing.T, n int) []recordedResult {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for range n {
		select {
		case <-r.sent:
		case <-deadline:
			t.Fatalf("timeout waiting for %d tool results", n)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedResult(nil), r.results...)
}

func newDispatcher(rec *resultRecorder, g geo.Provider) (*guide.Dispatcher, *guide.MapView) {
	view := guide.NewMapView()
	cursor := guide.NewChoreographer(2, time.Millisecond)
	d := guide.NewDispatcher(guide.DispatcherConfig{
		View:   view,
		Cursor: cursor,
		Geo:    g,
		City:   "London",
		Send:   rec.send,
	})
	return d, view
}

func TestDispatch_UpdateMapAppendsCity(t *testing.T) {
	rec := newRecorder()
	d, view := newDispatcher(rec, nil)
	defer d.Close()

	d.Dispatch(live.ToolCallBatch{Calls: []live.ToolInvocation{
		{ID: "fc-1", Name: guide.ToolUpdateMap, Args: map[string]any{"location": "Borough Market"}},
	}})

	results := rec.wait(t, 1)
	if results[0].ID != "fc-1" || results[0].Name != guide.ToolUpdateMap {
		t.Errorf("result = %+v", results[0])
	}
	if got := results[0].Response["query"]; got != "Borough Market, London" {
		t.Errorf("query = %v; want city-qualified", got)
	}

	ev, ok := view.Current()
	if !ok || ev.Kind != guide.ViewSearch || ev.Query != "Borough Market, London" {
		t.Errorf("view = %+v, ok=%v", ev, ok)
	}
}

func TestDispatch_DirectionsOriginFallbacks(t *testing.T) {
	t.Run("explicit origin wins", func(t *testing.T) {
		rec := newRecorder()
		d, view := newDispatcher(rec, geo.Static{Location: geo.Location{Lat: 51.5, Lng: -0.09}})
		defer d.Close()

		d.Dispatch(live.ToolCallBatch{Calls: []live.ToolInvocation{
			{ID: "fc-1", Name: guide.ToolGetDirections, Args: map[string]any{
				"destination": "Tower Bridge",
				"origin":      "London Bridge",
			}},
		}})

		results := rec.wait(t, 1)
		if got := results[0].Response["origin"]; got != "London Bridge" {
			t.Errorf("origin = %v; want explicit origin", got)
		}
		ev, _ := view.Current()
		if ev.Kind != guide.ViewDirections || ev.Destination != "Tower Bridge" {
			t.Errorf("view = %+v", ev)
		}
	})

	t.Run("position fix used when origin omitted", func(t *testing.T) {
		rec := newRecorder()
		d, _ := newDispatcher(rec, geo.Static{Location: geo.Location{Lat: 51.5, Lng: -0.09}})
		defer d.Close()

		d.Dispatch(live.ToolCallBatch{Calls: []live.ToolInvocation{
			{ID: "fc-1", Name: guide.ToolGetDirections, Args: map[string]any{"destination": "Tower Bridge"}},
		}})

		results := rec.wait(t, 1)
		origin, _ := results[0].Response["origin"].(string)
		if !strings.HasPrefix(origin, "51.5") {
			t.Errorf("origin = %q; want coordinates from position fix", origin)
		}
	})

	t.Run("city used without position fix", func(t *testing.T) {
		rec := newRecorder()
		d, _ := newDispatcher(rec, geo.None{})
		defer d.Close()

		d.Dispatch(live.ToolCallBatch{Calls: []live.ToolInvocation{
			{ID: "fc-1", Name: guide.ToolGetDirections, Args: map[string]any{"destination": "Tower Bridge"}},
		}})

		results := rec.wait(t, 1)
		if got := results[0].Response["origin"]; got != "London" {
			t.Errorf("origin = %v; want city fallback", got)
		}
	})
}

func TestDispatch_EveryInvocationGetsAResult(t *testing.T) {
	rec := newRecorder()
	d, _ := newDispatcher(rec, nil)
	defer d.Close()

	d.Dispatch(live.ToolCallBatch{Calls: []live.ToolInvocation{
		{ID: "fc-1", Name: guide.ToolUpdateMap, Args: map[string]any{"location": "St Paul's"}},
		{ID: "fc-2", Name: "teleport", Args: map[string]any{}},
		{ID: "fc-3", Name: guide.ToolGetDirections, Args: map[string]any{"destination": "Greenwich"}},
	}})

	results := rec.wait(t, 3)
	byID := make(map[string]recordedResult, len(results))
	for _, r := range results {
		byID[r.ID] = r
	}
	if len(byID) != 3 {
		t.Fatalf("distinct results = %d; want 3", len(byID))
	}
	if _, ok := byID["fc-2"].Response["error"]; !ok {
		t.Errorf("unknown tool should get a failure result; got %+v", byID["fc-2"].Response)
	}
	if got := byID["fc-1"].Response["status"]; got != "ok" {
		t.Errorf("fc-1 status = %v", got)
	}
}

func TestDispatch_MissingArgumentFails(t *testing.T) {
	rec := newRecorder()
	d, view := newDispatcher(rec, nil)
	defer d.Close()

	d.Dispatch(live.ToolCallBatch{Calls: []live.ToolInvocation{
		{ID: "fc-1", Name: guide.ToolUpdateMap, Args: map[string]any{}},
	}})

	results := rec.wait(t, 1)
	if _, ok := results[0].Response["error"]; !ok {
		t.Errorf("response = %+v; want error", results[0].Response)
	}
	if _, set := view.Current(); set {
		t.Error("failed invocation must not touch the map view")
	}
}

func TestClose_WaitsForInFlightInvocations(t *testing.T) {
	rec := newRecorder()
	d, _ := newDispatcher(rec, nil)

	d.Dispatch(live.ToolCallBatch{Calls: []live.ToolInvocation{
		{ID: "fc-1", Name: guide.ToolUpdateMap, Args: map[string]any{"location": "Soho"}},
	}})
	d.Close()

	// The invocation either completed with a result or was cut short, but
	// Close must not leave it running.
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.results) > 1 {
		t.Errorf("results = %d; want at most 1", len(rec.results))
	}
}

func TestDispatch_SendErrorDoesNotPanic(t *testing.T) {
	rec := newRecorder()
	rec.err = errors.New("session closed")
	d, _ := newDispatcher(rec, nil)
	defer d.Close()

	d.Dispatch(live.ToolCallBatch{Calls: []live.ToolInvocation{
		{ID: "fc-1", Name: guide.ToolUpdateMap, Args: map[string]any{"location": "Soho"}},
	}})
	d.Close()
}

func TestDeclarations_CoverGuideTools(t *testing.T) {
	decls := guide.Declarations()
	names := make(map[string]bool, len(decls))
	for _, decl := range decls {
		names[decl.Name] = true
		if decl.Description == "" {
			t.Errorf("%s has no description", decl.Name)
		}
		if decl.Parameters == nil {
			t.Errorf("%s has no parameter schema", decl.Name)
		}
	}
	if !names[guide.ToolUpdateMap] || !names[guide.ToolGetDirections] {
		t.Errorf("declarations = %v; want both guide tools", names)
	}
}
