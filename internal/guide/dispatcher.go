package guide

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cicerone-ai/cicerone/internal/geo"
	"github.com/cicerone-ai/cicerone/pkg/live"
)

// ErrUnknownTool is reported back to the agent when it invokes a tool that
// was never declared.
var ErrUnknownTool = errors.New("guide: unknown tool")

// Tool names offered to the agent.
const (
	ToolUpdateMap     = "update_map"
	ToolGetDirections = "get_directions"
)

// Cursor target labels.
const (
	TargetMapSearch     = "map-search"
	TargetMapDirections = "map-directions"
)

// Declarations returns the function declarations for the guide tools.
func Declarations() []live.ToolDefinition {
	return []live.ToolDefinition{
		{
			Name:        ToolUpdateMap,
			Description: "Shows a place on the map. Call whenever you mention a specific location so the user can see it.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"location": map[string]any{
						"type":        "string",
						"description": "Name of the place to show, without the city.",
					},
				},
				"required": []string{"location"},
			},
		},
		{
			Name:        ToolGetDirections,
			Description: "Shows a walking route on the map. Call when the user asks how to get somewhere.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"destination": map[string]any{
						"type":        "string",
						"description": "Name of the destination, without the city.",
					},
					"origin": map[string]any{
						"type":        "string",
						"description": "Starting point. Omit to use the user's current position.",
					},
				},
				"required": []string{"destination"},
			},
		},
	}
}

// ResultSender delivers a tool result back to the agent.
type ResultSender func(id, name string, response map[string]any) error

// DispatcherConfig wires a Dispatcher.
type DispatcherConfig struct {
	View   *MapView
	Cursor *Choreographer
	Geo    geo.Provider
	City   string
	Send   ResultSender
	Logger *slog.Logger

	// Observe, when set, receives the handling time of every invocation.
	Observe func(tool string, elapsed time.Duration)
}

// Dispatcher executes tool call batches from the agent. Each invocation runs
// in its own goroutine: the cursor acts out the action, the map view is
// updated, and the result is sent back while the turn is still open.
type Dispatcher struct {
	view    *MapView
	cursor  *Choreographer
	geo     geo.Provider
	city    string
	send    ResultSender
	log     *slog.Logger
	observe func(tool string, elapsed time.Duration)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher and registers the default cursor
// targets.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	g := cfg.Geo
	if g == nil {
		g = geo.None{}
	}
	cfg.Cursor.SetTarget(TargetMapSearch, Target{X: 0.5, Y: 0.12})
	cfg.Cursor.SetTarget(TargetMapDirections, Target{X: 0.72, Y: 0.12})

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		view:    cfg.View,
		cursor:  cfg.Cursor,
		geo:     g,
		city:    cfg.City,
		send:    cfg.Send,
		log:     log,
		observe: cfg.Observe,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Dispatch executes every invocation in the batch concurrently. Each
// invocation produces exactly one result, success or failure.
func (d *Dispatcher) Dispatch(batch live.ToolCallBatch) {
	for _, inv := range batch.Calls {
		d.wg.Add(1)
		go func(inv live.ToolInvocation) {
			defer d.wg.Done()
			d.handle(inv)
		}(inv)
	}
}

func (d *Dispatcher) handle(inv live.ToolInvocation) {
	if d.observe != nil {
		start := time.Now()
		defer func() { d.observe(inv.Name, time.Since(start)) }()
	}
	if d.ctx.Err() != nil {
		d.log.Warn("guide: abandoned tool invocation", "tool", inv.Name, "id", inv.ID)
		return
	}

	switch inv.Name {
	case ToolUpdateMap:
		d.handleUpdateMap(inv)
	case ToolGetDirections:
		d.handleDirections(inv)
	default:
		d.log.Warn("guide: unknown tool", "tool", inv.Name, "id", inv.ID)
		d.reply(inv, map[string]any{"error": fmt.Sprintf("%v: %q", ErrUnknownTool, inv.Name)})
	}
}

func (d *Dispatcher) handleUpdateMap(inv live.ToolInvocation) {
	location := stringArg(inv.Args, "location")
	if location == "" {
		d.reply(inv, map[string]any{"error": "missing required argument: location"})
		return
	}

	query := location
	if d.city != "" {
		query = location + ", " + d.city
	}
	d.animate(inv, TargetMapSearch, func() {
		d.view.ShowSearch(query)
		d.reply(inv, map[string]any{"status": "ok", "query": query})
	})
}

func (d *Dispatcher) handleDirections(inv live.ToolInvocation) {
	destination := stringArg(inv.Args, "destination")
	if destination == "" {
		d.reply(inv, map[string]any{"error": "missing required argument: destination"})
		return
	}

	origin := stringArg(inv.Args, "origin")
	if origin == "" {
		if loc, ok := d.geo.LastKnown(); ok {
			origin = fmt.Sprintf("%f,%f", loc.Lat, loc.Lng)
		} else {
			origin = d.city
		}
	}
	d.animate(inv, TargetMapDirections, func() {
		d.view.ShowDirections(origin, destination)
		d.reply(inv, map[string]any{"status": "ok", "origin": origin, "destination": destination})
	})
}

// animate acts out the invocation with the cursor and runs commit at the
// press frame. The result goes out inside commit so the agent hears back as
// soon as the action lands, not after the release motion.
func (d *Dispatcher) animate(inv live.ToolInvocation, target string, commit func()) {
	if err := d.cursor.Animate(d.ctx, target, commit); err != nil {
		d.log.Debug("guide: cursor animation cut short", "tool", inv.Name, "id", inv.ID, "error", err)
	}
}

func (d *Dispatcher) reply(inv live.ToolInvocation, response map[string]any) {
	if err := d.send(inv.ID, inv.Name, response); err != nil {
		d.log.Warn("guide: send tool result", "tool", inv.Name, "id", inv.ID, "error", err)
	}
}

// Close cancels in-flight animations and waits for all invocations to
// settle. Invocations that had not started their action are logged as
// abandoned rather than silently dropped.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	s, _ := args[key].(string)
	return s
}
