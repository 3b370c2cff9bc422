// Package session drives the lifecycle of a voice guide session.
//
// The Controller is the hub that everything else plugs into. Starting a
// session opens the audio devices, connects to the live agent with the active
// persona's instructions and voice, and wires four concurrent flows together:
// microphone frames out through the capture pipeline, synthesised speech in
// through the playback scheduler, transcripts into the turn aggregator, and
// tool calls into the guide dispatcher. Stopping tears all of that down in
// reverse and returns to idle.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cicerone-ai/cicerone/internal/capture"
	"github.com/cicerone-ai/cicerone/internal/geo"
	"github.com/cicerone-ai/cicerone/internal/guide"
	"github.com/cicerone-ai/cicerone/internal/observe"
	"github.com/cicerone-ai/cicerone/internal/persona"
	"github.com/cicerone-ai/cicerone/internal/turns"
	"github.com/cicerone-ai/cicerone/pkg/audio"
	"github.com/cicerone-ai/cicerone/pkg/audio/pcm"
	"github.com/cicerone-ai/cicerone/pkg/audio/playback"
	"github.com/cicerone-ai/cicerone/pkg/live"
)

// Config wires a Controller.
type Config struct {
	// Provider establishes live agent sessions.
	Provider live.Provider

	// OpenInput and OpenOutput open fresh audio devices for each session.
	// The controller owns the returned devices until the session ends.
	OpenInput  func() (audio.InputDevice, error)
	OpenOutput func() (audio.OutputDevice, error)

	// Catalog holds the available personas. Defaults to the built-in set.
	Catalog *persona.Catalog

	// PersonaID selects the initial persona. Defaults to [persona.DefaultID].
	PersonaID string

	// City anchors map queries and the guide's instructions.
	City string

	// Prefs are the visitor preferences woven into the instructions.
	Prefs persona.Preferences

	// Geo supplies the visitor's position for direction origins. Optional.
	Geo geo.Provider

	// CursorSteps and CursorInterval tune the tool-call cursor animation.
	// Zero values use the choreographer defaults.
	CursorSteps    int
	CursorInterval time.Duration

	Metrics *observe.Metrics
	Logger  *slog.Logger
}

// resources are the per-session pieces, acquired on start and released
// together on teardown.
type resources struct {
	sess     live.Session
	output   audio.OutputDevice
	sched    *playback.Scheduler
	disp     *guide.Dispatcher
	pipeline *capture.Pipeline
	pumpDone chan struct{}
}

// Controller owns at most one live session at a time and survives across
// sessions: conversation history, the map view and the cursor persist when a
// session stops, so the UI keeps its state between toggles.
//
// Two locks split the work. opMu serializes the lifecycle operations, which
// block for as long as a device open or an agent handshake takes. mu guards
// the fields themselves and is only ever held briefly, so State, Persona and
// the other accessors answer immediately even while a start is mid-handshake.
type Controller struct {
	cfg     Config
	log     *slog.Logger
	metrics *observe.Metrics

	agg    *turns.Aggregator
	view   *guide.MapView
	cursor *guide.Choreographer

	states  chan State
	notices chan Notice

	opMu sync.Mutex

	mu        sync.Mutex
	state     State
	personaID string
	epoch     int
	res       *resources
}

// NewController creates an idle controller and seeds the conversation with
// the initial persona's greeting.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Provider == nil {
		return nil, errors.New("session: provider is required")
	}
	if cfg.OpenInput == nil || cfg.OpenOutput == nil {
		return nil, errors.New("session: device openers are required")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = persona.NewCatalog()
	}
	if cfg.Geo == nil {
		cfg.Geo = geo.None{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}

	id := cfg.PersonaID
	if id == "" {
		id = persona.DefaultID
	}
	p, err := cfg.Catalog.Get(id)
	if err != nil {
		return nil, fmt.Errorf("session: initial persona: %w", err)
	}

	c := &Controller{
		cfg:       cfg,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
		agg:       turns.New(),
		view:      guide.NewMapView(),
		cursor:    guide.NewChoreographer(cfg.CursorSteps, cfg.CursorInterval),
		states:    make(chan State, 16),
		notices:   make(chan Notice, 4),
		personaID: p.ID,
	}
	c.agg.Seed(p.Greeting())
	return c, nil
}

// Start opens the devices, connects to the agent and brings the session
// live. Returns ErrNotIdle when a session already exists. On failure every
// partially acquired resource is released and the controller returns to
// idle; the error wraps ErrDeviceUnavailable or ErrHandshakeFailed so
// callers can tell the two apart.
func (c *Controller) Start(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.start(ctx)
}

// start does the work of Start. Callers hold opMu.
func (c *Controller) start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("session: start in state %s: %w", st, ErrNotIdle)
	}
	id := c.personaID
	c.mu.Unlock()

	p, err := c.cfg.Catalog.Get(id)
	if err != nil {
		return fmt.Errorf("session: start: %w", err)
	}

	ctx, span := observe.StartSpan(ctx, "session.start")
	defer span.End()
	c.transition(StateStarting)

	var acquired []func()
	fail := func(status string, err error) error {
		c.metrics.RecordSessionStart(ctx, status)
		c.transition(StateFailed)
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i]()
		}
		c.transition(StateIdle)
		c.log.Error("session: start failed", "persona", p.ID, "error", err)
		return err
	}

	input, err := c.cfg.OpenInput()
	if err != nil {
		return fail("device", fmt.Errorf("session: open input: %w: %w", ErrDeviceUnavailable, err))
	}
	acquired = append(acquired, func() { _ = input.Close() })

	output, err := c.cfg.OpenOutput()
	if err != nil {
		return fail("device", fmt.Errorf("session: open output: %w: %w", ErrDeviceUnavailable, err))
	}
	acquired = append(acquired, func() { _ = output.Close() })

	connectStart := time.Now()
	sess, err := c.cfg.Provider.Connect(ctx, live.SessionConfig{
		Instructions: persona.Instructions(p, c.cfg.City, c.cfg.Prefs),
		Voice:        p.Voice(),
		Tools:        guide.Declarations(),
	})
	if err != nil {
		return fail("handshake", fmt.Errorf("session: connect: %w: %w", ErrHandshakeFailed, err))
	}
	c.metrics.ConnectDuration.Record(ctx, time.Since(connectStart).Seconds())

	sched := playback.New(output)
	disp := guide.NewDispatcher(guide.DispatcherConfig{
		View:   c.view,
		Cursor: c.cursor,
		Geo:    c.cfg.Geo,
		City:   c.cfg.City,
		Send:   c.resultSender(sess),
		Logger: c.log,
		Observe: func(tool string, elapsed time.Duration) {
			c.metrics.RecordToolDispatch(context.Background(), tool, elapsed)
		},
	})

	pipeline := capture.New(input, sess, c.log)
	pipeline.Start()

	c.mu.Lock()
	c.epoch++
	pumpDone := make(chan struct{})
	go c.pump(sess, sched, disp, c.epoch, pumpDone)
	c.res = &resources{
		sess:     sess,
		output:   output,
		sched:    sched,
		disp:     disp,
		pipeline: pipeline,
		pumpDone: pumpDone,
	}
	c.setState(StateLive)
	c.mu.Unlock()

	c.metrics.ActiveSessions.Add(ctx, 1)
	c.metrics.RecordSessionStart(ctx, "ok")
	c.log.Info("session: live", "persona", p.ID, "voice", p.Voice())
	return nil
}

// Stop tears the live session down and returns to idle. Stopping an idle
// controller is a no-op.
func (c *Controller) Stop() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.stop()
}

// stop does the work of Stop. Callers hold opMu.
func (c *Controller) stop() error {
	c.mu.Lock()
	switch c.state {
	case StateIdle:
		c.mu.Unlock()
		return nil
	case StateLive:
	default:
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("session: stop in state %s: %w", st, ErrNotLive)
	}
	c.setState(StateStopping)
	r := c.detachLocked()
	c.mu.Unlock()

	c.release(r)
	sent, dropped := r.pipeline.Stats()

	ctx := context.Background()
	c.metrics.FramesSent.Add(ctx, sent)
	c.metrics.ActiveSessions.Add(ctx, -1)
	c.transition(StateIdle)
	c.log.Info("session: stopped", "frames_sent", sent, "frames_dropped", dropped)
	return nil
}

// Toggle stops a live session or starts one from idle.
func (c *Controller) Toggle(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	switch st := c.State(); st {
	case StateLive:
		return c.stop()
	case StateIdle:
		return c.start(ctx)
	default:
		return fmt.Errorf("session: toggle in state %s", st)
	}
}

// SwitchPersona changes the active persona and seeds its greeting. A live
// session is stopped and restarted so the agent picks up the new voice and
// instructions; the whole switch runs as one lifecycle operation.
func (c *Controller) SwitchPersona(ctx context.Context, id string) error {
	p, err := c.cfg.Catalog.Get(id)
	if err != nil {
		return fmt.Errorf("session: switch persona: %w", err)
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	wasLive := c.State() == StateLive
	if wasLive {
		if err := c.stop(); err != nil {
			return err
		}
	}

	c.mu.Lock()
	if c.state != StateIdle {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("session: switch persona in state %s: %w", st, ErrNotIdle)
	}
	c.personaID = p.ID
	c.mu.Unlock()

	c.agg.Seed(p.Greeting())
	c.log.Info("session: persona switched", "persona", p.ID)

	if wasLive {
		return c.start(ctx)
	}
	return nil
}

// pump demultiplexes agent events for one session. It exits when the event
// stream closes, either because Stop closed the session or because the
// transport dropped.
func (c *Controller) pump(sess live.Session, sched *playback.Scheduler, disp *guide.Dispatcher, epoch int, done chan struct{}) {
	ctx := context.Background()
	toolHandled := false

	for ev := range sess.Events() {
		switch ev := ev.(type) {
		case live.AudioDelta:
			buf, err := pcm.Decode(ev.Chunk, 1)
			if err != nil {
				c.metrics.ChunksDropped.Add(ctx, 1)
				c.log.Warn("session: dropped audio chunk", "error", err)
				continue
			}
			if _, err := sched.Schedule(buf); err != nil {
				c.metrics.ChunksDropped.Add(ctx, 1)
				c.log.Warn("session: schedule playback", "error", err)
				continue
			}
			c.metrics.ChunksScheduled.Add(ctx, 1)

		case live.TranscriptDelta:
			c.agg.AddDelta(ev.Source, ev.Text)

		case live.Interrupted:
			sched.Flush()
			c.agg.Reset()
			c.cursor.Reset()
			c.metrics.Interruptions.Add(ctx, 1)
			c.log.Debug("session: interrupted, playback flushed")

		case live.ToolCallBatch:
			toolHandled = true
			disp.Dispatch(ev)

		case live.Grounding:
			c.agg.SetCitations(ev.Citations)
			// The map follows explicit tool calls when the agent made any
			// this turn; grounding only drives it as a fallback.
			if !toolHandled && len(ev.Citations) > 0 && ev.Citations[0].Title != "" {
				query := ev.Citations[0].Title
				if c.cfg.City != "" {
					query += ", " + c.cfg.City
				}
				c.view.ShowSearch(query)
			}

		case live.TurnComplete:
			for _, msg := range c.agg.Commit() {
				c.metrics.RecordTurnCommit(ctx, string(msg.Role))
			}
			toolHandled = false
		}
	}

	// done must close before transportClosed: an orderly teardown holds opMu
	// while it waits on this channel.
	close(done)
	c.transportClosed(epoch, sess.Err())
}

// transportClosed runs when a session's event stream ends. During an orderly
// Stop the epoch has already moved on by the time opMu is acquired and this
// is a no-op; otherwise the transport died underneath a live session and the
// controller cleans up and notifies the UI.
func (c *Controller) transportClosed(epoch int, cause error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if epoch != c.epoch || c.state != StateLive {
		c.mu.Unlock()
		return
	}
	c.setState(StateStopping)
	r := c.detachLocked()
	c.mu.Unlock()

	c.log.Warn("session: transport dropped", "error", cause)
	c.release(r)
	sent, _ := r.pipeline.Stats()

	ctx := context.Background()
	c.metrics.FramesSent.Add(ctx, sent)
	c.metrics.ActiveSessions.Add(ctx, -1)
	c.transition(StateIdle)

	err := ErrTransportDropped
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrTransportDropped, cause)
	}
	select {
	case c.notices <- Notice{Kind: NoticeTransportDropped, Err: err}:
	default:
	}
}

// detachLocked takes ownership of the per-session resources and bumps the
// epoch so a late transportClosed from the old pump is ignored. Callers hold
// c.mu.
func (c *Controller) detachLocked() *resources {
	c.epoch++
	r := c.res
	c.res = nil
	return r
}

// release frees detached session resources in reverse acquisition order.
func (c *Controller) release(r *resources) {
	r.pipeline.Stop()
	if err := r.sess.Close(); err != nil {
		c.log.Warn("session: close agent session", "error", err)
	}
	<-r.pumpDone
	r.disp.Close()
	r.sched.Flush()
	if err := r.output.Close(); err != nil {
		c.log.Warn("session: close output device", "error", err)
	}
	c.agg.Reset()
	c.cursor.Reset()
}

// resultSender wraps the session's tool result delivery with metrics.
func (c *Controller) resultSender(sess live.Session) guide.ResultSender {
	return func(id, name string, response map[string]any) error {
		status := "ok"
		if _, failed := response["error"]; failed {
			status = "error"
		}
		c.metrics.RecordToolCall(context.Background(), name, status)
		return sess.SendToolResult(id, name, response)
	}
}

// setState records the new state and publishes it best-effort on the States
// channel. Callers hold c.mu.
func (c *Controller) setState(s State) {
	c.state = s
	select {
	case c.states <- s:
	default:
	}
}

// transition is setState for callers that do not hold c.mu.
func (c *Controller) transition(s State) {
	c.mu.Lock()
	c.setState(s)
	c.mu.Unlock()
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Persona returns the id of the active persona.
func (c *Controller) Persona() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.personaID
}

// Messages streams committed conversation turns.
func (c *Controller) Messages() <-chan turns.Message { return c.agg.Messages() }

// History returns all committed conversation turns so far.
func (c *Controller) History() []turns.Message { return c.agg.History() }

// MapEvents streams map presentation changes.
func (c *Controller) MapEvents() <-chan guide.MapEvent { return c.view.Events() }

// MapState returns the current map presentation, or ok=false before the
// first change.
func (c *Controller) MapState() (guide.MapEvent, bool) { return c.view.Current() }

// CursorFrames streams cursor animation keyframes.
func (c *Controller) CursorFrames() <-chan guide.Keyframe { return c.cursor.Frames() }

// States streams lifecycle transitions, best-effort.
func (c *Controller) States() <-chan State { return c.states }

// Notices streams out-of-band events such as transport drops.
func (c *Controller) Notices() <-chan Notice { return c.notices }
