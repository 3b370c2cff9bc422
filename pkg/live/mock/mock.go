// Package mock provides a scriptable live.Provider and live.Session for tests.
package mock

import (
	"context"
	"sync"

	"github.com/cicerone-ai/cicerone/pkg/audio"
	"github.com/cicerone-ai/cicerone/pkg/live"
)

// ToolResult records one SendToolResult invocation.
type ToolResult struct {
	ID       string
	Name     string
	Response map[string]any
}

// Session is a scriptable [live.Session]. Tests drive the event stream with
// the Emit methods and observe outbound traffic through SentAudio and
// ToolResults.
type Session struct {
	events chan live.Event

	mu          sync.Mutex
	state       live.State
	errVal      error
	closed      bool
	sentAudio   []audio.EncodedChunk
	toolResults []ToolResult

	// SendAudioErr is returned from SendAudio when set.
	SendAudioErr error

	// SendToolResultErr is returned from SendToolResult when set.
	SendToolResultErr error

	// ToolResultSent receives a signal for every recorded tool result.
	ToolResultSent chan struct{}
}

// NewSession creates an open mock session with a buffered event channel.
func NewSession() *Session {
	return &Session{
		events:         make(chan live.Event, 64),
		state:          live.StateOpen,
		ToolResultSent: make(chan struct{}, 64),
	}
}

// Emit places an event on the session stream. Panics if the buffered channel
// is full; size the scripted scenario accordingly.
func (s *Session) Emit(ev live.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		panic("mock: event buffer full")
	}
}

// EmitAudio is shorthand for Emit with an [live.AudioDelta].
func (s *Session) EmitAudio(chunk audio.EncodedChunk) {
	s.Emit(live.AudioDelta{Chunk: chunk})
}

// EmitTranscript is shorthand for Emit with a [live.TranscriptDelta].
func (s *Session) EmitTranscript(source live.TranscriptSource, text string) {
	s.Emit(live.TranscriptDelta{Source: source, Text: text})
}

// EmitTurnComplete is shorthand for Emit with a [live.TurnComplete].
func (s *Session) EmitTurnComplete() {
	s.Emit(live.TurnComplete{})
}

// EmitInterrupted is shorthand for Emit with a [live.Interrupted].
func (s *Session) EmitInterrupted() {
	s.Emit(live.Interrupted{})
}

// EmitToolCalls is shorthand for Emit with a [live.ToolCallBatch].
func (s *Session) EmitToolCalls(calls ...live.ToolInvocation) {
	s.Emit(live.ToolCallBatch{Calls: calls})
}

// EmitGrounding is shorthand for Emit with a [live.Grounding].
func (s *Session) EmitGrounding(citations ...live.Citation) {
	s.Emit(live.Grounding{Citations: citations})
}

// Fail records err, marks the session failed and closes the event stream.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.errVal = err
	s.state = live.StateFailed
	close(s.events)
}

// Events implements [live.Session].
func (s *Session) Events() <-chan live.Event { return s.events }

// SendAudio implements [live.Session], recording the chunk.
func (s *Session) SendAudio(chunk audio.EncodedChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendAudioErr != nil {
		return s.SendAudioErr
	}
	s.sentAudio = append(s.sentAudio, chunk)
	return nil
}

// SendToolResult implements [live.Session], recording the result.
func (s *Session) SendToolResult(id, name string, response map[string]any) error {
	s.mu.Lock()
	if s.SendToolResultErr != nil {
		err := s.SendToolResultErr
		s.mu.Unlock()
		return err
	}
	s.toolResults = append(s.toolResults, ToolResult{ID: id, Name: name, Response: response})
	s.mu.Unlock()

	select {
	case s.ToolResultSent <- struct{}{}:
	default:
	}
	return nil
}

// State implements [live.Session].
func (s *Session) State() live.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err implements [live.Session].
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errVal
}

// Close implements [live.Session]. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.state = live.StateClosed
	close(s.events)
	return nil
}

// Closed reports whether the session has ended.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SentAudio returns a copy of all recorded audio chunks in send order.
func (s *Session) SentAudio() []audio.EncodedChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audio.EncodedChunk(nil), s.sentAudio...)
}

// ToolResults returns a copy of all recorded tool results in send order.
func (s *Session) ToolResults() []ToolResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ToolResult(nil), s.toolResults...)
}

// ConnectCall records one Provider.Connect invocation.
type ConnectCall struct {
	Config live.SessionConfig
}

// Provider is a scriptable [live.Provider].
type Provider struct {
	mu    sync.Mutex
	calls []ConnectCall

	// Session is returned from Connect. When nil, a fresh [NewSession] is
	// created per call.
	Session *Session

	// ConnectErr is returned from Connect when set.
	ConnectErr error
}

// Connect implements [live.Provider].
func (p *Provider) Connect(_ context.Context, cfg live.SessionConfig) (live.Session, error) {
	p.mu.Lock()
	p.calls = append(p.calls, ConnectCall{Config: cfg})
	sess := p.Session
	err := p.ConnectErr
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if sess == nil {
		sess = NewSession()
	}
	return sess, nil
}

// ConnectCalls returns a copy of all recorded Connect invocations.
func (p *Provider) ConnectCalls() []ConnectCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ConnectCall(nil), p.calls...)
}
