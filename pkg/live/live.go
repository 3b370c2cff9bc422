// Package live defines the Provider interface for real-time speech agents.
//
// A live provider wraps a bidirectional voice AI service that accepts raw
// audio input and returns synthesised audio output in a single stateful
// session. The central abstraction is Session: a duplex channel carrying
// audio, transcripts, turn boundaries, and tool calls.
//
// Everything the agent sends arrives on one ordered event stream. Ordering
// matters: a [TurnComplete] must never be observed before the transcript
// deltas of the turn it closes, and an [Interrupted] must be observed before
// any audio from the following turn. Multiplexing onto a single channel
// preserves that ordering for consumers without extra synchronisation.
//
// All implementations must be safe for concurrent use.
package live

import (
	"context"

	"github.com/cicerone-ai/cicerone/pkg/audio"
)

// TranscriptSource identifies which side of the conversation a transcript
// fragment belongs to.
type TranscriptSource string

const (
	// SourceInput is the agent's running recognition of user speech.
	SourceInput TranscriptSource = "input"

	// SourceOutput is the text form of the agent's spoken response.
	SourceOutput TranscriptSource = "output"
)

// Event is one item on the session's ordered event stream. The concrete types
// are [AudioDelta], [TranscriptDelta], [TurnComplete], [Interrupted],
// [ToolCallBatch] and [Grounding].
type Event interface {
	liveEvent()
}

// AudioDelta carries one chunk of synthesised agent speech.
type AudioDelta struct {
	Chunk audio.EncodedChunk
}

// TranscriptDelta carries one transcript text fragment. Fragments accumulate
// until a [TurnComplete] closes the turn.
type TranscriptDelta struct {
	Source TranscriptSource
	Text   string
}

// TurnComplete marks the end of an agent response turn. All audio and
// transcript deltas for the turn precede it on the stream.
type TurnComplete struct{}

// Interrupted signals that the user spoke over the agent and the response in
// progress has been abandoned server-side. Buffered playback should be
// discarded immediately.
type Interrupted struct{}

// ToolInvocation is a single function call requested by the agent.
type ToolInvocation struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolCallBatch carries one or more tool invocations. Every invocation
// expects a matching result via [Session.SendToolResult].
type ToolCallBatch struct {
	Calls []ToolInvocation
}

// Citation is one source reference attached to an agent response.
type Citation struct {
	Title string
	URI   string
}

// Grounding carries the source citations backing the current response turn.
type Grounding struct {
	Citations []Citation
}

func (AudioDelta) liveEvent()      {}
func (TranscriptDelta) liveEvent() {}
func (TurnComplete) liveEvent()    {}
func (Interrupted) liveEvent()     {}
func (ToolCallBatch) liveEvent()   {}
func (Grounding) liveEvent()       {}

// ToolDefinition declares one function the agent may invoke during the
// session.
type ToolDefinition struct {
	Name        string
	Description string

	// Parameters is a JSON-schema style description of the arguments.
	Parameters map[string]any
}

// SessionConfig is the initial configuration for a new live session. It is
// fixed for the session lifetime; changing persona or voice requires a new
// session.
type SessionConfig struct {
	// Instructions is the system-level prompt defining the agent's character
	// and behavioural constraints.
	Instructions string

	// Voice selects the prebuilt voice for synthesised speech output.
	Voice string

	// Tools is the set of function declarations offered to the agent.
	Tools []ToolDefinition
}

// State describes where a session is in its lifecycle.
type State int

const (
	// StateConnecting means the transport is dialing or awaiting handshake
	// acknowledgement.
	StateConnecting State = iota

	// StateOpen means the handshake completed and the session is exchanging
	// events.
	StateOpen

	// StateClosing means Close was called and teardown is in progress.
	StateClosing

	// StateClosed means the session ended cleanly.
	StateClosed

	// StateFailed means the session ended with an error; see [Session.Err].
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is an open duplex session with a live speech agent. It is an
// interface so test code can supply mock implementations without a network
// connection.
//
// Callers must call Close when the session is no longer needed.
type Session interface {
	// Events returns the ordered stream of agent events. The channel is
	// closed when the session ends; call Err afterwards to learn whether it
	// ended cleanly. Consumers must drain the channel promptly.
	Events() <-chan Event

	// SendAudio delivers one encoded capture chunk to the agent. Returns an
	// error if the session is closed or the transport write fails.
	SendAudio(chunk audio.EncodedChunk) error

	// SendToolResult delivers the result of a tool invocation back to the
	// agent. id and name must match the originating [ToolInvocation].
	SendToolResult(id, name string, response map[string]any) error

	// State returns the session's current lifecycle state.
	State() State

	// Err returns the error that terminated the session, or nil while it is
	// running or after a clean close.
	Err() error

	// Close terminates the session and closes the Events channel. Idempotent.
	Close() error
}

// Provider is the abstraction over a live speech agent backend.
type Provider interface {
	// Connect establishes a new session. It blocks until the agent has
	// acknowledged the configuration or ctx expires; on success the session
	// is ready to accept audio. The caller owns the Session and must Close it.
	Connect(ctx context.Context, cfg SessionConfig) (Session, error)
}
