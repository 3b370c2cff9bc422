// Package turns accumulates transcript fragments into committed conversation
// turns.
//
// Transcript deltas stream in word by word for both sides of the
// conversation. The Aggregator buffers them until the agent marks the turn
// complete, then commits the user message followed by the agent message to
// the conversation history. An interruption discards whatever was buffered.
package turns

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cicerone-ai/cicerone/pkg/live"
)

// Role identifies the author of a committed message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Message is one committed conversation turn half.
type Message struct {
	ID        string
	Role      Role
	Text      string
	Citations []live.Citation
}

// Aggregator buffers transcript deltas and commits them as messages.
// Safe for concurrent use.
type Aggregator struct {
	mu        sync.Mutex
	input     strings.Builder
	output    strings.Builder
	citations []live.Citation
	history   []Message
	seq       int

	messages chan Message
}

// New creates an empty aggregator. Committed messages are delivered on the
// Messages channel as well as appended to History.
func New() *Aggregator {
	return &Aggregator{
		messages: make(chan Message, 32),
	}
}

// AddDelta appends a transcript fragment to the open turn.
func (a *Aggregator) AddDelta(source live.TranscriptSource, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch source {
	case live.SourceInput:
		a.input.WriteString(text)
	case live.SourceOutput:
		a.output.WriteString(text)
	}
}

// SetCitations attaches source citations to the open turn. They are carried
// on the agent message at the next Commit.
func (a *Aggregator) SetCitations(citations []live.Citation) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.citations = append([]live.Citation(nil), citations...)
}

// Commit closes the open turn: buffered fragments are trimmed and committed
// as a user message followed by an agent message. Empty sides are skipped.
// Returns the committed messages in order.
func (a *Aggregator) Commit() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()

	var committed []Message
	if text := strings.TrimSpace(a.input.String()); text != "" {
		committed = append(committed, a.commitLocked(RoleUser, text, nil))
	}
	if text := strings.TrimSpace(a.output.String()); text != "" {
		committed = append(committed, a.commitLocked(RoleAgent, text, a.citations))
	}

	a.input.Reset()
	a.output.Reset()
	a.citations = nil
	return committed
}

// Reset discards the open turn without committing. Used on interruption,
// where the abandoned agent speech never becomes part of the record.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.input.Reset()
	a.output.Reset()
	a.citations = nil
}

// Seed commits an agent greeting directly to the history, bypassing the open
// turn. Used to show the persona's opening line before any audio arrives.
func (a *Aggregator) Seed(greeting string) {
	greeting = strings.TrimSpace(greeting)
	if greeting == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.commitLocked(RoleAgent, greeting, nil)
}

// commitLocked appends a message to the history and delivers it on the
// Messages channel. Delivery is best-effort: a slow consumer loses messages
// from the channel but never from the history.
func (a *Aggregator) commitLocked(role Role, text string, citations []live.Citation) Message {
	a.seq++
	msg := Message{
		ID:        fmt.Sprintf("msg-%d", a.seq),
		Role:      role,
		Text:      text,
		Citations: citations,
	}
	a.history = append(a.history, msg)
	select {
	case a.messages <- msg:
	default:
	}
	return msg
}

// Messages returns the channel on which committed messages are delivered.
func (a *Aggregator) Messages() <-chan Message { return a.messages }

// History returns a copy of all committed messages in order.
func (a *Aggregator) History() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Message(nil), a.history...)
}

// Pending reports whether the open turn holds any uncommitted fragments.
func (a *Aggregator) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.input.Len() > 0 || a.output.Len() > 0
}
