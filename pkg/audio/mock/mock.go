// Package mock provides scriptable audio device implementations for tests.
package mock

import (
	"sync"
	"time"

	"github.com/cicerone-ai/cicerone/pkg/audio"
)

// Input is a scriptable [audio.InputDevice]. Tests push frames with Emit and
// observe shutdown through Closed.
type Input struct {
	frames chan audio.AudioFrame

	mu     sync.Mutex
	closed bool

	// CloseErr is returned from Close when set.
	CloseErr error
}

// NewInput creates a mock input device with a buffered frame channel.
func NewInput() *Input {
	return &Input{frames: make(chan audio.AudioFrame, 16)}
}

// Emit delivers a frame to the consumer. Returns false if the device has been
// closed.
func (d *Input) Emit(frame audio.AudioFrame) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.frames <- frame
	return true
}

// EmitSamples is shorthand for Emit with a mono frame at [audio.CaptureRate].
func (d *Input) EmitSamples(samples ...float32) bool {
	return d.Emit(audio.AudioFrame{Samples: samples, SampleRate: audio.CaptureRate})
}

// Frames implements [audio.InputDevice].
func (d *Input) Frames() <-chan audio.AudioFrame { return d.frames }

// Close implements [audio.InputDevice].
func (d *Input) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.frames)
	}
	return d.CloseErr
}

// Closed reports whether Close has been called.
func (d *Input) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// PlayCall records one Play invocation on [Output].
type PlayCall struct {
	Buffer audio.PlaybackBuffer
	Start  time.Duration
}

// Output is an [audio.OutputDevice] with a manually advanced clock. Tests
// control time with Advance and complete playback with FinishOldest; Play
// never schedules real timers.
type Output struct {
	mu     sync.Mutex
	now    time.Duration
	closed bool
	calls  []PlayCall
	voices []*Voice

	// PlayErr is returned from Play when set.
	PlayErr error
}

// NewOutput creates a mock output device with its clock at zero.
func NewOutput() *Output {
	return &Output{}
}

// Now implements [audio.OutputDevice].
func (d *Output) Now() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now
}

// Advance moves the device clock forward.
func (d *Output) Advance(delta time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now += delta
}

// Play implements [audio.OutputDevice].
func (d *Output) Play(buf audio.PlaybackBuffer, start time.Duration, ended func()) (audio.Voice, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, audio.ErrDeviceClosed
	}
	if d.PlayErr != nil {
		return nil, d.PlayErr
	}
	d.calls = append(d.calls, PlayCall{Buffer: buf, Start: start})
	v := &Voice{ended: ended}
	d.voices = append(d.voices, v)
	return v, nil
}

// Close implements [audio.OutputDevice].
func (d *Output) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Calls returns a copy of all recorded Play invocations in order.
func (d *Output) Calls() []PlayCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]PlayCall(nil), d.calls...)
}

// Voices returns all voices handed out by Play, in schedule order.
func (d *Output) Voices() []*Voice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Voice(nil), d.voices...)
}

// FinishOldest fires the ended callback of the oldest unfinished, unstopped
// voice, simulating natural playback completion. Returns false when no such
// voice exists.
func (d *Output) FinishOldest() bool {
	d.mu.Lock()
	var target *Voice
	for _, v := range d.voices {
		if !v.finished() && !v.Stopped() {
			target = v
			break
		}
	}
	d.mu.Unlock()
	if target == nil {
		return false
	}
	target.finish()
	return true
}

// Voice is the [audio.Voice] handed out by [Output].
type Voice struct {
	mu      sync.Mutex
	stopped bool
	done    bool
	ended   func()
}

// Stop implements [audio.Voice].
func (v *Voice) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopped = true
}

// Stopped reports whether Stop has been called.
func (v *Voice) Stopped() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stopped
}

func (v *Voice) finished() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.done
}

func (v *Voice) finish() {
	v.mu.Lock()
	if v.done || v.stopped {
		v.mu.Unlock()
		return
	}
	v.done = true
	ended := v.ended
	v.mu.Unlock()
	if ended != nil {
		ended()
	}
}
