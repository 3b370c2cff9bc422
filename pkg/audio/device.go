// Package audio defines the types and device interfaces for real-time audio
// I/O within cicerone.
//
// The two primary abstractions are:
//
//   - [InputDevice] — the microphone: a continuous producer of fixed-size
//     [AudioFrame] values at its own device-driven cadence.
//   - [OutputDevice] — the speaker: a clocked sink that plays
//     [PlaybackBuffer] values at explicit start times on its own timeline.
//
// Implementations of these interfaces are provided by device-specific adapter
// packages (see audio/mock for the test double and [NullInput]/[NullOutput]
// for clock-driven development devices). The interfaces are intentionally
// narrow so the session core stays decoupled from any particular audio stack.
package audio

import "time"

// InputDevice is an exclusive handle on an audio capture device.
//
// The device pushes frames at its own buffering cadence; callers must drain
// the Frames channel promptly. Implementations must be safe for concurrent
// use of Close with an active Frames consumer.
type InputDevice interface {
	// Frames returns the channel on which captured frames arrive. The channel
	// is closed when the device is closed; no frame is delivered after Close
	// returns.
	Frames() <-chan AudioFrame

	// Close releases the device. Idempotent.
	Close() error
}

// Voice is one buffer scheduled on an output device. Stop cancels playback
// immediately; stopping an already-finished voice is a no-op.
type Voice interface {
	Stop()
}

// OutputDevice is an exclusive handle on an audio playback device with its
// own monotonic clock.
//
// Play schedules a buffer to begin at an absolute time on the device
// timeline; it must never block on I/O. The ended callback fires exactly once
// when playback finishes naturally (not when stopped).
type OutputDevice interface {
	// Now returns the current position of the device clock.
	Now() time.Duration

	// Play schedules buf to start at the given device time. ended may be nil.
	Play(buf PlaybackBuffer, start time.Duration, ended func()) (Voice, error)

	// Close stops all playback and releases the device. Idempotent.
	Close() error
}
