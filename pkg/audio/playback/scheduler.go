// Package playback schedules decoded audio buffers for gapless output.
//
// Synthesised speech arrives in small chunks ahead of real time. The
// Scheduler keeps a cursor on the output device's timeline and queues each
// chunk to start exactly where the previous one ends, so consecutive chunks
// play back-to-back with no audible seams. When the conversation is
// interrupted the whole queue is flushed and the cursor rewinds to zero,
// ready for the next response.
package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/cicerone-ai/cicerone/pkg/audio"
)

// Scheduler queues playback buffers on an output device back-to-back.
// Safe for concurrent use.
type Scheduler struct {
	dev audio.OutputDevice

	mu     sync.Mutex
	cursor time.Duration
	active map[int64]audio.Voice
	seq    int64
}

// New creates a scheduler for the given output device. The caller retains
// ownership of the device and closes it separately.
func New(dev audio.OutputDevice) *Scheduler {
	return &Scheduler{
		dev:    dev,
		active: make(map[int64]audio.Voice),
	}
}

// Schedule queues buf to start when the previously scheduled audio ends, or
// immediately if the queue has drained. Returns the start time assigned to
// the buffer.
func (s *Scheduler) Schedule(buf audio.PlaybackBuffer) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.cursor
	if now := s.dev.Now(); start < now {
		start = now
	}

	id := s.seq
	s.seq++
	voice, err := s.dev.Play(buf, start, func() {
		s.mu.Lock()
		delete(s.active, id)
		s.mu.Unlock()
	})
	if err != nil {
		return 0, fmt.Errorf("playback: schedule: %w", err)
	}

	s.active[id] = voice
	s.cursor = start + buf.Duration()
	return start, nil
}

// Flush stops every queued and playing buffer and rewinds the cursor to
// zero. Used on interruption and at session teardown.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, voice := range s.active {
		voice.Stop()
		delete(s.active, id)
	}
	s.cursor = 0
}

// Cursor returns the device time at which the next buffer would start
// relative to already queued audio.
func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// ActiveCount returns the number of buffers queued or playing.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}
