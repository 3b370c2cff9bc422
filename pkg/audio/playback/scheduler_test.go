package playback_test

import (
	"testing"
	"time"

	"github.com/cicerone-ai/cicerone/pkg/audio"
	"github.com/cicerone-ai/cicerone/pkg/audio/mock"
	"github.com/cicerone-ai/cicerone/pkg/audio/playback"
)

// buffer returns a mono playback buffer covering d at the agent output rate.
func buffer(t *testing.T, d time.Duration) audio.PlaybackBuffer {
	t.Helper()
	frames := int(d * audio.PlaybackRate / time.Second)
	return audio.PlaybackBuffer{
		Channels:   [][]float32{make([]float32, frames)},
		SampleRate: audio.PlaybackRate,
	}
}

func TestSchedule_BackToBack(t *testing.T) {
	dev := mock.NewOutput()
	s := playback.New(dev)

	first, err := s.Schedule(buffer(t, 100*time.Millisecond))
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	second, err := s.Schedule(buffer(t, 40*time.Millisecond))
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if first != 0 {
		t.Errorf("first start = %v; want 0", first)
	}
	if second != 100*time.Millisecond {
		t.Errorf("second start = %v; want 100ms", second)
	}
	if got := s.Cursor(); got != 140*time.Millisecond {
		t.Errorf("cursor = %v; want 140ms", got)
	}

	calls := dev.Calls()
	if len(calls) != 2 {
		t.Fatalf("play calls = %d; want 2", len(calls))
	}
	if calls[1].Start != second {
		t.Errorf("device saw start %v; want %v", calls[1].Start, second)
	}
}

func TestSchedule_NeverStartsInThePast(t *testing.T) {
	dev := mock.NewOutput()
	s := playback.New(dev)

	if _, err := s.Schedule(buffer(t, 50*time.Millisecond)); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	// The queue drains: device time moves past the cursor.
	dev.Advance(200 * time.Millisecond)

	start, err := s.Schedule(buffer(t, 50*time.Millisecond))
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if start != 200*time.Millisecond {
		t.Errorf("start = %v; want 200ms (device now)", start)
	}
	if got := s.Cursor(); got != 250*time.Millisecond {
		t.Errorf("cursor = %v; want 250ms", got)
	}
}

func TestFlush_StopsEverythingAndRewinds(t *testing.T) {
	dev := mock.NewOutput()
	s := playback.New(dev)

	for range 3 {
		if _, err := s.Schedule(buffer(t, 30*time.Millisecond)); err != nil {
			t.Fatalf("Schedule: %v", err)
		}
	}
	if got := s.ActiveCount(); got != 3 {
		t.Fatalf("active = %d; want 3", got)
	}

	s.Flush()

	if got := s.ActiveCount(); got != 0 {
		t.Errorf("active after flush = %d; want 0", got)
	}
	if got := s.Cursor(); got != 0 {
		t.Errorf("cursor after flush = %v; want 0", got)
	}
	for i, v := range dev.Voices() {
		if !v.Stopped() {
			t.Errorf("voice %d not stopped by flush", i)
		}
	}

	// Scheduling after a flush starts fresh from the device clock.
	start, err := s.Schedule(buffer(t, 30*time.Millisecond))
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if start != 0 {
		t.Errorf("start after flush = %v; want 0", start)
	}
}

func TestEndedCallback_RemovesVoice(t *testing.T) {
	dev := mock.NewOutput()
	s := playback.New(dev)

	if _, err := s.Schedule(buffer(t, 30*time.Millisecond)); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if _, err := s.Schedule(buffer(t, 30*time.Millisecond)); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if !dev.FinishOldest() {
		t.Fatal("FinishOldest found no voice")
	}
	if got := s.ActiveCount(); got != 1 {
		t.Errorf("active = %d; want 1 after first buffer ends", got)
	}
	if !dev.FinishOldest() {
		t.Fatal("FinishOldest found no voice")
	}
	if got := s.ActiveCount(); got != 0 {
		t.Errorf("active = %d; want 0 after both buffers end", got)
	}

	// Natural completion does not rewind the cursor.
	if got := s.Cursor(); got != 60*time.Millisecond {
		t.Errorf("cursor = %v; want 60ms", got)
	}
}

func TestSchedule_DeviceError(t *testing.T) {
	dev := mock.NewOutput()
	dev.PlayErr = audio.ErrDeviceClosed
	s := playback.New(dev)

	if _, err := s.Schedule(buffer(t, 30*time.Millisecond)); err == nil {
		t.Fatal("Schedule should surface device errors")
	}
	if got := s.ActiveCount(); got != 0 {
		t.Errorf("active = %d; want 0 after failed schedule", got)
	}
	if got := s.Cursor(); got != 0 {
		t.Errorf("cursor = %v; want 0 after failed schedule", got)
	}
}
