package audio

import (
	"sync"
	"time"
)

// NullInput is an [InputDevice] that produces silent frames on a fixed
// cadence derived from the frame size. It stands in for a real microphone in
// development and soak testing.
type NullInput struct {
	frames chan AudioFrame

	closeOnce sync.Once
	done      chan struct{}
}

// NewNullInput creates a silent input device emitting frames of frameSize
// samples at [CaptureRate].
func NewNullInput(frameSize int) *NullInput {
	if frameSize <= 0 {
		frameSize = 4096
	}
	d := &NullInput{
		frames: make(chan AudioFrame, 4),
		done:   make(chan struct{}),
	}
	go d.run(frameSize)
	return d
}

func (d *NullInput) run(frameSize int) {
	defer close(d.frames)

	period := time.Duration(frameSize) * time.Second / CaptureRate
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-d.done:
			return
		case <-ticker.C:
			frame := AudioFrame{
				Samples:    make([]float32, frameSize),
				SampleRate: CaptureRate,
			}
			select {
			case d.frames <- frame:
			case <-d.done:
				return
			default:
				// Consumer is behind; drop the frame like a real device would.
			}
		}
	}
}

// Frames implements [InputDevice].
func (d *NullInput) Frames() <-chan AudioFrame { return d.frames }

// Close implements [InputDevice].
func (d *NullInput) Close() error {
	d.closeOnce.Do(func() { close(d.done) })
	return nil
}

// NullOutput is an [OutputDevice] backed by the wall clock. Buffers are
// discarded; timers fire the ended callbacks when playback would have
// finished. It stands in for a real speaker in development.
type NullOutput struct {
	mu     sync.Mutex
	epoch  time.Time
	closed bool
	timers map[*nullVoice]struct{}
}

// NewNullOutput creates a discarding output device whose clock starts at zero.
func NewNullOutput() *NullOutput {
	return &NullOutput{
		epoch:  time.Now(),
		timers: make(map[*nullVoice]struct{}),
	}
}

// Now implements [OutputDevice].
func (d *NullOutput) Now() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return time.Since(d.epoch)
}

// Play implements [OutputDevice].
func (d *NullOutput) Play(buf PlaybackBuffer, start time.Duration, ended func()) (Voice, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDeviceClosed
	}

	delay := start + buf.Duration() - time.Since(d.epoch)
	if delay < 0 {
		delay = 0
	}

	v := &nullVoice{dev: d}
	v.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		delete(d.timers, v)
		d.mu.Unlock()
		if ended != nil {
			ended()
		}
	})
	d.timers[v] = struct{}{}
	return v, nil
}

// Close implements [OutputDevice].
func (d *NullOutput) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for v := range d.timers {
		v.timer.Stop()
	}
	d.timers = make(map[*nullVoice]struct{})
	return nil
}

type nullVoice struct {
	dev   *NullOutput
	timer *time.Timer
}

func (v *nullVoice) Stop() {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	v.timer.Stop()
	delete(v.dev.timers, v)
}
