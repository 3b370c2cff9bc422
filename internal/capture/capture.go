// Package capture pumps microphone frames into a live session.
//
// The pipeline is fire-and-forget: each frame is encoded and sent exactly
// once, and a failed send is logged and dropped rather than retried. Stale
// audio is worse than missing audio in a real-time conversation.
package capture

import (
	"log/slog"
	"sync"

	"github.com/cicerone-ai/cicerone/pkg/audio"
	"github.com/cicerone-ai/cicerone/pkg/audio/pcm"
	"github.com/cicerone-ai/cicerone/pkg/live"
)

// Pipeline connects one input device to one live session.
type Pipeline struct {
	dev  audio.InputDevice
	sess live.Session
	log  *slog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopping chan struct{}

	mu      sync.Mutex
	sent    int64
	dropped int64
}

// New creates a pipeline from dev to sess. The pipeline takes ownership of
// the device: Stop closes it.
func New(dev audio.InputDevice, sess live.Session, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{dev: dev, sess: sess, log: log, stopping: make(chan struct{})}
}

// Start launches the pump goroutine. Call once.
func (p *Pipeline) Start() {
	p.wg.Add(1)
	go p.pump()
}

func (p *Pipeline) pump() {
	defer p.wg.Done()

	for frame := range p.dev.Frames() {
		// Frames still queued in the device when Stop begins are stale;
		// discard them instead of delivering audio after teardown started.
		select {
		case <-p.stopping:
			p.mu.Lock()
			p.dropped++
			p.mu.Unlock()
			continue
		default:
		}

		chunk := pcm.Encode(frame)
		if err := p.sess.SendAudio(chunk); err != nil {
			p.mu.Lock()
			p.dropped++
			p.mu.Unlock()
			p.log.Debug("capture: dropped frame", "error", err, "samples", len(frame.Samples))
			continue
		}
		p.mu.Lock()
		p.sent++
		p.mu.Unlock()
	}
}

// Stop closes the input device and waits for the pump to exit. Frames still
// queued in the device are discarded, not sent. Idempotent. The session is
// left open; its lifecycle belongs to the caller.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopping)
		if err := p.dev.Close(); err != nil {
			p.log.Warn("capture: close input device", "error", err)
		}
		p.wg.Wait()
	})
}

// Stats reports frames sent and dropped since Start.
func (p *Pipeline) Stats() (sent, dropped int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent, p.dropped
}
