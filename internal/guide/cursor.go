package guide

import (
	"context"
	"sync"
	"time"
)

// Keyframe is one frame of cursor motion. Pressed marks the frame on which
// the cursor activates its target.
type Keyframe struct {
	X       float64
	Y       float64
	Label   string
	Pressed bool
}

// Target is a named position the cursor can travel to.
type Target struct {
	X float64
	Y float64
}

const (
	defaultSteps        = 8
	defaultStepInterval = 25 * time.Millisecond
)

// Choreographer animates an on-screen cursor toward named targets so the
// user can see what the agent is about to do before it happens.
// Safe for concurrent use; animations are serialised.
type Choreographer struct {
	steps    int
	interval time.Duration

	mu      sync.Mutex
	x, y    float64
	targets map[string]Target

	frames chan Keyframe
}

// NewChoreographer creates a choreographer parked at the origin. steps and
// interval bound the latency added to each tool call; zero values select the
// defaults.
func NewChoreographer(steps int, interval time.Duration) *Choreographer {
	if steps <= 0 {
		steps = defaultSteps
	}
	if interval <= 0 {
		interval = defaultStepInterval
	}
	return &Choreographer{
		steps:    steps,
		interval: interval,
		targets:  make(map[string]Target),
		frames:   make(chan Keyframe, 64),
	}
}

// SetTarget registers or moves a named target.
func (c *Choreographer) SetTarget(label string, t Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targets[label] = t
}

// Animate walks the cursor from its current position to the named target,
// presses, runs commit while pressed, then releases. Unknown targets skip
// the approach and run commit immediately. Returns ctx.Err if the animation
// was cut short; commit runs regardless, so the acted-out motion can be
// abandoned without losing the action itself.
func (c *Choreographer) Animate(ctx context.Context, label string, commit func()) error {
	c.mu.Lock()
	target, known := c.targets[label]
	fromX, fromY := c.x, c.y
	c.mu.Unlock()

	if !known {
		commit()
		return nil
	}

	var aborted error
	for i := 1; i <= c.steps; i++ {
		frac := float64(i) / float64(c.steps)
		x := fromX + (target.X-fromX)*frac
		y := fromY + (target.Y-fromY)*frac
		c.moveTo(x, y, Keyframe{X: x, Y: y, Label: label})

		select {
		case <-ctx.Done():
			aborted = ctx.Err()
		case <-time.After(c.interval):
		}
		if aborted != nil {
			// Jump straight to the target; the press still happens.
			c.moveTo(target.X, target.Y, Keyframe{X: target.X, Y: target.Y, Label: label})
			break
		}
	}

	c.emit(Keyframe{X: target.X, Y: target.Y, Label: label, Pressed: true})
	commit()
	c.emit(Keyframe{X: target.X, Y: target.Y, Label: label})
	return aborted
}

// Reset parks the cursor back at the origin without animation.
func (c *Choreographer) Reset() {
	c.moveTo(0, 0, Keyframe{})
}

func (c *Choreographer) moveTo(x, y float64, frame Keyframe) {
	c.mu.Lock()
	c.x, c.y = x, y
	c.mu.Unlock()
	c.emit(frame)
}

func (c *Choreographer) emit(frame Keyframe) {
	select {
	case c.frames <- frame:
	default:
	}
}

// Position returns the cursor's current position.
func (c *Choreographer) Position() (x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.x, c.y
}

// Frames returns the stream of cursor keyframes for the UI.
func (c *Choreographer) Frames() <-chan Keyframe { return c.frames }
