package session

// State is the lifecycle state of the session controller.
type State int

const (
	// StateIdle means no live session exists. Start is permitted.
	StateIdle State = iota

	// StateStarting means devices and the agent connection are being set up.
	StateStarting

	// StateLive means audio is flowing in both directions.
	StateLive

	// StateStopping means an orderly teardown is in progress.
	StateStopping

	// StateFailed is a transient state emitted while a failed start is being
	// unwound. The controller always settles back to StateIdle afterwards.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateLive:
		return "live"
	case StateStopping:
		return "stopping"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
