package session

import "errors"

var (
	// ErrNotIdle is returned by Start when a session already exists.
	ErrNotIdle = errors.New("session: not idle")

	// ErrNotLive is returned by Stop when no session is running.
	ErrNotLive = errors.New("session: not live")

	// ErrDeviceUnavailable wraps failures to open an audio device.
	ErrDeviceUnavailable = errors.New("session: audio device unavailable")

	// ErrHandshakeFailed wraps failures to establish the agent connection.
	ErrHandshakeFailed = errors.New("session: agent handshake failed")

	// ErrTransportDropped is carried on the notice emitted when the agent
	// connection dies while a session is live.
	ErrTransportDropped = errors.New("session: transport dropped")
)

// NoticeKind classifies out-of-band controller notices.
type NoticeKind string

const (
	// NoticeTransportDropped reports a live session that ended because the
	// agent connection was lost, not because the user stopped it.
	NoticeTransportDropped NoticeKind = "transport_dropped"
)

// Notice is an out-of-band event for the UI, such as an unexpected
// disconnect.
type Notice struct {
	Kind NoticeKind
	Err  error
}
