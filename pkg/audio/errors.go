package audio

import "errors"

// ErrDeviceClosed is returned when an operation is attempted on a device that
// has been closed.
var ErrDeviceClosed = errors.New("audio: device closed")
