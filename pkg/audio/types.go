package audio

import "time"

// CaptureRate is the fixed sample rate for microphone capture, in Hz.
// The remote agent expects 16 kHz mono input.
const CaptureRate = 16000

// PlaybackRate is the fixed sample rate of synthesised audio received from
// the remote agent, in Hz.
const PlaybackRate = 24000

// AudioFrame is a single fixed-size frame of captured audio: normalized
// floating-point samples in [-1, 1], mono. Frames are ephemeral — they are
// owned by the capture pipeline for one encode-and-send cycle only.
type AudioFrame struct {
	// Samples holds normalized mono samples in [-1, 1].
	Samples []float32

	// SampleRate in Hz (16000 for capture).
	SampleRate int
}

// Duration returns the playback time covered by the frame.
func (f AudioFrame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// EncodedChunk is the wire unit for audio: base64 text plus a MIME-style tag
// identifying sample rate and encoding (e.g. "audio/pcm;rate=16000").
// Immutable once constructed.
type EncodedChunk struct {
	// Data is base64-encoded little-endian 16-bit signed PCM.
	Data string

	// MIMEType tags the encoding and sample rate.
	MIMEType string
}

// PlaybackBuffer is a decoded multi-channel sample buffer owned by the
// playback scheduler from decode until its scheduled playback completes.
type PlaybackBuffer struct {
	// Channels holds one normalized sample slice per channel; all slices have
	// equal length.
	Channels [][]float32

	// SampleRate in Hz (24000 for agent output).
	SampleRate int
}

// Duration returns the playback time covered by the buffer.
func (b PlaybackBuffer) Duration() time.Duration {
	if b.SampleRate <= 0 || len(b.Channels) == 0 {
		return 0
	}
	return time.Duration(len(b.Channels[0])) * time.Second / time.Duration(b.SampleRate)
}
