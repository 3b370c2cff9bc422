// Package pcm converts between floating-point audio samples and the wire
// format used by the remote speech agent: 16-bit little-endian PCM,
// base64-framed, tagged with a MIME-style rate annotation.
//
// Encode and Decode are bit-exact inverses for in-range input: for any sample
// in [-1, 1], decode(encode(x)) reconstructs x within one quantization step
// (1/32768). Out-of-range samples are clamped to [-1, 1] before scaling.
package pcm

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/cicerone-ai/cicerone/pkg/audio"
)

// scale is the float ⇄ int16 conversion factor.
const scale = 32768

// DecodeError describes a malformed inbound audio chunk. The offending chunk
// should be skipped; playback continues from the next valid chunk.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pcm: %s: %v", e.Reason, e.Err)
	}
	return "pcm: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Encode converts a capture frame to an [audio.EncodedChunk]: each sample is
// clamped to [-1, 1], scaled by 32768, truncated to int16, packed
// little-endian, and base64-encoded. The chunk is tagged with the frame's
// sample rate.
func Encode(frame audio.AudioFrame) audio.EncodedChunk {
	raw := make([]byte, len(frame.Samples)*2)
	for i, s := range frame.Samples {
		v := int32(s * scale)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		raw[i*2] = byte(v)
		raw[i*2+1] = byte(v >> 8)
	}

	rate := frame.SampleRate
	if rate <= 0 {
		rate = audio.CaptureRate
	}
	return audio.EncodedChunk{
		Data:     base64.StdEncoding.EncodeToString(raw),
		MIMEType: fmt.Sprintf("audio/pcm;rate=%d", rate),
	}
}

// Decode converts an [audio.EncodedChunk] to a [audio.PlaybackBuffer]:
// base64-decode, reinterpret as little-endian int16 interleaved across
// channels, rescale by 1/32768. The buffer's sample rate is taken from the
// chunk's MIME tag, defaulting to [audio.PlaybackRate].
func Decode(chunk audio.EncodedChunk, channels int) (audio.PlaybackBuffer, error) {
	if channels <= 0 {
		return audio.PlaybackBuffer{}, &DecodeError{Reason: fmt.Sprintf("invalid channel count %d", channels)}
	}

	raw, err := base64.StdEncoding.DecodeString(chunk.Data)
	if err != nil {
		return audio.PlaybackBuffer{}, &DecodeError{Reason: "invalid base64", Err: err}
	}
	if len(raw)%(2*channels) != 0 {
		return audio.PlaybackBuffer{}, &DecodeError{
			Reason: fmt.Sprintf("byte count %d not aligned to %d-channel s16le frames", len(raw), channels),
		}
	}

	frames := len(raw) / (2 * channels)
	buf := audio.PlaybackBuffer{
		Channels:   make([][]float32, channels),
		SampleRate: RateFromMIME(chunk.MIMEType),
	}
	for ch := range buf.Channels {
		buf.Channels[ch] = make([]float32, frames)
	}
	for i := range frames {
		for ch := range channels {
			off := (i*channels + ch) * 2
			sample := int16(raw[off]) | int16(raw[off+1])<<8
			buf.Channels[ch][i] = float32(sample) / scale
		}
	}
	return buf, nil
}

// RateFromMIME extracts the sample rate from a MIME-style tag such as
// "audio/pcm;rate=24000". Returns [audio.PlaybackRate] when no valid rate
// parameter is present.
func RateFromMIME(mime string) int {
	for part := range strings.SplitSeq(mime, ";") {
		part = strings.TrimSpace(part)
		if rest, ok := strings.CutPrefix(part, "rate="); ok {
			if rate, err := strconv.Atoi(rest); err == nil && rate > 0 {
				return rate
			}
		}
	}
	return audio.PlaybackRate
}
