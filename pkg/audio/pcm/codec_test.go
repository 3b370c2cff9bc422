package pcm_test

import (
	"encoding/base64"
	"errors"
	"math"
	"testing"

	"github.com/cicerone-ai/cicerone/pkg/audio"
	"github.com/cicerone-ai/cicerone/pkg/audio/pcm"
)

func TestEncodeTagsCaptureRate(t *testing.T) {
	chunk := pcm.Encode(audio.AudioFrame{
		Samples:    []float32{0, 0.5},
		SampleRate: audio.CaptureRate,
	})
	if chunk.MIMEType != "audio/pcm;rate=16000" {
		t.Errorf("MIMEType = %q, want audio/pcm;rate=16000", chunk.MIMEType)
	}
}

func TestEncodeClampsOutOfRange(t *testing.T) {
	chunk := pcm.Encode(audio.AudioFrame{
		Samples:    []float32{2.0, -2.0, 1.0, -1.0},
		SampleRate: audio.CaptureRate,
	})
	raw, err := base64.StdEncoding.DecodeString(chunk.Data)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	got := []int16{
		int16(raw[0]) | int16(raw[1])<<8,
		int16(raw[2]) | int16(raw[3])<<8,
		int16(raw[4]) | int16(raw[5])<<8,
		int16(raw[6]) | int16(raw[7])<<8,
	}
	want := []int16{32767, -32768, 32767, -32768}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRoundTrip(t *testing.T) {
	in := audio.AudioFrame{
		Samples:    []float32{0, 0.25, -0.25, 0.999, -0.999, 0.0001},
		SampleRate: audio.CaptureRate,
	}
	chunk := pcm.Encode(in)

	buf, err := pcm.Decode(chunk, 1)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(buf.Channels) != 1 {
		t.Fatalf("channels = %d, want 1", len(buf.Channels))
	}
	if len(buf.Channels[0]) != len(in.Samples) {
		t.Fatalf("frames = %d, want %d", len(buf.Channels[0]), len(in.Samples))
	}
	for i, want := range in.Samples {
		got := buf.Channels[0][i]
		if math.Abs(float64(got-want)) > 1.0/32768 {
			t.Errorf("sample %d = %v, want %v within 1/32768", i, got, want)
		}
	}
}

func TestDecodeMultiChannelDeinterleaves(t *testing.T) {
	// Two frames of stereo: L0=16384, R0=-16384, L1=8192, R1=-8192.
	raw := []byte{
		0x00, 0x40, 0x00, 0xC0,
		0x00, 0x20, 0x00, 0xE0,
	}
	chunk := audio.EncodedChunk{
		Data:     base64.StdEncoding.EncodeToString(raw),
		MIMEType: "audio/pcm;rate=24000",
	}
	buf, err := pcm.Decode(chunk, 2)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if buf.SampleRate != 24000 {
		t.Errorf("SampleRate = %d, want 24000", buf.SampleRate)
	}
	if got := buf.Channels[0][0]; got != 0.5 {
		t.Errorf("L0 = %v, want 0.5", got)
	}
	if got := buf.Channels[1][0]; got != -0.5 {
		t.Errorf("R0 = %v, want -0.5", got)
	}
	if got := buf.Channels[0][1]; got != 0.25 {
		t.Errorf("L1 = %v, want 0.25", got)
	}
	if got := buf.Channels[1][1]; got != -0.25 {
		t.Errorf("R1 = %v, want -0.25", got)
	}
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name     string
		chunk    audio.EncodedChunk
		channels int
	}{
		{
			name:     "invalid base64",
			chunk:    audio.EncodedChunk{Data: "not-base64!!!", MIMEType: "audio/pcm;rate=24000"},
			channels: 1,
		},
		{
			name: "odd byte count",
			chunk: audio.EncodedChunk{
				Data:     base64.StdEncoding.EncodeToString([]byte{0x01, 0x02, 0x03}),
				MIMEType: "audio/pcm;rate=24000",
			},
			channels: 1,
		},
		{
			name: "bytes not aligned to stereo frames",
			chunk: audio.EncodedChunk{
				Data:     base64.StdEncoding.EncodeToString([]byte{0x01, 0x02}),
				MIMEType: "audio/pcm;rate=24000",
			},
			channels: 2,
		},
		{
			name:     "invalid channel count",
			chunk:    audio.EncodedChunk{Data: "", MIMEType: "audio/pcm;rate=24000"},
			channels: 0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := pcm.Decode(tc.chunk, tc.channels)
			var decErr *pcm.DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("err = %v, want *pcm.DecodeError", err)
			}
		})
	}
}

func TestRateFromMIME(t *testing.T) {
	cases := []struct {
		mime string
		want int
	}{
		{"audio/pcm;rate=24000", 24000},
		{"audio/pcm;rate=16000", 16000},
		{"audio/pcm; rate=48000", 48000},
		{"audio/pcm", audio.PlaybackRate},
		{"", audio.PlaybackRate},
		{"audio/pcm;rate=abc", audio.PlaybackRate},
		{"audio/pcm;rate=-1", audio.PlaybackRate},
	}
	for _, tc := range cases {
		if got := pcm.RateFromMIME(tc.mime); got != tc.want {
			t.Errorf("RateFromMIME(%q) = %d, want %d", tc.mime, got, tc.want)
		}
	}
}
