// Package audio provides the PCM codec layer for the PhenoGraph screening
// client: float/int16 sample conversion, base64 transport encoding, sample
// rate adaptation, and signal-level metering.
//
// Audio flows through the system as [Frame] values (raw float samples from
// the capture device) and [Chunk] values (the base64 wire representation
// exchanged with the inference service).
package audio

import "fmt"

const (
	// CaptureRate is the sample rate expected by the live inference
	// endpoint for microphone input.
	CaptureRate = 16000

	// PlaybackRate is the sample rate of synthesised speech returned by
	// the live inference endpoint.
	PlaybackRate = 24000

	// FrameSize is the number of samples per capture frame.
	FrameSize = 4096
)

// Frame is a fixed-length buffer of single-channel float samples at a
// declared sample rate. Frames are ephemeral: produced by the capture
// pipeline and consumed immediately by the codec.
type Frame struct {
	// Samples holds mono float samples nominally in [-1, 1].
	Samples []float32

	// SampleRate in Hz (e.g. 16000 for capture, 24000 for playback).
	SampleRate int
}

// Duration returns the frame length in seconds.
func (f Frame) Duration() float64 {
	if f.SampleRate <= 0 {
		return 0
	}
	return float64(len(f.Samples)) / float64(f.SampleRate)
}

// Chunk is the wire representation of a frame: a MIME type and
// base64-encoded payload. A chunk is owned exclusively by the transport
// call that carries it and is discarded after send or receive.
type Chunk struct {
	MIMEType string
	Data     string
}

// PCMMimeType returns the MIME type string for raw little-endian 16-bit
// PCM at the given sample rate, e.g. "audio/pcm;rate=16000".
func PCMMimeType(rate int) string {
	return fmt.Sprintf("audio/pcm;rate=%d", rate)
}
