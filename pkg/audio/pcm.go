package audio

import (
	"encoding/base64"
	"fmt"
)

// FloatToPCM16 converts float samples to little-endian signed 16-bit PCM
// bytes. Samples are clamped to [-1, 1] before scaling.
//
// The scaling is deliberately asymmetric: negative samples are multiplied
// by 32768 and positive samples by 32767, matching the asymmetric range of
// the int16 target format. Downstream decoding divides by 32768, so the
// asymmetry must not be "fixed" to a symmetric factor.
func FloatToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s < -1 {
			s = -1
		} else if s > 1 {
			s = 1
		}
		var v int16
		if s < 0 {
			v = int16(s * 32768)
		} else {
			v = int16(s * 32767)
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// PCM16ToFloat converts little-endian signed 16-bit PCM bytes back to float
// samples, dividing by 32768. A trailing odd byte is ignored.
func PCM16ToFloat(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := range n {
		v := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float32(v) / 32768.0
	}
	return out
}

// EncodeBase64 encodes binary data for text transport.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 decodes transport text back into binary data. Malformed
// input returns an error; callers treat this as a non-fatal, per-chunk
// drop rather than a session failure.
func DecodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("audio: decode base64: %w", err)
	}
	return data, nil
}

// EncodeFrame converts a capture frame to its wire chunk: PCM16 bytes,
// base64-encoded, tagged with the frame's sample rate.
func EncodeFrame(f Frame) Chunk {
	return Chunk{
		MIMEType: PCMMimeType(f.SampleRate),
		Data:     EncodeBase64(FloatToPCM16(f.Samples)),
	}
}

// DecodeChunk converts a wire chunk carrying PCM16 audio back into a frame
// at the given sample rate.
func DecodeChunk(c Chunk, sampleRate int) (Frame, error) {
	pcm, err := DecodeBase64(c.Data)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Samples: PCM16ToFloat(pcm), SampleRate: sampleRate}, nil
}
