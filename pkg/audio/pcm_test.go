package audio_test

import (
	"math"
	"testing"

	"github.com/openpheno/phenograph/pkg/audio"
)

func TestFloatToPCM16_AsymmetricScaling(t *testing.T) {
	// Full-scale negative maps to -32768, full-scale positive to 32767.
	pcm := audio.FloatToPCM16([]float32{-1, 1})
	got := bytesToSamples(pcm)
	want := []int16{-32768, 32767}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFloatToPCM16_Clamping(t *testing.T) {
	pcm := audio.FloatToPCM16([]float32{-2.5, 3.0})
	got := bytesToSamples(pcm)
	want := []int16{-32768, 32767}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestPCMRoundTrip_WithinQuantizationStep(t *testing.T) {
	const step = 1.0 / 32768.0
	values := []float32{-1, -0.731, -0.5, -step, 0, step, 0.25, 0.5, 0.731, 0.999, 1}
	for _, s := range values {
		got := audio.PCM16ToFloat(audio.FloatToPCM16([]float32{s}))
		if len(got) != 1 {
			t.Fatalf("round trip of %v produced %d samples", s, len(got))
		}
		if diff := math.Abs(float64(got[0] - s)); diff > step {
			t.Errorf("round trip of %v: got %v (diff %v > one step %v)", s, got[0], diff, step)
		}
	}
}

func TestPCM16ToFloat_IgnoresTrailingOddByte(t *testing.T) {
	got := audio.PCM16ToFloat([]byte{0x00, 0x40, 0xFF})
	if len(got) != 1 {
		t.Fatalf("got %d samples, want 1", len(got))
	}
}

func TestBase64RoundTrip_AllByteValues(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	decoded, err := audio.DecodeBase64(audio.EncodeBase64(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != len(data) {
		t.Fatalf("length mismatch: got %d, want %d", len(decoded), len(data))
	}
	for i := range data {
		if decoded[i] != data[i] {
			t.Fatalf("byte %d: got %#x, want %#x", i, decoded[i], data[i])
		}
	}
}

func TestDecodeBase64_Malformed(t *testing.T) {
	if _, err := audio.DecodeBase64("!!not base64!!"); err == nil {
		t.Fatal("expected error for malformed input")
	}
}

func TestEncodeFrame(t *testing.T) {
	f := audio.Frame{Samples: []float32{0, 0.5, -0.5}, SampleRate: audio.CaptureRate}
	c := audio.EncodeFrame(f)
	if c.MIMEType != "audio/pcm;rate=16000" {
		t.Errorf("mime type: got %q", c.MIMEType)
	}
	back, err := audio.DecodeChunk(c, audio.CaptureRate)
	if err != nil {
		t.Fatalf("decode chunk: %v", err)
	}
	if len(back.Samples) != len(f.Samples) {
		t.Fatalf("sample count: got %d, want %d", len(back.Samples), len(f.Samples))
	}
}

func TestFrameDuration(t *testing.T) {
	f := audio.Frame{Samples: make([]float32, 24000), SampleRate: audio.PlaybackRate}
	if d := f.Duration(); d != 1.0 {
		t.Errorf("duration: got %v, want 1.0", d)
	}
}
