package audio_test

import (
	"encoding/binary"
	"testing"

	"github.com/openpheno/phenograph/pkg/audio"
)

// samplesToBytes converts a slice of int16 samples to little-endian byte representation.
func samplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// bytesToSamples converts a little-endian byte slice to int16 samples.
func bytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}

func TestResampleMono16_Downsample(t *testing.T) {
	// 8 samples at 32 kHz -> 4 samples at 16 kHz.
	in := samplesToBytes([]int16{0, 100, 200, 300, 400, 500, 600, 700})
	out := audio.ResampleMono16(in, 32000, 16000)
	got := bytesToSamples(out)
	if len(got) != 4 {
		t.Fatalf("length: got %d, want 4", len(got))
	}
	// With a 2:1 ratio and linear interpolation, every other sample survives.
	want := []int16{0, 200, 400, 600}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestResampleMono16_SameRatePassthrough(t *testing.T) {
	in := samplesToBytes([]int16{1, 2, 3})
	out := audio.ResampleMono16(in, 16000, 16000)
	if &in[0] != &out[0] {
		t.Error("expected zero-copy passthrough for matching rates")
	}
}

func TestStereoToMono(t *testing.T) {
	stereo := samplesToBytes([]int16{100, 200, -100, -200})
	mono := audio.StereoToMono(stereo)
	got := bytesToSamples(mono)
	want := []int16{150, -150}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestStereoToMono_Clamping(t *testing.T) {
	stereo := samplesToBytes([]int16{32767, 32767})
	mono := audio.StereoToMono(stereo)
	got := bytesToSamples(mono)
	if got[0] != 32767 {
		t.Errorf("got %d, want 32767", got[0])
	}
}

func TestRateAdapter_DropsOddByteCount(t *testing.T) {
	a := &audio.RateAdapter{Target: 16000}
	if out := a.Adapt([]byte{0x01, 0x02, 0x03}, 48000); out != nil {
		t.Errorf("expected nil for odd byte count, got %d bytes", len(out))
	}
}

func TestRateAdapter_Resamples(t *testing.T) {
	a := &audio.RateAdapter{Target: 16000}
	in := samplesToBytes(make([]int16, 480))
	out := a.Adapt(in, 48000)
	if len(out) != 160*2 {
		t.Errorf("resampled length: got %d bytes, want %d", len(out), 160*2)
	}
}
