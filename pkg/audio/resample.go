package audio

import (
	"log/slog"
	"sync"
)

// RateAdapter converts int16 PCM captured at an arbitrary device rate to
// the target rate expected by the transport. It logs a warning on the
// first rate mismatch and validates PCM data alignment.
// Create one per stream; not designed for shared use across goroutines.
type RateAdapter struct {
	Target         int
	warnedMismatch sync.Once
	warnedCorrupt  sync.Once
}

// Adapt resamples pcm from srcRate to the target rate. If the source rate
// already matches the target, pcm is returned unchanged (zero allocation).
// PCM with an odd byte count is dropped (nil returned) with a one-time
// warning.
func (a *RateAdapter) Adapt(pcm []byte, srcRate int) []byte {
	if len(pcm)%2 != 0 {
		a.warnedCorrupt.Do(func() {
			slog.Warn("audio rate adapter: odd byte count in PCM data, dropping frame",
				"bytes", len(pcm),
				"sampleRate", srcRate,
			)
		})
		return nil
	}

	if srcRate == a.Target {
		return pcm
	}

	a.warnedMismatch.Do(func() {
		slog.Warn("audio rate mismatch: resampling",
			"from", srcRate,
			"to", a.Target,
		)
	})

	return ResampleMono16(pcm, srcRate, a.Target)
}

// ResampleMono16 resamples 16-bit mono PCM from srcRate to dstRate using
// linear interpolation. The input must be little-endian int16 samples. If
// srcRate == dstRate, the input is returned unchanged.
func ResampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 {
		return pcm
	}
	if srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := int16(pcm[srcIdx*2]) | int16(pcm[srcIdx*2+1])<<8
		var s1 int16
		if srcIdx+1 < srcSamples {
			s1 = int16(pcm[(srcIdx+1)*2]) | int16(pcm[(srcIdx+1)*2+1])<<8
		} else {
			s1 = s0
		}

		interpolated := int16(float64(s0)*(1-frac) + float64(s1)*frac)
		out[i*2] = byte(interpolated)
		out[i*2+1] = byte(interpolated >> 8)
	}
	return out
}

// StereoToMono averages L+R per stereo frame (4 bytes) to produce mono
// output. Uses int32 arithmetic to prevent overflow and clamps to int16
// range. Used for capture devices that only expose a 2-channel stream.
func StereoToMono(pcm []byte) []byte {
	frames := len(pcm) / 4
	out := make([]byte, frames*2)
	for i := range frames {
		lSample := int32(int16(pcm[i*4]) | int16(pcm[i*4+1])<<8)
		rSample := int32(int16(pcm[i*4+2]) | int16(pcm[i*4+3])<<8)
		avg := (lSample + rSample) / 2

		if avg > 32767 {
			avg = 32767
		} else if avg < -32768 {
			avg = -32768
		}

		out[i*2] = byte(avg)
		out[i*2+1] = byte(avg >> 8)
	}
	return out
}
