package audio

import "math"

// levelDecay and levelGain define the exponential smoothing applied to the
// per-frame RMS signal level: level = 0.8*prev + 10*rms.
const (
	levelDecay = 0.8
	levelGain  = 10.0
)

// LevelMeter tracks an exponentially smoothed signal level across capture
// frames, used for UI-style input feedback. Not safe for concurrent use;
// the capture pipeline owns one meter and updates it from its read loop.
type LevelMeter struct {
	level float64
}

// Update folds one frame of samples into the smoothed level and returns
// the new value.
func (m *LevelMeter) Update(samples []float32) float64 {
	m.level = levelDecay*m.level + levelGain*RMS(samples)
	return m.level
}

// Level returns the current smoothed level.
func (m *LevelMeter) Level() float64 { return m.level }

// Reset clears the meter to silence.
func (m *LevelMeter) Reset() { m.level = 0 }

// RMS computes the root-mean-square amplitude of a frame.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
