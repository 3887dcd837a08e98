package playback

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Compile-time interface assertion.
var _ Sink = (*PortAudioSink)(nil)

// writeChunkSamples is the number of samples written to the output stream
// per call, small enough that a stop signal is honoured promptly.
const writeChunkSamples = 1024

// PortAudioSink renders items to the default output device. It opens one
// output stream per item, waits until the scheduled start time, and streams
// the samples in small writes so cancellation takes effect quickly.
type PortAudioSink struct {
	clock Clock

	mu     sync.Mutex
	inited bool
}

// NewPortAudioSink creates a sink that times playback against clock. The
// clock must be the same one the owning [Scheduler] uses.
func NewPortAudioSink(clock Clock) *PortAudioSink {
	return &PortAudioSink{clock: clock}
}

// Play blocks until the item has been rendered or stop is closed.
func (p *PortAudioSink) Play(item Item, startAt float64, stop <-chan struct{}) {
	if err := p.ensureInit(); err != nil {
		slog.Error("playback: portaudio init", "err", err)
		return
	}

	if wait := startAt - p.clock.Now(); wait > 0 {
		select {
		case <-p.clock.After(wait):
		case <-stop:
			return
		}
	}

	buf := make([]float32, writeChunkSamples)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(item.SampleRate), len(buf), &buf)
	if err != nil {
		slog.Error("playback: open output stream", "err", err)
		return
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		slog.Error("playback: start output stream", "err", err)
		return
	}
	defer func() {
		if err := stream.Stop(); err != nil {
			slog.Warn("playback: stop output stream", "err", err)
		}
	}()

	samples := item.Samples
	for len(samples) > 0 {
		select {
		case <-stop:
			return
		default:
		}

		n := copy(buf, samples)
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
		samples = samples[n:]

		if err := stream.Write(); err != nil {
			slog.Warn("playback: write output stream", "err", err)
			return
		}
	}
}

// Close releases the PortAudio runtime. Idempotent.
func (p *PortAudioSink) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.inited {
		return nil
	}
	p.inited = false
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("playback: terminate portaudio: %w", err)
	}
	return nil
}

func (p *PortAudioSink) ensureInit() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inited {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("playback: initialize portaudio: %w", err)
	}
	p.inited = true
	return nil
}
