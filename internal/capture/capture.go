// Package capture acquires microphone audio and camera frames and feeds them
// to a realtime session as encoded media chunks.
//
// The microphone path reads fixed-size float32 frames from PortAudio at the
// device's native rate, tracks a smoothed input level for UI feedback,
// converts each frame to 16-bit PCM at the upstream capture rate, and hands
// the encoded chunk to the session. Frames are dropped rather than queued
// when the session cannot keep up; realtime input is only useful fresh.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/openpheno/phenograph/pkg/audio"
)

// ErrPermissionDenied indicates the microphone could not be opened. The
// usual cause is missing OS permission for audio capture.
var ErrPermissionDenied = errors.New("capture: microphone access denied")

// ChunkSink receives encoded media chunks. The realtime session satisfies
// this.
type ChunkSink interface {
	Send(chunk audio.Chunk) error
}

// Option is a functional option for configuring a Microphone.
type Option func(*Microphone)

// WithFrameSize overrides the capture frame size in samples.
func WithFrameSize(n int) Option {
	return func(m *Microphone) { m.frameSize = n }
}

// WithDroppedFrameHook registers a callback invoked once per dropped frame,
// used to feed the dropped-frame counter.
func WithDroppedFrameHook(fn func()) Option {
	return func(m *Microphone) { m.onDrop = fn }
}

// Microphone captures mono audio frames and streams them to a sink.
type Microphone struct {
	sink      ChunkSink
	log       *slog.Logger
	meter     *audio.LevelMeter
	adapter   *audio.RateAdapter
	frameSize int
	onDrop    func()

	mu         sync.Mutex
	stream     *portaudio.Stream
	deviceRate int
	channels   int
	running    bool

	frames   chan []float32
	stopOnce sync.Once
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewMicrophone creates a Microphone streaming to sink.
func NewMicrophone(sink ChunkSink, log *slog.Logger, opts ...Option) *Microphone {
	m := &Microphone{
		sink:      sink,
		log:       log,
		meter:     &audio.LevelMeter{},
		adapter:   &audio.RateAdapter{Target: audio.CaptureRate},
		frameSize: audio.FrameSize,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Start opens the default input device at its native rate and begins
// streaming. A device open failure maps to [ErrPermissionDenied].
func (m *Microphone) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("capture: already running")
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("capture: initialize: %w", err)
	}

	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	open := func(channels int, buf []float32) (*portaudio.Stream, error) {
		return portaudio.OpenStream(portaudio.StreamParameters{
			Input: portaudio.StreamDeviceParameters{
				Device:   device,
				Channels: channels,
				Latency:  device.DefaultLowInputLatency,
			},
			SampleRate:      device.DefaultSampleRate,
			FramesPerBuffer: m.frameSize,
		}, buf)
	}

	channels := 1
	buffer := make([]float32, m.frameSize)
	stream, err := open(channels, buffer)
	if err != nil {
		// Some devices only expose an interleaved 2-channel stream;
		// frames are downmixed to mono before encoding.
		channels = 2
		buffer = make([]float32, m.frameSize*channels)
		stream, err = open(channels, buffer)
	}
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	m.stream = stream
	m.deviceRate = int(device.DefaultSampleRate)
	m.channels = channels
	m.running = true
	m.frames = make(chan []float32, 8)

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(2)
	go m.readLoop(runCtx, buffer)
	go m.sendLoop(runCtx)

	m.log.Info("capture: microphone started",
		"device", device.Name, "rate", m.deviceRate,
		"channels", channels, "frame_size", m.frameSize)
	return nil
}

// readLoop pulls frames off the device and hands copies to the send loop,
// dropping when it is behind.
func (m *Microphone) readLoop(ctx context.Context, buffer []float32) {
	defer m.wg.Done()
	defer close(m.frames)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.stream.Read(); err != nil {
			if ctx.Err() == nil {
				m.log.Warn("capture: stream read failed", "error", err)
			}
			return
		}

		samples := make([]float32, len(buffer))
		copy(samples, buffer)

		select {
		case m.frames <- samples:
		default:
			if m.onDrop != nil {
				m.onDrop()
			}
		}
	}
}

// sendLoop encodes frames and delivers them to the sink.
func (m *Microphone) sendLoop(ctx context.Context) {
	defer m.wg.Done()

	for samples := range m.frames {
		chunk := encodeMicFrame(samples, m.deviceRate, m.channels, m.meter, m.adapter)
		if err := m.sink.Send(chunk); err != nil {
			if ctx.Err() == nil {
				m.log.Warn("capture: send failed", "error", err)
			}
			return
		}
	}
}

// encodeMicFrame updates the level meter and converts one device frame to a
// base64 PCM chunk at the upstream capture rate. Interleaved stereo frames
// are downmixed to mono first.
func encodeMicFrame(samples []float32, deviceRate, channels int, meter *audio.LevelMeter, adapter *audio.RateAdapter) audio.Chunk {
	meter.Update(samples)
	pcm := audio.FloatToPCM16(samples)
	if channels == 2 {
		pcm = audio.StereoToMono(pcm)
	}
	pcm = adapter.Adapt(pcm, deviceRate)
	return audio.Chunk{
		MIMEType: audio.PCMMimeType(audio.CaptureRate),
		Data:     audio.EncodeBase64(pcm),
	}
}

// Level returns the smoothed input level for UI feedback.
func (m *Microphone) Level() float64 {
	return m.meter.Level()
}

// Stop halts capture and releases the device. Idempotent; safe to call
// before Start.
func (m *Microphone) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		running := m.running
		m.running = false
		stream := m.stream
		m.mu.Unlock()

		if !running {
			return
		}

		m.cancel()
		stream.Stop()
		stream.Close()
		m.wg.Wait()
		portaudio.Terminate()
		m.meter.Reset()
	})
}
