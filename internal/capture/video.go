package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/jpeg"
	"log/slog"
	"time"

	"github.com/openpheno/phenograph/pkg/audio"
)

const (
	// frameInterval is the camera sampling cadence. One frame per second is
	// enough for the model to track posture, gait, and facial signs without
	// saturating the uplink.
	frameInterval = time.Second

	// downsampleFactor reduces each dimension before encoding.
	downsampleFactor = 4

	// jpegQuality trades detail for uplink size.
	jpegQuality = 60
)

// FrameGrabber produces camera frames. Implementations wrap whatever camera
// source the platform offers.
type FrameGrabber interface {
	Grab() (image.Image, error)
}

// VideoStreamer samples the camera at a fixed cadence and forwards
// quarter-resolution JPEG frames to the sink.
type VideoStreamer struct {
	grabber  FrameGrabber
	sink     ChunkSink
	log      *slog.Logger
	interval time.Duration
}

// VideoOption is a functional option for configuring a VideoStreamer.
type VideoOption func(*VideoStreamer)

// WithFrameInterval overrides the sampling cadence.
func WithFrameInterval(d time.Duration) VideoOption {
	return func(v *VideoStreamer) { v.interval = d }
}

// NewVideoStreamer creates a streamer reading from grabber.
func NewVideoStreamer(grabber FrameGrabber, sink ChunkSink, log *slog.Logger, opts ...VideoOption) *VideoStreamer {
	v := &VideoStreamer{grabber: grabber, sink: sink, log: log, interval: frameInterval}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Run samples frames until ctx is cancelled. Grab and send failures are
// logged and skipped; the camera may momentarily blank without ending the
// session.
func (v *VideoStreamer) Run(ctx context.Context) {
	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := v.grabber.Grab()
			if err != nil {
				v.log.Debug("capture: frame grab failed", "error", err)
				continue
			}
			chunk, err := EncodeVideoFrame(frame)
			if err != nil {
				v.log.Debug("capture: frame encode failed", "error", err)
				continue
			}
			if err := v.sink.Send(chunk); err != nil {
				v.log.Debug("capture: frame send failed", "error", err)
			}
		}
	}
}

// EncodeVideoFrame downsamples one camera frame and encodes it as a JPEG
// media chunk.
func EncodeVideoFrame(img image.Image) (audio.Chunk, error) {
	small := Downsample(img, downsampleFactor)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, small, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return audio.Chunk{}, err
	}
	return audio.Chunk{
		MIMEType: "image/jpeg",
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// Downsample reduces img by factor in each dimension using nearest-neighbor
// sampling. A factor below 2 returns the image unchanged.
func Downsample(img image.Image, factor int) image.Image {
	if factor < 2 {
		return img
	}
	bounds := img.Bounds()
	w := bounds.Dx() / factor
	h := bounds.Dy() / factor
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			out.Set(x, y, img.At(bounds.Min.X+x*factor, bounds.Min.Y+y*factor))
		}
	}
	return out
}
