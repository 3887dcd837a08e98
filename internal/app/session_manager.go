package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openpheno/phenograph/internal/capture"
	"github.com/openpheno/phenograph/internal/config"
	"github.com/openpheno/phenograph/internal/live"
	"github.com/openpheno/phenograph/internal/observe"
	"github.com/openpheno/phenograph/pkg/audio/playback"
)

// Conn is the realtime-session surface the manager drives. *live.Session
// satisfies this.
type Conn interface {
	capture.ChunkSink
	Close() error
	RiskAlert() bool
	Observations() []string
}

// Dialer opens realtime sessions.
type Dialer interface {
	Connect(ctx context.Context, cfg live.Config, player live.Player) (Conn, error)
}

// Capturer streams microphone media into a sink. A Capturer is single-use:
// the manager creates a fresh one per session.
type Capturer interface {
	Start(ctx context.Context) error
	Stop()
	Level() float64
}

// Playback renders the model's synthesised audio.
type Playback interface {
	live.Player
	Close() error
}

// SessionManager runs at most one live screening session at a time. Starting
// while a session is active is an error; Stop is idempotent. All exported
// methods are safe for concurrent use.
type SessionManager struct {
	log     *slog.Logger
	metrics *observe.Metrics

	dialer     Dialer
	newPlayer  func() Playback
	newCapture func(sink capture.ChunkSink) Capturer

	mu          sync.Mutex
	active      bool
	startedAt   time.Time
	conn        Conn
	mic         Capturer
	player      Playback
	grabber     capture.FrameGrabber
	videoOpts   []capture.VideoOption
	videoCancel context.CancelFunc
	videoDone   chan struct{}
}

// NewSessionManager creates a SessionManager with the real live client,
// microphone, and playback pipeline built from config.
func NewSessionManager(cfg config.Config, log *slog.Logger, metrics *observe.Metrics) *SessionManager {
	liveOpts := []live.Option{
		live.WithModel(cfg.Gemini.LiveModel),
		live.WithVoice(cfg.Gemini.Voice),
		live.WithRiskHook(func() {
			metrics.RiskAlerts.Add(context.Background(), 1)
		}),
	}
	client := live.New(cfg.Gemini.APIKey, log, liveOpts...)

	sm := &SessionManager{
		log:     log,
		metrics: metrics,
		dialer:  liveDialer{client},
	}

	sm.newPlayer = func() Playback {
		clock := playback.NewClock()
		sink := playback.NewPortAudioSink(clock)
		return &portAudioPlayer{
			Scheduler: playback.New(sink,
				playback.WithClock(clock),
				playback.WithQueueDepthHook(func(delta int64) {
					metrics.PlaybackQueueDepth.Add(context.Background(), delta)
				})),
			sink: sink,
		}
	}

	sm.newCapture = func(sink capture.ChunkSink) Capturer {
		opts := []capture.Option{
			capture.WithDroppedFrameHook(func() {
				metrics.DroppedFrames.Add(context.Background(), 1)
			}),
		}
		if cfg.Audio.FrameSize > 0 {
			opts = append(opts, capture.WithFrameSize(cfg.Audio.FrameSize))
		}
		return capture.NewMicrophone(sink, log, opts...)
	}

	return sm
}

// SetFrameGrabber attaches a camera source. Sessions started afterwards
// stream downsampled frames alongside the microphone. Pass nil to detach.
func (sm *SessionManager) SetFrameGrabber(g capture.FrameGrabber, opts ...capture.VideoOption) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.grabber = g
	sm.videoOpts = opts
}

// liveDialer adapts *live.Client to the Dialer interface.
type liveDialer struct {
	client *live.Client
}

func (d liveDialer) Connect(ctx context.Context, cfg live.Config, player live.Player) (Conn, error) {
	sess, err := d.client.Connect(ctx, cfg, player)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// portAudioPlayer pairs a scheduler with the device sink it renders through
// so both are released together.
type portAudioPlayer struct {
	*playback.Scheduler
	sink *playback.PortAudioSink
}

func (p *portAudioPlayer) Close() error {
	return errors.Join(p.Scheduler.Close(), p.sink.Close())
}

// Start opens a realtime session and begins streaming the microphone into
// it. Returns an error when a session is already active or any stage of the
// pipeline fails to come up; partially started stages are torn down.
func (sm *SessionManager) Start(ctx context.Context, cfg live.Config) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.active {
		return fmt.Errorf("app: a live session is already active (since %s)",
			sm.startedAt.Format(time.RFC3339))
	}

	player := sm.newPlayer()

	conn, err := sm.dialer.Connect(ctx, cfg, player)
	if err != nil {
		_ = player.Close()
		return fmt.Errorf("app: connect live session: %w", err)
	}

	mic := sm.newCapture(conn)
	if err := mic.Start(ctx); err != nil {
		_ = conn.Close()
		_ = player.Close()
		return fmt.Errorf("app: start capture: %w", err)
	}

	if sm.grabber != nil {
		videoCtx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		streamer := capture.NewVideoStreamer(sm.grabber, conn, sm.log, sm.videoOpts...)
		go func() {
			defer close(done)
			streamer.Run(videoCtx)
		}()
		sm.videoCancel = cancel
		sm.videoDone = done
	}

	sm.active = true
	sm.startedAt = time.Now().UTC()
	sm.conn = conn
	sm.mic = mic
	sm.player = player

	sm.metrics.ActiveSessions.Add(ctx, 1)
	sm.metrics.RecordLiveEvent(ctx, "session_start")
	sm.log.Info("live session started", "urgent", cfg.Urgent)

	return nil
}

// Stop tears the active session down in order: camera and microphone first
// so no more media flows, then playback, then the transport. Idempotent;
// stopping with no active session is a no-op.
func (sm *SessionManager) Stop(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.active {
		return nil
	}

	if sm.videoCancel != nil {
		sm.videoCancel()
		<-sm.videoDone
		sm.videoCancel = nil
		sm.videoDone = nil
	}
	sm.mic.Stop()
	sm.player.CancelAll()
	if err := sm.player.Close(); err != nil {
		sm.log.Warn("app: playback close error", "error", err)
	}
	if err := sm.conn.Close(); err != nil {
		sm.log.Warn("app: session close error", "error", err)
	}

	sm.active = false
	sm.conn = nil
	sm.mic = nil
	sm.player = nil
	sm.startedAt = time.Time{}

	sm.metrics.ActiveSessions.Add(ctx, -1)
	sm.metrics.RecordLiveEvent(ctx, "session_stop")
	sm.log.Info("live session stopped")

	return nil
}

// Active reports whether a session is currently running.
func (sm *SessionManager) Active() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.active
}

// Level returns the smoothed microphone input level, or zero when no
// session is active.
func (sm *SessionManager) Level() float64 {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if !sm.active {
		return 0
	}
	return sm.mic.Level()
}

// RiskAlert reports whether the active session detected an emergency term.
func (sm *SessionManager) RiskAlert() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.active && sm.conn.RiskAlert()
}

// Observations returns the active session's finished utterances, most
// recent first, or nil when no session is active.
func (sm *SessionManager) Observations() []string {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if !sm.active {
		return nil
	}
	return sm.conn.Observations()
}
