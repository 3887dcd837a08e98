// Package live implements the realtime coaching session over the
// BidiGenerateContent WebSocket protocol.
//
// A session streams captured microphone audio and camera frames upstream and
// receives synthesised speech, transcript fragments, and turn markers
// downstream. Synthesised audio is handed to a playback scheduler; transcript
// fragments are assembled into bounded observations and scanned for
// emergency terms. A lifecycle state machine guards every transition.
package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/openpheno/phenograph/pkg/audio"
)

const (
	// DefaultModel is the native-audio realtime model.
	DefaultModel = "gemini-2.5-flash-native-audio-preview-09-2025"

	// DefaultVoice is the prebuilt voice used for synthesised replies.
	DefaultVoice = "Kore"

	defaultBaseURL = "wss://generativelanguage.googleapis.com/ws"

	keepaliveInterval = 20 * time.Second
	keepaliveTimeout  = 5 * time.Second
)

// Player receives the model's synthesised audio. CancelAll discards all
// pending playback when the server reports an interruption.
type Player interface {
	Enqueue(chunk audio.Chunk) error
	CancelAll()
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithModel sets the realtime model used for sessions.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithVoice sets the prebuilt voice name.
func WithVoice(voice string) Option {
	return func(c *Client) { c.voice = voice }
}

// WithBaseURL overrides the base WebSocket URL. Primarily used in tests to
// point at a local mock server.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithRiskHook registers a callback invoked once per session when an
// emergency term is first detected, used to feed the risk alert counter.
func WithRiskHook(fn func()) Option {
	return func(c *Client) { c.onRisk = fn }
}

// Client dials realtime sessions.
type Client struct {
	apiKey  string
	model   string
	voice   string
	baseURL string
	onRisk  func()
	log     *slog.Logger
}

// New creates a Client with the given API key and options.
func New(apiKey string, log *slog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		model:   DefaultModel,
		voice:   DefaultVoice,
		baseURL: defaultBaseURL,
		log:     log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Config carries the per-session parameters.
type Config struct {
	// Instruction is the system instruction. Empty selects LiveInstruction.
	Instruction string

	// Urgent appends a brevity directive after a risk alert, so a restarted
	// session keeps its answers short and directive.
	Urgent bool
}

// Connect dials the realtime endpoint, performs the setup handshake, and
// starts the receive and keepalive loops. The returned session is in
// StateOpen and accepts media immediately.
func (c *Client) Connect(ctx context.Context, cfg Config, player Player) (*Session, error) {
	wsURL := fmt.Sprintf(
		"%s/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent?key=%s",
		c.baseURL, c.apiKey,
	)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Content-Type": []string{"application/json"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("live: dial: %w", err)
	}

	sessCtx, sessCancel := context.WithCancel(context.Background())
	sess := &Session{
		conn:       conn,
		player:     player,
		log:        c.log,
		onRisk:     c.onRisk,
		utterances: NewUtteranceBuffer(maxObservations, quietFlush),
		state:      StateConnecting,
		done:       make(chan struct{}),
		ctx:        sessCtx,
		cancel:     sessCancel,
	}

	if err := sess.sendSetup(c.model, c.voice, cfg); err != nil {
		sessCancel()
		conn.Close(websocket.StatusInternalError, "setup failed")
		return nil, fmt.Errorf("live: setup: %w", err)
	}
	sess.transition(StateOpen)

	go sess.receiveLoop()
	go sess.keepaliveLoop()

	return sess, nil
}

// Session is one realtime connection. All methods are safe for concurrent
// use.
type Session struct {
	conn       *websocket.Conn
	player     Player
	log        *slog.Logger
	onRisk     func()
	utterances *UtteranceBuffer

	mu        sync.Mutex
	state     State
	errVal    error
	riskAlert bool

	done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// sendSetup sends the initial BidiGenerateContent setup message. Output
// transcription is always requested so observations and risk scanning work.
func (s *Session) sendSetup(model, voice string, cfg Config) error {
	instruction := cfg.Instruction
	if instruction == "" {
		instruction = liveInstructionText
	}
	if cfg.Urgent {
		instruction += " URGENT MODE: BE BRIEF AND DIRECT."
	}

	msg := setupMessage{
		Setup: setupConfig{
			Model: fmt.Sprintf("models/%s", model),
			GenerationConfig: generationConfig{
				ResponseModalities: []string{"AUDIO"},
				SpeechConfig: &speechConfig{
					VoiceConfig: voiceConfig{
						PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: voice},
					},
				},
			},
			SystemInstruction:        &systemInstruction{Parts: []part{{Text: instruction}}},
			OutputAudioTranscription: &struct{}{},
		},
	}
	return s.writeJSON(msg)
}

// writeJSON marshals v and writes it as a text WebSocket message.
func (s *Session) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("live: marshal: %w", err)
	}
	return s.conn.Write(s.ctx, websocket.MessageText, data)
}

// transition moves the state machine to next if the transition is legal.
// Illegal transitions are dropped, which makes racing events (a server
// interruption arriving during Close, for example) harmless.
func (s *Session) transition(next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(next)
}

func (s *Session) transitionLocked(next State) bool {
	if !canTransition(s.state, next) {
		return false
	}
	s.state = next
	return true
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Send delivers one media chunk upstream. The first chunk promotes the
// session from open to streaming. Chunks arriving in any other state are
// dropped silently; sending on a closed or failed session returns an error.
func (s *Session) Send(chunk audio.Chunk) error {
	s.mu.Lock()
	switch s.state {
	case StateOpen:
		s.transitionLocked(StateStreaming)
	case StateStreaming:
	case StateClosed, StateError:
		s.mu.Unlock()
		return fmt.Errorf("live: session %s", s.state)
	default:
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	msg := realtimeInputMessage{
		RealtimeInput: realtimeInput{
			MediaChunks: []mediaChunk{
				{MIMEType: chunk.MIMEType, Data: chunk.Data},
			},
		},
	}
	return s.writeJSON(msg)
}

// SendVideoFrame delivers one JPEG camera frame upstream, subject to the
// same state gating as Send.
func (s *Session) SendVideoFrame(jpeg []byte) error {
	return s.Send(audio.Chunk{
		MIMEType: "image/jpeg",
		Data:     base64.StdEncoding.EncodeToString(jpeg),
	})
}

// TransportError wraps the network or streaming failure that terminated a
// session.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "live: transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// receiveLoop reads server messages and dispatches them until the connection
// drops or the session is closed.
func (s *Session) receiveLoop() {
	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.fail(&TransportError{Err: err})
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue // skip malformed frames
		}
		s.handleServerMessage(&msg)
	}
}

func (s *Session) handleServerMessage(msg *serverMessage) {
	if msg.Error != nil {
		errMsg := msg.Error.Message
		if errMsg == "" {
			errMsg = "unknown error"
		}
		s.log.Warn("live: server error", "status", msg.Error.Status, "message", errMsg)
	}
	if msg.ServerContent != nil {
		s.handleServerContent(msg.ServerContent)
	}
}

func (s *Session) handleServerContent(sc *serverContent) {
	if sc.Interrupted {
		// The user spoke over the model. Drop everything queued and let
		// the next model turn start on a fresh timeline.
		s.player.CancelAll()
		s.mu.Lock()
		if s.transitionLocked(StateInterrupted) {
			s.transitionLocked(StateStreaming)
		}
		s.mu.Unlock()
		s.log.Debug("live: interrupted, playback cancelled")
	}

	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			chunk := audio.Chunk{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data}
			if err := s.player.Enqueue(chunk); err != nil {
				s.log.Debug("live: dropped undecodable audio chunk", "error", err)
			}
		}
	}

	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		accumulated := s.utterances.Append(sc.OutputTranscription.Text)
		if ScanRisk(accumulated) {
			s.mu.Lock()
			first := !s.riskAlert
			s.riskAlert = true
			s.mu.Unlock()
			if first {
				s.log.Warn("live: emergency risk detected", "text", accumulated)
				if s.onRisk != nil {
					s.onRisk()
				}
			}
		}
	}

	if sc.TurnComplete {
		s.utterances.Flush()
	}
}

// keepaliveLoop sends WebSocket pings to keep the connection alive.
func (s *Session) keepaliveLoop() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(s.ctx, keepaliveTimeout)
			_ = s.conn.Ping(pingCtx)
			cancel()
		}
	}
}

// fail records the first fatal error and moves the session to StateError.
func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.errVal == nil {
		s.errVal = err
	}
	s.transitionLocked(StateError)
	s.mu.Unlock()
}

// Err returns the first fatal error, or nil after an orderly shutdown.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errVal
}

// Transcript returns the model's in-progress utterance.
func (s *Session) Transcript() string {
	return s.utterances.Current()
}

// Observations returns the finished utterances, most recent first.
func (s *Session) Observations() []string {
	return s.utterances.Observations()
}

// RiskAlert reports whether an emergency term was detected this session.
func (s *Session) RiskAlert() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.riskAlert
}

// ClearRiskAlert acknowledges the alert so a later detection raises again.
func (s *Session) ClearRiskAlert() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.riskAlert = false
}

// Close terminates the session and releases all resources. Idempotent, and
// legal from every state.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.transitionLocked(StateClosing)
		s.transitionLocked(StateClosed)
		s.mu.Unlock()

		s.cancel()
		close(s.done)
		s.utterances.Close()
		s.conn.Close(websocket.StatusNormalClosure, "session closed")
	})
	return nil
}
