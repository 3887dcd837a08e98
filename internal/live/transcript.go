package live

import (
	"sync"
	"time"
)

const (
	// maxObservations bounds the retained utterance list.
	maxObservations = 5

	// quietFlush closes out an utterance when the model stops speaking
	// without sending an explicit turn-complete marker.
	quietFlush = 2 * time.Second
)

// UtteranceBuffer assembles streamed transcript fragments into complete
// utterances. Fragments accumulate into the current utterance until the
// server marks the turn complete or the stream goes quiet; the finished
// utterance is then prepended to a bounded most-recent-first list.
//
// All methods are safe for concurrent use.
type UtteranceBuffer struct {
	mu           sync.Mutex
	current      string
	observations []string
	maxSize      int
	quiet        time.Duration
	timer        *time.Timer
	closed       bool
}

// NewUtteranceBuffer creates a buffer retaining at most maxSize finished
// utterances and flushing the current one after quiet with no new fragments.
func NewUtteranceBuffer(maxSize int, quiet time.Duration) *UtteranceBuffer {
	return &UtteranceBuffer{
		maxSize: maxSize,
		quiet:   quiet,
	}
}

// Append adds a transcript fragment to the current utterance and returns the
// accumulated text so far. The quiet timer restarts on every fragment.
func (b *UtteranceBuffer) Append(fragment string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return b.current
	}

	b.current += fragment

	if b.timer != nil {
		b.timer.Stop()
	}
	if b.quiet > 0 {
		b.timer = time.AfterFunc(b.quiet, b.Flush)
	}
	return b.current
}

// Flush finishes the current utterance, moving it to the front of the
// observation list. Flushing an empty utterance is a no-op.
func (b *UtteranceBuffer) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

func (b *UtteranceBuffer) flushLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if b.current == "" {
		return
	}
	b.observations = append([]string{b.current}, b.observations...)
	if len(b.observations) > b.maxSize {
		b.observations = b.observations[:b.maxSize]
	}
	b.current = ""
}

// Current returns the in-progress utterance text.
func (b *UtteranceBuffer) Current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Observations returns the finished utterances, most recent first.
func (b *UtteranceBuffer) Observations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.observations))
	copy(out, b.observations)
	return out
}

// Close flushes any in-progress utterance and stops the quiet timer.
func (b *UtteranceBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.flushLocked()
	b.closed = true
}
