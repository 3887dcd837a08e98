// Package playback provides gapless sequential scheduling of decoded audio
// chunks against a monotonic audio clock.
//
// Inbound chunks are decoded into [Item] values and queued FIFO. Each item
// is scheduled to start at max(clockNow, cursor), where the cursor is the
// end time of the previously scheduled item. This guarantees non-overlapping,
// strictly sequential playback even under bursty arrival. [Scheduler.CancelAll]
// implements barge-in: it stops the in-flight item, empties the queue, and
// restarts the timeline from "now".
package playback

import (
	"fmt"
	"sync"

	"github.com/openpheno/phenograph/pkg/audio"
)

// defaultQueueCap is the initial capacity hint for the playback queue.
const defaultQueueCap = 16

// Item is one decoded audio chunk awaiting playback. Items are played
// exactly once, in FIFO arrival order, then discarded.
type Item struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the item length in seconds.
func (it Item) Duration() float64 {
	if it.SampleRate <= 0 {
		return 0
	}
	return float64(len(it.Samples)) / float64(it.SampleRate)
}

// Sink renders scheduled items. Play must wait until startAt on the
// scheduler's clock, render the item to completion, and return. Closing
// stop aborts rendering immediately.
type Sink interface {
	Play(item Item, startAt float64, stop <-chan struct{})
}

// Option configures a [Scheduler] during construction.
type Option func(*Scheduler)

// WithClock replaces the real audio clock. Used by tests.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithSampleRate sets the sample rate assumed for inbound PCM chunks.
// Defaults to [audio.PlaybackRate].
func WithSampleRate(rate int) Option {
	return func(s *Scheduler) { s.sampleRate = rate }
}

// WithQueueDepthHook registers a callback invoked with every change in the
// queued item count, used to feed the playback depth gauge. The callback
// runs under the scheduler lock and must not block.
func WithQueueDepthHook(fn func(delta int64)) Option {
	return func(s *Scheduler) { s.onDepth = fn }
}

// Scheduler queues decoded audio and plays it through a [Sink], one item at
// a time, gapless and in arrival order.
//
// All exported methods are safe for concurrent use.
type Scheduler struct {
	sink       Sink
	clock      Clock
	sampleRate int
	onDepth    func(delta int64)

	mu      sync.Mutex
	queue   []Item
	cursor  float64 // end time of the last scheduled item, in clock seconds
	playing bool
	stopCur chan struct{} // closed to interrupt the in-flight item
	gen     uint64        // bumped by CancelAll to invalidate popped items
	closed  bool

	notify chan struct{} // signalled when a new item is enqueued
	done   chan struct{} // closed by Close to stop the dispatch goroutine
	wg     sync.WaitGroup
}

// New creates a Scheduler that renders items through sink. The dispatch
// goroutine starts immediately; call [Scheduler.Close] to stop it.
func New(sink Sink, opts ...Option) *Scheduler {
	s := &Scheduler{
		sink:       sink,
		clock:      NewClock(),
		sampleRate: audio.PlaybackRate,
		queue:      make([]Item, 0, defaultQueueCap),
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.wg.Add(1)
	go s.dispatch()
	return s
}

// Enqueue decodes a PCM chunk and appends it to the playback queue. If
// nothing is currently playing, playback starts. A chunk that fails to
// decode is dropped with an error; the session treats this as non-fatal.
func (s *Scheduler) Enqueue(c audio.Chunk) error {
	frame, err := audio.DecodeChunk(c, s.sampleRate)
	if err != nil {
		return fmt.Errorf("playback: decode chunk: %w", err)
	}
	if len(frame.Samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.queue = append(s.queue, Item{Samples: frame.Samples, SampleRate: frame.SampleRate})
	s.depthLocked(1)
	s.signalLocked()
	return nil
}

// CancelAll stops any in-flight item immediately, empties the queue, and
// resets the cursor to the current clock time. Used on barge-in signals
// from the remote peer. Items enqueued afterwards start a fresh,
// non-overlapping timeline from "now".
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.depthLocked(-int64(len(s.queue)))
	s.queue = s.queue[:0]
	s.gen++
	s.cursor = s.clock.Now()
	if s.stopCur != nil {
		close(s.stopCur)
		s.stopCur = nil
	}
}

// QueueLen reports the number of items waiting to be played. Exposed for
// metrics.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Playing reports whether an item is currently scheduled or rendering.
func (s *Scheduler) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Close stops the dispatch goroutine and cancels any in-flight item.
// Idempotent.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.depthLocked(-int64(len(s.queue)))
	s.queue = nil
	if s.stopCur != nil {
		close(s.stopCur)
		s.stopCur = nil
	}
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// depthLocked reports a queue length change to the hook. Must be called
// with s.mu held.
func (s *Scheduler) depthLocked(delta int64) {
	if s.onDepth != nil && delta != 0 {
		s.onDepth(delta)
	}
}

// signalLocked nudges the dispatch goroutine. Must be called with s.mu held.
func (s *Scheduler) signalLocked() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// dispatch is the single consumer of the queue. It pops the head, schedules
// it at max(now, cursor), advances the cursor by the item's duration, and
// blocks in the sink until the item has been rendered or cancelled.
func (s *Scheduler) dispatch() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}

		for {
			s.mu.Lock()
			if s.closed || len(s.queue) == 0 {
				s.playing = false
				s.mu.Unlock()
				break
			}
			item := s.queue[0]
			s.queue = s.queue[1:]
			s.depthLocked(-1)

			startAt := s.clock.Now()
			if s.cursor > startAt {
				startAt = s.cursor
			}
			s.cursor = startAt + item.Duration()

			stop := make(chan struct{})
			s.stopCur = stop
			s.playing = true
			myGen := s.gen
			s.mu.Unlock()

			s.sink.Play(item, startAt, stop)

			s.mu.Lock()
			// Detach the stop channel unless CancelAll already replaced it.
			if s.gen == myGen && s.stopCur == stop {
				s.stopCur = nil
			}
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			default:
			}
		}
	}
}
