package live

import (
	"fmt"
	"testing"
	"time"
)

func TestUtteranceBuffer_AppendAndFlush(t *testing.T) {
	t.Parallel()

	b := NewUtteranceBuffer(5, 0) // no quiet timer
	b.Append("Move closer ")
	got := b.Append("to the face.")
	if got != "Move closer to the face." {
		t.Errorf("accumulated: got %q", got)
	}
	if b.Current() != "Move closer to the face." {
		t.Errorf("current: got %q", b.Current())
	}

	b.Flush()
	if b.Current() != "" {
		t.Errorf("current after flush: got %q", b.Current())
	}
	obs := b.Observations()
	if len(obs) != 1 || obs[0] != "Move closer to the face." {
		t.Errorf("observations: %v", obs)
	}
}

func TestUtteranceBuffer_MostRecentFirstAndBounded(t *testing.T) {
	t.Parallel()

	b := NewUtteranceBuffer(3, 0)
	for i := 1; i <= 5; i++ {
		b.Append(fmt.Sprintf("utterance %d", i))
		b.Flush()
	}

	obs := b.Observations()
	if len(obs) != 3 {
		t.Fatalf("observations: got %d, want 3", len(obs))
	}
	want := []string{"utterance 5", "utterance 4", "utterance 3"}
	for i, w := range want {
		if obs[i] != w {
			t.Errorf("obs[%d]: got %q, want %q", i, obs[i], w)
		}
	}
}

func TestUtteranceBuffer_EmptyFlushIsNoop(t *testing.T) {
	t.Parallel()

	b := NewUtteranceBuffer(5, 0)
	b.Flush()
	b.Flush()
	if obs := b.Observations(); len(obs) != 0 {
		t.Errorf("observations after empty flushes: %v", obs)
	}
}

func TestUtteranceBuffer_QuietTimerFlushes(t *testing.T) {
	t.Parallel()

	b := NewUtteranceBuffer(5, 20*time.Millisecond)
	b.Append("Gait is wide-based.")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(b.Observations()) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	obs := b.Observations()
	if len(obs) != 1 || obs[0] != "Gait is wide-based." {
		t.Fatalf("quiet flush: %v", obs)
	}
	if b.Current() != "" {
		t.Errorf("current after quiet flush: %q", b.Current())
	}
}

func TestUtteranceBuffer_CloseFlushesAndStops(t *testing.T) {
	t.Parallel()

	b := NewUtteranceBuffer(5, time.Hour)
	b.Append("final thought")
	b.Close()

	if obs := b.Observations(); len(obs) != 1 || obs[0] != "final thought" {
		t.Errorf("close must flush: %v", obs)
	}
	if got := b.Append("after close"); got != "" {
		t.Errorf("append after close: got %q", got)
	}
	b.Close() // idempotent
}
