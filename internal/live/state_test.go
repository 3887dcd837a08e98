package live

import "testing"

func TestStateTransitions(t *testing.T) {
	t.Parallel()

	allowed := []struct{ from, to State }{
		{StateIdle, StateConnecting},
		{StateConnecting, StateOpen},
		{StateConnecting, StateError},
		{StateOpen, StateStreaming},
		{StateStreaming, StateInterrupted},
		{StateInterrupted, StateStreaming},
		{StateStreaming, StateClosing},
		{StateClosing, StateClosed},
		{StateOpen, StateError},
		{StateError, StateClosing},
	}
	for _, tr := range allowed {
		if !canTransition(tr.from, tr.to) {
			t.Errorf("%s -> %s should be allowed", tr.from, tr.to)
		}
	}

	forbidden := []struct{ from, to State }{
		{StateIdle, StateStreaming},
		{StateOpen, StateInterrupted},
		{StateClosed, StateOpen},
		{StateClosed, StateConnecting},
		{StateError, StateStreaming},
		{StateError, StateOpen},
		{StateClosing, StateStreaming},
		{StateStreaming, StateOpen},
	}
	for _, tr := range forbidden {
		if canTransition(tr.from, tr.to) {
			t.Errorf("%s -> %s should be forbidden", tr.from, tr.to)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	t.Parallel()

	all := []State{
		StateIdle, StateConnecting, StateOpen, StateStreaming,
		StateInterrupted, StateClosing, StateClosed, StateError,
	}
	for _, from := range all {
		if !from.Terminal() {
			continue
		}
		for _, to := range all {
			if canTransition(from, to) {
				t.Errorf("terminal state %s must not transition to %s", from, to)
			}
		}
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	if got := StateStreaming.String(); got != "streaming" {
		t.Errorf("streaming: got %q", got)
	}
	if got := State(99).String(); got != "unknown" {
		t.Errorf("out of range: got %q", got)
	}
}
