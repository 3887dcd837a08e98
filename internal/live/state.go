package live

// State is the lifecycle phase of a streaming session. Transitions are
// validated centrally so concurrent events (server interruption, local
// close, transport failure) cannot drive the session into an impossible
// combination.
type State int

const (
	// StateIdle is the zero value: no connection attempt has been made.
	StateIdle State = iota

	// StateConnecting covers the dial and setup handshake.
	StateConnecting

	// StateOpen means the setup message was accepted and the session is
	// ready to stream, but no media has been sent yet.
	StateOpen

	// StateStreaming means media chunks are flowing upstream.
	StateStreaming

	// StateInterrupted is entered when the server reports the model was
	// cut off by new input. Pending playback is discarded and the session
	// returns to StateStreaming on its own.
	StateInterrupted

	// StateClosing covers the local teardown sequence.
	StateClosing

	// StateClosed is terminal after shutdown, orderly or not.
	StateClosed

	// StateError is entered on a transport or protocol failure. No media
	// flows, but Close still moves the session to StateClosed so teardown
	// is uniform; the failure stays available via Err.
	StateError
)

var stateNames = map[State]string{
	StateIdle:        "idle",
	StateConnecting:  "connecting",
	StateOpen:        "open",
	StateStreaming:   "streaming",
	StateInterrupted: "interrupted",
	StateClosing:     "closing",
	StateClosed:      "closed",
	StateError:       "error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateClosed
}

var validTransitions = map[State][]State{
	StateIdle:        {StateConnecting},
	StateConnecting:  {StateOpen, StateClosing, StateError},
	StateOpen:        {StateStreaming, StateClosing, StateError},
	StateStreaming:   {StateInterrupted, StateClosing, StateError},
	StateInterrupted: {StateStreaming, StateClosing, StateError},
	StateClosing:     {StateClosed},
	StateError:       {StateClosing},
}

// canTransition reports whether from may move to to.
func canTransition(from, to State) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
