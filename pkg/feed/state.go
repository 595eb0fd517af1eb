package feed

import "sync/atomic"

// ConnState represents the current state of the stream connection
// lifecycle.
type ConnState int32

// Connection states. The progression is Connecting -> Authenticating ->
// Authenticated -> Subscribed, but it is not strictly linear: Error is
// reachable from any state, and any abnormal closure restarts the cycle
// at Connecting unless the failure was terminal.
const (
	// StateDisconnected indicates no connection and no pending retry.
	StateDisconnected ConnState = iota
	// StateConnecting indicates a dial is in progress or scheduled.
	StateConnecting
	// StateAuthenticating indicates the socket is open and the credential
	// frame has been sent.
	StateAuthenticating
	// StateAuthenticated indicates the server accepted the credentials.
	StateAuthenticated
	// StateSubscribed indicates at least one subscription is acknowledged
	// server-side.
	StateSubscribed
	// StateError indicates a fault was observed; it is followed either by
	// StateDisconnected (terminal) or a new StateConnecting cycle.
	StateError
)

// String returns the status label for the state.
func (s ConnState) String() string {
	return [...]string{
		"disconnected",
		"connecting",
		"authenticating",
		"authenticated",
		"subscribed",
		"error",
	}[s]
}

// State provides thread-safe atomic access to a ConnState value.
type State struct {
	state atomic.Int32
}

// Load returns the current connection state.
func (s *State) Load() ConnState {
	return ConnState(s.state.Load())
}

// Store sets the connection state to the given value.
func (s *State) Store(state ConnState) {
	s.state.Store(int32(state))
}

// CompareAndSwap atomically compares the current state with old and swaps
// to new if equal. It returns true if the swap was performed.
func (s *State) CompareAndSwap(old, new ConnState) bool {
	return s.state.CompareAndSwap(int32(old), int32(new))
}
