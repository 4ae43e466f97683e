// Package connection implements the per-connection state machine and
// request-handling logic, grounded on original_source/src/handler.c
// and the enum connection_state in original_source/src/server.h.
package connection

// State mirrors enum connection_state from server.h exactly: a
// connection is always in exactly one of these states, and the event
// loop (internal/eventloop) decides what to do next purely by
// inspecting it.
type State int

const (
	Waiting State = iota
	Sending
	Complete
	ErrRecoverable
	ErrUnrecoverable
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Sending:
		return "sending"
	case Complete:
		return "complete"
	case ErrRecoverable:
		return "err_recoverable"
	case ErrUnrecoverable:
		return "err_unrecoverable"
	default:
		return "unknown"
	}
}

// Terminal reports whether the event loop should stop driving this
// connection and reclaim it (close the socket, release the arena).
func (s State) Terminal() bool {
	return s == Complete || s == ErrRecoverable || s == ErrUnrecoverable
}
