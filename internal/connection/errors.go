package connection

import "fmt"

// AbortError is returned by every handler function that cannot
// continue processing the current connection. It is the explicit Go
// replacement for original_source/src/server.c's abort_req, which
// used setjmp/longjmp to unwind straight back to the worker's
// per-connection step function — see SPEC_FULL.md §4.7. The only
// contract preserved from the original is that the connection's
// terminal State is set before the abort is returned; callers up the
// stack never need to set it again, only propagate the error.
type AbortError struct {
	State State
	Err   error
}

func (e *AbortError) Error() string {
	if e.Err == nil {
		return "connection: aborted, state=" + e.State.String()
	}
	return fmt.Sprintf("connection: aborted (state=%s): %v", e.State, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// abort sets conn's terminal state and wraps err (which may be nil)
// into an *AbortError, the single exit path every failing handler
// function in this package uses.
func abort(conn *Connection, state State, err error) error {
	conn.State = state
	return &AbortError{State: state, Err: err}
}
