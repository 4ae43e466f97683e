// Package eventloop drives the readiness-multiplexing loop each
// worker runs: wait for I/O readiness on a set of file descriptors,
// then hand each ready one to the caller. It is the Go redesign of
// original_source/src/server.c's select()-based run_child loop —
// see SPEC_FULL.md §4.6/§5 for why epoll-per-goroutine replaces
// select()-per-process.
package eventloop

// Event is one readiness notification: FD became ready for Readable
// and/or Writable I/O, or the peer half-closed (Hangup).
type Event struct {
	FD       int
	Readable bool
	Writable bool
	Hangup   bool
}

// Poller is the minimal readiness-multiplexing contract Worker needs.
// loop_linux.go implements it with epoll; loop_other.go implements it
// with unix.Poll as a portable fallback — both satisfy the same
// contract so Worker itself never branches on platform.
type Poller interface {
	// Add registers fd for the given interest (Readable/Writable).
	Add(fd int, interest Interest) error
	// Modify changes fd's registered interest.
	Modify(fd int, interest Interest) error
	// Remove deregisters fd. It is not an error to remove an fd that
	// was never added.
	Remove(fd int) error
	// Wait blocks until at least one registered fd is ready, a
	// pending call to Close unblocks it, or an error occurs.
	Wait() ([]Event, error)
	// Close releases the poller's own resources (e.g. the epoll fd).
	Close() error
}

// Interest describes which readiness conditions a registered fd
// should be notified for.
type Interest struct {
	Readable bool
	Writable bool
}

// ReadOnly is shorthand for the common case of a connection waiting
// to read its next request.
var ReadOnly = Interest{Readable: true}

// WriteOnly is shorthand for a connection streaming a file body.
var WriteOnly = Interest{Writable: true}
