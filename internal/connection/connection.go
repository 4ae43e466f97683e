package connection

import (
	"github.com/yourusername/staticd/internal/arena"
)

// Connection is the Go analogue of original_source/src/server.h's
// struct active_connection: one readiness-driven connection owned by
// exactly one worker goroutine, carrying its own arena binding, raw
// socket descriptor, optional open file descriptor, and reused read
// buffer with a separate length/cursor pair so a partially-flushed
// file body can resume on the next writable-readiness signal.
type Connection struct {
	SockFD int
	FileFD int // -1 when no file is open for this connection

	State State
	Arena *arena.Arena

	ReadBuf       []byte
	ReadBufLen    int
	ReadBufCursor int

	// RemoteAddr is the peer address recorded at accept time; neither
	// request handling nor any log line reads it.
	RemoteAddr string
}

// NewConnection returns a Connection ready to be driven from Waiting,
// bound to its own arena.
func NewConnection(sockFD int, remoteAddr string, a *arena.Arena) *Connection {
	return &Connection{
		SockFD:     sockFD,
		FileFD:     -1,
		State:      Waiting,
		Arena:      a,
		RemoteAddr: remoteAddr,
	}
}

// HasFile reports whether a file is currently open for streaming.
func (c *Connection) HasFile() bool {
	return c.FileFD != -1
}
