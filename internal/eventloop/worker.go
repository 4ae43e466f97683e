package eventloop

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/yourusername/staticd/internal/arena"
	"github.com/yourusername/staticd/internal/connection"
	"github.com/yourusername/staticd/internal/httpproto"
	"github.com/yourusername/staticd/internal/metrics"
	"github.com/yourusername/staticd/internal/socket"
)

// Worker is one single-threaded readiness loop: the Go goroutine
// analogue of one of original_source/src/server.c's forked child
// processes (run_child). Every Worker owns its own Poller and
// connection set; nothing here is shared with another Worker (see
// SPEC_FULL.md §5's REDESIGN note).
type Worker struct {
	ID int

	ListenFD  int
	SocketCfg socket.Config

	Handler *connection.Handler
	Logger  logrus.FieldLogger
	Metrics *metrics.Collector

	ArenaMinBlockSize int

	poller Poller
	conns  map[int]*connection.Connection
}

// NewWorker constructs a Worker ready to Run. listenFD must already be
// bound and listening (see socket.Listen); each worker gets its own
// listenFD from its own socket.Listen call against the same host:port
// (SO_REUSEPORT).
func NewWorker(id, listenFD int, socketCfg socket.Config, handler *connection.Handler, logger logrus.FieldLogger, m *metrics.Collector) (*Worker, error) {
	poller, err := NewPoller()
	if err != nil {
		return nil, fmt.Errorf("worker %d: new poller: %w", id, err)
	}
	w := &Worker{
		ID:        id,
		ListenFD:  listenFD,
		SocketCfg: socketCfg,
		Handler:   handler,
		Logger:    logger,
		Metrics:   m,
		poller:    poller,
		conns:     make(map[int]*connection.Connection),
	}
	return w, nil
}

// Run registers the listening socket and drives the readiness loop
// until Stop is called or an unrecoverable poller error occurs.
// Reproduces server.c's run_child startup log line
// ("accepting connections on address %s:%d") once per worker.
func (w *Worker) Run() error {
	w.Logger.Infof("worker %d accepting connections on address %s:%d", w.ID, w.SocketCfg.Host, w.SocketCfg.Port)

	if err := w.poller.Add(w.ListenFD, ReadOnly); err != nil {
		return fmt.Errorf("worker %d: register listener: %w", w.ID, err)
	}

	for {
		events, err := w.poller.Wait()
		if err != nil {
			return fmt.Errorf("worker %d: poller wait: %w", w.ID, err)
		}
		if events == nil {
			// Stop was called.
			return nil
		}
		for _, ev := range events {
			if ev.FD == w.ListenFD {
				w.acceptAll()
				continue
			}
			w.step(ev)
		}
	}
}

// Stop closes the poller, which unblocks a running Run call.
func (w *Worker) Stop() error {
	return w.poller.Close()
}

func (w *Worker) acceptAll() {
	for {
		fd, remoteAddr, err := socket.Accept(w.ListenFD, w.SocketCfg)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			w.Logger.Errorf("worker %d: accept: %v", w.ID, err)
			return
		}

		conn := connection.NewConnection(fd, remoteAddr, arena.New(w.ArenaMinBlockSize))
		w.conns[fd] = conn
		if w.Metrics != nil {
			w.Metrics.ConnectionsAccepted.Inc()
			w.Metrics.ActiveConnections.Inc()
		}
		if err := w.poller.Add(fd, ReadOnly); err != nil {
			w.Logger.Errorf("worker %d: register connection fd %d: %v", w.ID, fd, err)
			w.reclaim(conn)
		}
	}
}

// step advances one connection in response to a readiness event,
// moving it through connection.State until a terminal state is
// reached, at which point the connection is reclaimed.
func (w *Worker) step(ev Event) {
	conn, ok := w.conns[ev.FD]
	if !ok {
		return
	}

	binding := arena.Bind(conn.Arena)
	defer binding.Unbind()

	var err error
	switch conn.State {
	case connection.Waiting:
		err = w.Handler.ProcessRequest(conn)
	case connection.Sending:
		err = w.Handler.ProcessRequestWrite(conn)
	default:
		// Already terminal; nothing left to do but reclaim below.
	}
	if err != nil {
		w.Logger.Debugf("worker %d: connection fd %d: %v", w.ID, ev.FD, err)
	}

	// server.c's CONN_ERR_RECOVERABLE case re-enters a protected call
	// that emits a 500 before treating the connection as complete; a
	// read(2)/parse failure must still produce a response, not just a
	// silent close.
	if conn.State == connection.ErrRecoverable {
		if rerr := w.Handler.ErrorResponse(httpproto.StatusInternalServerError, conn); rerr != nil {
			w.Logger.Debugf("worker %d: connection fd %d: error response: %v", w.ID, ev.FD, rerr)
		}
	}

	if conn.State.Terminal() {
		w.reclaim(conn)
		return
	}

	w.rearm(conn)
}

// rearm updates the poller's interest for conn to match its current
// state: Waiting wants readability, Sending wants writability.
func (w *Worker) rearm(conn *connection.Connection) {
	interest := ReadOnly
	if conn.State == connection.Sending {
		interest = WriteOnly
	}
	if err := w.poller.Modify(conn.SockFD, interest); err != nil {
		w.Logger.Errorf("worker %d: rearm fd %d: %v", w.ID, conn.SockFD, err)
		w.reclaim(conn)
	}
}

func (w *Worker) reclaim(conn *connection.Connection) {
	if w.Metrics != nil {
		w.Metrics.ConnectionsClosed.WithLabelValues(conn.State.String()).Inc()
		w.Metrics.ActiveConnections.Dec()
		w.Metrics.ArenaBlocksAllocated.Add(float64(conn.Arena.BlocksAllocated()))
	}
	_ = w.poller.Remove(conn.SockFD)
	if conn.HasFile() {
		unix.Close(conn.FileFD)
	}
	unix.Close(conn.SockFD)
	conn.Arena.Clear()
	delete(w.conns, conn.SockFD)
}
