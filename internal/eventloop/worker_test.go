package eventloop

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/yourusername/staticd/internal/arena"
	"github.com/yourusername/staticd/internal/connection"
	"github.com/yourusername/staticd/internal/metrics"
	"github.com/yourusername/staticd/internal/pathresolve"
	"github.com/yourusername/staticd/internal/socket"

	"github.com/prometheus/client_golang/prometheus"
)

func TestWorkerServesRequestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("it works"), 0o644); err != nil {
		t.Fatal(err)
	}
	root, err := pathresolve.NewRoot(dir)
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}

	socketCfg := socket.Config{Host: "127.0.0.1", Port: 0, Backlog: 16}
	listenFD, err := socket.Listen(socketCfg)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	port, err := socket.BoundPort(listenFD)
	if err != nil {
		t.Fatalf("BoundPort: %v", err)
	}
	socketCfg.Port = port

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	collector := metrics.NewCollector(prometheus.NewRegistry())
	handler := connection.New(connection.Config{ReadBufSize: 4096, URILimit: 0, Root: root}, logger, collector)

	w, err := NewWorker(0, listenFD, socketCfg, handler, logger, collector)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- w.Run() }()
	t.Cleanup(func() {
		w.Stop()
		<-done
	})

	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), 2*time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("GET / HTTP/1.1\r\n\r\n")); err != nil {
		t.Fatalf("write request: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	body, err := io.ReadAll(conn)
	if err != nil && err != io.EOF {
		t.Fatalf("read response: %v", err)
	}
	got := string(body)
	if !strings.HasPrefix(got, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("unexpected status line: %q", got)
	}
	if !strings.HasSuffix(got, "it works") {
		t.Fatalf("unexpected body: %q", got)
	}
}

// TestStepEmits500OnErrRecoverable exercises the escalation worker.go's
// step added: a connection that entered ErrRecoverable (as
// connection.TestProcessRequestReadErrorSetsErrRecoverable shows a
// real read(2) failure does) must still get a 500 written to its peer
// before the connection is reclaimed, matching server.c's
// CONN_ERR_RECOVERABLE case.
func TestStepEmits500OnErrRecoverable(t *testing.T) {
	dir := t.TempDir()
	root, err := pathresolve.NewRoot(dir)
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	collector := metrics.NewCollector(prometheus.NewRegistry())
	handler := connection.New(connection.Config{ReadBufSize: 4096, URILimit: 0, Root: root}, logger, collector)

	listenFD, err := socket.Listen(socket.Config{Host: "127.0.0.1", Port: 0, Backlog: 16})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	w, err := NewWorker(0, listenFD, socket.Config{}, handler, logger, collector)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	t.Cleanup(func() { w.Stop() })

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	serverFD, clientFD := fds[0], fds[1]
	t.Cleanup(func() { unix.Close(clientFD) })

	conn := connection.NewConnection(serverFD, "", arena.New(0))
	conn.State = connection.ErrRecoverable
	w.conns[serverFD] = conn

	w.step(Event{FD: serverFD})

	buf := make([]byte, 4096)
	n, err := unix.Read(clientFD, buf)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	got := string(buf[:n])
	if !strings.HasPrefix(got, "HTTP/1.1 500 Internal Server Error\r\n") {
		t.Fatalf("unexpected status line: %q", got)
	}

	if _, ok := w.conns[serverFD]; ok {
		t.Fatal("connection was not reclaimed after ErrRecoverable escalation")
	}
}
