package connection

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/yourusername/staticd/internal/arena"
	"github.com/yourusername/staticd/internal/pathresolve"
)

func newTestHandler(t *testing.T) (*Handler, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "a"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a", "b.txt"), []byte("nested"), 0o644); err != nil {
		t.Fatal(err)
	}

	outside := dir + "-outside"
	if err := os.Mkdir(outside, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(outside) })
	if err := os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(dir, "escape")); err != nil {
		t.Fatal(err)
	}

	root, err := pathresolve.NewRoot(dir)
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel) // silence test output

	h := New(Config{
		ReadBufSize: 4096,
		URILimit:    0,
		Root:        root,
	}, logger, nil)
	return h, dir
}

func socketPair(t *testing.T) (serverFD, clientFD int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func sendRequest(t *testing.T, clientFD int, line string) {
	t.Helper()
	if _, err := unix.Write(clientFD, []byte(line)); err != nil {
		t.Fatalf("write request: %v", err)
	}
}

func readResponse(t *testing.T, clientFD int) string {
	t.Helper()
	buf := make([]byte, 65536)
	n, err := unix.Read(clientFD, buf)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return string(buf[:n])
}

func newArenaConn(sockFD int) *Connection {
	return NewConnection(sockFD, "127.0.0.1:0", arena.New(0))
}

func TestProcessRequestGETServesFile(t *testing.T) {
	h, _ := newTestHandler(t)
	serverFD, clientFD := socketPair(t)
	sendRequest(t, clientFD, "GET / HTTP/1.1\r\n\r\n")

	conn := newArenaConn(serverFD)
	if err := h.ProcessRequest(conn); err != nil {
		t.Fatalf("ProcessRequest: %v", err)
	}
	if conn.State != Complete {
		t.Fatalf("state = %v, want Complete", conn.State)
	}

	got := readResponse(t, clientFD)
	if !strings.HasPrefix(got, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("unexpected status line: %q", got)
	}
	if !strings.Contains(got, "Content-Length: 11\r\n") {
		t.Fatalf("unexpected content-length: %q", got)
	}
	if !strings.HasSuffix(got, "hello world") {
		t.Fatalf("unexpected body: %q", got)
	}
}

func TestProcessRequestHEADOmitsBody(t *testing.T) {
	h, _ := newTestHandler(t)
	serverFD, clientFD := socketPair(t)
	sendRequest(t, clientFD, "HEAD /a/b.txt HTTP/1.1\r\n\r\n")

	conn := newArenaConn(serverFD)
	if err := h.ProcessRequest(conn); err != nil {
		t.Fatalf("ProcessRequest: %v", err)
	}
	if conn.State != Complete {
		t.Fatalf("state = %v, want Complete", conn.State)
	}

	got := readResponse(t, clientFD)
	if !strings.HasPrefix(got, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("unexpected status line: %q", got)
	}
	if !strings.HasSuffix(got, "Content-Length: 6\r\nContent-Type: text/plain\r\nConnection: Close\r\n") {
		t.Fatalf("HEAD response should end right after headers: %q", got)
	}
}

func TestProcessRequestMissingFileIs404(t *testing.T) {
	h, _ := newTestHandler(t)
	serverFD, clientFD := socketPair(t)
	sendRequest(t, clientFD, "GET /missing.txt HTTP/1.1\r\n\r\n")

	conn := newArenaConn(serverFD)
	if err := h.ProcessRequest(conn); err != nil {
		t.Fatalf("ProcessRequest: %v", err)
	}
	got := readResponse(t, clientFD)
	if !strings.HasPrefix(got, "HTTP/1.1 404 Not Found\r\n") {
		t.Fatalf("unexpected status line: %q", got)
	}
}

func TestProcessRequestSymlinkEscapeIs403(t *testing.T) {
	h, _ := newTestHandler(t)
	serverFD, clientFD := socketPair(t)
	sendRequest(t, clientFD, "GET /escape HTTP/1.1\r\n\r\n")

	conn := newArenaConn(serverFD)
	if err := h.ProcessRequest(conn); err != nil {
		t.Fatalf("ProcessRequest: %v", err)
	}
	got := readResponse(t, clientFD)
	if !strings.HasPrefix(got, "HTTP/1.1 403 Forbidden\r\n") {
		t.Fatalf("unexpected status line: %q", got)
	}
}

func TestProcessRequestDisallowedMethodIs405(t *testing.T) {
	h, _ := newTestHandler(t)
	serverFD, clientFD := socketPair(t)
	sendRequest(t, clientFD, "POST / HTTP/1.1\r\n\r\n")

	conn := newArenaConn(serverFD)
	if err := h.ProcessRequest(conn); err != nil {
		t.Fatalf("ProcessRequest: %v", err)
	}
	got := readResponse(t, clientFD)
	if !strings.HasPrefix(got, "HTTP/1.1 405 Method Not Allowed\r\n") {
		t.Fatalf("unexpected status line: %q", got)
	}
}

func TestProcessRequestUnsupportedVersionIs505(t *testing.T) {
	h, _ := newTestHandler(t)
	serverFD, clientFD := socketPair(t)
	sendRequest(t, clientFD, "GET / HTTP/2.0\r\n\r\n")

	conn := newArenaConn(serverFD)
	if err := h.ProcessRequest(conn); err != nil {
		t.Fatalf("ProcessRequest: %v", err)
	}
	got := readResponse(t, clientFD)
	if !strings.HasPrefix(got, "HTTP/1.1 505 Version Not Supported\r\n") {
		t.Fatalf("unexpected status line: %q", got)
	}
}

func TestProcessRequestURITooLongIs514(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	root, err := pathresolve.NewRoot(dir)
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	h := New(Config{ReadBufSize: 4096, URILimit: 4, Root: root}, logger, nil)

	serverFD, clientFD := socketPair(t)
	sendRequest(t, clientFD, "GET /aaaaaaaaaa HTTP/1.1\r\n\r\n")

	conn := newArenaConn(serverFD)
	if err := h.ProcessRequest(conn); err != nil {
		t.Fatalf("ProcessRequest: %v", err)
	}
	got := readResponse(t, clientFD)
	if !strings.HasPrefix(got, "HTTP/1.1 514 URI Too Long\r\n") {
		t.Fatalf("unexpected status line: %q", got)
	}
}

func TestStateTerminal(t *testing.T) {
	cases := map[State]bool{
		Waiting:          false,
		Sending:          false,
		Complete:         true,
		ErrRecoverable:   true,
		ErrUnrecoverable: true,
	}
	for state, want := range cases {
		if got := state.Terminal(); got != want {
			t.Errorf("State(%v).Terminal() = %v, want %v", state, got, want)
		}
	}
}

// TestProcessRequestReadErrorSetsErrRecoverable forces a genuine
// read(2) failure (EBADF, by closing the socket out from under
// ProcessRequest) and asserts it surfaces as ErrRecoverable, matching
// server.c's read_socket failure path (abort_req(CONN_ERR_RECOVERABLE,
// ...)). internal/eventloop.Worker.step relies on this to know when to
// emit a 500 before reclaiming (see worker_test.go).
func TestProcessRequestReadErrorSetsErrRecoverable(t *testing.T) {
	h, _ := newTestHandler(t)
	serverFD, _ := socketPair(t)

	conn := newArenaConn(serverFD)
	unix.Close(serverFD) // the read below now fails with EBADF

	err := h.ProcessRequest(conn)
	if err == nil {
		t.Fatal("ProcessRequest: want error, got nil")
	}
	var abortErr *AbortError
	if !errors.As(err, &abortErr) {
		t.Fatalf("ProcessRequest error = %v, want *AbortError", err)
	}
	if abortErr.State != ErrRecoverable {
		t.Fatalf("AbortError.State = %v, want ErrRecoverable", abortErr.State)
	}
	if conn.State != ErrRecoverable {
		t.Fatalf("conn.State = %v, want ErrRecoverable", conn.State)
	}
}
