package connection

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/valyala/bytebufferpool"
	"golang.org/x/sys/unix"

	"github.com/yourusername/staticd/internal/contenttype"
	"github.com/yourusername/staticd/internal/httpproto"
	"github.com/yourusername/staticd/internal/metrics"
	"github.com/yourusername/staticd/internal/pathresolve"
)

// Config carries the subset of the running server's settings this
// package needs to service a request: the document root (already
// canonicalized once at startup), the read buffer size, and the URI
// length limit. It is a narrowed view of config.Settings so this
// package never imports the config package directly.
type Config struct {
	ReadBufSize int
	URILimit    int
	Root        *pathresolve.Root
}

// Handler services connections against a fixed Config, logging every
// 4xx/5xx decision the way original_source/src/handler.c does via
// log_msg/log_perror (see SPEC_FULL.md's SUPPLEMENTED FEATURES).
type Handler struct {
	Config  Config
	Logger  logrus.FieldLogger
	Metrics *metrics.Collector
}

// New returns a Handler bound to cfg, logging through logger. m may be
// nil (tests that don't care about metrics); production callers pass
// the process-wide metrics.Collector so every response status is
// counted.
func New(cfg Config, logger logrus.FieldLogger, m *metrics.Collector) *Handler {
	return &Handler{Config: cfg, Logger: logger, Metrics: m}
}

// ProcessRequest performs one readiness-triggered read of conn's
// socket and, if a full request line was read, serves it. It is the
// Go analogue of handler.c's process_request: a single non-blocking
// read, never accumulated across calls (spec.md §4.2's "one-shot
// read" simplification, preserved per SPEC_FULL.md §9).
func (h *Handler) ProcessRequest(conn *Connection) error {
	if conn.ReadBuf == nil {
		conn.ReadBuf = make([]byte, h.Config.ReadBufSize)
	}

	n, err := unix.Read(conn.SockFD, conn.ReadBuf[:len(conn.ReadBuf)-1])
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return nil
		}
		h.logPErrorf("read socket failed: %v", err)
		return abort(conn, ErrRecoverable, fmt.Errorf("read socket: %w", err))
	}
	if n == 0 {
		// Peer closed before sending anything; nothing to serve yet.
		return nil
	}

	data := conn.ReadBuf[:n]
	bufferFull := n == len(conn.ReadBuf)-1

	req, perr := httpproto.ParseRequestLine(data, h.Config.URILimit, conn.Arena)
	if perr != nil {
		return h.handleParseError(perr, data, bufferFull, conn)
	}

	return h.serveRequest(&req, conn)
}

func (h *Handler) handleParseError(perr error, data []byte, bufferFull bool, conn *Connection) error {
	switch {
	case errors.Is(perr, httpproto.ErrInvalidSyntax) && bufferFull:
		h.Logger.Warn("request too large")
		return h.ErrorResponse(httpproto.StatusBadRequest, conn)
	case errors.Is(perr, httpproto.ErrInvalidSyntax):
		h.Logger.Warnf("invalid request syntax %q", data)
		return h.ErrorResponse(httpproto.StatusBadRequest, conn)
	case errors.Is(perr, httpproto.ErrInvalidVersion):
		h.Logger.Warn("invalid request version")
		return h.ErrorResponse(httpproto.StatusVersionNotSupported, conn)
	case errors.Is(perr, httpproto.ErrURITooLong):
		h.Logger.Warn("uri too long")
		return h.ErrorResponse(httpproto.StatusURITooLong, conn)
	case errors.Is(perr, httpproto.ErrInvalidMethod):
		h.Logger.Warn("invalid method")
		return h.ErrorResponse(httpproto.StatusMethodNotAllowed, conn)
	default:
		return abort(conn, ErrUnrecoverable, perr)
	}
}

func (h *Handler) serveRequest(req *httpproto.Request, conn *Connection) error {
	switch req.Method {
	case httpproto.MethodGET:
		return h.serveGet(req, conn)
	case httpproto.MethodHEAD:
		return h.serveHead(req, conn)
	default:
		// parseMethod never returns anything else as MethodUnknown
		// would already have failed above.
		return h.ErrorResponse(httpproto.StatusMethodNotAllowed, conn)
	}
}

type fileInfo struct {
	size        int64
	contentType string
}

func (h *Handler) resolvePath(uri string, conn *Connection) (string, error) {
	full, err := h.Config.Root.Resolve(uri)
	if err != nil {
		switch {
		case errors.Is(err, pathresolve.ErrForbidden):
			h.Logger.Warn("attempt to access file outside of static directory")
			return "", h.ErrorResponse(httpproto.StatusForbidden, conn)
		case errors.Is(err, pathresolve.ErrNotFound):
			return "", h.ErrorResponse(httpproto.StatusNotFound, conn)
		default:
			return "", h.ErrorResponse(httpproto.StatusInternalServerError, conn)
		}
	}
	return full, nil
}

func (h *Handler) statFile(fullPath string, conn *Connection) (fileInfo, error) {
	st, err := os.Stat(fullPath)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrPermission):
			return fileInfo{}, h.ErrorResponse(httpproto.StatusForbidden, conn)
		case errors.Is(err, fs.ErrNotExist):
			return fileInfo{}, h.ErrorResponse(httpproto.StatusNotFound, conn)
		default:
			return fileInfo{}, h.ErrorResponse(httpproto.StatusInternalServerError, conn)
		}
	}
	return fileInfo{size: st.Size(), contentType: contenttype.FromFilename(fullPath)}, nil
}

func (h *Handler) serveHead(req *httpproto.Request, conn *Connection) error {
	full, err := h.resolvePath(req.URI, conn)
	if err != nil || full == "" {
		return err
	}
	info, err := h.statFile(full, conn)
	if err != nil {
		return err
	}

	resp := &httpproto.Response{
		HasRequest: true,
		Method:     req.Method,
		Status:     httpproto.StatusOK,
		Headers: []httpproto.Header{
			httpproto.DateHeader(nowUTC()),
			httpproto.ContentLengthHeader(info.size),
			{Name: "Content-Type", Value: info.contentType},
			{Name: "Connection", Value: "Close"},
		},
	}
	return h.sendResponse(resp, conn)
}

func (h *Handler) serveGet(req *httpproto.Request, conn *Connection) error {
	full, err := h.resolvePath(req.URI, conn)
	if err != nil || full == "" {
		return err
	}
	info, err := h.statFile(full, conn)
	if err != nil {
		return err
	}

	fd, oerr := unix.Open(full, unix.O_RDONLY, 0)
	if oerr != nil {
		switch oerr {
		case unix.EACCES:
			return h.ErrorResponse(httpproto.StatusForbidden, conn)
		case unix.ENOENT, unix.ENOTDIR:
			return h.ErrorResponse(httpproto.StatusNotFound, conn)
		default:
			return h.ErrorResponse(httpproto.StatusInternalServerError, conn)
		}
	}
	conn.FileFD = fd

	resp := &httpproto.Response{
		HasRequest: true,
		Method:     req.Method,
		Status:     httpproto.StatusOK,
		Headers: []httpproto.Header{
			httpproto.DateHeader(nowUTC()),
			httpproto.ContentLengthHeader(info.size),
			{Name: "Content-Type", Value: info.contentType},
			{Name: "Connection", Value: "Close"},
		},
	}
	return h.sendResponse(resp, conn)
}

// ErrorResponse sends a bodyless response with the given status,
// matching handler.c's error_response exactly (Date + Content-Length:
// 0, no request context).
func (h *Handler) ErrorResponse(status httpproto.StatusCode, conn *Connection) error {
	h.Logger.Infof("error response %d", int(status))
	resp := &httpproto.Response{
		Status: status,
		Headers: []httpproto.Header{
			httpproto.DateHeader(nowUTC()),
			httpproto.ContentLengthHeader(0),
		},
	}
	return h.sendResponse(resp, conn)
}

// sendResponse writes the header section in one blocking call (a
// short write is fatal, matching handler.c's send_response and
// SPEC_FULL.md §4.4/§9), then either completes the connection (HEAD,
// or no body) or switches into Sending to stream a file body.
func (h *Handler) sendResponse(resp *httpproto.Response, conn *Connection) error {
	if h.Metrics != nil {
		h.Metrics.RequestsTotal.WithLabelValues(fmt.Sprintf("%d", int(resp.Status))).Inc()
	}

	buf, err := httpproto.BuildHeaderSection(resp)
	if err != nil {
		return abort(conn, ErrUnrecoverable, err)
	}
	defer bytebufferpool.Put(buf)

	// The header write goes out on the blocking socket; the socket is
	// switched back to non-blocking before any body bytes are streamed.
	if err := unix.SetNonblock(conn.SockFD, false); err != nil {
		h.logPErrorf("failed to set socket blocking: %v", err)
		return abort(conn, ErrUnrecoverable, err)
	}
	n, werr := unix.Write(conn.SockFD, buf.Bytes())
	if werr != nil {
		h.logPErrorf("failed to write to socket: %v", werr)
		return abort(conn, ErrUnrecoverable, werr)
	}
	if err := unix.SetNonblock(conn.SockFD, true); err != nil {
		h.logPErrorf("failed to set socket non-blocking: %v", err)
		return abort(conn, ErrUnrecoverable, err)
	}
	if n != buf.Len() {
		h.logPErrorf("short write to socket: wrote %d of %d bytes", n, buf.Len())
		return abort(conn, ErrUnrecoverable, fmt.Errorf("short header write"))
	}

	if !resp.HasRequest || resp.Method == httpproto.MethodHEAD {
		conn.State = Complete
		return nil
	}

	if conn.HasFile() {
		conn.State = Sending
		return h.ProcessRequestWrite(conn)
	}

	conn.State = Complete
	return nil
}

// ProcessRequestWrite streams the open file to the socket, resuming
// from read_buf_cursor across calls exactly as handler.c's
// process_request_write does: it is re-entered by the event loop
// every time conn's socket becomes writable while in Sending.
func (h *Handler) ProcessRequestWrite(conn *Connection) error {
	if !conn.HasFile() {
		return abort(conn, ErrUnrecoverable, fmt.Errorf("process write: no open file"))
	}

	for {
		if conn.ReadBufLen == 0 || conn.ReadBufCursor == conn.ReadBufLen {
			n, rerr := unix.Read(conn.FileFD, conn.ReadBuf)
			if rerr != nil {
				h.logPErrorf("failed to read from file: %v", rerr)
				h.closeFile(conn)
				return abort(conn, ErrUnrecoverable, rerr)
			}
			if n == 0 {
				h.closeFile(conn)
				conn.State = Complete
				return nil
			}
			conn.ReadBufLen = n
			conn.ReadBufCursor = 0
		}

		n, werr := unix.Write(conn.SockFD, conn.ReadBuf[conn.ReadBufCursor:conn.ReadBufLen])
		if werr != nil {
			if werr == unix.EAGAIN || werr == unix.EWOULDBLOCK {
				return nil
			}
			h.logPErrorf("failed to write to socket: %v", werr)
			h.closeFile(conn)
			return abort(conn, ErrUnrecoverable, werr)
		}
		conn.ReadBufCursor += n
	}
}

func (h *Handler) closeFile(conn *Connection) {
	if conn.FileFD != -1 {
		unix.Close(conn.FileFD)
		conn.FileFD = -1
	}
}

func (h *Handler) logPErrorf(format string, args ...interface{}) {
	h.Logger.Errorf(format, args...)
}
