package httpproto

import (
	"fmt"
	"time"

	"github.com/valyala/bytebufferpool"
)

// Header is a single (name, value) header pair. Headers are kept in
// an ordered slice, not a map, because the response builder always
// emits them in insertion order (spec.md §4.4).
type Header struct {
	Name  string
	Value string
}

// Response is a transient, arena-scoped description of an HTTP
// response: a status code, ordered headers, and an optional small
// in-memory body. File bodies are streamed separately by the
// connection state machine (spec.md §4.6) and are not represented
// here.
type Response struct {
	// HasRequest/Method record whether this is a reply to a parsed
	// request (and if so, which method) so the builder knows whether
	// to omit the body section for HEAD.
	HasRequest bool
	Method     Method

	Status  StatusCode
	Headers []Header
	Body    []byte
}

// dateLayout reproduces the original's "%s, %d %s %d %02d:%02d:%02d
// GMT" format exactly: Go's reference day token "2" is already
// non-zero-padded, matching the original's un-padded %d for
// day-of-month (see SPEC_FULL.md §9).
const dateLayout = "Mon, 2 Jan 2006 15:04:05 GMT"

// DateHeader returns a Date header with the current time in GMT,
// formatted as RFC 7231 IMF-fixdate except for the un-padded
// day-of-month (preserved from the original source, see SPEC_FULL.md
// §9).
func DateHeader(now time.Time) Header {
	return Header{Name: "Date", Value: now.UTC().Format(dateLayout)}
}

// ContentLengthHeader formats a Content-Length header.
func ContentLengthHeader(n int64) Header {
	return Header{Name: "Content-Length", Value: fmt.Sprintf("%d", n)}
}

// maxHeaderSection is the stack-sized buffer spec.md §4.4 assembles
// the header section into before a single write call.
const maxHeaderSection = 4096

// ErrHeaderSectionTooLarge indicates the assembled status line plus
// headers did not fit in the 4 KiB header buffer.
var ErrHeaderSectionTooLarge = fmt.Errorf("httpproto: header section exceeds %d bytes", maxHeaderSection)

// BuildHeaderSection assembles the status line and headers (and, for
// non-HEAD responses, the terminating blank line) into a pooled
// buffer capped at 4 KiB, matching the original's stack buffer. The
// caller is responsible for returning buf to bytebufferpool via
// bytebufferpool.Put once the bytes have been written to the socket.
func BuildHeaderSection(resp *Response) (buf *bytebufferpool.ByteBuffer, err error) {
	buf = bytebufferpool.Get()

	fmt.Fprintf(buf, "HTTP/1.1 %d %s\r\n", int(resp.Status), resp.Status.Reason())
	for _, h := range resp.Headers {
		fmt.Fprintf(buf, "%s: %s\r\n", h.Name, h.Value)
	}
	if !resp.HasRequest || resp.Method != MethodHEAD {
		buf.WriteString("\r\n")
	}

	if buf.Len() > maxHeaderSection {
		bytebufferpool.Put(buf)
		return nil, ErrHeaderSectionTooLarge
	}
	return buf, nil
}
