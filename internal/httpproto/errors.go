package httpproto

import "errors"

// Parser errors, mirroring original_source/src/server.h's
// parse_http_req_result enum.
var (
	// ErrInvalidSyntax covers a missing CR, missing method/URI/version
	// field, or a missing separator between fields.
	ErrInvalidSyntax = errors.New("httpproto: invalid request syntax")

	// ErrInvalidMethod indicates a method token other than GET or HEAD.
	ErrInvalidMethod = errors.New("httpproto: invalid or unsupported method")

	// ErrInvalidVersion indicates a version token other than
	// HTTP/1.0 or HTTP/1.1.
	ErrInvalidVersion = errors.New("httpproto: invalid or unsupported version")

	// ErrURITooLong indicates the URI token exceeded the configured
	// limit.
	ErrURITooLong = errors.New("httpproto: uri too long")

	// ErrRequestTooLarge names the case of a request line that did not
	// fit in a single read of the configured buffer size.
	// ParseRequestLine never returns it: connection.Handler detects that
	// case itself, as ErrInvalidSyntax from a read that filled the
	// buffer.
	ErrRequestTooLarge = errors.New("httpproto: request too large")
)
