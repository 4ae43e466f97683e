package httpproto

import (
	"bytes"

	"github.com/yourusername/staticd/internal/arena"
)

// ParseRequestLine parses an HTTP request line out of buf, which must
// contain at least the request line terminated by CRLF (only the
// leading CR is required to locate the line end — mirrors
// original_source/src/http.c's use of strchr(str, '\r')).
//
// The request line is split on ASCII space into method, URI, and
// version tokens. The method must be an exact-case match for GET or
// HEAD; the URI is copied into a, the caller's arena (spec.md §4.2:
// "The URI is copied into the arena"); the version must be exactly
// HTTP/1.0 or HTTP/1.1.
//
// Headers are never parsed: this server does not depend on any
// request header (spec.md §4.2).
func ParseRequestLine(buf []byte, uriLimit int, a *arena.Arena) (Request, error) {
	lineEnd := bytes.IndexByte(buf, '\r')
	if lineEnd < 0 {
		return Request{}, ErrInvalidSyntax
	}
	line := buf[:lineEnd]

	methodEnd := bytes.IndexByte(line, ' ')
	if methodEnd < 0 {
		return Request{}, ErrInvalidSyntax
	}
	method := parseMethod(line[:methodEnd])
	if method == MethodUnknown {
		return Request{}, ErrInvalidMethod
	}

	rest := line[methodEnd:]
	skip := leadingSpaces(rest)
	if skip == 0 {
		return Request{}, ErrInvalidSyntax
	}
	rest = rest[skip:]

	uriEnd := bytes.IndexByte(rest, ' ')
	if uriEnd < 0 {
		return Request{}, ErrInvalidSyntax
	}
	uri := rest[:uriEnd]
	if uriLimit > 0 && len(uri) > uriLimit {
		return Request{}, ErrURITooLong
	}

	rest = rest[uriEnd:]
	skip = leadingSpaces(rest)
	if skip == 0 {
		return Request{}, ErrInvalidSyntax
	}
	versionTok := rest[skip:]

	var version Version
	switch string(versionTok) {
	case "HTTP/1.1":
		version = HTTP11
	case "HTTP/1.0":
		version = HTTP10
	default:
		return Request{}, ErrInvalidVersion
	}

	var uriStr string
	if a != nil {
		uriStr = a.AllocString(string(uri))
	} else {
		uriStr = string(uri)
	}

	return Request{Method: method, URI: uriStr, Version: version}, nil
}

func leadingSpaces(b []byte) int {
	n := 0
	for n < len(b) && b[n] == ' ' {
		n++
	}
	return n
}
