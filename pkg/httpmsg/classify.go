package httpmsg

import (
	"bytes"
	"regexp"
	"unicode/utf8"
)

var (
	requestLine = regexp.MustCompile(`^(?:OPTIONS|GET|HEAD|POST|PUT|DELETE|TRACE|CONNECT) .+? HTTP/[0-9]\.[0-9]$`)
	statusLine  = regexp.MustCompile(`^HTTP/[0-9]\.[0-9] [0-9]{3} .*$`)
)

// Classify decides from the first line of b whether it starts an HTTP
// request, an HTTP response, or neither. Only the bytes before the first
// CRLF are examined; without a CRLF the result is KindUnknown.
//
// This is a heuristic: a non-HTTP payload whose first line looks like a
// request or status line is misclassified, and a first line split across
// segments is not recognised until the caller reassembles it.
func Classify(b []byte) Kind {
	line, ok := FirstLine(b)
	if !ok || !utf8.Valid(line) {
		return KindUnknown
	}
	switch {
	case requestLine.Match(line):
		return KindRequest
	case statusLine.Match(line):
		return KindResponse
	default:
		return KindUnknown
	}
}

// FirstLine returns the bytes before the first CRLF and whether one was found.
func FirstLine(b []byte) ([]byte, bool) {
	i := bytes.Index(b, []byte(crlf))
	if i < 0 {
		return nil, false
	}
	return b[:i], true
}
