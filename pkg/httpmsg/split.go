package httpmsg

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

const (
	crlf     = "\r\n"
	crlfcrlf = "\r\n\r\n"
)

// Parts is a raw message cut at its header/body boundary.
type Parts struct {
	// StartLine is the first line of the header block, whitespace-trimmed.
	StartLine string
	// HeaderLines are the remaining lines of the header block, untouched.
	HeaderLines []string
	// Body is everything after the first CRLF CRLF. It aliases the input.
	Body []byte
	// Terminated reports whether the CRLF CRLF delimiter was found.
	Terminated bool
}

// Split locates the first CRLF CRLF in b and separates the header block from
// the body. Without a delimiter the whole buffer is treated as the header
// block and the body is empty; this is not an error.
//
// The header block must be valid UTF-8, otherwise an *EncodingError is
// returned. The body is never inspected.
func Split(b []byte) (Parts, error) {
	var p Parts

	block := b
	if i := bytes.Index(b, []byte(crlfcrlf)); i >= 0 {
		block = b[:i]
		p.Body = b[i+len(crlfcrlf):]
		p.Terminated = true
	}

	if !utf8.Valid(block) {
		return Parts{}, &EncodingError{Offset: invalidOffset(block)}
	}

	text := string(block)
	first, rest, found := strings.Cut(text, crlf)
	p.StartLine = strings.TrimSpace(first)
	if found {
		p.HeaderLines = strings.Split(rest, crlf)
	}
	return p, nil
}

// invalidOffset returns the index of the first byte that does not start a
// valid UTF-8 sequence.
func invalidOffset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(b)
}
