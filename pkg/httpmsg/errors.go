package httpmsg

import (
	"errors"
	"fmt"
)

// Sentinel errors returned (directly or wrapped) by the dissector.
var (
	// ErrEncoding matches any *EncodingError.
	ErrEncoding = errors.New("httpmsg: header block is not valid UTF-8")

	// ErrMalformedStartLine matches any *MalformedStartLineError.
	ErrMalformedStartLine = errors.New("httpmsg: malformed start line")

	// ErrNotHTTP is returned by Dissect when the classifier cannot tell
	// whether the payload is a request or a response.
	ErrNotHTTP = errors.New("httpmsg: payload is not an HTTP/1.x message")

	// ErrUnknownField is returned when a slot outside the variant's schema is set.
	ErrUnknownField = errors.New("httpmsg: field is not part of the schema")
)

// EncodingError reports a header block that cannot be decoded as text.
type EncodingError struct {
	// Offset is the index of the first invalid byte within the header block.
	Offset int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("httpmsg: invalid UTF-8 in header block at offset %d", e.Offset)
}

// Is makes errors.Is(err, ErrEncoding) true.
func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

// MalformedStartLineError reports a request line that does not split into
// exactly three whitespace-separated tokens.
type MalformedStartLineError struct {
	Line   string
	Tokens int
}

func (e *MalformedStartLineError) Error() string {
	return fmt.Sprintf("httpmsg: request line %q has %d tokens, want 3", e.Line, e.Tokens)
}

// Is makes errors.Is(err, ErrMalformedStartLine) true.
func (e *MalformedStartLineError) Is(target error) bool {
	return target == ErrMalformedStartLine
}
