// Package capture contains domain types for dissected HTTP messages kept
// for inspection.
package capture

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/Sentinel-Gate/httpdissect/pkg/httpmsg"
)

// Record is one dissected message with the context it was seen in.
type Record struct {
	// ID uniquely identifies the record.
	ID string `json:"id"`
	// Timestamp is when the message was dissected.
	Timestamp time.Time `json:"timestamp"`
	// Kind is request or response.
	Kind httpmsg.Kind `json:"kind"`
	// SrcPort and DstPort are zero when the payload did not come from a segment.
	SrcPort uint16 `json:"src_port,omitempty"`
	DstPort uint16 `json:"dst_port,omitempty"`

	// Request start line.
	Method  string `json:"method,omitempty"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`

	// StatusLine is the response start line. StatusCode is parsed from it
	// and is 0 when it does not carry a three-digit code.
	StatusLine string `json:"status_line,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`

	// Headers maps display names to values for present slots.
	Headers map[string]string `json:"headers,omitempty"`
	// Overflow holds unmatched header lines in arrival order.
	Overflow []string `json:"overflow,omitempty"`
	// Body is the opaque payload after the header block.
	Body []byte `json:"body,omitempty"`

	// HeaderSize is the length of the serialized header block.
	HeaderSize int `json:"header_size"`
	// Fingerprint is the hex xxhash64 of the serialized header block.
	Fingerprint string `json:"fingerprint"`
}

// FromMessage builds a record from a dissected message. The body is
// copied so the record does not alias the capture buffer.
func FromMessage(m httpmsg.Message, body []byte) Record {
	block := m.Bytes()
	rec := Record{
		ID:          uuid.New().String(),
		Timestamp:   time.Now().UTC(),
		Kind:        m.Kind(),
		Overflow:    append([]string(nil), m.OverflowLines()...),
		HeaderSize:  len(block),
		Fingerprint: Fingerprint(block),
	}
	if len(body) > 0 {
		rec.Body = append([]byte(nil), body...)
	}
	if hs := m.Headers(); len(hs) > 0 {
		rec.Headers = make(map[string]string, len(hs))
		for _, h := range hs {
			rec.Headers[h.Field.String()] = h.Value
		}
	}

	switch msg := m.(type) {
	case *httpmsg.Request:
		rec.Method, rec.Path, rec.Version = msg.Method, msg.Path, msg.Version
	case *httpmsg.Response:
		rec.StatusLine = msg.StatusLine
		rec.StatusCode = StatusCode(msg.StatusLine)
	}
	return rec
}

// Message rebuilds the header block of the record. A header name outside
// the schema of the record's kind fails with httpmsg.ErrUnknownField.
func (r Record) Message() (httpmsg.Message, error) {
	m := httpmsg.New(r.Kind)
	if m == nil {
		return nil, fmt.Errorf("record %s: %w", r.ID, httpmsg.ErrNotHTTP)
	}
	schema := m.Schema()
	for name, value := range r.Headers {
		f, ok := schema.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("header %q: %w", name, httpmsg.ErrUnknownField)
		}
		if err := m.SetHeader(f, value); err != nil {
			return nil, err
		}
	}

	overflow := append([]string(nil), r.Overflow...)
	switch msg := m.(type) {
	case *httpmsg.Request:
		msg.Method, msg.Path, msg.Version = r.Method, r.Path, r.Version
		msg.Overflow = overflow
	case *httpmsg.Response:
		msg.StatusLine = r.StatusLine
		msg.Overflow = overflow
	}
	return m, nil
}

// Wire returns the serialized header block followed by the body.
func (r Record) Wire() ([]byte, error) {
	m, err := r.Message()
	if err != nil {
		return nil, err
	}
	return httpmsg.AppendWire(nil, m, r.Body), nil
}

// Host returns the Host header, or "" for responses and requests without one.
func (r Record) Host() string {
	return r.Headers[httpmsg.Host.String()]
}

// HeaderMap returns every header, overflow included, keyed by canonical
// name. A later overflow line wins over a slot of the same name.
func (r Record) HeaderMap() map[string]string {
	out := make(map[string]string, len(r.Headers)+len(r.Overflow))
	for name, value := range r.Headers {
		out[httpmsg.Canonicalize(name)] = value
	}
	for _, line := range r.Overflow {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out[httpmsg.Canonicalize(name)] = strings.TrimSpace(value)
	}
	return out
}

// StatusCode extracts the three-digit code from a status line.
func StatusCode(statusLine string) int {
	fields := strings.Fields(statusLine)
	if len(fields) < 2 || len(fields[1]) != 3 {
		return 0
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil || code < 0 {
		return 0
	}
	return code
}

// Fingerprint hashes a serialized header block.
func Fingerprint(block []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(block))
}
