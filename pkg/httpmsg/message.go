package httpmsg

import (
	"fmt"
	"strings"
)

// Kind tags the variant of a Message.
type Kind uint8

const (
	// KindUnknown marks a payload that is not recognisably HTTP/1.x.
	KindUnknown Kind = iota
	// KindRequest marks a request.
	KindRequest
	// KindResponse marks a response.
	KindResponse
)

// String returns "request", "response" or "unknown".
func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String. "auto" and "" map to KindUnknown.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "request":
		return KindRequest, true
	case "response":
		return KindResponse, true
	case "", "auto", "unknown":
		return KindUnknown, true
	default:
		return KindUnknown, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using ParseKind.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, ok := ParseKind(string(text))
	if !ok {
		return fmt.Errorf("httpmsg: unknown message kind %q", text)
	}
	*k = parsed
	return nil
}

// HeaderValue is a present header slot.
type HeaderValue struct {
	Field Field
	Value string
}

// Message is either a *Request or a *Response.
type Message interface {
	// Kind returns KindRequest or KindResponse.
	Kind() Kind
	// Schema returns the slot layout of the variant.
	Schema() *Schema
	// Header returns the value of a slot and whether it is present.
	Header(f Field) (string, bool)
	// SetHeader stores a value in a slot of the variant's schema.
	SetHeader(f Field, value string) error
	// DelHeader makes a slot absent.
	DelHeader(f Field)
	// Headers returns the present slots in schema order.
	Headers() []HeaderValue
	// OverflowLines returns the header lines not matched by the schema.
	OverflowLines() []string
	// HeaderLines returns every header line in serialization order.
	HeaderLines() []string
	// AppendTo appends the serialized header block to dst.
	AppendTo(dst []byte) []byte
	// Bytes returns the serialized header block.
	Bytes() []byte

	message()
}

// slots holds the header values of one message. Presence is tracked
// separately so that an empty value is distinct from an absent slot.
type slots struct {
	values  [numFields]string
	present uint64
}

func (s *slots) get(f Field) (string, bool) {
	if f == fieldInvalid || f >= numFields {
		return "", false
	}
	return s.values[f], s.present&(1<<f) != 0
}

func (s *slots) set(f Field, v string) {
	s.values[f] = v
	s.present |= 1 << f
}

func (s *slots) del(f Field) {
	if f == fieldInvalid || f >= numFields {
		return
	}
	s.values[f] = ""
	s.present &^= 1 << f
}

func (s *slots) list(schema *Schema) []HeaderValue {
	var out []HeaderValue
	for _, f := range schema.fields {
		if v, ok := s.get(f); ok {
			out = append(out, HeaderValue{Field: f, Value: v})
		}
	}
	return out
}

func headerLines(schema *Schema, s *slots, overflow []string) []string {
	var out []string
	for _, hv := range s.list(schema) {
		out = append(out, hv.Field.String()+": "+hv.Value)
	}
	return append(out, overflow...)
}

// Request is a dissected or hand-built HTTP request. The zero value is an
// empty request that serializes to nothing.
type Request struct {
	Method  string
	Path    string
	Version string

	// Overflow keeps header lines the schema does not know, verbatim.
	Overflow []string

	h slots
}

// Kind returns KindRequest.
func (r *Request) Kind() Kind { return KindRequest }

// Schema returns RequestSchema.
func (r *Request) Schema() *Schema { return RequestSchema }

// Header returns the value of a slot and whether it is present.
func (r *Request) Header(f Field) (string, bool) {
	if !RequestSchema.Contains(f) {
		return "", false
	}
	return r.h.get(f)
}

// Get returns the value of a slot, or "" when absent.
func (r *Request) Get(f Field) string {
	v, _ := r.Header(f)
	return v
}

// SetHeader stores value in a request slot.
func (r *Request) SetHeader(f Field, value string) error {
	if !RequestSchema.Contains(f) {
		return ErrUnknownField
	}
	r.h.set(f, value)
	return nil
}

// DelHeader makes a slot absent.
func (r *Request) DelHeader(f Field) { r.h.del(f) }

// Headers returns the present slots in schema order.
func (r *Request) Headers() []HeaderValue { return r.h.list(RequestSchema) }

// OverflowLines returns Overflow.
func (r *Request) OverflowLines() []string { return r.Overflow }

// HeaderLines returns every header line in serialization order.
func (r *Request) HeaderLines() []string { return headerLines(RequestSchema, &r.h, r.Overflow) }

// Clone returns a deep copy.
func (r *Request) Clone() *Request {
	c := *r
	c.Overflow = append([]string(nil), r.Overflow...)
	return &c
}

func (r *Request) message() {}

// Response is a dissected or hand-built HTTP response. The status line is
// kept opaque.
type Response struct {
	StatusLine string

	// Overflow keeps header lines the schema does not know, verbatim.
	Overflow []string

	h slots
}

// Kind returns KindResponse.
func (r *Response) Kind() Kind { return KindResponse }

// Schema returns ResponseSchema.
func (r *Response) Schema() *Schema { return ResponseSchema }

// Header returns the value of a slot and whether it is present.
func (r *Response) Header(f Field) (string, bool) {
	if !ResponseSchema.Contains(f) {
		return "", false
	}
	return r.h.get(f)
}

// Get returns the value of a slot, or "" when absent.
func (r *Response) Get(f Field) string {
	v, _ := r.Header(f)
	return v
}

// SetHeader stores value in a response slot.
func (r *Response) SetHeader(f Field, value string) error {
	if !ResponseSchema.Contains(f) {
		return ErrUnknownField
	}
	r.h.set(f, value)
	return nil
}

// DelHeader makes a slot absent.
func (r *Response) DelHeader(f Field) { r.h.del(f) }

// Headers returns the present slots in schema order.
func (r *Response) Headers() []HeaderValue { return r.h.list(ResponseSchema) }

// OverflowLines returns Overflow.
func (r *Response) OverflowLines() []string { return r.Overflow }

// HeaderLines returns every header line in serialization order.
func (r *Response) HeaderLines() []string { return headerLines(ResponseSchema, &r.h, r.Overflow) }

// Clone returns a deep copy.
func (r *Response) Clone() *Response {
	c := *r
	c.Overflow = append([]string(nil), r.Overflow...)
	return &c
}

func (r *Response) message() {}

// New returns an empty message of the given kind, or nil for KindUnknown.
func New(k Kind) Message {
	switch k {
	case KindRequest:
		return &Request{}
	case KindResponse:
		return &Response{}
	default:
		return nil
	}
}

// Compile-time interface verification.
var (
	_ Message = (*Request)(nil)
	_ Message = (*Response)(nil)
)
