package httpmsg

// AppendTo appends the request's header block to dst: the request line, the
// present slots in schema order, the overflow lines and the blank line that
// ends the headers. An empty request appends nothing.
func (r *Request) AppendTo(dst []byte) []byte {
	return appendBlock(dst, []string{r.Method, r.Path, r.Version}, RequestSchema, &r.h, r.Overflow)
}

// Bytes returns the serialized header block.
func (r *Request) Bytes() []byte {
	return r.AppendTo(nil)
}

// AppendTo appends the response's header block to dst. An empty response
// appends nothing.
func (r *Response) AppendTo(dst []byte) []byte {
	return appendBlock(dst, []string{r.StatusLine}, ResponseSchema, &r.h, r.Overflow)
}

// Bytes returns the serialized header block.
func (r *Response) Bytes() []byte {
	return r.AppendTo(nil)
}

// Serialize returns the header block of m. The body is not included.
func Serialize(m Message) []byte {
	if m == nil {
		return nil
	}
	return m.AppendTo(nil)
}

// AppendWire appends the header block of m followed by body.
func AppendWire(dst []byte, m Message, body []byte) []byte {
	if m != nil {
		dst = m.AppendTo(dst)
	}
	return append(dst, body...)
}

func appendBlock(dst []byte, start []string, schema *Schema, s *slots, overflow []string) []byte {
	mark := len(dst)

	// Start-line fields are space separated; the last one ends the line.
	wrote := false
	for _, v := range start {
		if v == "" {
			continue
		}
		if wrote {
			dst = append(dst, ' ')
		}
		dst = append(dst, v...)
		wrote = true
	}
	if wrote {
		dst = append(dst, crlf...)
	}

	for _, f := range schema.fields {
		v, ok := s.get(f)
		if !ok {
			continue
		}
		dst = append(dst, f.String()...)
		dst = append(dst, ": "...)
		dst = append(dst, v...)
		dst = append(dst, crlf...)
	}

	for i, line := range overflow {
		if i > 0 {
			dst = append(dst, crlf...)
		}
		dst = append(dst, line...)
	}
	if len(overflow) > 0 {
		dst = append(dst, crlf...)
	}

	// Nothing present: do not manufacture a bare blank line.
	if len(dst) == mark {
		return dst
	}
	return append(dst, crlf...)
}
