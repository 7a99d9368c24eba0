package httpmsg

import "strings"

// DissectRequest parses b as a request. It returns the request and the bytes
// following the header block.
func DissectRequest(b []byte) (*Request, []byte, error) {
	p, err := Split(b)
	if err != nil {
		return nil, nil, err
	}

	tokens := strings.Fields(p.StartLine)
	if len(tokens) != 3 {
		return nil, nil, &MalformedStartLineError{Line: p.StartLine, Tokens: len(tokens)}
	}

	req := &Request{
		Method:  tokens[0],
		Path:    tokens[1],
		Version: tokens[2],
	}
	req.Overflow = fill(RequestSchema, &req.h, p.HeaderLines)
	return req, p.Body, nil
}

// DissectResponse parses b as a response. The status line is stored whole.
func DissectResponse(b []byte) (*Response, []byte, error) {
	p, err := Split(b)
	if err != nil {
		return nil, nil, err
	}

	resp := &Response{StatusLine: p.StartLine}
	resp.Overflow = fill(ResponseSchema, &resp.h, p.HeaderLines)
	return resp, p.Body, nil
}

// DissectAs parses b as the given kind. KindUnknown yields ErrNotHTTP.
func DissectAs(k Kind, b []byte) (Message, []byte, error) {
	var (
		msg  Message
		body []byte
		err  error
	)
	switch k {
	case KindRequest:
		var req *Request
		req, body, err = DissectRequest(b)
		msg = req
	case KindResponse:
		var resp *Response
		resp, body, err = DissectResponse(b)
		msg = resp
	default:
		return nil, nil, ErrNotHTTP
	}
	if err != nil {
		// Keep the interface nil instead of wrapping a nil pointer.
		return nil, nil, err
	}
	return msg, body, nil
}

// Dissect classifies b and parses it as the detected kind.
func Dissect(b []byte) (Message, []byte, error) {
	return DissectAs(Classify(b), b)
}

// fill moves every header line matching a schema slot into s and returns the
// lines left over, in their original order.
func fill(schema *Schema, s *slots, lines []string) []string {
	parsed := ParseHeaderLines(lines)
	for _, f := range schema.fields {
		key := f.Canonical()
		value, ok := parsed.Value(key)
		if !ok {
			continue
		}
		s.set(f, value)
		parsed.Delete(key)
	}
	return parsed.Lines()
}
