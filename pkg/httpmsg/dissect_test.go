package httpmsg

import (
	"errors"
	"reflect"
	"testing"
)

func TestDissectRequest_Basic(t *testing.T) {
	req, body, err := DissectRequest([]byte("GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r\n"))
	if err != nil {
		t.Fatalf("DissectRequest() error: %v", err)
	}
	if req.Method != "GET" || req.Path != "/index.html" || req.Version != "HTTP/1.1" {
		t.Errorf("start line = %q %q %q, want GET /index.html HTTP/1.1", req.Method, req.Path, req.Version)
	}
	if got := req.Get(Host); got != "example.com" {
		t.Errorf("Host = %q, want example.com", got)
	}
	if len(body) != 0 {
		t.Errorf("body = %q, want empty", body)
	}
	if len(req.Overflow) != 0 {
		t.Errorf("Overflow = %q, want empty", req.Overflow)
	}
}

func TestDissectResponse_Basic(t *testing.T) {
	resp, body, err := DissectResponse([]byte("HTTP/1.1 200 OK\r\nServer: test\r\n\r\nHELLO"))
	if err != nil {
		t.Fatalf("DissectResponse() error: %v", err)
	}
	if resp.StatusLine != "HTTP/1.1 200 OK" {
		t.Errorf("StatusLine = %q, want HTTP/1.1 200 OK", resp.StatusLine)
	}
	if got := resp.Get(Server); got != "test" {
		t.Errorf("Server = %q, want test", got)
	}
	if string(body) != "HELLO" {
		t.Errorf("body = %q, want HELLO", body)
	}
}

func TestDissectRequest_UnknownHeaderGoesToOverflow(t *testing.T) {
	in := []byte("GET / HTTP/1.0\r\nX-Custom: 1\r\n\r\n")
	req, _, err := DissectRequest(in)
	if err != nil {
		t.Fatalf("DissectRequest() error: %v", err)
	}
	if !reflect.DeepEqual(req.Overflow, []string{"X-Custom: 1"}) {
		t.Errorf("Overflow = %q, want [X-Custom: 1]", req.Overflow)
	}
	if got := string(req.Bytes()); got != string(in) {
		t.Errorf("Bytes() = %q, want %q", got, in)
	}
}

func TestDissectRequest_MissingDelimiter(t *testing.T) {
	req, body, err := DissectRequest([]byte("GET / HTTP/1.0\r\nHost: a"))
	if err != nil {
		t.Fatalf("DissectRequest() error: %v", err)
	}
	if got := req.Get(Host); got != "a" {
		t.Errorf("Host = %q, want a", got)
	}
	if len(body) != 0 {
		t.Errorf("body = %q, want empty", body)
	}
}

func TestDissectRequest_MalformedStartLine(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		tokens int
	}{
		{"two tokens", "FOO BAR\r\n\r\n", 2},
		{"four tokens", "GET / HTTP/1.1 extra\r\n\r\n", 4},
		{"empty buffer", "", 0},
		{"blank start line", "   \r\nHost: a\r\n\r\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DissectRequest([]byte(tt.input))
			if !errors.Is(err, ErrMalformedStartLine) {
				t.Fatalf("error = %v, want ErrMalformedStartLine", err)
			}
			var mErr *MalformedStartLineError
			if !errors.As(err, &mErr) {
				t.Fatalf("error %T is not *MalformedStartLineError", err)
			}
			if mErr.Tokens != tt.tokens {
				t.Errorf("Tokens = %d, want %d", mErr.Tokens, tt.tokens)
			}
		})
	}
}

func TestDissectRequest_WhitespaceSeparatedStartLine(t *testing.T) {
	req, _, err := DissectRequest([]byte("  POST\t/submit   HTTP/1.1 \r\n\r\n"))
	if err != nil {
		t.Fatalf("DissectRequest() error: %v", err)
	}
	if req.Method != "POST" || req.Path != "/submit" || req.Version != "HTTP/1.1" {
		t.Errorf("start line = %q %q %q", req.Method, req.Path, req.Version)
	}
}

func TestDissect_EncodingError(t *testing.T) {
	in := []byte("GET / HTTP/1.1\r\nX: \xff\r\n\r\nbody")
	_, _, err := DissectRequest(in)
	if !errors.Is(err, ErrEncoding) {
		t.Fatalf("error = %v, want ErrEncoding", err)
	}
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("error %T is not *EncodingError", err)
	}
	if encErr.Offset != 19 {
		t.Errorf("Offset = %d, want 19", encErr.Offset)
	}
}

func TestDissect_BodyIsOpaque(t *testing.T) {
	in := []byte("HTTP/1.1 200 OK\r\nContent-Encoding: gzip\r\n\r\n\xff\xfe\x00\r\n\r\nmore")
	resp, body, err := DissectResponse(in)
	if err != nil {
		t.Fatalf("DissectResponse() error: %v", err)
	}
	if string(body) != "\xff\xfe\x00\r\n\r\nmore" {
		t.Errorf("body = %q", body)
	}
	if got := resp.Get(ContentEncoding); got != "gzip" {
		t.Errorf("Content-Encoding = %q, want gzip", got)
	}
}

func TestDissect_DuplicateHeaderLastWins(t *testing.T) {
	req, _, err := DissectRequest([]byte("GET / HTTP/1.1\r\nHost: a\r\nhost: b\r\n\r\n"))
	if err != nil {
		t.Fatalf("DissectRequest() error: %v", err)
	}
	if got := req.Get(Host); got != "b" {
		t.Errorf("Host = %q, want b", got)
	}
}

func TestDissect_OverflowOrder(t *testing.T) {
	in := "GET / HTTP/1.1\r\nX-A: 1\r\nHost: h\r\nX-B: 2\r\nX-A: 3\r\nX-C:4\r\n\r\n"
	req, _, err := DissectRequest([]byte(in))
	if err != nil {
		t.Fatalf("DissectRequest() error: %v", err)
	}
	want := []string{"X-A: 3", "X-B: 2", "X-C:4"}
	if !reflect.DeepEqual(req.Overflow, want) {
		t.Errorf("Overflow = %q, want %q", req.Overflow, want)
	}
}

func TestDissect_ColonlessLinesDropped(t *testing.T) {
	req, _, err := DissectRequest([]byte("GET / HTTP/1.1\r\ngarbage line\r\nHost: h\r\n\r\n"))
	if err != nil {
		t.Fatalf("DissectRequest() error: %v", err)
	}
	if len(req.Overflow) != 0 {
		t.Errorf("Overflow = %q, want empty", req.Overflow)
	}
	if got := req.Get(Host); got != "h" {
		t.Errorf("Host = %q, want h", got)
	}
}

func TestDissect_EmptyValueIsPresent(t *testing.T) {
	req, _, err := DissectRequest([]byte("GET / HTTP/1.1\r\nAccept:\r\n\r\n"))
	if err != nil {
		t.Fatalf("DissectRequest() error: %v", err)
	}
	v, ok := req.Header(Accept)
	if !ok || v != "" {
		t.Errorf("Header(Accept) = %q, %v; want \"\", true", v, ok)
	}
	if _, ok := req.Header(Host); ok {
		t.Error("Header(Host) present, want absent")
	}
}

func TestDissect_ResponseSlotsIgnoreRequestHeaders(t *testing.T) {
	resp, _, err := DissectResponse([]byte("HTTP/1.1 304 Not Modified\r\nHost: h\r\nETag: \"x\"\r\nE-Tag: y\r\n\r\n"))
	if err != nil {
		t.Fatalf("DissectResponse() error: %v", err)
	}
	if got := resp.Get(ETag); got != "y" {
		t.Errorf("E-Tag = %q, want y", got)
	}
	want := []string{"Host: h", `ETag: "x"`}
	if !reflect.DeepEqual(resp.Overflow, want) {
		t.Errorf("Overflow = %q, want %q", resp.Overflow, want)
	}
}

func TestDissectResponse_EmptyBuffer(t *testing.T) {
	resp, body, err := DissectResponse(nil)
	if err != nil {
		t.Fatalf("DissectResponse() error: %v", err)
	}
	if resp.StatusLine != "" || len(body) != 0 || len(resp.Bytes()) != 0 {
		t.Errorf("got %+v body=%q, want empty response", resp, body)
	}
}

func TestDissect_Auto(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Kind
		wantErr error
	}{
		{"request", "PUT /a HTTP/1.1\r\n\r\n", KindRequest, nil},
		{"response", "HTTP/1.0 404 Not Found\r\n\r\n", KindResponse, nil},
		{"not http", "FOO BAR\r\n\r\n", KindUnknown, ErrNotHTTP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, _, err := Dissect([]byte(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				if msg != nil {
					t.Errorf("message = %v, want nil", msg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Dissect() error: %v", err)
			}
			if msg.Kind() != tt.want {
				t.Errorf("Kind() = %v, want %v", msg.Kind(), tt.want)
			}
		})
	}
}

func TestDissectAs_ErrorKeepsInterfaceNil(t *testing.T) {
	msg, _, err := DissectAs(KindRequest, []byte("NOPE\r\n\r\n"))
	if err == nil {
		t.Fatal("DissectAs() expected error")
	}
	if msg != nil {
		t.Errorf("message = %#v, want nil interface", msg)
	}
}
