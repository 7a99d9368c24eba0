package httpmsg

import (
	"reflect"
	"strings"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	names := []string{"Host", " host ", "HOST", "\tHoSt", "Content-Type", "x-CUSTOM-thing ", ""}
	for _, name := range names {
		c := Canonicalize(name)
		if c != Canonicalize(strings.TrimSpace(name)) {
			t.Errorf("Canonicalize(%q) differs from trimmed form", name)
		}
		if c != Canonicalize(strings.ToLower(name)) {
			t.Errorf("Canonicalize(%q) differs from lowercased form", name)
		}
		if c != Canonicalize(c) {
			t.Errorf("Canonicalize(%q) is not idempotent", name)
		}
	}
	if got := Canonicalize(" HOST "); got != "host" {
		t.Errorf("Canonicalize(\" HOST \") = %q, want host", got)
	}
}

func TestParseHeaderLines(t *testing.T) {
	h := ParseHeaderLines([]string{
		"Host: a",
		"no colon here",
		"  X-Spaced : v  ",
		"host: b",
		"Empty:",
		"Key: value: with colon",
	})

	if h.Len() != 4 {
		t.Errorf("Len() = %d, want 4", h.Len())
	}
	if line, _ := h.Line("host"); line != "host: b" {
		t.Errorf("Line(host) = %q, want last occurrence", line)
	}
	if v, ok := h.Value("x-spaced"); !ok || v != "v" {
		t.Errorf("Value(x-spaced) = %q, %v", v, ok)
	}
	if v, ok := h.Value("empty"); !ok || v != "" {
		t.Errorf("Value(empty) = %q, %v; want \"\", true", v, ok)
	}
	if v, _ := h.Value("key"); v != "value: with colon" {
		t.Errorf("Value(key) = %q, want split on first colon", v)
	}

	want := []string{"host: b", "X-Spaced : v", "Empty:", "Key: value: with colon"}
	if got := h.Lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}

	h.Delete("host")
	if _, ok := h.Line("host"); ok {
		t.Error("Line(host) present after Delete")
	}
	if got := h.Lines(); len(got) != 3 {
		t.Errorf("Lines() after Delete = %q", got)
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		start      string
		lines      []string
		body       string
		terminated bool
	}{
		{"full message", "GET / HTTP/1.1\r\nA: 1\r\nB: 2\r\n\r\nbody", "GET / HTTP/1.1", []string{"A: 1", "B: 2"}, "body", true},
		{"no delimiter", "GET / HTTP/1.1\r\nA: 1", "GET / HTTP/1.1", []string{"A: 1"}, "", false},
		{"start line only", "HTTP/1.1 200 OK", "HTTP/1.1 200 OK", nil, "", false},
		{"empty headers", "HTTP/1.1 200 OK\r\n\r\n", "HTTP/1.1 200 OK", nil, "", true},
		{"pipelined remainder", "GET /a HTTP/1.1\r\n\r\nGET /b HTTP/1.1\r\n\r\n", "GET /a HTTP/1.1", nil, "GET /b HTTP/1.1\r\n\r\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Split([]byte(tt.input))
			if err != nil {
				t.Fatalf("Split() error: %v", err)
			}
			if p.StartLine != tt.start {
				t.Errorf("StartLine = %q, want %q", p.StartLine, tt.start)
			}
			if !reflect.DeepEqual(p.HeaderLines, tt.lines) {
				t.Errorf("HeaderLines = %q, want %q", p.HeaderLines, tt.lines)
			}
			if string(p.Body) != tt.body {
				t.Errorf("Body = %q, want %q", p.Body, tt.body)
			}
			if p.Terminated != tt.terminated {
				t.Errorf("Terminated = %v, want %v", p.Terminated, tt.terminated)
			}
		})
	}
}

func TestSchema(t *testing.T) {
	if n := len(RequestSchema.Fields()); n != 40 {
		t.Errorf("request slots = %d, want 40", n)
	}
	if n := len(ResponseSchema.Fields()); n != 29 {
		t.Errorf("response slots = %d, want 29", n)
	}
	if f, ok := RequestSchema.Lookup("  user-AGENT "); !ok || f != UserAgent {
		t.Errorf("Lookup(user-agent) = %v, %v", f, ok)
	}
	if _, ok := ResponseSchema.Lookup("Cookie"); ok {
		t.Error("response schema should not contain Cookie")
	}
	if got := RequestSchema.StartFields(); !reflect.DeepEqual(got, []string{"Method", "Path", "Http-Version"}) {
		t.Errorf("StartFields() = %q", got)
	}
	if SchemaFor(KindUnknown) != nil {
		t.Error("SchemaFor(KindUnknown) != nil")
	}

	fields := RequestSchema.Fields()
	if fields[0] != Host || fields[len(fields)-1] != Cookie {
		t.Errorf("request order starts with %v and ends with %v", fields[0], fields[len(fields)-1])
	}
	if ETag.String() != "E-Tag" || Field(0).String() != "Invalid-Field" {
		t.Errorf("unexpected field names %q %q", ETag.String(), Field(0).String())
	}
}
