package capture

import (
	"errors"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/Sentinel-Gate/httpdissect/pkg/httpmsg"
)

func TestDocument_YAMLRoundTrip(t *testing.T) {
	rec := Record{
		Kind:    httpmsg.KindRequest,
		Method:  "POST",
		Path:    "/upload",
		Version: "HTTP/1.1",
		Headers: map[string]string{"Host": "h", "Content-Type": "application/octet-stream"},
		Body:    []byte{0xff, 0x00, 0x01},
	}
	out, err := yaml.Marshal(NewDocument(rec))
	if err != nil {
		t.Fatalf("yaml.Marshal() error: %v", err)
	}

	doc, err := ParseDocument(out)
	if err != nil {
		t.Fatalf("ParseDocument() error: %v", err)
	}
	if doc.BodyEncoding != BodyBase64 {
		t.Errorf("BodyEncoding = %q, want base64", doc.BodyEncoding)
	}
	back, err := doc.Record()
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	want, _ := rec.Wire()
	got, err := back.Wire()
	if err != nil {
		t.Fatalf("Wire() error: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("Wire() = %q, want %q", got, want)
	}
}

func TestParseDocument(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    httpmsg.Kind
		wantErr bool
	}{
		{"explicit response", "kind: response\nstatus_line: HTTP/1.1 200 OK\n", httpmsg.KindResponse, false},
		{"inferred request", "method: GET\npath: /\nversion: HTTP/1.1\n", httpmsg.KindRequest, false},
		{"inferred response", `{"status_line": "HTTP/1.1 204 No Content"}`, httpmsg.KindResponse, false},
		{"empty", "{}", httpmsg.KindUnknown, true},
		{"bad kind", "kind: datagram\n", httpmsg.KindUnknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("ParseDocument() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDocument() error: %v", err)
			}
			if doc.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", doc.Kind, tt.want)
			}
		})
	}
}

func TestDocument_BodyBytes(t *testing.T) {
	d := Document{Body: "plain"}
	if b, err := d.BodyBytes(); err != nil || string(b) != "plain" {
		t.Errorf("BodyBytes() = %q, %v", b, err)
	}
	d = Document{Body: "!!!", BodyEncoding: BodyBase64}
	if _, err := d.BodyBytes(); err == nil {
		t.Error("BodyBytes() expected base64 error")
	}
	d = Document{Body: "x", BodyEncoding: "rot13"}
	if _, err := d.BodyBytes(); err == nil {
		t.Error("BodyBytes() expected unsupported encoding error")
	}
	if _, err := (Document{}).Record(); errors.Is(err, httpmsg.ErrNotHTTP) {
		t.Error("Record() should not validate kind")
	}
}
