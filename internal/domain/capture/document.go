package capture

import (
	"encoding/base64"
	"fmt"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/Sentinel-Gate/httpdissect/pkg/httpmsg"
)

// BodyBase64 marks a Document body that is base64 encoded.
const BodyBase64 = "base64"

// Document is the editable YAML/JSON form of a message. Bodies that are
// not valid UTF-8 are carried base64 encoded.
type Document struct {
	Kind         httpmsg.Kind      `yaml:"kind" json:"kind"`
	Method       string            `yaml:"method,omitempty" json:"method,omitempty"`
	Path         string            `yaml:"path,omitempty" json:"path,omitempty"`
	Version      string            `yaml:"version,omitempty" json:"version,omitempty"`
	StatusLine   string            `yaml:"status_line,omitempty" json:"status_line,omitempty"`
	StatusCode   int               `yaml:"status_code,omitempty" json:"status_code,omitempty"`
	Headers      map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Overflow     []string          `yaml:"overflow,omitempty" json:"overflow,omitempty"`
	Body         string            `yaml:"body,omitempty" json:"body,omitempty"`
	BodyEncoding string            `yaml:"body_encoding,omitempty" json:"body_encoding,omitempty"`
	Fingerprint  string            `yaml:"fingerprint,omitempty" json:"fingerprint,omitempty"`
}

// NewDocument converts a record for display or editing.
func NewDocument(r Record) Document {
	d := Document{
		Kind:        r.Kind,
		Method:      r.Method,
		Path:        r.Path,
		Version:     r.Version,
		StatusLine:  r.StatusLine,
		StatusCode:  r.StatusCode,
		Headers:     r.Headers,
		Overflow:    r.Overflow,
		Fingerprint: r.Fingerprint,
	}
	d.SetBody(r.Body)
	return d
}

// SetBody stores b as text, or base64 when it is not valid UTF-8.
func (d *Document) SetBody(b []byte) {
	d.Body, d.BodyEncoding = "", ""
	if len(b) == 0 {
		return
	}
	if utf8.Valid(b) {
		d.Body = string(b)
		return
	}
	d.Body = base64.StdEncoding.EncodeToString(b)
	d.BodyEncoding = BodyBase64
}

// BodyBytes decodes the body according to BodyEncoding.
func (d Document) BodyBytes() ([]byte, error) {
	switch d.BodyEncoding {
	case "":
		if d.Body == "" {
			return nil, nil
		}
		return []byte(d.Body), nil
	case BodyBase64:
		b, err := base64.StdEncoding.DecodeString(d.Body)
		if err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported body encoding %q", d.BodyEncoding)
	}
}

// Record converts the document back. Derived fields (ID, timestamps,
// fingerprint) are left for the caller.
func (d Document) Record() (Record, error) {
	body, err := d.BodyBytes()
	if err != nil {
		return Record{}, err
	}
	return Record{
		Kind:       d.Kind,
		Method:     d.Method,
		Path:       d.Path,
		Version:    d.Version,
		StatusLine: d.StatusLine,
		StatusCode: StatusCode(d.StatusLine),
		Headers:    d.Headers,
		Overflow:   d.Overflow,
		Body:       body,
	}, nil
}

// ParseDocument reads a YAML or JSON document. A document without an
// explicit kind is treated as a request when it names a method.
func ParseDocument(data []byte) (Document, error) {
	var d Document
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("parse message document: %w", err)
	}
	if d.Kind == httpmsg.KindUnknown {
		switch {
		case d.Method != "":
			d.Kind = httpmsg.KindRequest
		case d.StatusLine != "":
			d.Kind = httpmsg.KindResponse
		default:
			return Document{}, fmt.Errorf("message document: %w", httpmsg.ErrNotHTTP)
		}
	}
	return d, nil
}
