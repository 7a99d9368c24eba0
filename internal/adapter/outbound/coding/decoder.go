// Package coding undoes HTTP content codings for display.
package coding

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/Sentinel-Gate/httpdissect/internal/port/outbound"
)

// DefaultMaxDecodedSize bounds the output of Decode.
const DefaultMaxDecodedSize = 64 << 20

// ErrTooLarge is returned when decoded output exceeds the size limit.
var ErrTooLarge = errors.New("decoded body exceeds size limit")

// Decoder implements outbound.BodyDecoder for gzip, deflate, br and zstd.
type Decoder struct {
	maxSize int64
}

// NewDecoder creates a decoder. maxSize <= 0 selects DefaultMaxDecodedSize.
func NewDecoder(maxSize int64) *Decoder {
	if maxSize <= 0 {
		maxSize = DefaultMaxDecodedSize
	}
	return &Decoder{maxSize: maxSize}
}

// Supported reports whether every coding listed in a Content-Encoding
// value is known.
func Supported(encoding string) bool {
	for _, c := range codings(encoding) {
		if !known(c) {
			return false
		}
	}
	return true
}

// Decode undoes a Content-Encoding value, which may list several codings;
// they are removed last-applied first. ok is false when a coding is not
// supported, in which case body is returned unchanged.
func (d *Decoder) Decode(encoding string, body []byte) ([]byte, bool, error) {
	cs := codings(encoding)
	if !Supported(encoding) {
		return body, false, nil
	}
	out := body
	for i := len(cs) - 1; i >= 0; i-- {
		var err error
		out, err = d.decodeOne(cs[i], out)
		if err != nil {
			return body, true, err
		}
	}
	return out, true, nil
}

func (d *Decoder) decodeOne(c string, body []byte) ([]byte, error) {
	src := bytes.NewReader(body)
	var r io.Reader
	switch c {
	case "identity":
		return body, nil
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	case "deflate":
		// deflate is zlib-wrapped per RFC 9110; some servers send raw deflate.
		if zr, err := zlib.NewReader(src); err == nil {
			defer func() { _ = zr.Close() }()
			r = zr
		} else {
			fr := flate.NewReader(bytes.NewReader(body))
			defer func() { _ = fr.Close() }()
			r = fr
		}
	case "br":
		r = brotli.NewReader(src)
	case "zstd":
		zr, err := zstd.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	var out bytes.Buffer
	n, err := io.Copy(&out, io.LimitReader(r, d.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c, err)
	}
	if n > d.maxSize {
		return nil, fmt.Errorf("%s: %w", c, ErrTooLarge)
	}
	return out.Bytes(), nil
}

func codings(encoding string) []string {
	var out []string
	for _, c := range strings.Split(encoding, ",") {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func known(c string) bool {
	switch c {
	case "identity", "gzip", "x-gzip", "deflate", "br", "zstd":
		return true
	}
	return false
}

var _ outbound.BodyDecoder = (*Decoder)(nil)
