package coding

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

const plain = "hello, dissected world"

func gzipped(t *testing.T, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, _ = w.Write(b)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encoded(t *testing.T) map[string][]byte {
	t.Helper()
	out := map[string][]byte{"gzip": gzipped(t, []byte(plain))}

	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	_, _ = zw.Write([]byte(plain))
	_ = zw.Close()
	out["deflate"] = z.Bytes()

	var f bytes.Buffer
	fw, _ := flate.NewWriter(&f, flate.DefaultCompression)
	_, _ = fw.Write([]byte(plain))
	_ = fw.Close()
	out["raw deflate"] = f.Bytes()

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write([]byte(plain))
	_ = bw.Close()
	out["br"] = br.Bytes()

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	out["zstd"] = enc.EncodeAll([]byte(plain), nil)
	_ = enc.Close()
	return out
}

func TestDecoder_Decode(t *testing.T) {
	d := NewDecoder(0)
	for name, body := range encoded(t) {
		t.Run(name, func(t *testing.T) {
			enc := strings.TrimPrefix(name, "raw ")
			got, ok, err := d.Decode(enc, body)
			if err != nil || !ok {
				t.Fatalf("Decode(%s) ok=%v err=%v", enc, ok, err)
			}
			if string(got) != plain {
				t.Errorf("Decode(%s) = %q", enc, got)
			}
		})
	}
}

func TestDecoder_Stacked(t *testing.T) {
	twice := gzipped(t, gzipped(t, []byte(plain)))
	got, ok, err := NewDecoder(0).Decode("gzip, GZIP", twice)
	if err != nil || !ok || string(got) != plain {
		t.Errorf("Decode(gzip, gzip) = %q, %v, %v", got, ok, err)
	}
}

func TestDecoder_Unsupported(t *testing.T) {
	body := []byte("opaque")
	got, ok, err := NewDecoder(0).Decode("compress", body)
	if ok || err != nil || string(got) != "opaque" {
		t.Errorf("Decode(compress) = %q, %v, %v", got, ok, err)
	}
	if Supported("gzip, compress") {
		t.Error("Supported(gzip, compress) = true")
	}
	if !Supported("identity") || !Supported("") {
		t.Error("identity and empty should be supported")
	}
}

func TestDecoder_Corrupt(t *testing.T) {
	body := []byte("not gzip at all")
	got, ok, err := NewDecoder(0).Decode("gzip", body)
	if err == nil || !ok {
		t.Fatalf("Decode(corrupt) ok=%v err=%v", ok, err)
	}
	if string(got) != string(body) {
		t.Errorf("corrupt body not returned unchanged: %q", got)
	}
}

func TestDecoder_SizeLimit(t *testing.T) {
	big := gzipped(t, bytes.Repeat([]byte("a"), 1000))
	_, _, err := NewDecoder(100).Decode("gzip", big)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Decode() error = %v, want ErrTooLarge", err)
	}
}
