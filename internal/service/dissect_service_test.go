package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sentinel-Gate/httpdissect/internal/domain/capture"
	"github.com/Sentinel-Gate/httpdissect/internal/domain/layer"
	"github.com/Sentinel-Gate/httpdissect/pkg/httpmsg"
)

type sliceWriter struct {
	recs []capture.Record
}

func (w *sliceWriter) Write(rec capture.Record) bool {
	w.recs = append(w.recs, rec)
	return true
}

// prefixCompiler accepts "method:<M>" and matches on Method.
type prefixCompiler struct{}

func (prefixCompiler) Compile(expr string) (func(capture.Record) bool, error) {
	m, ok := strings.CutPrefix(expr, "method:")
	if !ok {
		return nil, errors.New("bad filter")
	}
	return func(r capture.Record) bool { return r.Method == m }, nil
}

type upperDecoder struct{}

func (upperDecoder) Decode(enc string, body []byte) ([]byte, bool, error) {
	switch enc {
	case "upper":
		return []byte(strings.ToUpper(string(body))), true, nil
	case "broken":
		return nil, true, errors.New("corrupt")
	default:
		return body, false, nil
	}
}

func TestHTTPGuesser(t *testing.T) {
	g := HTTPGuesser{}
	if g.Protocol() != HTTPProtocol {
		t.Errorf("Protocol() = %q", g.Protocol())
	}
	if got := g.Guess([]byte("HTTP/1.1 200 OK\r\n")); got != "response" {
		t.Errorf("Guess(response) = %q", got)
	}
	if got := g.Guess([]byte("\x16\x03\x01\x02\x00")); got != "" {
		t.Errorf("Guess(tls) = %q, want empty", got)
	}
}

func TestDissectService_Dissect(t *testing.T) {
	metrics := newCountingMetrics()
	svc := NewDissectService(discardLogger(), WithMetrics(metrics))
	ctx := context.Background()

	rec, err := svc.Dissect(ctx, []byte("GET / HTTP/1.1\r\nHost: h\r\n\r\n"), httpmsg.KindUnknown)
	if err != nil {
		t.Fatalf("Dissect() error: %v", err)
	}
	if rec.Kind != httpmsg.KindRequest || rec.Host() != "h" {
		t.Errorf("record = %+v", rec)
	}

	if _, err := svc.Dissect(ctx, []byte("FOO\r\n\r\n"), httpmsg.KindRequest); !errors.Is(err, httpmsg.ErrMalformedStartLine) {
		t.Errorf("Dissect(malformed) error = %v", err)
	}
	if _, err := svc.Dissect(ctx, []byte("FOO\r\n\r\n"), httpmsg.KindUnknown); !errors.Is(err, httpmsg.ErrNotHTTP) {
		t.Errorf("Dissect(not http) error = %v", err)
	}

	if metrics.dissections["request/ok"] != 1 || metrics.dissections["request/malformed"] != 1 || metrics.dissections["unknown/not_http"] != 1 {
		t.Errorf("dissection metrics = %v", metrics.dissections)
	}
	if metrics.classified["request"] != 1 || metrics.classified["unknown"] != 1 {
		t.Errorf("classification metrics = %v", metrics.classified)
	}
}

func TestDissectService_Ingest(t *testing.T) {
	w := &sliceWriter{}
	svc := NewDissectService(discardLogger(), WithRecordWriter(w))
	ctx := context.Background()

	tests := []struct {
		name    string
		seg     layer.Segment
		wantErr error
	}{
		{"request to 80", layer.Segment{SrcPort: 50000, DstPort: 80, Payload: []byte("GET / HTTP/1.1\r\n\r\n")}, nil},
		{"response from 8080", layer.Segment{SrcPort: 8080, DstPort: 50000, Payload: []byte("HTTP/1.1 200 OK\r\n\r\n")}, nil},
		{"unbound port", layer.Segment{SrcPort: 50000, DstPort: 443, Payload: []byte("GET / HTTP/1.1\r\n\r\n")}, ErrNotGated},
		{"bound but not http", layer.Segment{SrcPort: 50000, DstPort: 80, Payload: []byte("hello\r\n")}, httpmsg.ErrNotHTTP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := svc.Ingest(ctx, tt.seg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Ingest() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Ingest() error: %v", err)
			}
			if rec.SrcPort != tt.seg.SrcPort || rec.DstPort != tt.seg.DstPort {
				t.Errorf("ports = %d/%d", rec.SrcPort, rec.DstPort)
			}
		})
	}

	if len(w.recs) != 2 {
		t.Fatalf("writer got %d records, want 2", len(w.recs))
	}
	if w.recs[0].Kind != httpmsg.KindRequest || w.recs[1].Kind != httpmsg.KindResponse {
		t.Errorf("kinds = %v, %v", w.recs[0].Kind, w.recs[1].Kind)
	}
}

func TestDissectService_IngestCustomPorts(t *testing.T) {
	svc := NewDissectService(discardLogger(), WithRegistry(DefaultRegistry(3128)))
	seg := layer.Segment{SrcPort: 1, DstPort: 80, Payload: []byte("GET / HTTP/1.1\r\n\r\n")}
	if _, err := svc.Ingest(context.Background(), seg); !errors.Is(err, ErrNotGated) {
		t.Errorf("Ingest(80) error = %v, want ErrNotGated", err)
	}
	seg.DstPort = 3128
	if _, err := svc.Ingest(context.Background(), seg); err != nil {
		t.Errorf("Ingest(3128) error: %v", err)
	}
}

func TestDissectService_Query(t *testing.T) {
	store := &recordingStore{}
	_ = store.Append(context.Background(),
		capture.Record{Kind: httpmsg.KindRequest, Method: "GET"},
		capture.Record{Kind: httpmsg.KindRequest, Method: "POST"},
		capture.Record{Kind: httpmsg.KindResponse, StatusLine: "HTTP/1.1 200 OK"},
	)
	ctx := context.Background()

	bare := NewDissectService(discardLogger())
	if _, err := bare.Query(ctx, "", httpmsg.KindUnknown, 0); !errors.Is(err, ErrNoStore) {
		t.Errorf("Query() without store error = %v", err)
	}

	noCompiler := NewDissectService(discardLogger(), WithStore(store))
	if _, err := noCompiler.Query(ctx, "method:GET", httpmsg.KindUnknown, 0); !errors.Is(err, ErrNoFilterCompiler) {
		t.Errorf("Query() without compiler error = %v", err)
	}
	all, err := noCompiler.Query(ctx, "", httpmsg.KindUnknown, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("Query(all) = %d records, %v", len(all), err)
	}
	if all[0].Kind != httpmsg.KindResponse {
		t.Errorf("Query() not newest first: %+v", all[0])
	}

	svc := NewDissectService(discardLogger(), WithStore(store), WithFilterCompiler(prefixCompiler{}))
	got, err := svc.Query(ctx, "method:POST", httpmsg.KindRequest, 10)
	if err != nil || len(got) != 1 || got[0].Method != "POST" {
		t.Errorf("Query(method:POST) = %+v, %v", got, err)
	}
	if _, err := svc.Query(ctx, "nonsense", httpmsg.KindUnknown, 0); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("Query() with bad filter error = %v, want ErrInvalidFilter", err)
	}
}

func TestDissectService_DecodedBody(t *testing.T) {
	svc := NewDissectService(discardLogger(), WithBodyDecoder(upperDecoder{}))
	rec := func(enc string) capture.Record {
		r := capture.Record{Body: []byte("abc")}
		if enc != "" {
			r.Headers = map[string]string{"Content-Encoding": enc}
		}
		return r
	}

	tests := []struct{ enc, want string }{
		{"upper", "ABC"},
		{"", "abc"},
		{"rot13", "abc"},
		{"broken", "abc"},
	}
	for _, tt := range tests {
		if got := string(svc.DecodedBody(rec(tt.enc))); got != tt.want {
			t.Errorf("DecodedBody(%q) = %q, want %q", tt.enc, got, tt.want)
		}
	}

	plain := NewDissectService(discardLogger())
	if got := string(plain.DecodedBody(rec("upper"))); got != "abc" {
		t.Errorf("DecodedBody without decoder = %q", got)
	}
}

func TestDissectService_Spans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exp))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	svc := NewDissectService(discardLogger(), WithTracer(tp.Tracer("test")))
	_, _ = svc.Dissect(context.Background(), []byte("NOPE\r\n"), httpmsg.KindRequest)

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "DissectService.Dissect" || spans[0].Status.Code.String() != "Error" {
		t.Errorf("span = %s status %v", spans[0].Name, spans[0].Status)
	}
}
