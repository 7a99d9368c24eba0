package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Sentinel-Gate/httpdissect/internal/domain/capture"
	"github.com/Sentinel-Gate/httpdissect/internal/domain/layer"
	"github.com/Sentinel-Gate/httpdissect/internal/port/inbound"
	"github.com/Sentinel-Gate/httpdissect/internal/port/outbound"
	"github.com/Sentinel-Gate/httpdissect/pkg/httpmsg"
)

// HTTPProtocol is the protocol name reported by HTTPGuesser.
const HTTPProtocol = "http"

var (
	// ErrNotGated is returned by Ingest for segments on unbound ports.
	ErrNotGated = errors.New("segment ports are not bound to any dissector")
	// ErrNoStore is returned by Query when no capture store is configured.
	ErrNoStore = errors.New("no capture store configured")
	// ErrNoFilterCompiler is returned by Query for a filter without a compiler.
	ErrNoFilterCompiler = errors.New("filter expressions are not supported")
	// ErrInvalidFilter wraps filter compilation failures in Query.
	ErrInvalidFilter = errors.New("invalid filter")
)

// HTTPGuesser adapts httpmsg.Classify to the layer registry.
type HTTPGuesser struct{}

// Protocol returns HTTPProtocol.
func (HTTPGuesser) Protocol() string { return HTTPProtocol }

// Guess returns "request", "response" or "".
func (HTTPGuesser) Guess(payload []byte) string {
	if k := httpmsg.Classify(payload); k != httpmsg.KindUnknown {
		return k.String()
	}
	return ""
}

// RecordWriter accepts captured records.
type RecordWriter interface {
	Write(rec capture.Record) bool
}

// DissectService classifies, dissects and captures HTTP payloads.
type DissectService struct {
	registry *layer.Registry
	writer   RecordWriter
	store    capture.Store
	filters  outbound.FilterCompiler
	decoder  outbound.BodyDecoder
	metrics  MetricsRecorder
	tracer   trace.Tracer
	logger   *slog.Logger
}

// DissectOption configures a DissectService.
type DissectOption func(*DissectService)

// WithRegistry sets the port registry used by Ingest.
func WithRegistry(r *layer.Registry) DissectOption {
	return func(s *DissectService) { s.registry = r }
}

// WithRecordWriter sets where ingested records go.
func WithRecordWriter(w RecordWriter) DissectOption {
	return func(s *DissectService) { s.writer = w }
}

// WithStore sets the store read by Query.
func WithStore(st capture.Store) DissectOption {
	return func(s *DissectService) { s.store = st }
}

// WithFilterCompiler sets the compiler for Query filter expressions.
func WithFilterCompiler(fc outbound.FilterCompiler) DissectOption {
	return func(s *DissectService) { s.filters = fc }
}

// WithBodyDecoder enables DecodedBody.
func WithBodyDecoder(d outbound.BodyDecoder) DissectOption {
	return func(s *DissectService) { s.decoder = d }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) DissectOption {
	return func(s *DissectService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) DissectOption {
	return func(s *DissectService) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewDissectService creates a DissectService. Without a registry, a new one
// with the HTTP guesser bound to ports 80 and 8080 is used.
func NewDissectService(logger *slog.Logger, opts ...DissectOption) *DissectService {
	s := &DissectService{
		metrics: NopMetrics{},
		tracer:  noop.NewTracerProvider().Tracer(""),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = DefaultRegistry()
	}
	return s
}

// DefaultRegistry binds HTTPGuesser to the given ports, or 80 and 8080.
func DefaultRegistry(ports ...uint16) *layer.Registry {
	if len(ports) == 0 {
		ports = []uint16{80, 8080}
	}
	r := layer.NewRegistry()
	for _, p := range ports {
		r.Bind(p, HTTPGuesser{})
	}
	return r
}

// Registry returns the port registry.
func (s *DissectService) Registry() *layer.Registry { return s.registry }

// Classify reports the kind of payload.
func (s *DissectService) Classify(ctx context.Context, payload []byte) httpmsg.Kind {
	_, span := s.tracer.Start(ctx, "DissectService.Classify",
		trace.WithAttributes(attribute.Int("payload.size", len(payload))))
	defer span.End()

	k := httpmsg.Classify(payload)
	span.SetAttributes(attribute.String("http.kind", k.String()))
	s.metrics.RecordClassification(k.String())
	return k
}

// Dissect parses payload into a record. as=KindUnknown classifies first.
func (s *DissectService) Dissect(ctx context.Context, payload []byte, as httpmsg.Kind) (*capture.Record, error) {
	ctx, span := s.tracer.Start(ctx, "DissectService.Dissect",
		trace.WithAttributes(
			attribute.Int("payload.size", len(payload)),
			attribute.String("http.requested_kind", as.String()),
		))
	defer span.End()

	rec, err := s.dissect(ctx, payload, as)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("http.kind", rec.Kind.String()))
	return rec, nil
}

// Ingest resolves seg through the registry. Segments on unbound ports
// return ErrNotGated; bound segments that are not HTTP return
// httpmsg.ErrNotHTTP. HTTP segments are dissected and written to the
// record writer.
func (s *DissectService) Ingest(ctx context.Context, seg layer.Segment) (*capture.Record, error) {
	ctx, span := s.tracer.Start(ctx, "DissectService.Ingest",
		trace.WithAttributes(
			attribute.Int("net.src_port", int(seg.SrcPort)),
			attribute.Int("net.dst_port", int(seg.DstPort)),
			attribute.Int("payload.size", len(seg.Payload)),
		))
	defer span.End()

	m := s.registry.Resolve(seg)
	span.SetAttributes(attribute.String("layer.protocol", m.Protocol))
	if !m.Gated {
		return nil, ErrNotGated
	}
	if m.Protocol != HTTPProtocol {
		s.metrics.RecordDissection(httpmsg.KindUnknown.String(), ResultNotHTTP)
		return nil, fmt.Errorf("segment %d->%d: %w", seg.SrcPort, seg.DstPort, httpmsg.ErrNotHTTP)
	}

	kind, _ := httpmsg.ParseKind(m.Variant)
	rec, err := s.dissect(ctx, seg.Payload, kind)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	rec.SrcPort, rec.DstPort = seg.SrcPort, seg.DstPort

	if s.writer != nil && !s.writer.Write(*rec) {
		s.logger.Debug("ingested record not stored", "id", rec.ID)
	}
	return rec, nil
}

// Query lists stored records, newest first. An empty filter matches all.
func (s *DissectService) Query(ctx context.Context, filter string, kind httpmsg.Kind, limit int) ([]capture.Record, error) {
	ctx, span := s.tracer.Start(ctx, "DissectService.Query",
		trace.WithAttributes(attribute.String("query.filter", filter)))
	defer span.End()

	if s.store == nil {
		return nil, ErrNoStore
	}
	q := capture.Query{Kind: kind, Limit: limit}
	if filter != "" {
		if s.filters == nil {
			return nil, ErrNoFilterCompiler
		}
		match, err := s.filters.Compile(filter)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
		}
		q.Match = match
	}

	recs, err := s.store.Query(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query captures: %w", err)
	}
	span.SetAttributes(attribute.Int("query.results", len(recs)))
	return recs, nil
}

// DecodedBody returns the record body with its Content-Encoding undone.
// The raw body is returned when no decoder is configured or the encoding
// is not supported.
func (s *DissectService) DecodedBody(rec capture.Record) []byte {
	enc := rec.Headers[httpmsg.ContentEncoding.String()]
	if s.decoder == nil || enc == "" || len(rec.Body) == 0 {
		return rec.Body
	}
	out, ok, err := s.decoder.Decode(enc, rec.Body)
	switch {
	case err != nil:
		s.logger.Warn("failed to decode body", "encoding", enc, "error", err)
		return rec.Body
	case !ok:
		s.logger.Warn("unsupported content encoding", "encoding", enc)
		return rec.Body
	}
	return out
}

func (s *DissectService) dissect(ctx context.Context, payload []byte, as httpmsg.Kind) (*capture.Record, error) {
	if as == httpmsg.KindUnknown {
		as = s.Classify(ctx, payload)
	}

	m, body, err := httpmsg.DissectAs(as, payload)
	if err != nil {
		s.metrics.RecordDissection(as.String(), resultOf(err))
		s.logger.Debug("dissection failed", "kind", as.String(), "error", err)
		return nil, err
	}
	s.metrics.RecordDissection(as.String(), ResultOK)

	rec := capture.FromMessage(m, body)
	return &rec, nil
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, httpmsg.ErrMalformedStartLine):
		return ResultMalformed
	case errors.Is(err, httpmsg.ErrEncoding):
		return ResultEncoding
	case errors.Is(err, httpmsg.ErrNotHTTP):
		return ResultNotHTTP
	default:
		return ResultError
	}
}

var (
	_ inbound.Dissector = (*DissectService)(nil)
	_ layer.Guesser     = HTTPGuesser{}
	_ RecordWriter      = (*CaptureWriter)(nil)
)
