package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sentinel-Gate/httpdissect/internal/service"
)

// Recorder mirrors service metrics into OpenTelemetry counters and
// forwards every call to next.
type Recorder struct {
	next service.MetricsRecorder

	classifications metric.Int64Counter
	dissections     metric.Int64Counter
	drops           metric.Int64Counter
	stored          metric.Int64Counter
}

// NewRecorder creates the counters on meter. A nil next is replaced by
// service.NopMetrics.
func NewRecorder(meter metric.Meter, next service.MetricsRecorder) (*Recorder, error) {
	if next == nil {
		next = service.NopMetrics{}
	}
	r := &Recorder{next: next}

	var err error
	if r.classifications, err = meter.Int64Counter("httpdissect.classifications",
		metric.WithDescription("Payload classifications by resulting kind")); err != nil {
		return nil, fmt.Errorf("classifications counter: %w", err)
	}
	if r.dissections, err = meter.Int64Counter("httpdissect.dissections",
		metric.WithDescription("Dissection attempts by message kind and result")); err != nil {
		return nil, fmt.Errorf("dissections counter: %w", err)
	}
	if r.drops, err = meter.Int64Counter("httpdissect.capture.drops",
		metric.WithDescription("Captured records dropped due to backpressure")); err != nil {
		return nil, fmt.Errorf("drops counter: %w", err)
	}
	if r.stored, err = meter.Int64Counter("httpdissect.capture.stored",
		metric.WithDescription("Captured records written to the store")); err != nil {
		return nil, fmt.Errorf("stored counter: %w", err)
	}
	return r, nil
}

func (r *Recorder) RecordClassification(kind string) {
	r.classifications.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("kind", kind)))
	r.next.RecordClassification(kind)
}

func (r *Recorder) RecordDissection(kind, result string) {
	r.dissections.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("kind", kind), attribute.String("result", result)))
	r.next.RecordDissection(kind, result)
}

func (r *Recorder) RecordCaptureDrop() {
	r.drops.Add(context.Background(), 1)
	r.next.RecordCaptureDrop()
}

func (r *Recorder) RecordCapturesStored(n int) {
	r.stored.Add(context.Background(), int64(n))
	r.next.RecordCapturesStored(n)
}

var _ service.MetricsRecorder = (*Recorder)(nil)
