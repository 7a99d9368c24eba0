package service

// MetricsRecorder receives service-level measurements.
type MetricsRecorder interface {
	RecordClassification(kind string)
	RecordDissection(kind, result string)
	RecordCaptureDrop()
	RecordCapturesStored(n int)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordClassification(string)     {}
func (NopMetrics) RecordDissection(string, string) {}
func (NopMetrics) RecordCaptureDrop()              {}
func (NopMetrics) RecordCapturesStored(int)        {}

// Dissection results.
const (
	ResultOK        = "ok"
	ResultMalformed = "malformed"
	ResultEncoding  = "encoding"
	ResultNotHTTP   = "not_http"
	ResultError     = "error"
)
