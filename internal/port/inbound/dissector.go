// Package inbound defines the port driving adapters call into.
package inbound

import (
	"context"

	"github.com/Sentinel-Gate/httpdissect/internal/domain/capture"
	"github.com/Sentinel-Gate/httpdissect/internal/domain/layer"
	"github.com/Sentinel-Gate/httpdissect/pkg/httpmsg"
)

// Dissector is the application entry point used by the CLI and the
// inspection API.
type Dissector interface {
	// Classify reports whether payload starts a request, a response, or neither.
	Classify(ctx context.Context, payload []byte) httpmsg.Kind

	// Dissect parses payload as the given kind. KindUnknown classifies first.
	Dissect(ctx context.Context, payload []byte, as httpmsg.Kind) (*capture.Record, error)

	// Ingest resolves a segment by port and captures it when it carries HTTP.
	Ingest(ctx context.Context, seg layer.Segment) (*capture.Record, error)

	// Query lists captured records matching a filter expression.
	Query(ctx context.Context, filter string, kind httpmsg.Kind, limit int) ([]capture.Record, error)

	// DecodedBody returns the record body with its Content-Encoding undone
	// where supported.
	DecodedBody(rec capture.Record) []byte
}
