package capture

import (
	"context"
	"errors"

	"github.com/Sentinel-Gate/httpdissect/pkg/httpmsg"
)

// Query limits.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// ErrStoreClosed is returned by stores after Close.
var ErrStoreClosed = errors.New("capture store closed")

// Store persists capture records. Implementations are safe for concurrent use.
type Store interface {
	// Append stores records in order.
	Append(ctx context.Context, records ...Record) error

	// Query returns matching records, newest first.
	Query(ctx context.Context, q Query) ([]Record, error)

	// Flush forces pending records to storage.
	Flush(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Query selects stored records.
type Query struct {
	// Kind restricts results to one kind. KindUnknown matches both.
	Kind httpmsg.Kind
	// Match is an optional predicate, typically a compiled filter.
	Match func(Record) bool
	// Limit caps the result size (default 100, max 1000).
	Limit int
}

// EffectiveLimit returns Limit clamped to the allowed range.
func (q Query) EffectiveLimit() int {
	switch {
	case q.Limit <= 0:
		return DefaultLimit
	case q.Limit > MaxLimit:
		return MaxLimit
	default:
		return q.Limit
	}
}

// Accepts reports whether r satisfies the kind restriction and predicate.
func (q Query) Accepts(r Record) bool {
	if q.Kind != httpmsg.KindUnknown && r.Kind != q.Kind {
		return false
	}
	return q.Match == nil || q.Match(r)
}
