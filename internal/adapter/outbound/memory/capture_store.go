// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"sync"

	"github.com/Sentinel-Gate/httpdissect/internal/domain/capture"
)

const defaultCapacity = 1000

// CaptureStore implements capture.Store as a bounded ring buffer.
// Once full, each append evicts the oldest record.
type CaptureStore struct {
	mu     sync.RWMutex
	buf    []capture.Record
	next   int
	full   bool
	closed bool
}

// NewCaptureStore creates a store holding up to capacity records
// (default 1000 when capacity <= 0).
func NewCaptureStore(capacity int) *CaptureStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &CaptureStore{buf: make([]capture.Record, capacity)}
}

// Append stores records, evicting the oldest when the buffer is full.
func (s *CaptureStore) Append(_ context.Context, records ...capture.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return capture.ErrStoreClosed
	}
	for _, r := range records {
		s.buf[s.next] = r
		s.next++
		if s.next == len(s.buf) {
			s.next = 0
			s.full = true
		}
	}
	return nil
}

// Query returns matching records, newest first.
func (s *CaptureStore) Query(ctx context.Context, q capture.Query) ([]capture.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, capture.ErrStoreClosed
	}

	limit := q.EffectiveLimit()
	var result []capture.Record
	n := s.size()
	for i := 0; i < n && len(result) < limit; i++ {
		if i%256 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		idx := (s.next - 1 - i + len(s.buf)) % len(s.buf)
		if rec := s.buf[idx]; q.Accepts(rec) {
			result = append(result, rec)
		}
	}
	return result, nil
}

// Len returns the number of records held.
func (s *CaptureStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size()
}

func (s *CaptureStore) size() int {
	if s.full {
		return len(s.buf)
	}
	return s.next
}

// Flush is a no-op.
func (s *CaptureStore) Flush(context.Context) error { return nil }

// Close drops all records. Later calls fail with capture.ErrStoreClosed.
func (s *CaptureStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.buf = nil
	s.next, s.full = 0, false
	return nil
}

// Compile-time interface verification.
var _ capture.Store = (*CaptureStore)(nil)
