package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sentinel-Gate/httpdissect/internal/domain/capture"
)

// finalFlushTimeout bounds the flush performed while shutting down.
const finalFlushTimeout = 5 * time.Second

// CaptureWriter hands records to a capture.Store from a background worker
// so that dissection never waits on storage. Records are batched; when the
// queue is full a record waits up to the send timeout and is then dropped.
type CaptureWriter struct {
	store   capture.Store
	queue   chan capture.Record
	wg      sync.WaitGroup
	stop    sync.Once
	logger  *slog.Logger
	metrics MetricsRecorder

	batchSize     int
	flushInterval time.Duration
	queueSize     int
	sendTimeout   time.Duration

	drops    atomic.Int64
	stored   atomic.Int64
	warnPct  int
	lastWarn atomic.Int64
}

// WriterOption configures a CaptureWriter.
type WriterOption func(*CaptureWriter)

// WithBatchSize sets how many records are written per store call.
func WithBatchSize(n int) WriterOption {
	return func(w *CaptureWriter) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithFlushInterval sets how long a partial batch may wait.
func WithFlushInterval(d time.Duration) WriterOption {
	return func(w *CaptureWriter) {
		if d > 0 {
			w.flushInterval = d
		}
	}
}

// WithQueueSize sets the queue capacity.
func WithQueueSize(n int) WriterOption {
	return func(w *CaptureWriter) {
		if n > 0 {
			w.queueSize = n
		}
	}
}

// WithSendTimeout sets how long Write waits on a full queue.
// Zero drops immediately.
func WithSendTimeout(d time.Duration) WriterOption {
	return func(w *CaptureWriter) {
		w.sendTimeout = d
	}
}

// WithQueueWarning logs (at most once per second) when the queue is at
// least percent full. Zero disables the warning.
func WithQueueWarning(percent int) WriterOption {
	return func(w *CaptureWriter) {
		w.warnPct = min(max(percent, 0), 100)
	}
}

// WithWriterMetrics reports drops and stored batches.
func WithWriterMetrics(m MetricsRecorder) WriterOption {
	return func(w *CaptureWriter) {
		if m != nil {
			w.metrics = m
		}
	}
}

// NewCaptureWriter creates a writer. Call Start before Write.
func NewCaptureWriter(store capture.Store, logger *slog.Logger, opts ...WriterOption) *CaptureWriter {
	w := &CaptureWriter{
		store:         store,
		logger:        logger,
		metrics:       NopMetrics{},
		batchSize:     100,
		flushInterval: time.Second,
		queueSize:     1000,
		sendTimeout:   100 * time.Millisecond,
		warnPct:       80,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.queue = make(chan capture.Record, w.queueSize)
	return w
}

// Start launches the worker. It exits when ctx is cancelled or Stop is
// called, after writing whatever is still queued.
func (w *CaptureWriter) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Write queues rec. It reports false when the record was dropped.
func (w *CaptureWriter) Write(rec capture.Record) bool {
	if w.warnPct > 0 {
		if depth := len(w.queue); depth >= w.queueSize*w.warnPct/100 {
			w.warnDepth(depth)
		}
	}

	select {
	case w.queue <- rec:
		return true
	default:
	}

	if w.sendTimeout <= 0 {
		w.drop(rec)
		return false
	}

	timer := time.NewTimer(w.sendTimeout)
	defer timer.Stop()
	select {
	case w.queue <- rec:
		return true
	case <-timer.C:
		w.drop(rec)
		return false
	}
}

// Stop closes the queue and waits for the worker to drain it.
// Write must not be called after Stop.
func (w *CaptureWriter) Stop() {
	w.stop.Do(func() { close(w.queue) })
	w.wg.Wait()
}

// Dropped returns the number of records dropped so far.
func (w *CaptureWriter) Dropped() int64 { return w.drops.Load() }

// Stored returns the number of records the store accepted.
func (w *CaptureWriter) Stored() int64 { return w.stored.Load() }

// QueueDepth returns the number of queued records.
func (w *CaptureWriter) QueueDepth() int { return len(w.queue) }

// QueueCapacity returns the queue size.
func (w *CaptureWriter) QueueCapacity() int { return w.queueSize }

func (w *CaptureWriter) drop(rec capture.Record) {
	n := w.drops.Add(1)
	w.metrics.RecordCaptureDrop()
	w.logger.Warn("capture record dropped",
		"id", rec.ID,
		"kind", rec.Kind.String(),
		"total_drops", n,
	)
}

func (w *CaptureWriter) warnDepth(depth int) {
	now := time.Now().UnixNano()
	last := w.lastWarn.Load()
	if now-last < int64(time.Second) {
		return
	}
	if w.lastWarn.CompareAndSwap(last, now) {
		w.logger.Warn("capture queue approaching capacity",
			"depth", depth,
			"capacity", w.queueSize,
		)
	}
}

func (w *CaptureWriter) run(ctx context.Context) {
	defer w.wg.Done()

	batch := make([]capture.Record, 0, w.batchSize)
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	final := func() {
		if len(batch) == 0 {
			return
		}
		flushCtx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
		defer cancel()
		w.flush(flushCtx, batch)
	}

	for {
		select {
		case rec, ok := <-w.queue:
			if !ok {
				final()
				return
			}
			batch = append(batch, rec)
			if len(batch) >= w.batchSize {
				w.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			for rec := range w.queue {
				batch = append(batch, rec)
			}
			final()
			return
		}
	}
}

// flush logs store errors instead of returning them; a failed write must
// not fail the dissection that produced the record.
func (w *CaptureWriter) flush(ctx context.Context, batch []capture.Record) {
	if err := w.store.Append(ctx, batch...); err != nil {
		w.logger.Error("failed to write capture batch",
			"error", err,
			"count", len(batch),
		)
		return
	}
	w.stored.Add(int64(len(batch)))
	w.metrics.RecordCapturesStored(len(batch))
}
