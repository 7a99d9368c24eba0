// Package file persists capture records as JSON Lines in a single file
// shared safely between processes.
package file

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/Sentinel-Gate/httpdissect/internal/domain/capture"
)

// maxLineSize bounds a single encoded record.
const maxLineSize = 16 << 20

// CaptureStore implements capture.Store on a JSON Lines file. Writers in
// this process are serialized by a mutex and writers in other processes by
// a lock on path+".lock". When MaxRecords is set the file is compacted to
// the newest MaxRecords records once it grows past twice that. Lines are
// counted under the file lock, so appends from other processes count too.
type CaptureStore struct {
	path       string
	maxRecords int
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewCaptureStore opens the store at path, creating the file if needed.
// maxRecords <= 0 disables compaction.
func NewCaptureStore(path string, maxRecords int, logger *slog.Logger) (*CaptureStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open capture file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if runtime.GOOS != "windows" {
		if info, statErr := f.Stat(); statErr == nil && info.Mode().Perm()&0077 != 0 {
			logger.Warn("capture file is readable by other users",
				"path", path, "mode", fmt.Sprintf("%04o", info.Mode().Perm()))
		}
	}
	return &CaptureStore{path: path, maxRecords: maxRecords, logger: logger}, nil
}

// Append encodes records and appends them to the file.
func (s *CaptureStore) Append(_ context.Context, records ...capture.Record) error {
	if len(records) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode record %s: %w", r.ID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return capture.ErrStoreClosed
	}

	return s.withLock(func() error {
		f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("open capture file: %w", err)
		}
		if _, err := f.Write(buf.Bytes()); err != nil {
			_ = f.Close()
			return fmt.Errorf("write captures: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close capture file: %w", err)
		}
		if s.maxRecords <= 0 {
			return nil
		}

		n, err := s.countLines()
		if err != nil {
			s.logger.Warn("failed to count capture lines", "path", s.path, "error", err)
			return nil
		}
		if n > 2*s.maxRecords {
			if err := s.compactLocked(); err != nil {
				s.logger.Warn("capture file compaction failed", "path", s.path, "error", err)
			}
		}
		return nil
	})
}

// Query reads the file and returns matching records, newest first.
func (s *CaptureStore) Query(ctx context.Context, q capture.Query) ([]capture.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, capture.ErrStoreClosed
	}

	recs, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}

	limit := q.EffectiveLimit()
	var result []capture.Record
	for i := len(recs) - 1; i >= 0 && len(result) < limit; i-- {
		if q.Accepts(recs[i]) {
			result = append(result, recs[i])
		}
	}
	return result, nil
}

// Flush is a no-op; Append writes through.
func (s *CaptureStore) Flush(context.Context) error { return nil }

// Close marks the store closed.
func (s *CaptureStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *CaptureStore) withLock(fn func() error) error {
	lf, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer func() { _ = lf.Close() }()

	if err := lockFile(lf.Fd()); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer unlockFile(lf.Fd()) //nolint:errcheck
	return fn()
}

// readAll decodes every line. A truncated final line, left by a crashed
// writer, is skipped with a warning.
func (s *CaptureStore) readAll(ctx context.Context) ([]capture.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open capture file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var recs []capture.Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		if line%1024 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var r capture.Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			s.logger.Warn("skipping undecodable capture line", "path", s.path, "line", line, "error", err)
			continue
		}
		recs = append(recs, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read capture file: %w", err)
	}
	return recs, nil
}

// compactLocked rewrites the file with the newest maxRecords records.
// Callers hold both locks.
func (s *CaptureStore) compactLocked() error {
	recs, err := s.readAll(context.Background())
	if err != nil {
		return err
	}
	if len(recs) > s.maxRecords {
		recs = recs[len(recs)-s.maxRecords:]
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode record %s: %w", r.ID, err)
		}
	}
	if err := writeAtomic(s.path, buf.Bytes()); err != nil {
		return err
	}
	s.logger.Debug("capture file compacted", "path", s.path, "records", len(recs))
	return nil
}

// writeAtomic replaces path with data via a synced temp file and rename.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmp)
	}
	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// countLines returns the number of complete lines in the file.
// Callers hold the file lock.
func (s *CaptureStore) countLines() (int, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	return countLines(f)
}

func countLines(r io.Reader) (int, error) {
	br := bufio.NewReader(r)
	n := 0
	for {
		line, err := br.ReadSlice('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			n++
		}
		switch {
		case err == nil, errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			return n, nil
		default:
			return n, err
		}
	}
}

var _ capture.Store = (*CaptureStore)(nil)
