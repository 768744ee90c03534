package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JSONLSink writes one JSON object per line to a writer, with optional
// redaction applied before serialization.
type JSONLSink struct {
	mu       sync.Mutex
	writer   io.Writer
	closer   io.Closer
	redactor *Redactor
	now      func() time.Time
}

// JSONLConfig configures a JSONLSink.
type JSONLConfig struct {
	// Writer is the destination. If nil, Open must be used instead.
	Writer io.Writer

	// Redactor, if non-nil, is applied to arguments and detail before writing.
	Redactor *Redactor

	// Now overrides time.Now for testing.
	Now func() time.Time
}

// NewJSONLSink creates a sink over an existing writer.
func NewJSONLSink(cfg JSONLConfig) *JSONLSink {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &JSONLSink{
		writer:   cfg.Writer,
		redactor: cfg.Redactor,
		now:      now,
	}
}

// OpenJSONLSink opens (or creates) an append-only JSONL file at path.
func OpenJSONLSink(path string, redactor *Redactor) (*JSONLSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("audit: create directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}

	s := NewJSONLSink(JSONLConfig{Writer: f, Redactor: redactor})
	s.closer = f
	return s, nil
}

// Append implements Sink. The timestamp is set at append time when the
// record does not carry one.
func (s *JSONLSink) Append(_ context.Context, rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	rec = s.redactor.RedactRecord(rec)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer == nil {
		return ErrSinkClosed
	}
	return json.NewEncoder(s.writer).Encode(rec)
}

// Close implements Sink.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writer = nil
	if s.closer != nil {
		err := s.closer.Close()
		s.closer = nil
		return err
	}
	return nil
}
