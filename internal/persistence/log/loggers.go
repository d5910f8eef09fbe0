package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"fjordcraft.ai/internal/sim/world"
)

// JSONLZstdWriter appends JSON lines to hourly zstd files
// <dir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst. Lines are buffered and flushed every
// FlushEvery records, on rotation and on Close.
type JSONLZstdWriter struct {
	dir        string
	prefix     string
	now        func() time.Time
	flushEvery int

	mu      sync.Mutex
	hour    string
	pending int
	file    *os.File
	zw      *zstd.Encoder
	buf     *bufio.Writer
}

func NewJSONLZstdWriter(dir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{dir: dir, prefix: prefix, now: time.Now, flushEvery: 1}
}

// SetFlushEvery batches n records per flush. n < 1 flushes every record.
func (w *JSONLZstdWriter) SetFlushEvery(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n < 1 {
		n = 1
	}
	w.flushEvery = n
}

func (w *JSONLZstdWriter) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if hour := w.now().UTC().Format("2006-01-02-15"); hour != w.hour || w.buf == nil {
		if err := w.openLocked(hour); err != nil {
			return err
		}
	}
	if _, err := w.buf.Write(append(line, '\n')); err != nil {
		return err
	}
	w.pending++
	if w.pending < w.flushEvery {
		return nil
	}
	w.pending = 0
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.zw.Flush()
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Path is the file records written at t land in.
func (w *JSONLZstdWriter) Path(t time.Time) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, t.UTC().Format("2006-01-02-15")))
}

func (w *JSONLZstdWriter) openLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.file, w.zw, w.buf, w.hour = f, zw, bufio.NewWriterSize(zw, 64*1024), hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	if w.file == nil {
		return nil
	}
	var first error
	if err := w.buf.Flush(); err != nil {
		first = err
	}
	if err := w.zw.Close(); err != nil && first == nil {
		first = err
	}
	if err := w.file.Close(); err != nil && first == nil {
		first = err
	}
	w.file, w.zw, w.buf, w.pending = nil, nil, nil, 0
	return first
}

// TickLogger records step summaries. With Every > 1 only every Nth tick is
// kept, plus any tick that loaded or evicted chunks or had a scout arrive.
type TickLogger struct {
	w     *JSONLZstdWriter
	Every uint64
}

func NewTickLogger(worldDir string) *TickLogger {
	w := NewJSONLZstdWriter(filepath.Join(worldDir, "ticks"), "ticks")
	w.SetFlushEvery(30)
	return &TickLogger{w: w, Every: 30}
}

func (l *TickLogger) WriteTick(sum world.TickSummary) error {
	if l.Every > 1 && sum.Tick%l.Every != 0 && sum.Loaded == 0 && sum.Evicted == 0 && len(sum.Arrived) == 0 {
		return nil
	}
	return l.w.Write(sum)
}

func (l *TickLogger) Close() error { return l.w.Close() }

// EventLogger writes exploration events (chunk loads, reveals, arrivals,
// saves) as compressed JSONL.
type EventLogger struct{ w *JSONLZstdWriter }

func NewEventLogger(worldDir string) *EventLogger {
	return &EventLogger{w: NewJSONLZstdWriter(filepath.Join(worldDir, "events"), "events")}
}

func (l *EventLogger) WriteEvent(e world.Event) error { return l.w.Write(e) }
func (l *EventLogger) Close() error                   { return l.w.Close() }
