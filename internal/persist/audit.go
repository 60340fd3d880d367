package persist

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// AuditEntry is one line of the pickup audit trail.
type AuditEntry struct {
	Time      time.Time    `json:"time"`
	Tick      uint64       `json:"tick"`
	Account   string       `json:"account"`
	IsAuto    bool         `json:"is_auto"`
	Limited   bool         `json:"limited"`
	Requested int          `json:"requested"`
	Accepted  int          `json:"accepted"`
	Overflow  bool         `json:"overflow"`
	Taken     []AuditTaken `json:"taken,omitempty"`
}

type AuditTaken struct {
	LootID uint32 `json:"loot_id"`
	Type   string `json:"type"`
	Amount int    `json:"amount"`
}

// AuditWriter appends JSON lines to zstd-compressed files rotated every UTC
// hour: <dir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst. Safe for concurrent use.
type AuditWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewAuditWriter(baseDir, prefix string) *AuditWriter {
	return &AuditWriter{baseDir: baseDir, prefix: prefix, now: time.Now}
}

func (w *AuditWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return fmt.Errorf("audit rotate: %w", err)
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("audit encode: %w", err)
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close finishes the current zstd frame. A later Write reopens the file in
// append mode, starting a new frame.
func (w *AuditWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.closeLocked()
	w.curHour = ""
	return err
}

func (w *AuditWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *AuditWriter) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err
}

func (w *AuditWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}
