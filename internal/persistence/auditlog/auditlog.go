package auditlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/jhooc77/advanced-region-market/internal/market/flaggroups"
)

const fileSuffix = ".jsonl.zst"

// Writer appends JSON lines to hourly zstd compressed files.
type Writer struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewWriter(baseDir, prefix string) *Writer {
	return &Writer{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *Writer) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	// Flush the encoder too, so a crash loses at most the current line.
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

func (w *Writer) rotateLocked(hour string) error {
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
	w.w = bufio.NewWriterSize(enc, 32*1024)
	w.curHour = hour
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		err = w.w.Flush()
	}
	if w.enc != nil {
		err = errors.Join(err, w.enc.Close())
		w.enc = nil
	}
	if w.f != nil {
		err = errors.Join(err, w.f.Close())
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err
}

func (w *Writer) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s%s", w.prefix, hour, fileSuffix))
}

// Entry is one recorded flag group application.
type Entry struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	Region   string    `json:"region"`
	Group    string    `json:"group"`
	Mode     string    `json:"mode"`
	Sold     bool      `json:"sold"`
	Wiped    bool      `json:"wiped,omitempty"`
	Set      []string  `json:"set,omitempty"`
	Deleted  []string  `json:"deleted,omitempty"`
	Skipped  []string  `json:"skipped,omitempty"`
	Kept     []string  `json:"kept,omitempty"`
	Priority *int      `json:"priority,omitempty"`
}

// ApplyLogger records flag group applications under <dir>/apply.
type ApplyLogger struct{ w *Writer }

func NewApplyLogger(dataDir string) *ApplyLogger {
	return &ApplyLogger{w: NewWriter(filepath.Join(dataDir, "apply"), "apply")}
}

func (l *ApplyLogger) RecordApply(regionID string, rep flaggroups.ApplyReport) error {
	e := Entry{
		ID:      uuid.NewString(),
		Time:    l.w.now().UTC(),
		Region:  regionID,
		Group:   rep.Group,
		Mode:    rep.Mode.String(),
		Sold:    rep.Sold,
		Wiped:   rep.Wiped,
		Set:     rep.Set,
		Deleted: rep.Deleted,
		Skipped: rep.Skipped,
		Kept:    rep.Kept,
	}
	if rep.PrioritySet {
		p := rep.Priority
		e.Priority = &p
	}
	return l.w.Write(e)
}

func (l *ApplyLogger) Close() error { return l.w.Close() }

// ReadEntries decodes every apply log under dataDir in file name order.
func ReadEntries(dataDir string) ([]Entry, error) {
	dir := filepath.Join(dataDir, "apply")
	files, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(f.Name(), fileSuffix) {
			names = append(names, f.Name())
		}
	}
	sort.Strings(names)

	var out []Entry
	for _, n := range names {
		entries, err := readFile(filepath.Join(dir, n))
		if err != nil {
			return out, fmt.Errorf("%s: %w", n, err)
		}
		out = append(out, entries...)
	}
	return out, nil
}

// readFile stops at a truncated tail. The current hour's file has no closed
// frame while its writer is open, and a crash leaves the same shape.
func readFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	// A synchronous decoder hands back each flushed block before it reaches
	// the missing end of frame.
	dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Entry
	jd := json.NewDecoder(dec)
	for {
		var e Entry
		if err := jd.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, e)
	}
}
