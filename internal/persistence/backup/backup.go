// Package backup keeps zstd compressed copies of a config file before it is
// overwritten.
package backup

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	fileSuffix = ".bak.zst"
	// stampLayout is fixed width, so name order is time order.
	stampLayout = "20060102T150405.000000000"
)

// Header is the first line of every backup file.
type Header struct {
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"`
	Size      int    `json:"size"`
	SHA256    string `json:"sha256"`
}

// Archiver writes backups into Dir and keeps at most Keep of them per
// source file name. Keep <= 0 keeps everything.
type Archiver struct {
	Dir  string
	Keep int

	now func() time.Time
}

func New(dir string, keep int) *Archiver {
	return &Archiver{Dir: dir, Keep: keep, now: time.Now}
}

// Archive copies src into a new backup and returns its path. A missing src
// is not an error and yields "".
func (a *Archiver) Archive(src string) (string, error) {
	data, err := os.ReadFile(src)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	now := a.now().UTC()
	sum := sha256.Sum256(data)
	h := Header{
		Source:    src,
		CreatedAt: now.Format(time.RFC3339Nano),
		Size:      len(data),
		SHA256:    hex.EncodeToString(sum[:]),
	}
	base := filepath.Base(src)
	path := filepath.Join(a.Dir, fmt.Sprintf("%s-%s%s", base, now.Format(stampLayout), fileSuffix))
	if err := write(path, h, data); err != nil {
		return "", err
	}
	if err := a.prune(base); err != nil {
		return path, err
	}
	return path, nil
}

// Hook adapts Archive to a save hook.
func (a *Archiver) Hook(src string) error {
	_, err := a.Archive(src)
	return err
}

func write(path string, h Header, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		return err
	}
	bw := bufio.NewWriter(enc)
	hb, _ := json.Marshal(h)
	_, err = bw.Write(hb)
	if err == nil {
		err = bw.WriteByte('\n')
	}
	if err == nil {
		_, err = bw.Write(data)
	}
	if err == nil {
		err = bw.Flush()
	}
	err = errors.Join(err, enc.Close(), f.Close())
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Read returns the header and original contents of a backup. The contents
// are checked against the recorded digest.
func Read(path string) (Header, []byte, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, nil, err
	}
	defer dec.Close()

	br := bufio.NewReader(dec)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, nil, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, nil, fmt.Errorf("decode header: %w", err)
	}
	data, err := io.ReadAll(br)
	if err != nil {
		return h, nil, err
	}
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != h.SHA256 {
		return h, data, fmt.Errorf("backup %s: digest mismatch", filepath.Base(path))
	}
	return h, data, nil
}

// List returns backups of files named base, oldest first. An empty base
// lists every backup.
func (a *Archiver) List(base string) ([]string, error) {
	ents, err := os.ReadDir(a.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		n := e.Name()
		if e.IsDir() {
			continue
		}
		b, ok := splitName(n)
		if !ok || (base != "" && b != base) {
			continue
		}
		out = append(out, filepath.Join(a.Dir, n))
	}
	sort.Strings(out)
	return out, nil
}

// splitName returns the source base of a "<base>-<stamp>.bak.zst" name.
// "cfg.yaml-old-<stamp>.bak.zst" belongs to "cfg.yaml-old", not "cfg.yaml".
func splitName(name string) (string, bool) {
	rest, ok := strings.CutSuffix(name, fileSuffix)
	if !ok || len(rest) < len(stampLayout)+2 {
		return "", false
	}
	cut := len(rest) - len(stampLayout)
	if rest[cut-1] != '-' {
		return "", false
	}
	if _, err := time.Parse(stampLayout, rest[cut:]); err != nil {
		return "", false
	}
	return rest[:cut-1], true
}

func (a *Archiver) prune(base string) error {
	if a.Keep <= 0 {
		return nil
	}
	files, err := a.List(base)
	if err != nil {
		return err
	}
	var errs []error
	for len(files) > a.Keep {
		if err := os.Remove(files[0]); err != nil {
			errs = append(errs, err)
		}
		files = files[1:]
	}
	return errors.Join(errs...)
}
