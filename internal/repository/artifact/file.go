// Package artifact reads and writes the files exchanged between the index
// builder and the catalog loader.
package artifact

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
)

// MaxLineBytes bounds a single JSON Lines record.
const MaxLineBytes = 16 << 20

// AtomicFile writes to a temp file next to the destination and renames it
// into place on Commit. Readers never see a partially written file.
type AtomicFile struct {
	path  string
	tmp   *os.File
	buf   *bufio.Writer
	sum   hash.Hash
	enc   *json.Encoder
	lines int
	done  bool
}

// CreateAtomic opens a temp file for path. The parent directory is created if needed.
func CreateAtomic(path string) (*AtomicFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp for %s: %w", path, err)
	}
	f := &AtomicFile{path: path, tmp: tmp, sum: sha256.New()}
	f.buf = bufio.NewWriterSize(io.MultiWriter(tmp, f.sum), 1<<20)
	f.enc = json.NewEncoder(f.buf)
	f.enc.SetEscapeHTML(false)
	return f, nil
}

// Encode appends v as one JSON line.
func (f *AtomicFile) Encode(v any) error {
	if err := f.enc.Encode(v); err != nil {
		return fmt.Errorf("encode line %d: %w", f.lines+1, err)
	}
	f.lines++
	return nil
}

// Write appends raw bytes.
func (f *AtomicFile) Write(p []byte) (int, error) {
	return f.buf.Write(p) //nolint:wrapcheck // io.Writer passthrough
}

// Lines returns the number of encoded records.
func (f *AtomicFile) Lines() int { return f.lines }

// Commit flushes, syncs and renames the file into place. It returns the
// sha256 of the written bytes.
func (f *AtomicFile) Commit() (string, error) {
	if f.done {
		return "", errors.New("artifact: file already closed")
	}
	f.done = true

	if err := f.buf.Flush(); err != nil {
		f.discard()
		return "", fmt.Errorf("flush %s: %w", f.path, err)
	}
	if err := f.tmp.Sync(); err != nil {
		f.discard()
		return "", fmt.Errorf("sync %s: %w", f.path, err)
	}
	if err := f.tmp.Close(); err != nil {
		_ = os.Remove(f.tmp.Name())
		return "", fmt.Errorf("close %s: %w", f.path, err)
	}
	if err := os.Rename(f.tmp.Name(), f.path); err != nil {
		_ = os.Remove(f.tmp.Name())
		return "", fmt.Errorf("rename %s: %w", f.path, err)
	}
	return hex.EncodeToString(f.sum.Sum(nil)), nil
}

// Abort removes the temp file. Safe to call after Commit.
func (f *AtomicFile) Abort() {
	if f.done {
		return
	}
	f.done = true
	f.discard()
}

func (f *AtomicFile) discard() {
	_ = f.tmp.Close()
	_ = os.Remove(f.tmp.Name())
}

// ScanLines calls fn for every non-empty line of r. Line numbers start at 1.
// Scanning stops at the first error returned by fn or when ctx is done.
func ScanLines(ctx context.Context, r io.Reader, fn func(line int, data []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), MaxLineBytes)

	line := 0
	for sc.Scan() {
		line++
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err //nolint:wrapcheck // context error
			}
		}
		data := sc.Bytes()
		if len(data) == 0 {
			continue
		}
		if err := fn(line, data); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan line %d: %w", line+1, err)
	}
	return nil
}

// FileSHA256 hashes a file on disk.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
