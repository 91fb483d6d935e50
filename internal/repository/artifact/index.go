package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/buyingguide/internal/domain/product"
)

// IndexWriter streams aggregated products into the durable index.
type IndexWriter struct {
	path string
	file *AtomicFile
}

// CreateIndex starts a new index at path. Nothing is visible at path until Commit.
func CreateIndex(path string) (*IndexWriter, error) {
	f, err := CreateAtomic(path)
	if err != nil {
		return nil, err
	}
	return &IndexWriter{path: path, file: f}, nil
}

// Write appends one product.
func (w *IndexWriter) Write(p product.Product) error {
	if err := w.file.Encode(toRecord(p)); err != nil {
		return fmt.Errorf("write %s: %w", p.ID(), err)
	}
	return nil
}

// Count returns the number of products written so far.
func (w *IndexWriter) Count() int { return w.file.Lines() }

// Commit renames the index into place and writes its manifest. The
// manifest's Schema, Products and SHA256 fields are filled in here.
func (w *IndexWriter) Commit(m Manifest) (Manifest, error) {
	sum, err := w.file.Commit()
	if err != nil {
		return Manifest{}, err
	}
	m.Schema = SchemaVersion
	m.Products = w.file.Lines()
	m.SHA256 = sum
	if err := WriteManifest(w.path, m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Abort discards the partially written index.
func (w *IndexWriter) Abort() { w.file.Abort() }

// RecordFunc receives each index line. err is non-nil when the line could
// not be decoded or failed product validation; p is then the zero value.
// Returning an error stops the scan.
type RecordFunc func(line int, p product.Product, err error) error

// ReadIndex streams the index at path through fn.
func ReadIndex(ctx context.Context, path string, fn RecordFunc) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	return ScanLines(ctx, f, func(line int, data []byte) error {
		var r record
		if err := json.Unmarshal(data, &r); err != nil {
			return fn(line, product.Product{}, fmt.Errorf("decode: %w", err))
		}
		p, err := r.toDomain()
		if err != nil {
			return fn(line, product.Product{}, err)
		}
		return fn(line, p, nil)
	})
}
