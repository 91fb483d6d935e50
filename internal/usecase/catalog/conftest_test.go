package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kailas-cloud/buyingguide/internal/domain"
	"github.com/kailas-cloud/buyingguide/internal/domain/feature"
	"github.com/kailas-cloud/buyingguide/internal/domain/product"
	"github.com/kailas-cloud/buyingguide/internal/repository/artifact"
	"github.com/kailas-cloud/buyingguide/internal/repository/buildinfo"
)

func makeProduct(t *testing.T, id, category string, stars ...int) product.Product {
	t.Helper()
	var h product.Histogram
	for _, s := range stars {
		h.Add(s)
	}
	price := product.Price(4999)
	params := product.Params{
		ID:          id,
		Title:       "Headphones " + id,
		Category:    category,
		Price:       &price,
		Tags:        feature.NewSet(feature.Wireless),
		ReviewCount: h.Total(),
		Histogram:   h,
		Pros:        []string{"great bass"},
	}
	if mean, ok := h.Mean(); ok {
		params.AvgRating = &mean
	}
	p, err := product.New(params)
	if err != nil {
		t.Fatalf("product.New(%s): %v", id, err)
	}
	return p
}

// writeIndex writes products through the index writer and returns the build id.
func writeIndex(t *testing.T, path string, products ...product.Product) string {
	t.Helper()
	w, err := artifact.CreateIndex(path)
	if err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	for _, p := range products {
		if err := w.Write(p); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	buildID := fmt.Sprintf("build-%d", time.Now().UnixNano())
	if _, err := w.Commit(artifact.Manifest{BuildID: buildID, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return buildID
}

func writeRaw(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func indexPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "index.jsonl")
}

type mockBuildReader struct {
	rec   buildinfo.Record
	err   error
	calls int
}

func (m *mockBuildReader) Latest(_ context.Context) (buildinfo.Record, error) {
	m.calls++
	if m.err != nil {
		return buildinfo.Record{}, m.err
	}
	if m.rec.BuildID == "" {
		return buildinfo.Record{}, domain.ErrNotFound
	}
	return m.rec, nil
}
