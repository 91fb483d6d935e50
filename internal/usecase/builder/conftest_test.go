package builder

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/buyingguide/internal/repository/buildinfo"
)

// writeLines writes each record as one JSON line. Strings are written verbatim.
func writeLines(t *testing.T, path string, records ...any) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	for _, r := range records {
		var line []byte
		if s, ok := r.(string); ok {
			line = []byte(s)
		} else {
			line, err = json.Marshal(r)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

var electronicsHeadphones = []string{"Electronics", "Headphones & Earbuds", "Over-Ear Headphones"}

func sonyMeta() map[string]any {
	return map[string]any{
		"parent_asin": "B0SONY",
		"title":       "Sony WH-1000XM4 Wireless Noise Canceling Over-Ear Headphones",
		"categories":  electronicsHeadphones,
		"price":       "$278.00",
		"features":    []string{"Up to 30 hours battery", "Touch controls"},
		"description": "<p>Industry leading <b>noise canceling</b></p>",
		"images":      []map[string]string{{"thumb": "t.jpg", "large": "l.jpg"}},
		"store":       "Sony",
	}
}

func cableMeta() map[string]any {
	return map[string]any{
		"parent_asin": "B0CABLE",
		"title":       "3.5mm Aux Cable for Headphones",
		"categories":  []string{"Electronics", "Accessories", "Cables"},
		"price":       9.99,
	}
}

func unpricedMeta() map[string]any {
	return map[string]any{
		"parent_asin": "B0JBL",
		"title":       "JBL Tune 510BT Wireless On-Ear Headphones",
		"categories":  electronicsHeadphones,
		"price":       nil,
	}
}

func review(id string, rating float64, text string, helpful int) map[string]any {
	return map[string]any{"parent_asin": id, "rating": rating, "text": text, "helpful_vote": helpful}
}

type fixture struct {
	dir      string
	metadata string
	reviews  string
	output   string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	return fixture{
		dir:      dir,
		metadata: filepath.Join(dir, "meta.jsonl"),
		reviews:  filepath.Join(dir, "reviews.jsonl"),
		output:   filepath.Join(dir, "out", "index.jsonl"),
	}
}

func (f fixture) inputs() Inputs {
	return Inputs{Metadata: f.metadata, Reviews: f.reviews, Output: f.output}
}

func (f fixture) service(resume bool) *Service {
	return New(Config{WorkDir: filepath.Join(f.dir, "work"), Workers: 3, BatchSize: 2, Resume: resume}, nil, nil)
}

type fakePublisher struct {
	published []buildinfo.Record
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, rec buildinfo.Record) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, rec)
	return nil
}

func nopLogger() *zap.Logger { return zap.NewNop() }
