package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/buyingguide/internal/domain"
	"github.com/kailas-cloud/buyingguide/internal/domain/feature"
	"github.com/kailas-cloud/buyingguide/internal/domain/product"
	"github.com/kailas-cloud/buyingguide/internal/repository/artifact"
	"github.com/kailas-cloud/buyingguide/internal/repository/source"
)

// productMeta is one surviving product in the pass 1 intermediate file.
type productMeta struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Category   string      `json:"category,omitempty"`
	PriceCents *int64      `json:"price_cents,omitempty"`
	Tags       feature.Set `json:"tags,omitempty"`
	Store      string      `json:"store,omitempty"`
	ImageURL   string      `json:"image_url,omitempty"`
}

// filterProducts is pass 1: keep priced headphones, normalized.
func (s *Service) filterProducts(ctx context.Context, in, out string) (PassStats, error) {
	var stats PassStats
	f, err := artifact.CreateAtomic(out)
	if err != nil {
		return stats, err
	}
	defer f.Abort()

	seen := make(map[string]struct{})
	decoded := 0

	err = source.Each(ctx, in, func(n int, data []byte) error {
		s.countRead(PassProducts, &stats)

		var raw RawProduct
		if err := json.Unmarshal(data, &raw); err != nil {
			s.logger.Debug("skipping malformed product", zap.Int("record", n), zap.Error(err))
			s.countSkip(PassProducts, reasonMalformed, &stats)
			return nil
		}
		decoded++

		id := raw.ID()
		if id == "" {
			s.countSkip(PassProducts, reasonMalformed, &stats)
			return nil
		}
		if ok, reason := classify(&raw); !ok {
			s.countSkip(PassProducts, reason, &stats)
			return nil
		}
		price, ok := product.ParsePrice(raw.Price)
		if !ok {
			s.countSkip(PassProducts, reasonNoPrice, &stats)
			return nil
		}
		if _, dup := seen[id]; dup {
			s.countSkip(PassProducts, reasonDuplicate, &stats)
			return nil
		}
		seen[id] = struct{}{}

		if err := f.Encode(normalize(id, &raw, price)); err != nil {
			return err
		}
		s.countKept(PassProducts, &stats)
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("read %s: %w", filepath.Base(in), err)
	}
	if decoded == 0 {
		return stats, fmt.Errorf("%w: no decodable product records in %s", domain.ErrEmptyInput, in)
	}
	if stats.Kept == 0 {
		return stats, fmt.Errorf("%w: no headphones with a price in %s", domain.ErrEmptyInput, in)
	}
	if _, err := f.Commit(); err != nil {
		return stats, err
	}
	return stats, nil
}

func normalize(id string, raw *RawProduct, price product.Price) productMeta {
	texts := make([]string, 0, 2+len(raw.Features)+len(raw.Description))
	texts = append(texts, raw.Title)
	texts = append(texts, raw.Features...)
	for _, d := range raw.Description {
		texts = append(texts, source.PlainText(d))
	}
	cents := int64(price)
	return productMeta{
		ID:         id,
		Title:      strings.TrimSpace(raw.Title),
		Category:   raw.LeafCategory(),
		PriceCents: &cents,
		Tags:       feature.Extract(texts...),
		Store:      strings.TrimSpace(raw.Store),
		ImageURL:   raw.Images.First(),
	}
}

// loadMetas reads the pass 1 file into memory keyed by id. Its size is
// bounded by the surviving product count.
func loadMetas(ctx context.Context, path string) (map[string]productMeta, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	metas := make(map[string]productMeta)
	err = artifact.ScanLines(ctx, f, func(line int, data []byte) error {
		var m productMeta
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("%s line %d: %w", filepath.Base(path), line, err)
		}
		metas[m.ID] = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return metas, nil
}
