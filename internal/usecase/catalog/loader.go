package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/buyingguide/internal/domain"
	"github.com/kailas-cloud/buyingguide/internal/domain/product"
	"github.com/kailas-cloud/buyingguide/internal/repository/artifact"
)

// Drop reasons reported in LoadStats and metrics.
const (
	dropInvalid   = "invalid"
	dropDuplicate = "duplicate"
)

// LoadStats describes one load.
type LoadStats struct {
	Path       string
	BuildID    string
	Read       int
	Loaded     int
	Invalid    int
	Duplicates int
	Duration   time.Duration
}

// Loader reads index files into snapshots.
type Loader struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewLoader creates a Loader.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger, now: time.Now}
}

// Load streams the index at path. Records that fail decoding or validation
// are dropped with a warning, as are repeated identifiers. An index with no
// valid record yields domain.ErrEmptyInput.
func (l *Loader) Load(ctx context.Context, path string) (*Snapshot, LoadStats, error) {
	start := l.now()
	stats := LoadStats{Path: path}

	m, err := artifact.ReadManifest(path)
	switch {
	case err == nil:
		stats.BuildID = m.BuildID
	case errors.Is(err, os.ErrNotExist):
		l.logger.Warn("index has no manifest", zap.String("path", path))
	default:
		return nil, stats, fmt.Errorf("load index: %w", err)
	}

	var products []product.Product
	seen := make(map[string]struct{})
	err = artifact.ReadIndex(ctx, path, func(line int, p product.Product, recErr error) error {
		stats.Read++
		if recErr != nil {
			stats.Invalid++
			l.logger.Warn("dropping invalid index record", zap.Int("line", line), zap.Error(recErr))
			return nil
		}
		if _, dup := seen[p.ID()]; dup {
			stats.Duplicates++
			l.logger.Warn("dropping duplicate product", zap.Int("line", line), zap.String("id", p.ID()))
			return nil
		}
		seen[p.ID()] = struct{}{}
		products = append(products, p)
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("load index: %w", err)
	}

	stats.Loaded = len(products)
	stats.Duration = l.now().Sub(start)
	if stats.Loaded == 0 {
		return nil, stats, fmt.Errorf("%w: %s has no valid products", domain.ErrEmptyInput, path)
	}
	return NewSnapshot(products, stats.BuildID, path, l.now().UTC()), stats, nil
}
