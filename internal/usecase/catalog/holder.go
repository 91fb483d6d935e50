package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kailas-cloud/buyingguide/internal/domain"
	"github.com/kailas-cloud/buyingguide/internal/metrics"
)

// Holder serves the active snapshot. Readers take the pointer once per
// request and keep it; Reload replaces it with a single atomic store.
type Holder struct {
	loader SnapshotLoader
	logger *zap.Logger

	mu      sync.Mutex // serializes reloads
	path    string
	current atomic.Pointer[Snapshot]
}

// NewHolder creates an empty Holder for the index at path.
func NewHolder(loader SnapshotLoader, path string, logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Holder{loader: loader, path: path, logger: logger}
}

// Current returns the active snapshot.
func (h *Holder) Current() (*Snapshot, error) {
	s := h.current.Load()
	if s == nil {
		return nil, domain.ErrIndexNotLoaded
	}
	return s, nil
}

// Reload loads the configured index and swaps it in. On failure the
// previous snapshot stays active.
func (h *Holder) Reload(ctx context.Context) (LoadStats, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reload(ctx, h.path)
}

// ReloadFrom loads the index at path and, on success, makes path the one
// future reloads read.
func (h *Holder) ReloadFrom(ctx context.Context, path string) (LoadStats, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	stats, err := h.reload(ctx, path)
	if err == nil {
		h.path = path
	}
	return stats, err
}

func (h *Holder) reload(ctx context.Context, path string) (LoadStats, error) {
	snap, stats, err := h.loader.Load(ctx, path)
	metrics.CatalogDroppedTotal.WithLabelValues(dropInvalid).Add(float64(stats.Invalid))
	metrics.CatalogDroppedTotal.WithLabelValues(dropDuplicate).Add(float64(stats.Duplicates))
	if err != nil {
		metrics.CatalogReloadsTotal.WithLabelValues("error").Inc()
		h.logger.Error("catalog reload failed", zap.String("path", path), zap.Error(err))
		return stats, fmt.Errorf("reload catalog: %w", err)
	}

	h.current.Store(snap)

	metrics.CatalogReloadsTotal.WithLabelValues("ok").Inc()
	metrics.CatalogProducts.Set(float64(snap.Len()))
	metrics.CatalogLoadedAt.Set(float64(snap.LoadedAt().Unix()))
	h.logger.Info("catalog loaded",
		zap.String("path", path),
		zap.String("build_id", snap.BuildID()),
		zap.Int("products", stats.Loaded),
		zap.Int("invalid", stats.Invalid),
		zap.Int("duplicates", stats.Duplicates),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}
