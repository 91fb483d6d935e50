package catalog

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/buyingguide/internal/domain"
)

// Watcher reloads the holder when a new build is published.
type Watcher struct {
	holder   *Holder
	builds   BuildReader
	interval time.Duration
	logger   *zap.Logger

	// failed remembers a build that could not be loaded so it is not retried every tick.
	failed string
}

// NewWatcher creates a Watcher polling every interval.
func NewWatcher(holder *Holder, builds BuildReader, interval time.Duration, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{holder: holder, builds: builds, interval: interval, logger: logger}
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

// Check compares the published build with the active snapshot and reloads
// when they differ. It reports whether a reload happened.
func (w *Watcher) Check(ctx context.Context) bool {
	rec, err := w.builds.Latest(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			w.logger.Warn("failed to read published build", zap.Error(err))
		}
		return false
	}

	if snap, err := w.holder.Current(); err == nil && snap.BuildID() == rec.BuildID {
		return false
	}
	if rec.BuildID == w.failed {
		return false
	}

	w.logger.Info("new build published, reloading",
		zap.String("build_id", rec.BuildID),
		zap.String("path", rec.IndexPath),
	)
	var loadErr error
	if rec.IndexPath != "" {
		_, loadErr = w.holder.ReloadFrom(ctx, rec.IndexPath)
	} else {
		_, loadErr = w.holder.Reload(ctx)
	}
	if loadErr != nil {
		w.failed = rec.BuildID
		return false
	}
	if snap, err := w.holder.Current(); err == nil && snap.BuildID() != rec.BuildID {
		w.logger.Warn("loaded index does not carry the published build id",
			zap.String("published", rec.BuildID),
			zap.String("loaded", snap.BuildID()),
		)
		w.failed = rec.BuildID
		return true
	}
	w.failed = ""
	return true
}
