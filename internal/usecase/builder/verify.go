package builder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/buyingguide/internal/domain/product"
	"github.com/kailas-cloud/buyingguide/internal/repository/artifact"
	"github.com/kailas-cloud/buyingguide/internal/repository/buildinfo"
)

// ErrManifestMismatch is returned when an index disagrees with its manifest.
var ErrManifestMismatch = errors.New("index does not match its manifest")

// VerifyReport is the result of checking an index against its manifest.
type VerifyReport struct {
	Manifest   artifact.Manifest
	Valid      int
	Invalid    int
	Duplicates int
	SHA256     string
}

// OK reports whether the index matches its manifest and every record is valid.
func (r VerifyReport) OK() bool {
	return r.Invalid == 0 && r.Duplicates == 0 &&
		r.SHA256 == r.Manifest.SHA256 && r.Valid == r.Manifest.Products
}

// Verify re-reads the index at path and checks it against its manifest.
func Verify(ctx context.Context, path string, logger *zap.Logger) (VerifyReport, error) {
	var rep VerifyReport
	m, err := artifact.ReadManifest(path)
	if err != nil {
		return rep, fmt.Errorf("read manifest: %w", err)
	}
	rep.Manifest = m

	rep.SHA256, err = artifact.FileSHA256(path)
	if err != nil {
		return rep, err
	}

	seen := make(map[string]struct{}, m.Products)
	err = artifact.ReadIndex(ctx, path, func(line int, p product.Product, recErr error) error {
		if recErr != nil {
			rep.Invalid++
			logger.Warn("invalid index record", zap.Int("line", line), zap.Error(recErr))
			return nil
		}
		if _, dup := seen[p.ID()]; dup {
			rep.Duplicates++
			return nil
		}
		seen[p.ID()] = struct{}{}
		rep.Valid++
		return nil
	})
	if err != nil {
		return rep, err
	}
	if !rep.OK() {
		return rep, fmt.Errorf("%w: %s (valid %d/%d, invalid %d, duplicates %d)",
			ErrManifestMismatch, filepath.Base(path), rep.Valid, m.Products, rep.Invalid, rep.Duplicates)
	}
	return rep, nil
}

// Publish verifies the index at path and records it as the latest build.
func Publish(ctx context.Context, path string, pub BuildPublisher, logger *zap.Logger) (buildinfo.Record, error) {
	rep, err := Verify(ctx, path, logger)
	if err != nil {
		return buildinfo.Record{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	rec := buildinfo.Record{
		BuildID:     rep.Manifest.BuildID,
		IndexPath:   abs,
		SHA256:      rep.SHA256,
		Products:    rep.Valid,
		CreatedAt:   rep.Manifest.CreatedAt,
		PublishedAt: time.Now().UTC(),
	}
	if err := pub.Publish(ctx, rec); err != nil {
		return buildinfo.Record{}, err
	}
	logger.Info("index published", zap.String("build_id", rec.BuildID), zap.String("path", abs))
	return rec, nil
}
