package catalog

import (
	"context"

	"github.com/kailas-cloud/buyingguide/internal/repository/buildinfo"
)

// SnapshotLoader reads an index file into a snapshot.
type SnapshotLoader interface {
	Load(ctx context.Context, path string) (*Snapshot, LoadStats, error)
}

// BuildReader returns the most recently published build.
type BuildReader interface {
	Latest(ctx context.Context) (buildinfo.Record, error)
}
