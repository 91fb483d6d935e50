// Package buildinfo stores the record of the most recently published index.
package buildinfo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/buyingguide/internal/domain"
)

// LatestKey holds the published build record.
var LatestKey = domain.KeyPrefix + "index:latest"

// hashStore is the consumer interface (ISP).
type hashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
}

// Record is the published description of an index build.
type Record struct {
	BuildID     string
	IndexPath   string
	SHA256      string
	Products    int
	CreatedAt   time.Time
	PublishedAt time.Time
}

// Repo reads and writes the published build record.
type Repo struct {
	store hashStore
}

// New creates a Repo.
func New(s hashStore) *Repo {
	return &Repo{store: s}
}

// Publish overwrites the latest build record.
func (r *Repo) Publish(ctx context.Context, rec Record) error {
	if rec.BuildID == "" {
		return fmt.Errorf("publish: build id is required")
	}
	fields := map[string]string{
		"build_id":     rec.BuildID,
		"index_path":   rec.IndexPath,
		"sha256":       rec.SHA256,
		"products":     strconv.Itoa(rec.Products),
		"created_at":   rec.CreatedAt.UTC().Format(time.RFC3339),
		"published_at": rec.PublishedAt.UTC().Format(time.RFC3339),
	}
	if err := r.store.HSet(ctx, LatestKey, fields); err != nil {
		return fmt.Errorf("publish build %s: %w", rec.BuildID, err)
	}
	return nil
}

// Latest returns the published record, or domain.ErrNotFound when nothing
// has been published yet.
func (r *Repo) Latest(ctx context.Context) (Record, error) {
	m, err := r.store.HGetAll(ctx, LatestKey)
	if err != nil {
		return Record{}, fmt.Errorf("read latest build: %w", err)
	}
	if len(m) == 0 || m["build_id"] == "" {
		return Record{}, domain.ErrNotFound
	}

	rec := Record{
		BuildID:   m["build_id"],
		IndexPath: m["index_path"],
		SHA256:    m["sha256"],
	}
	// Malformed optional fields are left zero; the build id is what matters.
	rec.Products, _ = strconv.Atoi(m["products"])
	rec.CreatedAt, _ = time.Parse(time.RFC3339, m["created_at"])
	rec.PublishedAt, _ = time.Parse(time.RFC3339, m["published_at"])
	return rec, nil
}

// Unpublish removes the published record. Servers keep their loaded
// snapshot; watchers stop seeing a newer build.
func (r *Repo) Unpublish(ctx context.Context) error {
	if err := r.store.Del(ctx, LatestKey); err != nil {
		return fmt.Errorf("unpublish: %w", err)
	}
	return nil
}
