package buildinfo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/buyingguide/internal/domain"
)

type mockHashStore struct {
	data   map[string]map[string]string
	setErr error
	getErr error
	delErr error
}

func (m *mockHashStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.data == nil {
		m.data = map[string]map[string]string{}
	}
	m.data[key] = fields
	return nil
}

func (m *mockHashStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.data[key], nil
}

func (m *mockHashStore) Del(_ context.Context, key string) error {
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.data, key)
	return nil
}

func TestPublishThenLatest(t *testing.T) {
	ms := &mockHashStore{}
	r := New(ms)
	ctx := context.Background()

	rec := Record{
		BuildID:     "7f1c",
		IndexPath:   "/data/index.jsonl",
		SHA256:      "abc",
		Products:    1234,
		CreatedAt:   time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC),
		PublishedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}
	if err := r.Publish(ctx, rec); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ms.data[LatestKey]["products"] != "1234" {
		t.Errorf("fields = %v", ms.data[LatestKey])
	}

	got, err := r.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.BuildID != rec.BuildID || got.IndexPath != rec.IndexPath || got.SHA256 != rec.SHA256 ||
		got.Products != rec.Products || !got.CreatedAt.Equal(rec.CreatedAt) || !got.PublishedAt.Equal(rec.PublishedAt) {
		t.Errorf("Latest = %+v, want %+v", got, rec)
	}
}

func TestPublish_RequiresBuildID(t *testing.T) {
	if err := New(&mockHashStore{}).Publish(context.Background(), Record{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestLatest_NothingPublished(t *testing.T) {
	_, err := New(&mockHashStore{}).Latest(context.Background())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLatest_StoreError(t *testing.T) {
	ms := &mockHashStore{getErr: errors.New("timeout")}
	if _, err := New(ms).Latest(context.Background()); err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected store error, got %v", err)
	}
}

func TestUnpublish(t *testing.T) {
	ms := &mockHashStore{}
	r := New(ms)
	ctx := context.Background()

	if err := r.Publish(ctx, Record{BuildID: "b1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := r.Unpublish(ctx); err != nil {
		t.Fatalf("Unpublish: %v", err)
	}
	if _, err := r.Latest(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after unpublish, got %v", err)
	}

	ms.delErr = errors.New("conn refused")
	if err := r.Unpublish(ctx); err == nil {
		t.Error("expected store error")
	}
}
