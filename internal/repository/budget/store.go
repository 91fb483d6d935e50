// Package budget persists LLM token counters in the key-value store.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/buyingguide/internal/db"
	"github.com/kailas-cloud/buyingguide/internal/domain/usage"
)

// store is the consumer interface for budget operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrByWithTTL(ctx context.Context, key string, val int64, ttl time.Duration) (int64, error)
}

// Store keeps per-period token counters as plain integers with a TTL.
type Store struct {
	store    store
	dayTTL   time.Duration
	monthTTL time.Duration
}

// New creates a budget store. Day counters expire after dayTTL, month
// counters after monthTTL.
func New(s store, dayTTL, monthTTL time.Duration) *Store {
	return &Store{
		store:    s,
		dayTTL:   dayTTL,
		monthTTL: monthTTL,
	}
}

// Add increments the counter at key. The period TTL is attached on the
// first write and repeated writes do not extend it.
func (s *Store) Add(ctx context.Context, period usage.Period, key string, tokens int64) error {
	ttl := s.monthTTL
	if period == usage.PeriodDay {
		ttl = s.dayTTL
	}
	if _, err := s.store.IncrByWithTTL(ctx, key, tokens, ttl); err != nil {
		return fmt.Errorf("budget add %s: %w", key, err)
	}
	return nil
}

// Get returns the counter value, 0 when the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("budget get %s: %w", key, err)
	}

	val, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget get %s: parse %q: %w", key, data, err)
	}
	return val, nil
}
