package advisor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/buyingguide/internal/domain"
	"github.com/kailas-cloud/buyingguide/internal/domain/usage"
)

// BudgetAction defines behavior when the token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetStore persists per-period token counters.
type BudgetStore interface {
	Add(ctx context.Context, period usage.Period, key string, tokens int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// Limits caps tokens per period. A missing or zero entry means unlimited.
type Limits map[usage.Period]int64

// periodCounter tracks one calendar period of token spend.
type periodCounter struct {
	period usage.Period
	limit  int64
	used   int64
	start  time.Time
}

// roll zeroes the counter once now falls into a later period.
func (c *periodCounter) roll(now time.Time) {
	start, _ := c.period.Bounds(now)
	if start.After(c.start) {
		c.used = 0
		c.start = start
	}
}

func (c *periodCounter) exhausted() bool { return c.limit > 0 && c.used >= c.limit }

func (c *periodCounter) remaining() int64 {
	if c.limit == 0 {
		return -1
	}
	return max(c.limit-c.used, 0)
}

// BudgetTracker counts LLM tokens per UTC day and month. Check only reads
// memory; Record updates memory and then writes behind to the store.
type BudgetTracker struct {
	mu       sync.Mutex
	counters []*periodCounter
	action   BudgetAction
	provider string
	store    BudgetStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewBudgetTracker creates a tracker with one counter per usage period.
func NewBudgetTracker(provider string, limits Limits, action BudgetAction, logger *zap.Logger) *BudgetTracker {
	b := &BudgetTracker{
		action:   action,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
	now := b.now()
	for _, p := range usage.Periods {
		start, _ := p.Bounds(now)
		b.counters = append(b.counters, &periodCounter{period: p, limit: max(limits[p], 0), start: start})
	}
	return b
}

// WithStore attaches a persistence store and seeds the counters from it.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := b.now()
	fields := []zap.Field{zap.String("provider", b.provider)}
	for _, c := range b.counters {
		c.roll(now)
		used, err := store.Get(ctx, b.key(c.period, now))
		if err != nil {
			b.logger.Warn("Failed to load LLM budget", zap.String("period", string(c.period)), zap.Error(err))
			continue
		}
		c.used = used
		fields = append(fields, zap.Int64(string(c.period)+"_used", used))
	}
	b.logger.Info("LLM budget loaded from store", fields...)
	return b
}

// key is buyingguide:budget:<provider>:<period>:<label>.
func (b *BudgetTracker) key(p usage.Period, t time.Time) string {
	return domain.KeyPrefix + "budget:" + b.provider + ":" + string(p) + ":" + p.Label(t)
}

// Check reports domain.ErrLLMQuotaExceeded when any period is spent and the
// action is reject. With warn it only logs.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	var spent []*periodCounter
	for _, c := range b.counters {
		c.roll(now)
		if c.exhausted() {
			spent = append(spent, c)
		}
	}
	if len(spent) == 0 {
		return nil
	}
	if b.action == BudgetActionReject {
		return domain.ErrLLMQuotaExceeded
	}

	fields := []zap.Field{zap.String("provider", b.provider)}
	for _, c := range spent {
		fields = append(fields,
			zap.Int64(string(c.period)+"_used", c.used),
			zap.Int64(string(c.period)+"_limit", c.limit))
	}
	b.logger.Warn("LLM token budget exceeded", fields...)
	return nil
}

type pendingAdd struct {
	period usage.Period
	key    string
}

// Record adds tokens to every period.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	now := b.now()
	pending := make([]pendingAdd, 0, len(b.counters))
	for _, c := range b.counters {
		c.roll(now)
		c.used += tokens
		pending = append(pending, pendingAdd{period: c.period, key: b.key(c.period, now)})
	}
	store := b.store
	b.mu.Unlock()

	if store == nil {
		return
	}

	// Detached from the request: a canceled call still spent its tokens.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, p := range pending {
		if err := store.Add(ctx, p.period, p.key, tokens); err != nil {
			b.logger.Warn("Failed to persist LLM budget", zap.String("key", p.key), zap.Error(err))
		}
	}
}

// Usage returns limit, used and remaining for period under one lock.
// Remaining is -1 when the period is unlimited.
func (b *BudgetTracker) Usage(period usage.Period) (limit, used, left int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.counter(period)
	if c == nil {
		return 0, 0, -1
	}
	c.roll(b.now())
	return c.limit, c.used, c.remaining()
}

// Remaining returns tokens left in period, -1 when unlimited.
func (b *BudgetTracker) Remaining(period usage.Period) int64 {
	_, _, left := b.Usage(period)
	return left
}

func (b *BudgetTracker) counter(p usage.Period) *periodCounter {
	for _, c := range b.counters {
		if c.period == p {
			return c
		}
	}
	return nil
}
