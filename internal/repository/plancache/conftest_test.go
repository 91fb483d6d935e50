package plancache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/buyingguide/internal/db"
	"github.com/kailas-cloud/buyingguide/internal/domain/candidate"
	"github.com/kailas-cloud/buyingguide/internal/domain/llm"
	"github.com/kailas-cloud/buyingguide/internal/domain/plan"
)

type mockAdvisor struct {
	result       llm.PlanResult
	err          error
	planCalls    int
	explainCalls int
}

func (m *mockAdvisor) Plan(_ context.Context, _ string, _ []llm.Turn) (llm.PlanResult, error) {
	m.planCalls++
	return m.result, m.err
}

func (m *mockAdvisor) Explain(
	_ context.Context, _ string, _ plan.Plan, _ []candidate.Scored, _ []llm.Turn,
) (llm.Explanation, error) {
	m.explainCalls++
	return llm.Explanation{Text: "because"}, nil
}

// mockKVStore is an in-memory store that records writes.
type mockKVStore struct {
	data   map[string][]byte
	getErr error
	setErr error
	ttls   map[string]time.Duration
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func newTestAdvisor(t *testing.T, inner *mockAdvisor) (*CachedAdvisor, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
	return New(inner, ms, time.Hour, nil, zap.NewNop()), ms
}
