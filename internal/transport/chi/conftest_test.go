package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/buyingguide/internal/domain/candidate"
	"github.com/kailas-cloud/buyingguide/internal/domain/feature"
	"github.com/kailas-cloud/buyingguide/internal/domain/llm"
	"github.com/kailas-cloud/buyingguide/internal/domain/plan"
	"github.com/kailas-cloud/buyingguide/internal/domain/product"
	"github.com/kailas-cloud/buyingguide/internal/repository/buildinfo"
	"github.com/kailas-cloud/buyingguide/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/buyingguide/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/buyingguide/internal/usecase/recommend"
	"github.com/kailas-cloud/buyingguide/internal/usecase/retrieval"
	usageuc "github.com/kailas-cloud/buyingguide/internal/usecase/usage"
)

// --- Mocks ---

type mockAdvisor struct {
	plan       llm.PlanResult
	planErr    error
	explain    llm.Explanation
	explainErr error
}

func (m *mockAdvisor) Plan(_ context.Context, _ string, _ []llm.Turn) (llm.PlanResult, error) {
	return m.plan, m.planErr
}

func (m *mockAdvisor) Explain(
	_ context.Context, _ string, _ plan.Plan, _ []candidate.Scored, _ []llm.Turn,
) (llm.Explanation, error) {
	return m.explain, m.explainErr
}

type mockCatalog struct {
	snap       *catalog.Snapshot
	err        error
	stats      catalog.LoadStats
	reloadErr  error
	reloadPath string
}

func (m *mockCatalog) Current() (*catalog.Snapshot, error) { return m.snap, m.err }

func (m *mockCatalog) Reload(_ context.Context) (catalog.LoadStats, error) {
	return m.stats, m.reloadErr
}

func (m *mockCatalog) ReloadFrom(_ context.Context, path string) (catalog.LoadStats, error) {
	m.reloadPath = path
	return m.stats, m.reloadErr
}

type mockBuildReader struct {
	rec buildinfo.Record
	err error
}

func (m *mockBuildReader) Latest(_ context.Context) (buildinfo.Record, error) { return m.rec, m.err }

// --- Fixtures ---

// testProducts returns n wireless earbuds B000.. priced $30 + $10*i.
func testProducts(t *testing.T, n int) []product.Product {
	t.Helper()
	out := make([]product.Product, 0, n)
	for i := range n {
		var h product.Histogram
		h.Add(5)
		h.Add(4)
		mean, _ := h.Mean()
		price := product.Price(3000 + int64(i)*1000)
		p, err := product.New(product.Params{
			ID:          fmt.Sprintf("B%03d", i),
			Title:       fmt.Sprintf("Earbuds %d", i),
			Category:    "Earbud Headphones",
			Price:       &price,
			Tags:        feature.NewSet(feature.Wireless),
			ReviewCount: h.Total(),
			AvgRating:   &mean,
			Histogram:   h,
			Pros:        []string{"great bass"},
		})
		if err != nil {
			t.Fatalf("product.New: %v", err)
		}
		out = append(out, p)
	}
	return out
}

type testEnv struct {
	handler http.Handler
	advisor *mockAdvisor
	catalog *mockCatalog
	builds  *mockBuildReader
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		advisor: &mockAdvisor{
			plan:    llm.PlanResult{Usage: llm.TokenUsage{PromptTokens: 10, TotalTokens: 10}},
			explain: llm.Explanation{Text: "Pick B000.", Usage: llm.TokenUsage{CompletionTokens: 5, TotalTokens: 5}},
		},
		catalog: &mockCatalog{
			snap: catalog.NewSnapshot(testProducts(t, 5), "build-1", "/data/index.jsonl", time.Unix(1700000000, 0)),
		},
		builds: &mockBuildReader{rec: buildinfo.Record{BuildID: "build-1", Products: 5}},
	}

	retriever := retrieval.New(nil)
	server := NewServer(
		recommenduc.New(env.advisor, env.catalog, retriever),
		retriever,
		env.catalog,
		env.builds,
		usageuc.New(nil),
		healthuc.New(nil, nil, env.catalog),
		Options{IndexDir: "/data", MaxTopK: 20},
		zap.NewNop(),
	)
	env.handler = HandlerWithOptions(server, ChiServerOptions{})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code ErrorCode) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, status, rr.Body.String())
	}
	if got := decodeBody[ErrorResponse](t, rr); got.Code != code {
		t.Errorf("code = %s, want %s", got.Code, code)
	}
}
