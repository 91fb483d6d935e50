package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/buyingguide/internal/domain"
	"github.com/kailas-cloud/buyingguide/internal/domain/candidate"
	"github.com/kailas-cloud/buyingguide/internal/domain/plan"
	domusage "github.com/kailas-cloud/buyingguide/internal/domain/usage"
	"github.com/kailas-cloud/buyingguide/internal/repository/buildinfo"
	"github.com/kailas-cloud/buyingguide/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/buyingguide/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/buyingguide/internal/usecase/recommend"
	usageuc "github.com/kailas-cloud/buyingguide/internal/usecase/usage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxBodyBytes    = 1 << 20
	maxTopK         = 50
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Catalog is the snapshot holder as seen by the API.
type Catalog interface {
	Current() (*catalog.Snapshot, error)
	Reload(ctx context.Context) (catalog.LoadStats, error)
	ReloadFrom(ctx context.Context, path string) (catalog.LoadStats, error)
}

// Retriever ranks a snapshot without the LLM.
type Retriever interface {
	Retrieve(snap *catalog.Snapshot, p plan.Plan, k int) ([]candidate.Scored, error)
}

// Options bounds what clients may ask for.
type Options struct {
	// IndexDir is the only directory a reload may switch to. Empty disables
	// path switching.
	IndexDir string
	// MaxTopK caps top_k; zero means 50.
	MaxTopK int
}

// BuildReader reads the published build record. May be nil.
type BuildReader interface {
	Latest(ctx context.Context) (buildinfo.Record, error)
}

// Server implements ServerInterface.
type Server struct {
	recommend     *recommenduc.Service
	retriever     Retriever
	catalog       Catalog
	builds        BuildReader
	usage         *usageuc.Service
	health        *healthuc.Service
	validate      *validator.Validate
	indexDir      string
	maxTopK       int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server. builds may be nil.
func NewServer(
	recommend *recommenduc.Service,
	retriever Retriever,
	cat Catalog,
	builds BuildReader,
	usage *usageuc.Service,
	health *healthuc.Service,
	opts Options,
	logger *zap.Logger,
) *Server {
	if opts.MaxTopK <= 0 || opts.MaxTopK > maxTopK {
		opts.MaxTopK = maxTopK
	}
	if opts.IndexDir != "" {
		if abs, err := filepath.Abs(opts.IndexDir); err == nil {
			opts.IndexDir = abs
		}
	}
	s := &Server{
		recommend: recommend,
		retriever: retriever,
		catalog:   cat,
		builds:    builds,
		usage:     usage,
		health:    health,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		indexDir:  opts.IndexDir,
		maxTopK:   opts.MaxTopK,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidPlan, http.StatusBadRequest, ErrorCodeInvalidPlan),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeProductNotFound),
		sentinelHandler(domain.ErrIndexNotLoaded, http.StatusServiceUnavailable, ErrorCodeIndexNotLoaded),
		sentinelHandler(domain.ErrEmptyInput, http.StatusUnprocessableEntity, ErrorCodeEmptyIndex),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrLLMQuotaExceeded, http.StatusPaymentRequired, ErrorCodeLLMQuotaExceeded),
		sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway, ErrorCodeLLMProviderError),
	}
	return s
}

// Recommend handles POST /v1/recommend.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if !s.decode(w, r, &req) {
		return
	}

	topK, ok := s.topK(w, req.TopK)
	if !ok {
		return
	}

	res, err := s.recommend.Recommend(r.Context(), recommenduc.Request{
		Query:   req.Query,
		History: turnsFromAPI(req.History),
		TopK:    topK,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := RecommendResponse{
		Plan:        planToAPI(res.Plan),
		Results:     scoredToAPI(res.Results),
		Explanation: res.Explanation,
		BuildID:     res.BuildID,
		Usage: TokenUsage{
			PromptTokens:     res.Usage.PromptTokens,
			CompletionTokens: res.Usage.CompletionTokens,
			TotalTokens:      res.Usage.TotalTokens,
		},
	}
	if res.ExplanationError != "" {
		resp.ExplanationError = &res.ExplanationError
	}
	if res.Usage.TotalTokens > 0 {
		w.Header().Set("X-LLM-Tokens", strconv.Itoa(res.Usage.TotalTokens))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Retrieve handles POST /v1/retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if !s.decode(w, r, &req) {
		return
	}

	p, err := planFromAPI(req.Plan)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	snap, err := s.catalog.Current()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	topK, ok := s.topK(w, req.TopK)
	if !ok {
		return
	}
	ranked, err := s.retriever.Retrieve(snap, p, topK)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, RetrieveResponse{Results: scoredToAPI(ranked), BuildID: snap.BuildID()})
}

// ListProducts handles GET /v1/products.
func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request, params ListProductsParams) {
	limit := defaultPageSize
	if params.Limit != nil {
		limit = *params.Limit
	}
	if limit < 1 || limit > maxPageSize {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("limit must be between 1 and %d", maxPageSize))
		return
	}

	snap, err := s.catalog.Current()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items, next := snap.Page(deref(params.Category), deref(params.Cursor), limit)
	resp := ProductListResponse{Items: make([]Product, len(items)), HasMore: next != ""}
	for i, p := range items {
		resp.Items[i] = productToAPI(p)
	}
	if next != "" {
		resp.NextCursor = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProduct handles GET /v1/products/{id}.
func (s *Server) GetProduct(w http.ResponseWriter, r *http.Request, id string) {
	snap, err := s.catalog.Current()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	p, err := snap.Get(id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, productToAPI(p))
}

// GetIndex handles GET /v1/index.
func (s *Server) GetIndex(w http.ResponseWriter, r *http.Request) {
	snap, err := s.catalog.Current()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := IndexResponse{
		BuildID:    snap.BuildID(),
		Path:       snap.Path(),
		Products:   snap.Len(),
		LoadedAt:   snap.LoadedAt().UTC(),
		Categories: snap.Categories(),
	}
	if s.builds != nil {
		rec, err := s.builds.Latest(r.Context())
		switch {
		case err == nil:
			resp.Published = &BuildRecord{
				BuildID:     rec.BuildID,
				IndexPath:   rec.IndexPath,
				SHA256:      rec.SHA256,
				Products:    rec.Products,
				CreatedAt:   rec.CreatedAt,
				PublishedAt: rec.PublishedAt,
			}
		case !errors.Is(err, domain.ErrNotFound):
			s.logger.Warn("Failed to read published build", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ReloadIndex handles POST /v1/index/reload. An empty body reloads the
// current path; a path must resolve inside the index directory.
func (s *Server) ReloadIndex(w http.ResponseWriter, r *http.Request) {
	var req ReloadRequest
	if r.Body != nil && r.Body != http.NoBody {
		if !s.decode(w, r, &req) {
			return
		}
	}

	var (
		stats catalog.LoadStats
		err   error
	)
	if req.Path != "" {
		path, ok := s.indexPath(req.Path)
		if !ok {
			writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
				"path must name a file inside the configured index directory")
			return
		}
		stats, err = s.catalog.ReloadFrom(r.Context(), path)
	} else {
		stats, err = s.catalog.Reload(r.Context())
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ReloadResponse{
		BuildID:    stats.BuildID,
		Path:       stats.Path,
		Read:       stats.Read,
		Loaded:     stats.Loaded,
		Invalid:    stats.Invalid,
		Duplicates: stats.Duplicates,
		DurationMs: stats.Duration.Milliseconds(),
	})
}

// GetUsage handles GET /v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request, params GetUsageParams) {
	period, err := domusage.ParsePeriod(deref(params.Period))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "period must be day or month")
		return
	}

	report := s.usage.GetReport(r.Context(), period)
	writeJSON(w, http.StatusOK, UsageResponse{
		Period:        string(report.Period),
		PeriodStartAt: report.Start,
		PeriodEndAt:   report.End,
		Budget: BudgetStatus{
			TokensLimit:     report.Limit,
			TokensUsed:      report.Used,
			TokensRemaining: report.Remaining,
			IsExhausted:     report.Exhausted(),
			Unlimited:       report.Unlimited(),
		},
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:   string(report.Status),
		Checks:   checks,
		Products: report.Products,
		BuildID:  report.BuildID,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// topK resolves the optional top_k field. Zero lets the ranker pick its default.
func (s *Server) topK(w http.ResponseWriter, k *int) (int, bool) {
	if k == nil {
		return 0, true
	}
	if *k < 1 || *k > s.maxTopK {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("top_k must be between 1 and %d", s.maxTopK))
		return 0, false
	}
	return *k, true
}

// indexPath resolves p against the index directory. Relative paths are
// taken from that directory; anything that escapes it is refused.
func (s *Server) indexPath(p string) (string, bool) {
	if s.indexDir == "" {
		return "", false
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.indexDir, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(s.indexDir, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return p, true
}

// decode reads and validates a JSON body. It writes the error response and
// returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, validationMessage(err))
		return false
	}
	return true
}

// validationMessage flattens validator errors into "field: rule" pairs.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "validation failed"
	}
	msg := ""
	for i, fe := range verrs {
		if i > 0 {
			msg += "; "
		}
		msg += fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidPlan,
		domain.ErrNotFound,
		domain.ErrIndexNotLoaded,
		domain.ErrEmptyInput,
		domain.ErrRateLimited,
		domain.ErrLLMQuotaExceeded,
		domain.ErrLLMProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("domain error", zap.String("path", r.URL.Path), zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
