package chi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ErrorCode is the machine-readable error classification returned to clients.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest          ErrorCode = "bad_request"
	ErrorCodeUnauthorized        ErrorCode = "unauthorized"
	ErrorCodeValidationFailed    ErrorCode = "validation_failed"
	ErrorCodeInvalidPlan         ErrorCode = "invalid_plan"
	ErrorCodeProductNotFound     ErrorCode = "product_not_found"
	ErrorCodeIndexNotLoaded      ErrorCode = "index_not_loaded"
	ErrorCodeEmptyIndex          ErrorCode = "empty_index"
	ErrorCodeRateLimited         ErrorCode = "rate_limited"
	ErrorCodeLLMQuotaExceeded    ErrorCode = "llm_quota_exceeded"
	ErrorCodeLLMProviderError    ErrorCode = "llm_provider_error"
	ErrorCodeInternalError       ErrorCode = "internal_error"
	ErrorCodeBuildRecordNotFound ErrorCode = "build_record_not_found"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Turn is one message of chat history.
type Turn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,max=8000"`
}

// RecommendRequest is the body of POST /v1/recommend.
type RecommendRequest struct {
	Query   string `json:"query" validate:"required,max=2000"`
	History []Turn `json:"history,omitempty" validate:"max=50,dive"`
	TopK    *int   `json:"top_k,omitempty" validate:"omitempty,min=1,max=50"`
}

// Plan is the wire form of a query plan. Prices are in dollars.
type Plan struct {
	BudgetCeiling      *float64           `json:"budget_ceiling,omitempty" validate:"omitempty,gte=0"`
	BudgetFloor        *float64           `json:"budget_floor,omitempty" validate:"omitempty,gte=0"`
	BudgetTarget       *float64           `json:"budget_target,omitempty" validate:"omitempty,gte=0"`
	RequiredFeatures   []string           `json:"required_features,omitempty" validate:"max=20"`
	PreferredFeatures  []string           `json:"preferred_features,omitempty" validate:"max=20"`
	UseCase            string             `json:"use_case,omitempty" validate:"omitempty,oneof=commute gym audiophile gaming general"`
	Weights            map[string]float64 `json:"weights,omitempty"`
	MinReviews         int                `json:"min_reviews" validate:"gte=0"`
	ExcludedCategories []string           `json:"excluded_categories,omitempty"`
	Notes              string             `json:"notes,omitempty"`
}

// RetrieveRequest is the body of POST /v1/retrieve.
type RetrieveRequest struct {
	Plan Plan `json:"plan"`
	TopK *int `json:"top_k,omitempty" validate:"omitempty,min=1,max=50"`
}

// Product is the wire form of an indexed product.
type Product struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Category    string         `json:"category,omitempty"`
	Price       *float64       `json:"price"`
	Tags        []string       `json:"tags"`
	ReviewCount int            `json:"review_count"`
	AvgRating   *float64       `json:"avg_rating"`
	Histogram   map[string]int `json:"rating_histogram"`
	Pros        []string       `json:"pros"`
	Cons        []string       `json:"cons"`
	Store       string         `json:"store,omitempty"`
	ImageURL    string         `json:"image_url,omitempty"`
}

// ScoredProduct is one ranked result.
type ScoredProduct struct {
	Rank      int                `json:"rank"`
	Score     float64            `json:"score"`
	Breakdown map[string]float64 `json:"breakdown"`
	Product   Product            `json:"product"`
}

// TokenUsage reports LLM tokens spent on a request.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// RecommendResponse is the body of a successful POST /v1/recommend.
type RecommendResponse struct {
	Plan             Plan            `json:"plan"`
	Results          []ScoredProduct `json:"results"`
	Explanation      string          `json:"explanation"`
	ExplanationError *string         `json:"explanation_error,omitempty"`
	BuildID          string          `json:"build_id"`
	Usage            TokenUsage      `json:"usage"`
}

// RetrieveResponse is the body of a successful POST /v1/retrieve.
type RetrieveResponse struct {
	Results []ScoredProduct `json:"results"`
	BuildID string          `json:"build_id"`
}

// ProductListResponse is a cursor-paginated product page.
type ProductListResponse struct {
	Items      []Product `json:"items"`
	HasMore    bool      `json:"has_more"`
	NextCursor *string   `json:"next_cursor,omitempty"`
}

// BuildRecord is the published build as stored in Redis.
type BuildRecord struct {
	BuildID     string    `json:"build_id"`
	IndexPath   string    `json:"index_path"`
	SHA256      string    `json:"sha256"`
	Products    int       `json:"products"`
	CreatedAt   time.Time `json:"created_at"`
	PublishedAt time.Time `json:"published_at"`
}

// IndexResponse describes the loaded snapshot.
type IndexResponse struct {
	BuildID    string         `json:"build_id"`
	Path       string         `json:"path"`
	Products   int            `json:"products"`
	LoadedAt   time.Time      `json:"loaded_at"`
	Categories map[string]int `json:"categories"`
	Published  *BuildRecord   `json:"published,omitempty"`
}

// ReloadRequest optionally switches the index path.
type ReloadRequest struct {
	Path string `json:"path,omitempty" validate:"omitempty,max=4096"`
}

// ReloadResponse reports a completed reload.
type ReloadResponse struct {
	BuildID    string `json:"build_id"`
	Path       string `json:"path"`
	Read       int    `json:"read"`
	Loaded     int    `json:"loaded"`
	Invalid    int    `json:"invalid"`
	Duplicates int    `json:"duplicates"`
	DurationMs int64  `json:"duration_ms"`
}

// BudgetStatus is the token budget for one period.
type BudgetStatus struct {
	TokensLimit     int64 `json:"tokens_limit"`
	TokensUsed      int64 `json:"tokens_used"`
	TokensRemaining int64 `json:"tokens_remaining"`
	IsExhausted     bool  `json:"is_exhausted"`
	Unlimited       bool  `json:"unlimited"`
}

// UsageResponse is the body of GET /v1/usage.
type UsageResponse struct {
	Period        string       `json:"period"`
	PeriodStartAt time.Time    `json:"period_start_at"`
	PeriodEndAt   time.Time    `json:"period_end_at"`
	Budget        BudgetStatus `json:"budget"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks"`
	Products int               `json:"products"`
	BuildID  string            `json:"build_id,omitempty"`
}

// ListProductsParams are the query parameters of GET /v1/products.
type ListProductsParams struct {
	Category *string
	Cursor   *string
	Limit    *int
}

// GetUsageParams are the query parameters of GET /v1/usage.
type GetUsageParams struct {
	Period *string
}

// ServerInterface is implemented by the HTTP API server.
type ServerInterface interface {
	// (POST /v1/recommend)
	Recommend(w http.ResponseWriter, r *http.Request)
	// (POST /v1/retrieve)
	Retrieve(w http.ResponseWriter, r *http.Request)
	// (GET /v1/products)
	ListProducts(w http.ResponseWriter, r *http.Request, params ListProductsParams)
	// (GET /v1/products/{id})
	GetProduct(w http.ResponseWriter, r *http.Request, id string)
	// (GET /v1/index)
	GetIndex(w http.ResponseWriter, r *http.Request)
	// (POST /v1/index/reload)
	ReloadIndex(w http.ResponseWriter, r *http.Request)
	// (GET /v1/usage)
	GetUsage(w http.ResponseWriter, r *http.Request, params GetUsageParams)
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError reports a path or query parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// serverInterfaceWrapper binds parameters before calling the handler.
type serverInterfaceWrapper struct {
	handler          ServerInterface
	errorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *serverInterfaceWrapper) ListProducts(w http.ResponseWriter, r *http.Request) {
	var params ListProductsParams
	q := r.URL.Query()

	if err := runtime.BindQueryParameter("form", true, false, "category", q, &params.Category); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "category", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "cursor", q, &params.Cursor); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "cursor", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &params.Limit); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "limit", Err: err})
		return
	}

	siw.handler.ListProducts(w, r, params)
}

func (siw *serverInterfaceWrapper) GetProduct(w http.ResponseWriter, r *http.Request) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})
		return
	}

	siw.handler.GetProduct(w, r, id)
}

func (siw *serverInterfaceWrapper) GetUsage(w http.ResponseWriter, r *http.Request) {
	var params GetUsageParams
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &params.Period); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "period", Err: err})
		return
	}

	siw.handler.GetUsage(w, r, params)
}

// HandlerWithOptions mounts every route of si on options.BaseRouter.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		}
	}
	wrapper := &serverInterfaceWrapper{handler: si, errorHandlerFunc: options.ErrorHandlerFunc}

	r.Group(func(r chi.Router) {
		r.Post("/v1/recommend", si.Recommend)
		r.Post("/v1/retrieve", si.Retrieve)
		r.Get("/v1/products", wrapper.ListProducts)
		r.Get("/v1/products/{id}", wrapper.GetProduct)
		r.Get("/v1/index", si.GetIndex)
		r.Post("/v1/index/reload", si.ReloadIndex)
		r.Get("/v1/usage", wrapper.GetUsage)
		r.Get("/health", si.HealthCheck)
		r.Get("/metrics", si.Metrics)
	})
	return r
}
