package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPlan signals a query plan that fails validation.
	ErrInvalidPlan = errors.New("invalid query plan")
	// ErrInvalidProduct signals a product record that breaks a structural invariant.
	ErrInvalidProduct = errors.New("invalid product")
	// ErrEmptyInput signals an input stream with no usable records.
	ErrEmptyInput = errors.New("empty or unreadable input")
	// ErrIndexNotLoaded signals that no catalog snapshot is available yet.
	ErrIndexNotLoaded = errors.New("index not loaded")

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrLLMQuotaExceeded signals an exhausted LLM token budget.
	ErrLLMQuotaExceeded = errors.New("llm quota exceeded")
	// ErrLLMProviderError signals an LLM provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
)
