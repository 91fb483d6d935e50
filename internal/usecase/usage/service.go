// Package usage reports LLM token budget consumption.
package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/buyingguide/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader) *Service {
	return &Service{br: br, now: time.Now}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	start, end := period.Bounds(s.now())
	r := domusage.Report{Period: period, Start: start, End: end, Remaining: -1}
	if s.br == nil {
		return r
	}

	r.Limit, r.Used, r.Remaining = s.br.Usage(period)
	return r
}
