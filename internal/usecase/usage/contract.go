package usage

import domusage "github.com/kailas-cloud/buyingguide/internal/domain/usage"

// BudgetReader exposes one period of the token budget. Remaining is -1 when
// the period is unlimited.
type BudgetReader interface {
	Usage(period domusage.Period) (limit, used, remaining int64)
}
