// Package candidate holds the per-call ranking output.
package candidate

import (
	"github.com/kailas-cloud/buyingguide/internal/domain/plan"
	"github.com/kailas-cloud/buyingguide/internal/domain/product"
)

// Scored is one ranked product with its score breakdown. It lives for a
// single retrieval call.
type Scored struct {
	Product product.Product
	Total   float64
	// Breakdown holds the weighted contribution of every signal; the values sum to Total.
	Breakdown map[plan.Signal]float64
	// Rank is the 1-based position in the returned sequence.
	Rank int
}
