package recommend

import (
	"github.com/kailas-cloud/buyingguide/internal/domain/candidate"
	"github.com/kailas-cloud/buyingguide/internal/domain/plan"
	"github.com/kailas-cloud/buyingguide/internal/usecase/catalog"
)

// Snapshots provides the current catalog snapshot.
type Snapshots interface {
	Current() (*catalog.Snapshot, error)
}

// Retriever ranks a snapshot against a plan.
type Retriever interface {
	Retrieve(snap *catalog.Snapshot, p plan.Plan, k int) ([]candidate.Scored, error)
}
