package health

import (
	"context"

	"github.com/kailas-cloud/buyingguide/internal/usecase/catalog"
)

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// LLMChecker checks LLM provider availability.
type LLMChecker interface {
	HealthCheck(ctx context.Context) error
}

// Snapshots reports the loaded catalog snapshot.
type Snapshots interface {
	Current() (*catalog.Snapshot, error)
}
