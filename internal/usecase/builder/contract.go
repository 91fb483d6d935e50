package builder

import (
	"context"

	"github.com/kailas-cloud/buyingguide/internal/repository/buildinfo"
)

// BuildPublisher records a verified index as the one to serve.
type BuildPublisher interface {
	Publish(ctx context.Context, rec buildinfo.Record) error
}
