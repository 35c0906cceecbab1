package result

import (
	"context"
	"time"
)

// Writer persists results.
type Writer interface {
	SaveResult(ctx context.Context, runID string, r *BacktestResult) error
}

// Reader reloads a persisted result by identity.
type Reader interface {
	LoadResult(ctx context.Context, ticker, strategy string, start, end time.Time) (*BacktestResult, error)
}

// Publisher announces finished results to other processes.
type Publisher interface {
	Publish(ctx context.Context, runID string, r *BacktestResult) error
}
