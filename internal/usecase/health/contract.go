package health

import (
	"context"

	"github.com/kailas-cloud/searchsync/internal/domain/record"
)

// BackendPinger checks search backend availability.
type BackendPinger interface {
	Ping(ctx context.Context) bool
}

// LedgerReader exposes sync ledger counters.
type LedgerReader interface {
	StatusCounts() map[record.Status]int
	QueueLen() int
}
