package searchsync

import (
	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/usecase/indexsync"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound        = domain.ErrNotFound
	ErrInvalidDocument = domain.ErrInvalidDocument
	ErrInvalidQuery    = domain.ErrInvalidQuery
	ErrNotConnected    = domain.ErrNotConnected
	ErrQueueFull       = domain.ErrQueueFull
	ErrConnection      = domain.ErrConnection
	ErrIndexOperation  = domain.ErrIndexOperation
	ErrSearch          = domain.ErrSearch
	ErrDocumentMissing = domain.ErrDocumentMissing
	ErrTimeout         = domain.ErrTimeout
	// ErrSuperseded is the cause of an event skipped because a newer event
	// for the same document was accepted while it was in flight.
	ErrSuperseded = indexsync.ErrSuperseded
)

// IsRetryable reports whether a failed sync of err is worth retrying.
func IsRetryable(err error) bool { return domain.IsRetryable(err) }
