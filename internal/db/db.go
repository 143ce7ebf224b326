package db

import (
	"context"

	"github.com/kailas-cloud/searchsync/internal/domain/batch"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/document/patch"
	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
)

// Adapter translates the canonical document and query model to one search backend.
// Implementations must be safe for concurrent use.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Adapter interface {
	Connector
	IndexManager
	DocumentWriter
	DocumentReader
	Searcher
	// Name identifies the backend in logs and metrics.
	Name() string
}

// Connector manages the backend connection.
type Connector interface {
	Connect(ctx context.Context) error
	// Close disconnects. Calling it twice is a no-op.
	Close() error
	IsConnected() bool
	// Ping probes backend health and never returns an error.
	Ping(ctx context.Context) bool
}

// IndexManager provides idempotent index lifecycle operations.
type IndexManager interface {
	// CreateIndex succeeds without changes when the index already exists.
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	// DeleteIndex succeeds when the index does not exist.
	DeleteIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// DocumentWriter mutates documents. Indexing an existing id replaces it.
type DocumentWriter interface {
	IndexDocument(ctx context.Context, index string, doc document.Document) error
	// BulkIndexDocuments applies every item and reports per-item outcomes.
	// The error is reserved for failures that prevented any attempt.
	BulkIndexDocuments(ctx context.Context, index string, docs []document.Document) (batch.Result, error)
	UpdateDocument(ctx context.Context, index, id string, p patch.Patch) error
	// DeleteDocument succeeds when the document does not exist.
	DeleteDocument(ctx context.Context, index, id string) error
}

// DocumentReader fetches documents by id.
type DocumentReader interface {
	// GetDocument returns domain.ErrNotFound when the id is absent.
	GetDocument(ctx context.Context, index, id string) (document.Document, error)
}

// Searcher executes read queries.
type Searcher interface {
	Search(ctx context.Context, index string, q request.Query) (result.Result, error)
	// Suggest completes prefix against document titles.
	Suggest(ctx context.Context, index, prefix string, size int) ([]string, error)
	Count(ctx context.Context, index string, f filter.Filters) (int64, error)
}
