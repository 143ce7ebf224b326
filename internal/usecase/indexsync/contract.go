package indexsync

import (
	"context"

	"github.com/kailas-cloud/searchsync/internal/domain/batch"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
)

// Indexer applies mutations to the bound search index.
type Indexer interface {
	IndexDocument(ctx context.Context, doc document.Document) error
	DeleteDocument(ctx context.Context, id string) error
	BulkIndex(ctx context.Context, docs []document.Document) (batch.Result, error)
}
