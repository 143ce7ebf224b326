// Package search binds one backend adapter to one logical index and exposes
// document, query and statistics operations that never take an index name.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/searchsync/internal/db"
	"github.com/kailas-cloud/searchsync/internal/domain/batch"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/document/patch"
	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
)

const (
	defaultConnectRetries = 5
	defaultConnectDelay   = 500 * time.Millisecond
)

// Stats is the document count of the bound index, total and per type.
type Stats struct {
	Total  int64                   `json:"total"`
	ByType map[document.Type]int64 `json:"byType"`
}

// Service is the search facade.
type Service struct {
	backend Backend
	index   string
	logger  *zap.Logger

	connectRetries int
	connectDelay   time.Duration
	definition     func(name string) (*db.IndexDefinition, error)
}

// Option configures a Service.
type Option func(*Service)

// WithConnectRetry sets how often Initialize attempts to connect and the
// initial backoff delay, doubled after each failed attempt.
func WithConnectRetry(attempts int, delay time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.connectRetries = attempts
		}
		if delay > 0 {
			s.connectDelay = delay
		}
	}
}

// WithIndexDefinition overrides the canonical index definition.
func WithIndexDefinition(fn func(name string) (*db.IndexDefinition, error)) Option {
	return func(s *Service) { s.definition = fn }
}

// New binds backend to index. logger can be nil.
func New(backend Backend, index string, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		backend:        backend,
		index:          index,
		logger:         logger,
		connectRetries: defaultConnectRetries,
		connectDelay:   defaultConnectDelay,
		definition:     db.CanonicalIndex,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// IndexName returns the bound index name.
func (s *Service) IndexName() string { return s.index }

// Initialize connects with exponential backoff and creates the index when absent.
func (s *Service) Initialize(ctx context.Context) error {
	rep := repeater.New(&strategy.Backoff{
		Repeats:  s.connectRetries,
		Duration: s.connectDelay,
		Factor:   2,
	})
	attempt := 0
	err := rep.Do(ctx, func() error {
		attempt++
		err := s.backend.Connect(ctx)
		if err != nil {
			s.logger.Warn("backend connect failed", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	exists, err := s.backend.IndexExists(ctx, s.index)
	if err != nil {
		return fmt.Errorf("check index %q: %w", s.index, err)
	}
	if exists {
		s.logger.Info("index ready", zap.String("index", s.index))
		return nil
	}
	if err := s.createIndex(ctx); err != nil {
		return err
	}
	s.logger.Info("index created", zap.String("index", s.index))
	return nil
}

func (s *Service) createIndex(ctx context.Context) error {
	def, err := s.definition(s.index)
	if err != nil {
		return fmt.Errorf("index definition: %w", err)
	}
	if err := s.backend.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index %q: %w", s.index, err)
	}
	return nil
}

// RebuildIndex drops the index with its documents and recreates it empty.
func (s *Service) RebuildIndex(ctx context.Context) error {
	if err := s.backend.DeleteIndex(ctx, s.index); err != nil {
		return fmt.Errorf("delete index %q: %w", s.index, err)
	}
	return s.createIndex(ctx)
}

// IndexDocument adds or replaces doc.
func (s *Service) IndexDocument(ctx context.Context, doc document.Document) error {
	return s.backend.IndexDocument(ctx, s.index, doc)
}

// BulkIndex indexes docs and reports per-item outcomes.
func (s *Service) BulkIndex(ctx context.Context, docs []document.Document) (batch.Result, error) {
	return s.backend.BulkIndexDocuments(ctx, s.index, docs)
}

// UpdateDocument applies a partial update to an existing document.
func (s *Service) UpdateDocument(ctx context.Context, id string, p patch.Patch) error {
	return s.backend.UpdateDocument(ctx, s.index, id, p)
}

// DeleteDocument removes a document. Absent ids succeed.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	return s.backend.DeleteDocument(ctx, s.index, id)
}

// GetDocument fetches a document by id.
func (s *Service) GetDocument(ctx context.Context, id string) (document.Document, error) {
	return s.backend.GetDocument(ctx, s.index, id)
}

// Search runs q against the bound index.
func (s *Service) Search(ctx context.Context, q request.Query) (result.Result, error) {
	return s.backend.Search(ctx, s.index, q)
}

// Suggest completes prefix against titles.
func (s *Service) Suggest(ctx context.Context, prefix string, size int) ([]string, error) {
	return s.backend.Suggest(ctx, s.index, prefix, size)
}

// Count counts documents matching f.
func (s *Service) Count(ctx context.Context, f filter.Filters) (int64, error) {
	return s.backend.Count(ctx, s.index, f)
}

// GetStats issues one count for the total and one per known document type,
// concurrently.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	types := document.Types()
	counts := make([]int64, len(types))
	var total int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.backend.Count(gctx, s.index, filter.Filters{})
		if err != nil {
			return fmt.Errorf("count total: %w", err)
		}
		total = n
		return nil
	})
	for i, t := range types {
		g.Go(func() error {
			n, err := s.backend.Count(gctx, s.index, filter.Filters{}.WithType(t))
			if err != nil {
				return fmt.Errorf("count %s: %w", t, err)
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	st := Stats{Total: total, ByType: make(map[document.Type]int64, len(types))}
	for i, t := range types {
		st.ByType[t] = counts[i]
	}
	return st, nil
}

// Ping reports backend health.
func (s *Service) Ping(ctx context.Context) bool { return s.backend.Ping(ctx) }

// Close disconnects the backend.
func (s *Service) Close() error { return s.backend.Close() }
