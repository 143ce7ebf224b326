package db

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/batch"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/document/patch"
	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	"github.com/kailas-cloud/searchsync/internal/metrics"
)

// InstrumentedAdapter records latency and error metrics around every backend call.
type InstrumentedAdapter struct {
	inner  Adapter
	logger *zap.Logger
}

var _ Adapter = (*InstrumentedAdapter)(nil)

// Instrument wraps an adapter with Prometheus metrics and debug logging.
func Instrument(inner Adapter, logger *zap.Logger) *InstrumentedAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedAdapter{inner: inner, logger: logger.With(zap.String("backend", inner.Name()))}
}

// Unwrap returns the decorated adapter.
func (a *InstrumentedAdapter) Unwrap() Adapter { return a.inner }

// Name returns the inner backend name.
func (a *InstrumentedAdapter) Name() string { return a.inner.Name() }

func (a *InstrumentedAdapter) observe(op string, start time.Time, err error) {
	backend := a.inner.Name()
	metrics.BackendRequestDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	if err == nil {
		return
	}
	kind := string(domain.KindOf(err))
	if kind == "" {
		kind = "other"
	}
	metrics.BackendErrorsTotal.WithLabelValues(backend, op, kind).Inc()
	a.logger.Debug("Backend call failed",
		zap.String("op", op),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)
}

// Connect delegates to the inner adapter.
func (a *InstrumentedAdapter) Connect(ctx context.Context) error {
	start := time.Now()
	err := a.inner.Connect(ctx)
	a.observe(OpConnect, start, err)
	return err
}

// Close delegates to the inner adapter.
func (a *InstrumentedAdapter) Close() error { return a.inner.Close() }

// IsConnected delegates to the inner adapter.
func (a *InstrumentedAdapter) IsConnected() bool { return a.inner.IsConnected() }

// Ping delegates to the inner adapter and counts failed probes as connection errors.
func (a *InstrumentedAdapter) Ping(ctx context.Context) bool {
	start := time.Now()
	ok := a.inner.Ping(ctx)
	var err error
	if !ok {
		err = domain.ConnectionError(OpPing, nil)
	}
	a.observe(OpPing, start, err)
	return ok
}

// CreateIndex delegates to the inner adapter.
func (a *InstrumentedAdapter) CreateIndex(ctx context.Context, def *IndexDefinition) error {
	start := time.Now()
	err := a.inner.CreateIndex(ctx, def)
	a.observe(OpCreateIndex, start, err)
	return err
}

// DeleteIndex delegates to the inner adapter.
func (a *InstrumentedAdapter) DeleteIndex(ctx context.Context, name string) error {
	start := time.Now()
	err := a.inner.DeleteIndex(ctx, name)
	a.observe(OpDeleteIndex, start, err)
	return err
}

// IndexExists delegates to the inner adapter.
func (a *InstrumentedAdapter) IndexExists(ctx context.Context, name string) (bool, error) {
	start := time.Now()
	ok, err := a.inner.IndexExists(ctx, name)
	a.observe(OpIndexExists, start, err)
	return ok, err
}

// IndexDocument delegates to the inner adapter.
func (a *InstrumentedAdapter) IndexDocument(ctx context.Context, index string, doc document.Document) error {
	start := time.Now()
	err := a.inner.IndexDocument(ctx, index, doc)
	a.observe(OpIndexDocument, start, err)
	return err
}

// BulkIndexDocuments delegates to the inner adapter and counts per-item outcomes.
func (a *InstrumentedAdapter) BulkIndexDocuments(
	ctx context.Context, index string, docs []document.Document,
) (batch.Result, error) {
	start := time.Now()
	res, err := a.inner.BulkIndexDocuments(ctx, index, docs)
	a.observe(OpBulkIndex, start, err)
	backend := a.inner.Name()
	metrics.BulkItemsTotal.WithLabelValues(backend, "success").Add(float64(res.Success))
	metrics.BulkItemsTotal.WithLabelValues(backend, "failed").Add(float64(res.Failed))
	return res, err
}

// UpdateDocument delegates to the inner adapter.
func (a *InstrumentedAdapter) UpdateDocument(ctx context.Context, index, id string, p patch.Patch) error {
	start := time.Now()
	err := a.inner.UpdateDocument(ctx, index, id, p)
	a.observe(OpUpdateDocument, start, err)
	return err
}

// DeleteDocument delegates to the inner adapter.
func (a *InstrumentedAdapter) DeleteDocument(ctx context.Context, index, id string) error {
	start := time.Now()
	err := a.inner.DeleteDocument(ctx, index, id)
	a.observe(OpDeleteDocument, start, err)
	return err
}

// GetDocument delegates to the inner adapter. Not-found is not counted as an error.
func (a *InstrumentedAdapter) GetDocument(ctx context.Context, index, id string) (document.Document, error) {
	start := time.Now()
	doc, err := a.inner.GetDocument(ctx, index, id)
	observed := err
	if isNotFound(err) {
		observed = nil
	}
	a.observe(OpGetDocument, start, observed)
	return doc, err
}

// Search delegates to the inner adapter.
func (a *InstrumentedAdapter) Search(ctx context.Context, index string, q request.Query) (result.Result, error) {
	start := time.Now()
	res, err := a.inner.Search(ctx, index, q)
	a.observe(OpSearch, start, err)
	return res, err
}

// Suggest delegates to the inner adapter.
func (a *InstrumentedAdapter) Suggest(ctx context.Context, index, prefix string, size int) ([]string, error) {
	start := time.Now()
	out, err := a.inner.Suggest(ctx, index, prefix, size)
	a.observe(OpSuggest, start, err)
	return out, err
}

// Count delegates to the inner adapter.
func (a *InstrumentedAdapter) Count(ctx context.Context, index string, f filter.Filters) (int64, error) {
	start := time.Now()
	n, err := a.inner.Count(ctx, index, f)
	a.observe(OpCount, start, err)
	return n, err
}
