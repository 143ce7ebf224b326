package searchsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/searchsync/internal/db"
	"github.com/kailas-cloud/searchsync/internal/db/meili"
	"github.com/kailas-cloud/searchsync/internal/db/memory"
	dbRedis "github.com/kailas-cloud/searchsync/internal/db/redis"
	"github.com/kailas-cloud/searchsync/internal/usecase/indexsync"
	searchuc "github.com/kailas-cloud/searchsync/internal/usecase/search"
)

const defaultReadinessTimeout = 30 * time.Second

// Listener observes the outcome of every applied lifecycle event.
// A listener that panics or fails never affects the sync.
type Listener = indexsync.Listener

// ListenerID identifies a registered listener.
type ListenerID = indexsync.ListenerID

// Client is the searchsync entry point.
type Client struct {
	search *searchuc.Service
	sync   *indexsync.Engine
	obs    *observer
}

// New creates a Client, connects to the backend and makes sure the index exists.
func New(opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	adapter, err := createAdapter(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultReadinessTimeout)
	defer cancel()
	return newClient(ctx, adapter, cfg)
}

func (c *clientConfig) redisConfig() dbRedis.Config {
	return dbRedis.Config{
		Addrs:    c.addrs,
		Username: c.username,
		Password: c.password,
		DB:       c.db,
		TLS:      c.tls,
	}
}

func createAdapter(cfg *clientConfig) (db.Adapter, error) {
	switch cfg.provider {
	case providerMemory:
		return memory.New(), nil
	case providerRedis:
		if len(cfg.addrs) == 0 {
			return nil, errors.New("searchsync: redis address required")
		}
		s, err := dbRedis.NewStore(cfg.redisConfig())
		if err != nil {
			return nil, fmt.Errorf("searchsync: create redis store: %w", err)
		}
		return s, nil
	case providerMeili:
		s, err := meili.NewStore(meili.Config{
			Host:        cfg.host,
			APIKey:      cfg.apiKey,
			TaskTimeout: cfg.taskTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("searchsync: create meilisearch store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("searchsync: unknown provider %q", cfg.provider)
	}
}

func newClient(ctx context.Context, adapter db.Adapter, cfg *clientConfig) (*Client, error) {
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var searchOpts []searchuc.Option
	if cfg.connectRetries > 0 {
		searchOpts = append(searchOpts, searchuc.WithConnectRetry(cfg.connectRetries, cfg.connectDelay))
	}
	svc := searchuc.New(db.Instrument(adapter, obs.logger), cfg.indexName, obs.logger, searchOpts...)
	if err := svc.Initialize(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("searchsync: initialize: %w", err)
	}

	engine, err := indexsync.New(svc, cfg.sync, obs.logger)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("searchsync: %w", err)
	}
	return &Client{search: svc, sync: engine, obs: obs}, nil
}

// Close stops the drain loop and releases the backend.
func (c *Client) Close() error {
	c.sync.Stop()
	if err := c.search.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// Ping checks backend connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if !c.search.Ping(ctx) {
		return fmt.Errorf("ping: %w", ErrConnection)
	}
	return nil
}

// IndexName returns the index the client writes to.
func (c *Client) IndexName() string { return c.search.IndexName() }

// Start runs the periodic drain loop until ctx is done or Close is called.
// It does nothing in realtime mode.
func (c *Client) Start(ctx context.Context) { c.sync.Start(ctx) }

// Flush applies every queued event now and returns how many were processed.
func (c *Client) Flush(ctx context.Context) int {
	start := time.Now()
	n := c.sync.Flush(ctx)
	c.obs.observe("flush", start, ctx.Err())
	return n
}

// OnCreate syncs a newly created document.
func (c *Client) OnCreate(ctx context.Context, doc *Document) SyncResult {
	start := time.Now()
	res := c.sync.OnCreate(ctx, doc)
	c.obs.observeSync("on_create", start, res)
	return res
}

// OnUpdate syncs an updated document.
func (c *Client) OnUpdate(ctx context.Context, doc *Document) SyncResult {
	start := time.Now()
	res := c.sync.OnUpdate(ctx, doc)
	c.obs.observeSync("on_update", start, res)
	return res
}

// OnDelete removes a document from the index.
func (c *Client) OnDelete(ctx context.Context, id string, t DocumentType) SyncResult {
	start := time.Now()
	res := c.sync.OnDelete(ctx, id, t)
	c.obs.observeSync("on_delete", start, res)
	return res
}

// BulkSync indexes docs in batches, bypassing the queue.
func (c *Client) BulkSync(ctx context.Context, docs []Document) (BulkResult, error) {
	start := time.Now()
	res, err := c.sync.BulkSync(ctx, docs)
	c.obs.observe("bulk_sync", start, err)
	return res, err
}

// RetryFailed resubmits failed documents. With reset, exhausted retry
// budgets are restored. ids narrows the retry to those documents.
func (c *Client) RetryFailed(ctx context.Context, reset bool, ids ...string) BulkResult {
	var opts []indexsync.RetryOption
	if reset {
		opts = append(opts, indexsync.WithResetBudget())
	}
	if len(ids) > 0 {
		opts = append(opts, indexsync.WithIDs(ids...))
	}
	start := time.Now()
	res := c.sync.RetryFailed(ctx, opts...)
	c.obs.observe("retry_failed", start, nil)
	return res
}

// Search runs q against the index.
func (c *Client) Search(ctx context.Context, q Query) (Result, error) {
	start := time.Now()
	res, err := c.search.Search(ctx, q)
	c.obs.observe("search", start, err)
	return res, err
}

// Suggest returns up to size completions for prefix.
func (c *Client) Suggest(ctx context.Context, prefix string, size int) ([]string, error) {
	start := time.Now()
	out, err := c.search.Suggest(ctx, prefix, size)
	c.obs.observe("suggest", start, err)
	return out, err
}

// Get fetches one indexed document.
func (c *Client) Get(ctx context.Context, id string) (Document, error) {
	start := time.Now()
	doc, err := c.search.GetDocument(ctx, id)
	c.obs.observe("get", start, err)
	return doc, err
}

// Stats returns the indexed document counts.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	start := time.Now()
	st, err := c.search.GetStats(ctx)
	c.obs.observe("stats", start, err)
	return st, err
}

// Record returns the ledger entry for id.
func (c *Client) Record(id string) (Record, bool) { return c.sync.Record(id) }

// Records returns every ledger entry ordered by id.
func (c *Client) Records() []Record { return c.sync.Records() }

// StatusCounts returns the number of ledger entries per status.
func (c *Client) StatusCounts() map[RecordStatus]int { return c.sync.StatusCounts() }

// QueueLen returns the number of queued events.
func (c *Client) QueueLen() int { return c.sync.QueueLen() }

// Reset forgets the given ledger entries, or all of them when ids is empty.
func (c *Client) Reset(ids ...string) { c.sync.Reset(ids...) }

// AddListener registers fn for events of type t.
func (c *Client) AddListener(t EventType, fn Listener) ListenerID {
	return c.sync.AddListener(t, fn)
}

// RemoveListener unregisters a listener. It reports whether one was removed.
func (c *Client) RemoveListener(t EventType, id ListenerID) bool {
	return c.sync.RemoveListener(t, id)
}
