// Package records reads documents from the Postgres record store so the
// search index can be rebuilt after a restart or an outage.
package records

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	domdoc "github.com/kailas-cloud/searchsync/internal/domain/document"
)

// DefaultQuery pages through a documents table in (created_at, id) order.
// Custom queries must select the same columns and take the same three
// parameters: last created_at, last id, limit.
const DefaultQuery = `
SELECT id, type, title, content, description, author, author_id, tags,
       category, status, created_at, updated_at, metadata
FROM documents
WHERE (created_at, id) > ($1, $2)
ORDER BY created_at, id
LIMIT $3`

const defaultBatchSize = 500

// store is the consumer interface for the record store (ISP).
type store interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Config tunes the source.
type Config struct {
	Query     string
	BatchSize int
}

// Repo streams documents from Postgres in keyset-paginated batches.
type Repo struct {
	store     store
	query     string
	batchSize int
	logger    *zap.Logger
}

// New creates a record source. logger can be nil.
func New(s store, cfg Config, logger *zap.Logger) *Repo {
	if cfg.Query == "" {
		cfg.Query = DefaultQuery
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{store: s, query: cfg.Query, batchSize: cfg.BatchSize, logger: logger}
}

// Open connects a pgx pool for dsn. The caller closes it.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping record store: %w", err)
	}
	return pool, nil
}

// page is one fetched batch plus the raw keyset cursor of its last row.
type page struct {
	docs        []domdoc.Document
	rows        int
	lastCreated time.Time
	lastID      string
}

// Stream calls fn with successive batches until the table is exhausted or fn
// fails. It returns the number of documents delivered.
func (r *Repo) Stream(ctx context.Context, fn func([]domdoc.Document) error) (int, error) {
	var (
		lastCreated = time.Unix(0, 0).UTC()
		lastID      string
		total       int
	)
	for {
		pg, err := r.fetch(ctx, lastCreated, lastID)
		if err != nil {
			return total, err
		}
		if pg.rows == 0 {
			return total, nil
		}
		lastCreated, lastID = pg.lastCreated, pg.lastID

		if len(pg.docs) > 0 {
			total += len(pg.docs)
			if err := fn(pg.docs); err != nil {
				return total, fmt.Errorf("consume batch: %w", err)
			}
			r.logger.Debug("record batch streamed", zap.Int("size", len(pg.docs)), zap.Int("total", total))
		}

		if pg.rows < r.batchSize {
			return total, nil
		}
	}
}

// All reads every document. Use Stream for large tables.
func (r *Repo) All(ctx context.Context) ([]domdoc.Document, error) {
	var out []domdoc.Document
	_, err := r.Stream(ctx, func(b []domdoc.Document) error {
		out = append(out, b...)
		return nil
	})
	return out, err
}

// fetch reads one page. The cursor keeps the database precision of
// created_at; documents are truncated to milliseconds on conversion.
func (r *Repo) fetch(ctx context.Context, lastCreated time.Time, lastID string) (page, error) {
	rows, err := r.store.Query(ctx, r.query, lastCreated, lastID, r.batchSize)
	if err != nil {
		return page{}, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	p := page{docs: make([]domdoc.Document, 0, r.batchSize)}
	for rows.Next() {
		var row recordRow
		if err := rows.Scan(row.dest()...); err != nil {
			return page{}, fmt.Errorf("scan record: %w", err)
		}
		p.rows++
		p.lastCreated, p.lastID = row.CreatedAt, row.ID

		doc, err := row.toDocument()
		if err != nil {
			r.logger.Warn("skipping unreadable record", zap.String("id", row.ID), zap.Error(err))
			continue
		}
		p.docs = append(p.docs, doc)
	}
	if err := rows.Err(); err != nil {
		return page{}, fmt.Errorf("iterate records: %w", err)
	}
	return p, nil
}
