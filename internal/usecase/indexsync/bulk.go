package indexsync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/batch"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/event"
	"github.com/kailas-cloud/searchsync/internal/domain/record"
	"github.com/kailas-cloud/searchsync/internal/metrics"
)

// BulkSync indexes docs directly in BatchSize chunks, bypassing the queue.
// Ledger entries are updated per item. A chunk-level error fails the whole
// chunk and processing continues with the next one. Each document supersedes
// any queued event or pending retry for its id; failed items are
// dead-lettered as updates so RetryFailed can pick them up.
func (e *Engine) BulkSync(ctx context.Context, docs []document.Document) (batch.Result, error) {
	var total batch.Result
	for start := 0; start < len(docs); start += e.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return total, fmt.Errorf("bulk sync: %w", err)
		}
		src := docs[start:min(start+e.cfg.BatchSize, len(docs))]
		chunk := make([]document.Document, len(src))
		ids := make([]string, len(src))
		for i := range src {
			chunk[i] = src[i].Normalize()
			ids[i] = chunk[i].ID
		}
		evs := e.claimBulk(chunk)

		res, err := e.indexer.BulkIndex(ctx, chunk)
		if err != nil {
			res = batch.Result{}
			res.FailAll(ids, err)
			e.logger.Error("bulk sync chunk failed",
				zap.Int("offset", start), zap.Int("size", len(chunk)), zap.Error(err))
		}
		e.recordBulk(evs, res, err)
		total.Merge(res)
	}

	e.publishGauges()
	e.logger.Info("bulk sync finished",
		zap.Int("success", total.Success), zap.Int("failed", total.Failed))
	return total, nil
}

// claimBulk stamps an update event per document and cancels whatever the
// engine still holds for those ids.
func (e *Engine) claimBulk(chunk []document.Document) []event.Event {
	now := e.now()
	evs := make([]event.Event, len(chunk))
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range chunk {
		doc := chunk[i]
		ev := event.New(event.Update, &doc, now)
		e.stampLocked(&ev)
		e.cancelTimerLocked(ev.ID)
		if e.queue.Remove(ev.ID) {
			metrics.SyncQueueDepth.Set(float64(e.queue.Len()))
		}
		delete(e.dead, ev.ID)
		e.setPendingLocked(ev.ID)
		evs[i] = ev
	}
	return evs
}

// recordBulk settles the ledger for a chunk. Items overtaken by a newer
// event while the chunk was in flight are left to that event.
func (e *Engine) recordBulk(evs []event.Event, res batch.Result, chunkErr error) {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range evs {
		if !e.currentLocked(ev) {
			continue
		}
		rec := e.ledger[ev.ID]
		rec.ID = ev.ID
		if res.IsFailed(ev.ID) {
			err := chunkErr
			if err == nil {
				err = errors.New(res.Errors[ev.ID])
			}
			rec.Failed(err, 0, now)
			e.dead[ev.ID] = deadLetter{event: ev, err: err}
		} else {
			rec.Synced(now)
			delete(e.dead, ev.ID)
		}
		e.ledger[ev.ID] = rec
	}
}

type retryOptions struct {
	resetBudget bool
	ids         []string
}

// RetryOption tunes RetryFailed.
type RetryOption func(*retryOptions)

// WithResetBudget retries entries whose retry budget is exhausted, starting
// their counter from zero.
func WithResetBudget() RetryOption {
	return func(o *retryOptions) { o.resetBudget = true }
}

// WithIDs limits RetryFailed to the given ids.
func WithIDs(ids ...string) RetryOption {
	return func(o *retryOptions) { o.ids = ids }
}

// RetryFailed re-applies dead-lettered events synchronously. Entries without
// remaining budget are skipped unless WithResetBudget is given. Events that
// can never succeed, such as a create without payload, are always skipped.
func (e *Engine) RetryFailed(ctx context.Context, opts ...RetryOption) batch.Result {
	var o retryOptions
	for _, fn := range opts {
		fn(&o)
	}

	var todo []event.Event
	e.mu.Lock()
	candidates := o.ids
	if len(candidates) == 0 {
		for id := range e.dead {
			candidates = append(candidates, id)
		}
	}
	for _, id := range candidates {
		dl, ok := e.dead[id]
		if !ok || e.ledger[id].Status != record.StatusFailed {
			continue
		}
		if !e.currentLocked(dl.event) {
			delete(e.dead, id)
			continue
		}
		if !domain.IsRetryable(dl.err) {
			continue
		}
		ev := dl.event
		if o.resetBudget {
			ev.RetryCount = 0
		} else if ev.RetryCount >= e.cfg.MaxRetries && !errors.Is(dl.err, errEvicted) {
			continue
		}
		delete(e.dead, id)
		todo = append(todo, ev)
	}
	e.mu.Unlock()

	var res batch.Result
	for _, ev := range todo {
		if err := ctx.Err(); err != nil {
			e.mu.Lock()
			e.dead[ev.ID] = deadLetter{event: ev, err: err}
			e.mu.Unlock()
			res.Fail(ev.ID, err)
			continue
		}
		r := e.process(ctx, ev)
		if r.Success {
			res.OK(ev.ID)
		} else {
			res.Fail(ev.ID, r.Cause)
		}
	}
	e.publishGauges()
	if res.Total() > 0 {
		e.logger.Info("retried failed events",
			zap.Int("success", res.Success), zap.Int("failed", res.Failed))
	}
	return res
}
