// Package indexsync keeps a search index eventually consistent with the
// record store. It accepts lifecycle events, applies them immediately or
// through a coalescing queue, retries failures with exponential backoff and
// tracks one ledger record per document id.
package indexsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/event"
	"github.com/kailas-cloud/searchsync/internal/domain/record"
	"github.com/kailas-cloud/searchsync/internal/metrics"
)

const opApply = "sync_apply"

var (
	// errEvicted is the ledger error for events dropped by a full queue.
	errEvicted = errors.New("evicted from full sync queue")
	// ErrSuperseded marks an event skipped because a newer one for the same id was admitted.
	ErrSuperseded = errors.New("superseded by a newer event")
)

// deadLetter is an event that will not be retried automatically.
type deadLetter struct {
	event event.Event
	err   error
}

// Engine is the index synchronization engine. One engine owns its queue,
// ledger and listeners; engines never share them.
type Engine struct {
	indexer Indexer
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
	after   func(time.Duration, func()) *time.Timer

	mu        sync.Mutex
	queue     *queue
	ledger    map[string]record.Record
	dead      map[string]deadLetter
	timers    map[string]*time.Timer
	seq       map[string]uint64
	listeners map[event.Type][]listenerEntry
	nextID    ListenerID
	closed    bool

	// drainMu serializes drain passes so a single worker consumes the queue.
	drainMu sync.Mutex
	loop    *drainLoop
}

// New creates an engine. logger can be nil.
func New(indexer Indexer, cfg Config, logger *zap.Logger) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		indexer:   indexer,
		cfg:       cfg,
		logger:    logger.Named("indexsync"),
		now:       time.Now,
		after:     time.AfterFunc,
		queue:     newQueue(cfg.MaxQueueSize),
		ledger:    make(map[string]record.Record),
		dead:      make(map[string]deadLetter),
		timers:    make(map[string]*time.Timer),
		seq:       make(map[string]uint64),
		listeners: make(map[event.Type][]listenerEntry),
	}, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// OnCreate reports a new document. A nil doc is a missing-payload failure.
func (e *Engine) OnCreate(ctx context.Context, doc *document.Document) event.Result {
	return e.submit(ctx, e.newEvent(event.Create, doc))
}

// OnUpdate reports a changed document. The full document replaces the indexed one.
func (e *Engine) OnUpdate(ctx context.Context, doc *document.Document) event.Result {
	return e.submit(ctx, e.newEvent(event.Update, doc))
}

// OnDelete reports a removed document.
func (e *Engine) OnDelete(ctx context.Context, id string, docType document.Type) event.Result {
	return e.submit(ctx, event.NewDelete(id, docType, e.now()))
}

func (e *Engine) newEvent(t event.Type, doc *document.Document) event.Event {
	if doc != nil {
		d := doc.Normalize()
		doc = &d
	}
	return event.New(t, doc, e.now())
}

func (e *Engine) submit(ctx context.Context, ev event.Event) event.Result {
	if ev.NeedsPayload() && ev.Document == nil {
		return e.reject(ctx, ev, domain.MissingDocumentError(opApply, ev.ID))
	}
	if ev.Document != nil {
		if err := ev.Document.Validate(); err != nil {
			return e.reject(ctx, ev, err)
		}
	}
	if ev.ID == "" {
		return e.reject(ctx, ev, fmt.Errorf("%w: id is required", domain.ErrInvalidDocument))
	}

	if e.cfg.Mode == ModeRealtime {
		e.mu.Lock()
		e.stampLocked(&ev)
		e.cancelTimerLocked(ev.ID)
		delete(e.dead, ev.ID)
		e.setPendingLocked(ev.ID)
		e.mu.Unlock()
		return e.process(ctx, ev)
	}

	if err := e.enqueue(&ev); err != nil {
		res := event.Failed(ev, err)
		metrics.SyncEventsTotal.WithLabelValues(string(ev.Type), "rejected").Inc()
		return res
	}
	metrics.SyncEventsTotal.WithLabelValues(string(ev.Type), "accepted").Inc()
	return event.Accepted(ev)
}

// reject fails an event that never reaches the backend and tells listeners.
func (e *Engine) reject(ctx context.Context, ev event.Event, err error) event.Result {
	res := event.Failed(ev, err)
	metrics.SyncEventsTotal.WithLabelValues(string(ev.Type), "rejected").Inc()
	e.logger.Debug("sync event rejected",
		zap.String("id", ev.ID), zap.String("event", string(ev.Type)), zap.Error(err))
	e.notify(ctx, ev, res)
	return res
}

// enqueue admits a fresh event, superseding any retry scheduled for its id.
func (e *Engine) enqueue(ev *event.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.queue.Has(ev.ID) && e.queue.Full() {
		if e.cfg.Overflow == OverflowReject {
			e.logger.Warn("sync queue full, event rejected",
				zap.String("id", ev.ID), zap.String("event", string(ev.Type)))
			return fmt.Errorf("enqueue %q: %w", ev.ID, domain.ErrQueueFull)
		}
		e.evictOldestLocked()
	}

	e.stampLocked(ev)
	e.cancelTimerLocked(ev.ID)
	delete(e.dead, ev.ID)
	e.queue.Put(*ev)
	e.setPendingLocked(ev.ID)
	metrics.SyncQueueDepth.Set(float64(e.queue.Len()))
	return nil
}

func (e *Engine) evictOldestLocked() {
	old, ok := e.queue.EvictOldest()
	if !ok {
		return
	}
	e.dead[old.ID] = deadLetter{event: old, err: errEvicted}
	rec := e.ledger[old.ID]
	rec.ID = old.ID
	rec.Failed(errEvicted, old.RetryCount, e.now())
	e.ledger[old.ID] = rec
	metrics.SyncQueueEvictionsTotal.Inc()
	e.logger.Warn("sync queue full, oldest event evicted",
		zap.String("id", old.ID),
		zap.String("event", string(old.Type)),
		zap.Time("enqueued_at", old.EnqueuedAt))
}

// stampLocked gives ev the next sequence number for its id. Every older
// event for the id, queued or awaiting retry, becomes stale.
func (e *Engine) stampLocked(ev *event.Event) {
	e.seq[ev.ID]++
	ev.Seq = e.seq[ev.ID]
}

func (e *Engine) currentLocked(ev event.Event) bool {
	return e.seq[ev.ID] == ev.Seq
}

func (e *Engine) setPendingLocked(id string) {
	rec := e.ledger[id]
	rec.ID = id
	rec.Pending(e.now())
	e.ledger[id] = rec
}

func (e *Engine) cancelTimerLocked(id string) {
	if t, ok := e.timers[id]; ok {
		t.Stop()
		delete(e.timers, id)
	}
}

// process applies one event, updates the ledger and notifies listeners.
// A stale event is skipped without touching the ledger or listeners.
func (e *Engine) process(ctx context.Context, ev event.Event) event.Result {
	e.mu.Lock()
	current := e.currentLocked(ev)
	e.mu.Unlock()
	if !current {
		e.logger.Debug("stale sync event skipped",
			zap.String("id", ev.ID), zap.String("event", string(ev.Type)), zap.Uint64("seq", ev.Seq))
		metrics.SyncEventsTotal.WithLabelValues(string(ev.Type), "superseded").Inc()
		return event.Failed(ev, ErrSuperseded)
	}

	err := e.safeApply(ctx, ev)
	now := e.now()

	var res event.Result
	if err == nil {
		res = event.Succeeded(ev, now)
		e.mu.Lock()
		if e.currentLocked(ev) {
			rec := e.ledger[ev.ID]
			rec.ID = ev.ID
			if ev.Type == event.Delete {
				rec.Deleted(now)
			} else {
				rec.Synced(now)
			}
			e.ledger[ev.ID] = rec
			delete(e.dead, ev.ID)
		}
		e.mu.Unlock()
		metrics.SyncEventsTotal.WithLabelValues(string(ev.Type), "success").Inc()
	} else {
		res = event.Failed(ev, err)
		e.handleFailure(ev, err)
		metrics.SyncEventsTotal.WithLabelValues(string(ev.Type), "failed").Inc()
	}

	e.notify(ctx, ev, res)
	return res
}

// safeApply converts a panicking backend call into an error so one event
// cannot take down the drain loop.
func (e *Engine) safeApply(ctx context.Context, ev event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("apply %s %q: panic: %v", ev.Type, ev.ID, r)
		}
	}()
	switch ev.Type {
	case event.Create, event.Update:
		if ev.Document == nil {
			return domain.MissingDocumentError(opApply, ev.ID)
		}
		return e.indexer.IndexDocument(ctx, *ev.Document)
	case event.Delete:
		return e.indexer.DeleteDocument(ctx, ev.ID)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
}

// handleFailure schedules a delayed retry while budget remains, otherwise
// pins the ledger at failed and parks the event in the dead-letter set.
func (e *Engine) handleFailure(ev event.Event, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.currentLocked(ev) {
		e.logger.Debug("failed sync event superseded, no retry",
			zap.String("id", ev.ID), zap.String("event", string(ev.Type)), zap.Error(err))
		return
	}

	rec := e.ledger[ev.ID]
	rec.ID = ev.ID
	now := e.now()

	if !domain.IsRetryable(err) || ev.RetryCount >= e.cfg.MaxRetries || e.closed {
		rec.Failed(err, ev.RetryCount, now)
		e.ledger[ev.ID] = rec
		e.dead[ev.ID] = deadLetter{event: ev, err: err}
		e.logger.Error("sync failed permanently",
			zap.String("id", ev.ID),
			zap.String("event", string(ev.Type)),
			zap.Int("retry", ev.RetryCount),
			zap.Bool("retryable", domain.IsRetryable(err)),
			zap.Error(err))
		return
	}

	next := ev
	next.RetryCount++
	delay := RetryDelay(e.cfg.RetryInterval, next.RetryCount)
	rec.Retrying(err, next.RetryCount, now)
	e.ledger[ev.ID] = rec

	e.cancelTimerLocked(ev.ID)
	var timer *time.Timer
	timer = e.after(delay, func() { e.requeue(next, timer) })
	e.timers[ev.ID] = timer
	metrics.SyncRetriesTotal.Inc()

	e.logger.Warn("sync attempt failed, retry scheduled",
		zap.String("id", ev.ID),
		zap.String("event", string(ev.Type)),
		zap.Int("retry", next.RetryCount),
		zap.Duration("delay", delay),
		zap.Error(err))
}

// requeue hands a due retry back to the engine unless a newer event for
// the same id superseded it. Realtime engines apply it on the timer goroutine.
func (e *Engine) requeue(ev event.Event, timer *time.Timer) {
	e.mu.Lock()
	if e.timers[ev.ID] != timer {
		e.mu.Unlock()
		return
	}
	delete(e.timers, ev.ID)
	if e.closed || e.queue.Has(ev.ID) || !e.currentLocked(ev) {
		e.mu.Unlock()
		return
	}
	if e.cfg.Mode == ModeRealtime {
		e.mu.Unlock()
		e.processSafe(context.Background(), ev)
		return
	}
	defer e.mu.Unlock()
	if e.queue.Full() {
		if e.cfg.Overflow == OverflowReject {
			e.dead[ev.ID] = deadLetter{event: ev, err: domain.ErrQueueFull}
			rec := e.ledger[ev.ID]
			rec.Failed(domain.ErrQueueFull, ev.RetryCount, e.now())
			e.ledger[ev.ID] = rec
			return
		}
		e.evictOldestLocked()
	}
	e.queue.Put(ev)
	metrics.SyncQueueDepth.Set(float64(e.queue.Len()))
}

// pendingRetries returns the number of scheduled retry timers.
func (e *Engine) pendingRetries() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.timers)
}
