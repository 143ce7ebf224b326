package indexsync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/domain/event"
	"github.com/kailas-cloud/searchsync/internal/metrics"
)

type drainLoop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Start launches the periodic drain worker. It is a no-op in realtime mode
// or when the worker is already running.
func (e *Engine) Start(ctx context.Context) {
	if e.cfg.Mode != ModeQueued {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loop != nil || e.closed {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	l := &drainLoop{cancel: cancel, done: make(chan struct{})}
	e.loop = l

	go func() {
		defer close(l.done)
		ticker := time.NewTicker(e.cfg.DrainInterval)
		defer ticker.Stop()
		e.logger.Info("sync drain loop started",
			zap.Duration("interval", e.cfg.DrainInterval),
			zap.Int("batch_size", e.cfg.BatchSize))
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.ProcessQueue(ctx)
			}
		}
	}()
}

// Stop halts the drain worker and cancels scheduled retries. Events still
// queued stay queued and can be flushed with ProcessQueue.
func (e *Engine) Stop() {
	e.mu.Lock()
	l := e.loop
	e.loop = nil
	e.closed = true
	for id, t := range e.timers {
		t.Stop()
		delete(e.timers, id)
	}
	e.mu.Unlock()

	if l != nil {
		l.cancel()
		<-l.done
		e.logger.Info("sync drain loop stopped")
	}
}

// ProcessQueue pops up to one batch and applies it sequentially. It returns
// the number of events processed. Concurrent calls are serialized.
func (e *Engine) ProcessQueue(ctx context.Context) int {
	e.drainMu.Lock()
	defer e.drainMu.Unlock()

	e.mu.Lock()
	batch := e.queue.Pop(e.cfg.BatchSize)
	e.mu.Unlock()

	for _, ev := range batch {
		e.processSafe(ctx, ev)
	}
	e.publishGauges()
	if len(batch) > 0 {
		e.logger.Debug("sync batch processed", zap.Int("events", len(batch)))
	}
	return len(batch)
}

// Flush drains the queue until it is empty or ctx is done.
func (e *Engine) Flush(ctx context.Context) int {
	total := 0
	for ctx.Err() == nil {
		n := e.ProcessQueue(ctx)
		if n == 0 {
			break
		}
		total += n
	}
	return total
}

// processSafe isolates one event so that a failure cannot abort the batch.
func (e *Engine) processSafe(ctx context.Context, ev event.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("sync event panicked",
				zap.String("id", ev.ID), zap.Any("panic", r))
			e.handleFailure(ev, fmt.Errorf("apply %s %q: panic: %v", ev.Type, ev.ID, r))
		}
	}()
	e.process(ctx, ev)
}

func (e *Engine) publishGauges() {
	e.mu.Lock()
	depth := e.queue.Len()
	counts := e.statusCountsLocked()
	e.mu.Unlock()

	metrics.SyncQueueDepth.Set(float64(depth))
	for status, n := range counts {
		metrics.SyncLedgerEntries.WithLabelValues(string(status)).Set(float64(n))
	}
}
