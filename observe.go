package searchsync

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// clientMetrics holds prometheus metrics registered for the client.
type clientMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	syncEvents *prometheus.CounterVec
}

func newClientMetrics(reg prometheus.Registerer) (*clientMetrics, error) {
	m := &clientMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "searchsync",
			Subsystem: "client",
			Name:      "operations_total",
			Help:      "Total client operations by type and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "searchsync",
			Subsystem: "client",
			Name:      "operation_duration_seconds",
			Help:      "Client operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		syncEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "searchsync",
			Subsystem: "client",
			Name:      "sync_events_total",
			Help:      "Lifecycle events submitted through the client by event, document type and outcome.",
		}, []string{"event", "document_type", "outcome"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.syncEvents); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("searchsync: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("searchsync: register metric: %w", err)
	}
	return nil
}

// observer provides logging and metrics for client operations.
type observer struct {
	logger  *zap.Logger
	metrics *clientMetrics
}

func newObserver(logger *zap.Logger, reg prometheus.Registerer) (*observer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var m *clientMetrics
	if reg != nil {
		var err error
		m, err = newClientMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

func (o *observer) observe(op string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)

	if o.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	if err != nil {
		o.logger.Warn("operation failed",
			zap.String("op", op),
			zap.Duration("duration", dur),
			zap.Error(err),
		)
		return
	}
	o.logger.Debug("operation completed",
		zap.String("op", op),
		zap.Duration("duration", dur),
	)
}

// Sync outcomes as reported by observeSync.
const (
	outcomeApplied    = "applied"
	outcomeQueued     = "queued"
	outcomeRejected   = "rejected"
	outcomeSuperseded = "superseded"
	outcomeFailed     = "failed"
)

// syncOutcome classifies a lifecycle event result.
func syncOutcome(res SyncResult) string {
	switch {
	case res.Success && res.SyncedAt == nil:
		return outcomeQueued
	case res.Success:
		return outcomeApplied
	case errors.Is(res.Cause, ErrSuperseded):
		return outcomeSuperseded
	case errors.Is(res.Cause, ErrInvalidDocument),
		errors.Is(res.Cause, ErrDocumentMissing),
		errors.Is(res.Cause, ErrQueueFull):
		return outcomeRejected
	default:
		return outcomeFailed
	}
}

// observeSync records a lifecycle event submission. Failures are logged with
// the document they concern; a failed apply may still be retried.
func (o *observer) observeSync(op string, start time.Time, res SyncResult) {
	if o == nil {
		return
	}
	outcome := syncOutcome(res)
	if o.metrics != nil {
		o.metrics.syncEvents.WithLabelValues(string(res.EventType), string(res.DocumentType), outcome).Inc()
	}

	fields := []zap.Field{
		zap.String("op", op),
		zap.String("id", res.DocumentID),
		zap.String("event", string(res.EventType)),
		zap.String("outcome", outcome),
	}
	switch outcome {
	case outcomeFailed:
		o.logger.Warn("sync event failed", append(fields, zap.Error(res.Cause))...)
	case outcomeRejected:
		o.logger.Info("sync event rejected", append(fields, zap.Error(res.Cause))...)
	}
	o.observe(op, start, res.Cause)
}
