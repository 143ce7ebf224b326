// Package meili implements the search backend over Meilisearch.
//
// Every write is an asynchronous task on the server. The store waits for each
// task with a bounded timeout so callers observe completed writes.
package meili

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kailas-cloud/searchsync/internal/db"
	"github.com/kailas-cloud/searchsync/internal/domain"
)

// Name is the provider name used in config and metrics.
const Name = "meilisearch"

const (
	defaultTaskTimeout  = 30 * time.Second
	defaultPollInterval = 100 * time.Millisecond
)

var _ db.Adapter = (*Store)(nil)

// Config holds connection parameters for a Meilisearch store.
type Config struct {
	// Host is the base URL, e.g. http://localhost:7700.
	Host   string
	APIKey string
	// TaskTimeout bounds the wait for one write task.
	TaskTimeout time.Duration
	// PollInterval is the task status polling period.
	PollInterval time.Duration
}

// Store implements db.Adapter over the Meilisearch HTTP API.
type Store struct {
	cfg        Config
	newBackend func(Config) backend

	mu     sync.RWMutex
	client backend
}

// NewStore validates cfg and returns a disconnected store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		return nil, errors.New("host is required")
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = defaultTaskTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Store{
		cfg:        cfg,
		newBackend: func(c Config) backend { return newSDK(c.Host, c.APIKey) },
	}, nil
}

// Name returns the backend name.
func (s *Store) Name() string { return Name }

// Connect creates the client and checks server health.
func (s *Store) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return nil
	}
	c := s.newBackend(s.cfg)
	if err := c.Health(); err != nil {
		return domain.ConnectionError(db.OpConnect, err)
	}
	s.client = c
	return nil
}

// Close drops the client. The HTTP transport holds no server-side state.
func (s *Store) Close() error {
	s.mu.Lock()
	s.client = nil
	s.mu.Unlock()
	return nil
}

// IsConnected reports whether a client exists.
func (s *Store) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil
}

// Ping calls the health endpoint.
func (s *Store) Ping(context.Context) bool {
	c, err := s.conn(db.OpPing)
	if err != nil {
		return false
	}
	return c.Health() == nil
}

func (s *Store) conn(op string) (backend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, db.NotConnected(op)
	}
	return s.client, nil
}

// wait blocks on a write task. Running out of TaskTimeout is a timeout
// failure; a task that finished unsuccessfully is a failure of kind.
func (s *Store) wait(ctx context.Context, c backend, kind domain.Kind, op string, taskUID int64) error {
	tctx, cancel := context.WithTimeout(ctx, s.cfg.TaskTimeout)
	defer cancel()

	err := c.WaitTask(tctx, taskUID, s.cfg.PollInterval)
	if err == nil {
		return nil
	}
	if errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return domain.TimeoutError(db.OpWaitTask,
			fmt.Errorf("%s: task %d not finished after %s", op, taskUID, s.cfg.TaskTimeout))
	}
	if ctx.Err() != nil {
		return domain.TimeoutError(op, ctx.Err())
	}
	return domain.NewError(kind, op, err)
}

// wrapErr classifies a request failure. API replies are failures of kind;
// anything that never reached the API is a connection failure.
func wrapErr(kind domain.Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.TimeoutError(op, err)
	}
	if isAPIError(err) {
		return domain.NewError(kind, op, err)
	}
	return domain.ConnectionError(op, err)
}
