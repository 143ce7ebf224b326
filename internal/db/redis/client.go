// Package redis implements the search backend over RediSearch and RedisJSON.
package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/searchsync/internal/db"
	"github.com/kailas-cloud/searchsync/internal/domain"
)

// Name is the provider name used in config and metrics.
const Name = "redis"

// Compile-time check: Store implements db.Adapter.
var _ db.Adapter = (*Store)(nil)

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	TLS      bool
}

// Store implements db.Adapter via rueidis for Redis 8+ (or Redis Stack).
// The client is created on Connect and shared by all callers.
type Store struct {
	cfg Config

	mu     sync.RWMutex
	client rueidis.Client
}

// NewStore validates cfg and returns a disconnected store.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	return &Store{cfg: cfg}, nil
}

// Name returns the backend name.
func (s *Store) Name() string { return Name }

// Connect creates the rueidis client. It is a no-op when already connected.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return nil
	}

	opt := rueidis.ClientOption{
		InitAddress:  s.cfg.Addrs,
		Username:     s.cfg.Username,
		Password:     s.cfg.Password,
		SelectDB:     s.cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	}
	if s.cfg.TLS {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := rueidis.NewClient(opt)
	if err != nil {
		return domain.ConnectionError(db.OpConnect, err)
	}
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return domain.ConnectionError(db.OpConnect, err)
	}
	s.client = client
	return nil
}

// Close shuts down the client.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
	return nil
}

// IsConnected reports whether a client exists.
func (s *Store) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil
}

// Ping sends PING and reports success.
func (s *Store) Ping(ctx context.Context) bool {
	c, err := s.conn(db.OpPing)
	if err != nil {
		return false
	}
	return c.Do(ctx, c.B().Ping().Build()).Error() == nil
}

func (s *Store) conn(op string) (rueidis.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, db.NotConnected(op)
	}
	return s.client, nil
}

// wrapErr classifies a command failure: transport errors are connection
// failures, server replies are failures of the operation kind.
func wrapErr(kind domain.Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := rueidis.IsRedisErr(err); ok {
		return domain.NewError(kind, op, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.TimeoutError(op, err)
	}
	return domain.ConnectionError(op, err)
}

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
