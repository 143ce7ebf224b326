package searchsync

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/usecase/indexsync"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

const (
	providerMemory = "memory"
	providerRedis  = "redis"
	providerMeili  = "meilisearch"

	defaultIndexName = "documents"
)

type clientConfig struct {
	provider string // memory, redis or meilisearch
	addrs    []string
	username string
	password string
	db       int
	tls      bool

	host        string
	apiKey      string
	taskTimeout time.Duration

	indexName      string
	connectRetries int
	connectDelay   time.Duration

	sync indexsync.Config

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		provider:  providerMemory,
		indexName: defaultIndexName,
		sync:      indexsync.DefaultConfig(),
	}
}

// WithMemory keeps the index in process. This is the default.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = providerMemory
	})
}

// WithRedis configures the client to use a Redis instance with the search
// and JSON modules.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = providerRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedisACL sets an ACL username and enables TLS for Redis.
func WithRedisACL(username string, tls bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.tls = tls
	})
}

// WithRedisDB selects the Redis logical database.
func WithRedisDB(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.db = n
	})
}

// WithMeilisearch configures the client to use a Meilisearch server.
// host is a base URL such as http://localhost:7700.
func WithMeilisearch(host, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = providerMeili
		c.host = host
		c.apiKey = apiKey
	})
}

// WithTaskTimeout bounds the wait for one Meilisearch write task.
func WithTaskTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.taskTimeout = d
	})
}

// WithIndex sets the index name. Default: "documents".
func WithIndex(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexName = name
	})
}

// WithConnectRetry sets the connect attempts and the initial backoff delay.
func WithConnectRetry(attempts int, delay time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.connectRetries = attempts
		c.connectDelay = delay
	})
}

// WithRealtime applies every lifecycle event on the caller's goroutine.
func WithRealtime() Option {
	return optionFunc(func(c *clientConfig) {
		c.sync.Mode = indexsync.ModeRealtime
	})
}

// WithQueued buffers lifecycle events and drains batchSize of them every
// interval once Start is called. This is the default mode.
func WithQueued(batchSize int, interval time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.sync.Mode = indexsync.ModeQueued
		c.sync.BatchSize = batchSize
		c.sync.DrainInterval = interval
	})
}

// WithRetries sets the automatic retry budget and the base backoff delay.
// A budget of zero disables automatic retries.
func WithRetries(maxRetries int, interval time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.sync.MaxRetries = maxRetries
		c.sync.RetryInterval = interval
	})
}

// WithQueueLimit bounds the sync queue. When reject is true a full queue
// refuses new events with ErrQueueFull; otherwise the oldest event is evicted.
func WithQueueLimit(size int, reject bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.sync.MaxQueueSize = size
		c.sync.Overflow = indexsync.OverflowEvictOldest
		if reject {
			c.sync.Overflow = indexsync.OverflowReject
		}
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
