package indexsync

import (
	"fmt"
	"time"
)

// Mode selects how lifecycle events are delivered.
type Mode string

// Delivery modes.
const (
	// ModeRealtime applies events on the caller's path.
	ModeRealtime Mode = "realtime"
	// ModeQueued buffers events for the drain loop.
	ModeQueued Mode = "queued"
)

// OverflowPolicy decides what happens when the queue is full.
type OverflowPolicy string

// Overflow policies.
const (
	// OverflowEvictOldest drops the oldest queued event into the dead-letter set.
	OverflowEvictOldest OverflowPolicy = "evict_oldest"
	// OverflowReject refuses the new event with domain.ErrQueueFull.
	OverflowReject OverflowPolicy = "reject"
)

// Config tunes the engine. MaxRetries of zero disables automatic retries.
type Config struct {
	Mode          Mode
	BatchSize     int
	MaxRetries    int
	RetryInterval time.Duration
	MaxQueueSize  int
	DrainInterval time.Duration
	Overflow      OverflowPolicy
}

// DefaultConfig returns the queued-mode defaults.
func DefaultConfig() Config {
	return Config{
		Mode:          ModeQueued,
		BatchSize:     50,
		MaxRetries:    3,
		RetryInterval: time.Second,
		MaxQueueSize:  1000,
		DrainInterval: 5 * time.Second,
		Overflow:      OverflowEvictOldest,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = d.RetryInterval
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.DrainInterval <= 0 {
		c.DrainInterval = d.DrainInterval
	}
	if c.Overflow == "" {
		c.Overflow = d.Overflow
	}
	return c
}

// Validate rejects unknown enum values and retry budgets whose backoff
// would reach MaxRetryDelay.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeRealtime, ModeQueued:
	default:
		return fmt.Errorf("unknown sync mode %q", c.Mode)
	}
	switch c.Overflow {
	case OverflowEvictOldest, OverflowReject:
	default:
		return fmt.Errorf("unknown overflow policy %q", c.Overflow)
	}
	if c.MaxRetries > MaxRetriesLimit {
		return fmt.Errorf("max retries %d above limit %d", c.MaxRetries, MaxRetriesLimit)
	}
	if c.MaxRetries > 0 && RetryDelay(c.RetryInterval, c.MaxRetries) >= MaxRetryDelay {
		return fmt.Errorf("retry interval %s with %d retries reaches the %s backoff cap",
			c.RetryInterval, c.MaxRetries, MaxRetryDelay)
	}
	return nil
}

const (
	// MaxRetriesLimit bounds Config.MaxRetries.
	MaxRetriesLimit = 32
	// MaxRetryDelay caps a single backoff wait.
	MaxRetryDelay = 24 * time.Hour
)

// RetryDelay is the wait before retry number retry (1-based): base doubled
// once per prior attempt, saturating at MaxRetryDelay.
func RetryDelay(base time.Duration, retry int) time.Duration {
	if base <= 0 {
		return 0
	}
	if base >= MaxRetryDelay {
		return MaxRetryDelay
	}
	d := base
	for i := 1; i < retry; i++ {
		if d >= MaxRetryDelay/2 {
			return MaxRetryDelay
		}
		d *= 2
	}
	return d
}
