package searchsync

import "sync/atomic"

var defaultClient atomic.Pointer[Client]

// Default returns the process-wide client, or nil when none was set.
func Default() *Client { return defaultClient.Load() }

// SetDefault installs c as the process-wide client and returns the previous one.
func SetDefault(c *Client) *Client { return defaultClient.Swap(c) }
