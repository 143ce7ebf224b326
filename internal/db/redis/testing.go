package redis

import "github.com/redis/rueidis"

// NewStoreForTest creates a connected Store around the provided rueidis client (test-only).
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{cfg: Config{Addrs: []string{"mock"}}, client: c}
}
