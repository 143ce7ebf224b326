package indexsync

import (
	"testing"
	"time"
)

func TestRetryDelay_StrictlyIncreasing(t *testing.T) {
	base := 10 * time.Millisecond
	want := []time.Duration{10, 20, 40, 80, 160}
	for i, w := range want {
		if got := RetryDelay(base, i+1); got != w*time.Millisecond {
			t.Errorf("RetryDelay(%d) = %v, want %v", i+1, got, w*time.Millisecond)
		}
	}
	if got := RetryDelay(base, 0); got != base {
		t.Errorf("RetryDelay(0) = %v, want base", got)
	}
	if got := RetryDelay(time.Millisecond, 1000); got != MaxRetryDelay {
		t.Errorf("RetryDelay(1ms, 1000) = %v, want %v", got, MaxRetryDelay)
	}
}

func TestRetryDelay_SaturatesWithLargeBase(t *testing.T) {
	base := 30 * time.Second
	prev := time.Duration(0)
	for n := 1; n <= 64; n++ {
		got := RetryDelay(base, n)
		if got <= 0 || got > MaxRetryDelay {
			t.Fatalf("RetryDelay(30s, %d) = %v, outside (0, %v]", n, got, MaxRetryDelay)
		}
		if got < prev {
			t.Fatalf("RetryDelay(30s, %d) = %v, below previous %v", n, got, prev)
		}
		if prev < MaxRetryDelay && got == prev {
			t.Fatalf("RetryDelay(30s, %d) = %v, did not grow before the cap", n, got)
		}
		prev = got
	}
	if prev != MaxRetryDelay {
		t.Errorf("RetryDelay(30s, 64) = %v, want %v", prev, MaxRetryDelay)
	}
	if got := RetryDelay(48*time.Hour, 1); got != MaxRetryDelay {
		t.Errorf("RetryDelay(48h, 1) = %v, want %v", got, MaxRetryDelay)
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	c := Config{MaxRetries: -1}.withDefaults()
	d := DefaultConfig()
	if c.Mode != d.Mode || c.BatchSize != d.BatchSize || c.MaxQueueSize != d.MaxQueueSize {
		t.Errorf("defaults not applied: %+v", c)
	}
	if c.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", c.MaxRetries)
	}
	if c.Overflow != OverflowEvictOldest {
		t.Errorf("Overflow = %q", c.Overflow)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"realtime reject", Config{Mode: ModeRealtime, Overflow: OverflowReject}, false},
		{"bad mode", Config{Mode: "batch", Overflow: OverflowReject}, true},
		{"bad overflow", Config{Mode: ModeQueued, Overflow: "drop"}, true},
		{"30s ten retries", Config{Mode: ModeQueued, Overflow: OverflowReject,
			MaxRetries: 10, RetryInterval: 30 * time.Second}, false},
		{"30s twenty retries", Config{Mode: ModeQueued, Overflow: OverflowReject,
			MaxRetries: 20, RetryInterval: 30 * time.Second}, true},
		{"retries above limit", Config{Mode: ModeQueued, Overflow: OverflowReject,
			MaxRetries: MaxRetriesLimit + 1, RetryInterval: time.Nanosecond}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
