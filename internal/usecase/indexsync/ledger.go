package indexsync

import (
	"sort"

	"github.com/kailas-cloud/searchsync/internal/domain/record"
)

// Record returns the ledger entry for id.
func (e *Engine) Record(id string) (record.Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.ledger[id]
	return r, ok
}

// Records returns a snapshot of the ledger ordered by id.
func (e *Engine) Records() []record.Record {
	e.mu.Lock()
	out := make([]record.Record, 0, len(e.ledger))
	for _, r := range e.ledger {
		out = append(out, r)
	}
	e.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RecordsByStatus returns the ledger entries in the given state.
func (e *Engine) RecordsByStatus(status record.Status) []record.Record {
	var out []record.Record
	for _, r := range e.Records() {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// StatusCounts returns the number of ledger entries per state. Every state
// is present, with zero when unused.
func (e *Engine) StatusCounts() map[record.Status]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusCountsLocked()
}

func (e *Engine) statusCountsLocked() map[record.Status]int {
	counts := make(map[record.Status]int, 4)
	for _, s := range record.Statuses() {
		counts[s] = 0
	}
	for _, r := range e.ledger {
		counts[r.Status]++
	}
	return counts
}

// QueueLen returns the number of queued events.
func (e *Engine) QueueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Len()
}

// DeadLetters returns the ids that will not be retried automatically.
func (e *Engine) DeadLetters() []string {
	e.mu.Lock()
	ids := make([]string, 0, len(e.dead))
	for id := range e.dead {
		ids = append(ids, id)
	}
	e.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Reset forgets ledger and dead-letter state for ids, or for everything
// when no id is given. Queued events and scheduled retries are untouched.
func (e *Engine) Reset(ids ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(ids) == 0 {
		clear(e.ledger)
		clear(e.dead)
		return
	}
	for _, id := range ids {
		delete(e.ledger, id)
		delete(e.dead, id)
	}
}
