package indexsync

import (
	"container/list"

	"github.com/kailas-cloud/searchsync/internal/domain/event"
)

// queue is a bounded FIFO with at most one entry per document id.
// It is not safe for concurrent use; the engine guards it.
type queue struct {
	max   int
	order *list.List
	byID  map[string]*list.Element
}

func newQueue(maxSize int) *queue {
	return &queue{max: maxSize, order: list.New(), byID: make(map[string]*list.Element)}
}

func (q *queue) Len() int { return q.order.Len() }

func (q *queue) Full() bool { return q.order.Len() >= q.max }

func (q *queue) Has(id string) bool {
	_, ok := q.byID[id]
	return ok
}

// Put stores e. An event already queued for the same id is replaced in
// place and keeps its admission position. It reports whether e coalesced.
func (q *queue) Put(e event.Event) (coalesced bool) {
	if el, ok := q.byID[e.ID]; ok {
		el.Value = e
		return true
	}
	q.byID[e.ID] = q.order.PushBack(e)
	return false
}

// Remove drops the entry for id and reports whether one was queued.
func (q *queue) Remove(id string) bool {
	el, ok := q.byID[id]
	if !ok {
		return false
	}
	q.order.Remove(el)
	delete(q.byID, id)
	return true
}

// EvictOldest removes and returns the front entry.
func (q *queue) EvictOldest() (event.Event, bool) {
	return q.popFront()
}

// Pop removes up to n events in FIFO order.
func (q *queue) Pop(n int) []event.Event {
	out := make([]event.Event, 0, min(n, q.order.Len()))
	for len(out) < n {
		e, ok := q.popFront()
		if !ok {
			break
		}
		out = append(out, e)
	}
	return out
}

func (q *queue) popFront() (event.Event, bool) {
	el := q.order.Front()
	if el == nil {
		return event.Event{}, false
	}
	e := q.order.Remove(el).(event.Event)
	delete(q.byID, e.ID)
	return e, true
}
