package batch

import "sort"

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Item is the outcome of one document in a bulk operation.
type Item struct {
	ID     string
	Status ItemStatus
	Err    error
}

// Result accumulates per-item outcomes of a bulk operation. A bulk call never
// fails as a whole because one item failed.
type Result struct {
	Success   int               `json:"success"`
	Failed    int               `json:"failed"`
	FailedIDs []string          `json:"failedIds,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// OK records a successful item.
func (r *Result) OK(string) { r.Success++ }

// Fail records a failed item with its cause.
func (r *Result) Fail(id string, err error) {
	r.Failed++
	r.FailedIDs = append(r.FailedIDs, id)
	if err != nil {
		if r.Errors == nil {
			r.Errors = make(map[string]string)
		}
		r.Errors[id] = err.Error()
	}
}

// Add records an item outcome.
func (r *Result) Add(it Item) {
	if it.Status == StatusOK {
		r.OK(it.ID)
		return
	}
	r.Fail(it.ID, it.Err)
}

// Merge folds another result into r.
func (r *Result) Merge(o Result) {
	r.Success += o.Success
	r.Failed += o.Failed
	r.FailedIDs = append(r.FailedIDs, o.FailedIDs...)
	for id, msg := range o.Errors {
		if r.Errors == nil {
			r.Errors = make(map[string]string)
		}
		r.Errors[id] = msg
	}
}

// FailAll marks every id as failed with the same cause.
func (r *Result) FailAll(ids []string, err error) {
	for _, id := range ids {
		r.Fail(id, err)
	}
}

// Total returns the number of items processed.
func (r Result) Total() int { return r.Success + r.Failed }

// HasFailures reports whether any item failed.
func (r Result) HasFailures() bool { return r.Failed > 0 }

// IsFailed reports whether id was recorded as failed.
func (r Result) IsFailed(id string) bool {
	for _, f := range r.FailedIDs {
		if f == id {
			return true
		}
	}
	return false
}

// SortedFailedIDs returns the failed ids in lexical order.
func (r Result) SortedFailedIDs() []string {
	out := append([]string(nil), r.FailedIDs...)
	sort.Strings(out)
	return out
}
