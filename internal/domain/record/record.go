package record

import "time"

// Status is the sync state of one document id.
type Status string

// Sync states. Absence of a record means the id was never seen.
const (
	StatusPending Status = "pending"
	StatusSynced  Status = "synced"
	StatusFailed  Status = "failed"
	StatusDeleted Status = "deleted"
)

// Statuses lists every sync state.
func Statuses() []Status {
	return []Status{StatusPending, StatusSynced, StatusFailed, StatusDeleted}
}

// Record is the single ledger entry for a document id. It is overwritten on every transition.
type Record struct {
	ID           string     `json:"id"`
	Status       Status     `json:"status"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
	LastError    string     `json:"lastError,omitempty"`
	RetryCount   int        `json:"retryCount"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Pending marks the record as awaiting application.
func (r *Record) Pending(now time.Time) {
	r.Status = StatusPending
	r.UpdatedAt = now
}

// Synced marks a successful application and clears the failure state.
func (r *Record) Synced(now time.Time) {
	r.Status = StatusSynced
	r.LastSyncedAt = &now
	r.LastError = ""
	r.RetryCount = 0
	r.UpdatedAt = now
}

// Deleted marks a successfully applied delete.
func (r *Record) Deleted(now time.Time) {
	r.Synced(now)
	r.Status = StatusDeleted
}

// Failed marks a failed attempt with the given retry counter.
func (r *Record) Failed(err error, retries int, now time.Time) {
	r.Status = StatusFailed
	r.RetryCount = retries
	if err != nil {
		r.LastError = err.Error()
	}
	r.UpdatedAt = now
}

// Retrying keeps the record pending while a retry is scheduled, retaining the last error.
func (r *Record) Retrying(err error, retries int, now time.Time) {
	r.Failed(err, retries, now)
	r.Status = StatusPending
}
