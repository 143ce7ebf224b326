package record

import (
	"errors"
	"testing"
	"time"
)

func TestTransitions(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	r := Record{ID: "d"}

	r.Pending(now)
	if r.Status != StatusPending || r.LastSyncedAt != nil {
		t.Fatalf("after Pending: %+v", r)
	}

	r.Failed(errors.New("timeout"), 2, now.Add(time.Second))
	if r.Status != StatusFailed || r.RetryCount != 2 || r.LastError != "timeout" {
		t.Fatalf("after Failed: %+v", r)
	}

	r.Synced(now.Add(2 * time.Second))
	if r.Status != StatusSynced || r.RetryCount != 0 || r.LastError != "" {
		t.Fatalf("after Synced: %+v", r)
	}
	if r.LastSyncedAt == nil || !r.LastSyncedAt.Equal(now.Add(2*time.Second)) {
		t.Errorf("LastSyncedAt = %v", r.LastSyncedAt)
	}

	r.Deleted(now.Add(3 * time.Second))
	if r.Status != StatusDeleted {
		t.Errorf("after Deleted: %+v", r)
	}
}

func TestRetrying_StaysPending(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	r := Record{ID: "d"}
	r.Retrying(errors.New("conn refused"), 1, now)
	if r.Status != StatusPending || r.RetryCount != 1 || r.LastError != "conn refused" {
		t.Errorf("after Retrying: %+v", r)
	}
}
