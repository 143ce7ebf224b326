package event

import (
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/searchsync/internal/domain/document"
)

func TestNew_TakesIdentityFromDocument(t *testing.T) {
	now := time.Now()
	doc := &document.Document{ID: "p-1", Type: document.TypeProject}
	e := New(Update, doc, now)
	if e.ID != "p-1" || e.DocType != document.TypeProject {
		t.Errorf("identity = %q/%q", e.ID, e.DocType)
	}
	if !e.NeedsPayload() {
		t.Error("update should need a payload")
	}
	if !e.EnqueuedAt.Equal(now) {
		t.Errorf("EnqueuedAt = %v", e.EnqueuedAt)
	}
}

func TestNewDelete(t *testing.T) {
	e := NewDelete("c-9", document.TypeComment, time.Now())
	if e.Document != nil {
		t.Error("delete should carry no document")
	}
	if e.NeedsPayload() {
		t.Error("delete should not need a payload")
	}
}

func TestResults(t *testing.T) {
	e := NewDelete("x", document.TypeTask, time.Now())
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	ok := Succeeded(e, at)
	if !ok.Success || ok.SyncedAt == nil || !ok.SyncedAt.Equal(at) {
		t.Errorf("Succeeded = %+v", ok)
	}

	acc := Accepted(e)
	if !acc.Success || acc.SyncedAt != nil {
		t.Errorf("Accepted = %+v", acc)
	}

	cause := errors.New("backend down")
	bad := Failed(e, cause)
	if bad.Success || bad.Error != "backend down" || !errors.Is(bad.Cause, cause) {
		t.Errorf("Failed = %+v", bad)
	}
	if bad.EventType != Delete || bad.DocumentType != document.TypeTask {
		t.Errorf("Failed identity = %+v", bad)
	}
}

func TestParseType(t *testing.T) {
	for _, typ := range Types() {
		if got, err := ParseType(string(typ)); err != nil || got != typ {
			t.Errorf("ParseType(%q) = %q, %v", typ, got, err)
		}
	}
	if _, err := ParseType("upsert"); err == nil {
		t.Error("expected error for unknown type")
	}
}
