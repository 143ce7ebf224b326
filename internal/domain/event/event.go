package event

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
)

// Type is a document lifecycle change.
type Type string

// Event types.
const (
	Create Type = "create"
	Update Type = "update"
	Delete Type = "delete"
)

// Types lists all event types.
func Types() []Type { return []Type{Create, Update, Delete} }

// Valid reports whether t is a known event type.
func (t Type) Valid() bool {
	return t == Create || t == Update || t == Delete
}

// ParseType converts s to a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown event type %q", domain.ErrInvalidQuery, s)
	}
	return t, nil
}

// Event is a unit of synchronization work. Document is nil for deletes.
type Event struct {
	ID         string             `json:"id"`
	Type       Type               `json:"type"`
	DocType    document.Type      `json:"docType"`
	Document   *document.Document `json:"document,omitempty"`
	EnqueuedAt time.Time          `json:"enqueuedAt"`
	RetryCount int                `json:"retryCount"`

	// Seq orders events for the same id. A retry keeps the Seq of the
	// attempt it repeats, so a newer event makes it stale.
	Seq uint64 `json:"seq,omitempty"`
}

// New creates an event for a document mutation.
func New(t Type, doc *document.Document, now time.Time) Event {
	e := Event{Type: t, Document: doc, EnqueuedAt: now}
	if doc != nil {
		e.ID = doc.ID
		e.DocType = doc.Type
	}
	return e
}

// NewDelete creates a delete event, which carries no payload.
func NewDelete(id string, docType document.Type, now time.Time) Event {
	return Event{ID: id, Type: Delete, DocType: docType, EnqueuedAt: now}
}

// NeedsPayload reports whether applying the event requires a document.
func (e Event) NeedsPayload() bool { return e.Type != Delete }

// Result is the outcome of applying (or accepting) one event.
type Result struct {
	Success      bool          `json:"success"`
	DocumentID   string        `json:"documentId"`
	DocumentType document.Type `json:"documentType"`
	EventType    Type          `json:"eventType"`
	Error        string        `json:"error,omitempty"`
	SyncedAt     *time.Time    `json:"syncedAt,omitempty"`

	// Cause is the underlying error for in-process callers.
	Cause error `json:"-"`
}

// Succeeded builds a successful result stamped at t.
func Succeeded(e Event, t time.Time) Result {
	return Result{
		Success:      true,
		DocumentID:   e.ID,
		DocumentType: e.DocType,
		EventType:    e.Type,
		SyncedAt:     &t,
	}
}

// Accepted builds an optimistic result for a queued event; it has no sync time.
func Accepted(e Event) Result {
	return Result{
		Success:      true,
		DocumentID:   e.ID,
		DocumentType: e.DocType,
		EventType:    e.Type,
	}
}

// Failed builds a failure result carrying err.
func Failed(e Event, err error) Result {
	r := Result{
		DocumentID:   e.ID,
		DocumentType: e.DocType,
		EventType:    e.Type,
		Cause:        err,
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
