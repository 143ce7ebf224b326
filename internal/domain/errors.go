package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing document or index.
	ErrNotFound = errors.New("not found")
	// ErrInvalidDocument signals a document that fails model validation.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrInvalidQuery signals a malformed search query or filter.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNotConnected signals an adapter used before Connect or after Close.
	ErrNotConnected = errors.New("not connected")
	// ErrQueueFull signals a sync event refused by a full queue.
	ErrQueueFull = errors.New("sync queue full")

	// ErrConnection signals an unreachable backend.
	ErrConnection = errors.New("connection failure")
	// ErrIndexOperation signals a failed index create/delete/exists call.
	ErrIndexOperation = errors.New("index operation failure")
	// ErrSearch signals a failed query execution.
	ErrSearch = errors.New("search failure")
	// ErrDocumentMissing signals an event that required a payload but carried none.
	ErrDocumentMissing = errors.New("document missing")
	// ErrTimeout signals a backend task that did not finish within budget.
	ErrTimeout = errors.New("timeout")
)

// Kind classifies backend failures so callers can decide retry-worthiness.
type Kind string

const (
	// KindConnection is an unreachable backend.
	KindConnection Kind = "connection"
	// KindIndexOperation is a failed index lifecycle call or document mutation.
	KindIndexOperation Kind = "index_operation"
	// KindSearch is a failed query.
	KindSearch Kind = "search"
	// KindDocumentMissing is an event without its required payload.
	KindDocumentMissing Kind = "document_missing"
	// KindTimeout is an asynchronous backend task that ran out of time.
	KindTimeout Kind = "timeout"
)

func (k Kind) sentinel() error {
	switch k {
	case KindConnection:
		return ErrConnection
	case KindIndexOperation:
		return ErrIndexOperation
	case KindSearch:
		return ErrSearch
	case KindDocumentMissing:
		return ErrDocumentMissing
	case KindTimeout:
		return ErrTimeout
	default:
		return nil
	}
}

// Error is a classified failure carrying the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewError creates a classified error.
func NewError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// ConnectionError wraps err as a connection failure.
func ConnectionError(op string, err error) error {
	return NewError(KindConnection, op, err)
}

// IndexError wraps err as an index-operation failure.
func IndexError(op string, err error) error {
	return NewError(KindIndexOperation, op, err)
}

// SearchError wraps err as a search failure.
func SearchError(op string, err error) error {
	return NewError(KindSearch, op, err)
}

// TimeoutError wraps err as a task timeout.
func TimeoutError(op string, err error) error {
	return NewError(KindTimeout, op, err)
}

// MissingDocumentError reports an event for id that carried no payload.
func MissingDocumentError(op, id string) error {
	return NewError(KindDocumentMissing, op, fmt.Errorf("no payload for document %q", id))
}

// KindOf returns the kind of a classified error, or "" for unclassified ones.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsRetryable reports whether a failed sync attempt may succeed on retry.
// Missing payloads and invalid documents never will; everything else might.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDocumentMissing) || errors.Is(err, ErrInvalidDocument) {
		return false
	}
	return true
}
