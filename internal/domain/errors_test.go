package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_UnwrapsKindAndCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("initialize: %w", ConnectionError("connect", cause))

	if !errors.Is(err, ErrConnection) {
		t.Error("errors.Is(err, ErrConnection) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
	var de *Error
	if !errors.As(err, &de) || de.Op != "connect" {
		t.Errorf("errors.As = %+v", de)
	}
	if KindOf(err) != KindConnection {
		t.Errorf("KindOf = %q", KindOf(err))
	}
}

func TestKindOf_Unclassified(t *testing.T) {
	if k := KindOf(errors.New("plain")); k != "" {
		t.Errorf("KindOf = %q, want empty", k)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection", ConnectionError("ping", errors.New("x")), true},
		{"timeout", TimeoutError("task", nil), true},
		{"index op", IndexError("index_document", errors.New("x")), true},
		{"search", SearchError("search", errors.New("x")), true},
		{"unclassified", errors.New("x"), true},
		{"missing payload", MissingDocumentError("apply", "d-1"), false},
		{"invalid document", fmt.Errorf("%w: no title", ErrInvalidDocument), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError_Message(t *testing.T) {
	err := TimeoutError("wait_task", nil)
	if err.Error() != "wait_task: timeout" {
		t.Errorf("Error() = %q", err.Error())
	}
}
