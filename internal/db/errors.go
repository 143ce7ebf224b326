package db

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/searchsync/internal/domain"
)

// Op names used as domain.Error.Op and metric labels.
const (
	OpConnect        = "connect"
	OpPing           = "ping"
	OpCreateIndex    = "create_index"
	OpDeleteIndex    = "delete_index"
	OpIndexExists    = "index_exists"
	OpIndexDocument  = "index_document"
	OpBulkIndex      = "bulk_index"
	OpUpdateDocument = "update_document"
	OpDeleteDocument = "delete_document"
	OpGetDocument    = "get_document"
	OpSearch         = "search"
	OpSuggest        = "suggest"
	OpCount          = "count"
	OpWaitTask       = "wait_task"
)

// NotConnected is returned by adapters used before Connect or after Close.
func NotConnected(op string) error {
	return domain.ConnectionError(op, domain.ErrNotConnected)
}

// NotFound reports a missing document.
func NotFound(index, id string) error {
	return fmt.Errorf("document %q in %q: %w", id, index, domain.ErrNotFound)
}

// IndexOp classifies err as an index operation failure unless it already carries a kind.
func IndexOp(op string, err error) error {
	return classify(domain.KindIndexOperation, op, err)
}

// SearchOp classifies err as a search failure unless it already carries a kind.
func SearchOp(op string, err error) error {
	return classify(domain.KindSearch, op, err)
}

func classify(kind domain.Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) || errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return domain.NewError(kind, op, err)
}

func isNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }
