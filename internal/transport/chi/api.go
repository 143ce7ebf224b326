package chi

import (
	"time"

	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/record"
)

// ErrorCode is the machine-readable error code of an API error.
type ErrorCode string

// API error codes.
const (
	ErrorCodeBadRequest         ErrorCode = "bad_request"
	ErrorCodeUnauthorized       ErrorCode = "unauthorized"
	ErrorCodeValidationFailed   ErrorCode = "validation_failed"
	ErrorCodeNotFound           ErrorCode = "not_found"
	ErrorCodeQueueFull          ErrorCode = "queue_full"
	ErrorCodeBackendUnavailable ErrorCode = "backend_unavailable"
	ErrorCodeBackendError       ErrorCode = "backend_error"
	ErrorCodeTimeout            ErrorCode = "timeout"
	ErrorCodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Details map[string]string `json:"details,omitempty"`
}

// SearchParams are the query-string parameters of GET /api/v1/search.
// List parameters are comma separated.
type SearchParams struct {
	Q            *string    `form:"q"`
	Type         *[]string  `form:"type"`
	Status       *[]string  `form:"status"`
	Category     *[]string  `form:"category"`
	Tags         *[]string  `form:"tags"`
	Author       *string    `form:"author"`
	AuthorID     *string    `form:"authorId"`
	DateField    *string    `form:"dateField"`
	From         *time.Time `form:"from"`
	To           *time.Time `form:"to"`
	Page         *int       `form:"page"`
	PageSize     *int       `form:"pageSize"`
	Sort         *string    `form:"sort"`
	Highlight    *bool      `form:"highlight"`
	FragmentSize *int       `form:"fragmentSize"`
	Fragments    *int       `form:"fragments"`
	Aggs         *[]string  `form:"aggs"`
	Suggest      *bool      `form:"suggest"`
}

// SuggestParams are the query-string parameters of GET /api/v1/suggest.
type SuggestParams struct {
	Q    string `form:"q"`
	Size *int   `form:"size"`
}

// SuggestResponse is the body of GET /api/v1/suggest.
type SuggestResponse struct {
	Query       string   `json:"query"`
	Suggestions []string `json:"suggestions"`
}

// StatsResponse is the body of GET /api/v1/stats.
type StatsResponse struct {
	Total  int64            `json:"total"`
	ByType map[string]int64 `json:"byType"`
	Sync   SyncStats        `json:"sync"`
}

// SyncStats summarizes the sync ledger.
type SyncStats struct {
	Mode    string         `json:"mode"`
	Queue   int            `json:"queue"`
	Records map[string]int `json:"records"`
}

// BulkRequest is the body of POST /api/v1/sync/bulk.
type BulkRequest struct {
	Documents []document.Document `json:"documents"`
}

// FlushResponse is the body of POST /api/v1/sync/flush.
type FlushResponse struct {
	Processed int `json:"processed"`
	Remaining int `json:"remaining"`
}

// RecordsResponse is the body of GET /api/v1/sync/records.
type RecordsResponse struct {
	Items []record.Record `json:"items"`
	Total int             `json:"total"`
}
