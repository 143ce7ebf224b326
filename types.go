package searchsync

import (
	"time"

	"github.com/kailas-cloud/searchsync/internal/domain/batch"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/event"
	"github.com/kailas-cloud/searchsync/internal/domain/record"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	searchuc "github.com/kailas-cloud/searchsync/internal/usecase/search"
)

// Aliases of the domain types the client accepts and returns.
type (
	Document     = document.Document
	DocumentType = document.Type
	Query        = request.Query
	SortField    = request.SortField
	Direction    = request.Direction
	Result       = result.Result
	Hit          = result.Hit
	SyncEvent    = event.Event
	SyncResult   = event.Result
	EventType    = event.Type
	Record       = record.Record
	RecordStatus = record.Status
	BulkResult   = batch.Result
	Stats        = searchuc.Stats
	DocOption    = document.Option
)

// Document options.
var (
	WithDescription = document.WithDescription
	WithAuthor      = document.WithAuthor
	WithTags        = document.WithTags
	WithCategory    = document.WithCategory
	WithStatus      = document.WithStatus
	WithUpdatedAt   = document.WithUpdatedAt
	WithMetadata    = document.WithMetadata
)

// Lifecycle event types, for AddListener.
const (
	EventCreate = event.Create
	EventUpdate = event.Update
	EventDelete = event.Delete
)

// Document types.
const (
	TypeProject = document.TypeProject
	TypeTask    = document.TypeTask
	TypeArticle = document.TypeArticle
	TypePage    = document.TypePage
	TypeComment = document.TypeComment
	TypeUser    = document.TypeUser
	TypeFile    = document.TypeFile
)

// Sort directions.
const (
	Asc  = request.Asc
	Desc = request.Desc
)

// Ledger statuses.
const (
	StatusPending = record.StatusPending
	StatusSynced  = record.StatusSynced
	StatusFailed  = record.StatusFailed
	StatusDeleted = record.StatusDeleted
)

// NewDocument builds and validates a document.
func NewDocument(
	id string, t DocumentType, title, content string, createdAt time.Time, opts ...DocOption,
) (Document, error) {
	return document.New(id, t, title, content, createdAt, opts...)
}
