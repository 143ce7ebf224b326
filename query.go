package searchsync

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
)

// Field names usable in sorts, aggregations and date ranges.
const (
	FieldTitle     = document.FieldTitle
	FieldType      = document.FieldType
	FieldStatus    = document.FieldStatus
	FieldCategory  = document.FieldCategory
	FieldTags      = document.FieldTags
	FieldAuthor    = document.FieldAuthor
	FieldCreatedAt = document.FieldCreatedAt
	FieldUpdatedAt = document.FieldUpdatedAt
	FieldScore     = document.FieldScore
)

// QueryBuilder is a fluent builder for search queries.
// Build normalizes and validates the result.
type QueryBuilder struct {
	q   request.Query
	err error
}

// NewQuery starts a query for text. Empty text matches all documents.
func NewQuery(text string) *QueryBuilder {
	return &QueryBuilder{q: request.Query{Text: text}}
}

// Types restricts results to the given document types.
func (b *QueryBuilder) Types(types ...DocumentType) *QueryBuilder {
	b.q.Filters.Types = append(b.q.Filters.Types, types...)
	return b
}

// Statuses restricts results to documents with any of the given statuses.
func (b *QueryBuilder) Statuses(values ...string) *QueryBuilder {
	b.q.Filters.Statuses = append(b.q.Filters.Statuses, values...)
	return b
}

// Categories restricts results to any of the given categories.
func (b *QueryBuilder) Categories(values ...string) *QueryBuilder {
	b.q.Filters.Categories = append(b.q.Filters.Categories, values...)
	return b
}

// Tags restricts results to documents carrying any of the given tags.
func (b *QueryBuilder) Tags(values ...string) *QueryBuilder {
	b.q.Filters.Tags = append(b.q.Filters.Tags, values...)
	return b
}

// Author restricts results by author name and, when non-empty, author id.
func (b *QueryBuilder) Author(name, id string) *QueryBuilder {
	b.q.Filters.Author = name
	b.q.Filters.AuthorID = id
	return b
}

// Between restricts a date field to [from, to].
func (b *QueryBuilder) Between(field string, from, to time.Time) *QueryBuilder {
	return b.dateRange(field, &from, &to)
}

// Since restricts a date field to from onwards.
func (b *QueryBuilder) Since(field string, from time.Time) *QueryBuilder {
	return b.dateRange(field, &from, nil)
}

// Until restricts a date field to to and earlier.
func (b *QueryBuilder) Until(field string, to time.Time) *QueryBuilder {
	return b.dateRange(field, nil, &to)
}

func (b *QueryBuilder) dateRange(field string, from, to *time.Time) *QueryBuilder {
	if b.q.Filters.DateRange != nil {
		b.setErr(fmt.Errorf("%w: only one date range per query", ErrInvalidQuery))
		return b
	}
	b.q.Filters.DateRange = &filter.DateRange{Field: field, From: from, To: to}
	return b
}

// SortBy appends a sort key. Sorting by FieldScore keeps relevance order.
func (b *QueryBuilder) SortBy(field string, dir Direction) *QueryBuilder {
	b.q.Sort = append(b.q.Sort, request.SortField{Field: field, Direction: dir})
	return b
}

// Page selects a 1-based page of size results.
func (b *QueryBuilder) Page(page, size int) *QueryBuilder {
	b.q.Page = page
	b.q.PageSize = size
	return b
}

// Highlight enables highlighted fragments on title and content.
func (b *QueryBuilder) Highlight(fragmentSize, fragments int) *QueryBuilder {
	b.q.Highlight = true
	b.q.FragmentSize = fragmentSize
	b.q.Fragments = fragments
	return b
}

// Aggregate requests facet counts for the given fields.
func (b *QueryBuilder) Aggregate(fields ...string) *QueryBuilder {
	b.q.Aggregations = append(b.q.Aggregations, fields...)
	return b
}

// WithSuggestions asks for completion suggestions alongside the hits.
func (b *QueryBuilder) WithSuggestions() *QueryBuilder {
	b.q.Suggest = true
	return b
}

func (b *QueryBuilder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build returns the normalized query or the first validation error.
func (b *QueryBuilder) Build() (Query, error) {
	if b.err != nil {
		return Query{}, b.err
	}
	q := b.q.Normalize()
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}
