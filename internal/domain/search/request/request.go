package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
)

// Query limits and defaults.
const (
	// MaxQueryLength is the maximum allowed search text length.
	MaxQueryLength      = 4096
	DefaultPageSize     = 20
	MaxPageSize         = 100
	DefaultFragmentSize = 150
	DefaultFragments    = 3
	MaxFragments        = 10
	DefaultSuggestSize  = 5
	MaxSuggestSize      = 50
)

// Direction is a sort order.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortField is one sort clause.
type SortField struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// Query is a read request. Empty Text matches all documents.
type Query struct {
	Text         string         `json:"query"`
	Filters      filter.Filters `json:"filters"`
	Page         int            `json:"page"`
	PageSize     int            `json:"pageSize"`
	Sort         []SortField    `json:"sort,omitempty"`
	Highlight    bool           `json:"highlight,omitempty"`
	FragmentSize int            `json:"fragmentSize,omitempty"`
	Fragments    int            `json:"fragments,omitempty"`
	Aggregations []string       `json:"aggregations,omitempty"`
	Suggest      bool           `json:"suggest,omitempty"`
}

// Normalize fills defaults and clamps pagination and highlighting limits.
func (q Query) Normalize() Query {
	q.Text = strings.TrimSpace(q.Text)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if q.FragmentSize <= 0 {
		q.FragmentSize = DefaultFragmentSize
	}
	if q.Fragments <= 0 {
		q.Fragments = DefaultFragments
	}
	if q.Fragments > MaxFragments {
		q.Fragments = MaxFragments
	}
	for i := range q.Sort {
		if q.Sort[i].Direction == "" {
			q.Sort[i].Direction = Asc
		}
	}
	return q
}

// Validate rejects unknown sort and aggregation fields and bad filters.
func (q Query) Validate() error {
	if len(q.Text) > MaxQueryLength {
		return fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	for _, s := range q.Sort {
		if !document.IsSortable(s.Field) {
			return fmt.Errorf("%w: field %q is not sortable", domain.ErrInvalidQuery, s.Field)
		}
		if s.Direction != "" && s.Direction != Asc && s.Direction != Desc {
			return fmt.Errorf("%w: invalid sort direction %q", domain.ErrInvalidQuery, s.Direction)
		}
	}
	for _, a := range q.Aggregations {
		if !document.IsAggregatable(a) {
			return fmt.Errorf("%w: field %q is not aggregatable", domain.ErrInvalidQuery, a)
		}
	}
	if err := q.Filters.Validate(); err != nil {
		return fmt.Errorf("filters: %w", err)
	}
	return nil
}

// Offset returns the zero-based index of the first hit on the page.
func (q Query) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

// IsMatchAll reports whether the query carries no free text.
func (q Query) IsMatchAll() bool { return q.Text == "" }

// PrimarySort returns the first non-relevance sort clause, if any.
func (q Query) PrimarySort() (SortField, bool) {
	for _, s := range q.Sort {
		if s.Field != document.FieldScore {
			return s, true
		}
	}
	return SortField{}, false
}

// ParseSort parses "createdAt:desc,title" into sort clauses.
func ParseSort(s string) ([]SortField, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]SortField, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		field, dir, _ := strings.Cut(p, ":")
		sf := SortField{Field: field, Direction: Asc}
		switch strings.ToLower(dir) {
		case "", "asc":
		case "desc":
			sf.Direction = Desc
		default:
			return nil, fmt.Errorf("%w: invalid sort direction %q", domain.ErrInvalidQuery, dir)
		}
		if !document.IsSortable(field) {
			return nil, fmt.Errorf("%w: field %q is not sortable", domain.ErrInvalidQuery, field)
		}
		out = append(out, sf)
	}
	return out, nil
}

// ClampSuggestSize normalizes a suggestion count.
func ClampSuggestSize(n int) int {
	if n <= 0 {
		return DefaultSuggestSize
	}
	if n > MaxSuggestSize {
		return MaxSuggestSize
	}
	return n
}
