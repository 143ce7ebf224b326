package filter

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
)

// MaxValuesPerField caps each set-membership constraint.
const MaxValuesPerField = 64

// Filters is a conjunctive predicate over keyword fields. Empty constraints are ignored.
type Filters struct {
	Types      []document.Type `json:"type,omitempty"`
	Statuses   []string        `json:"status,omitempty"`
	Categories []string        `json:"category,omitempty"`
	Tags       []string        `json:"tags,omitempty"`
	Author     string          `json:"author,omitempty"`
	AuthorID   string          `json:"authorId,omitempty"`
	DateRange  *DateRange      `json:"dateRange,omitempty"`
}

// DateRange bounds a timestamp field. Nil bounds are open.
type DateRange struct {
	Field string     `json:"field"`
	From  *time.Time `json:"from,omitempty"`
	To    *time.Time `json:"to,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (f Filters) IsEmpty() bool {
	return len(f.Types) == 0 && len(f.Statuses) == 0 && len(f.Categories) == 0 &&
		len(f.Tags) == 0 && f.Author == "" && f.AuthorID == "" && f.DateRange == nil
}

// Validate rejects unknown types, oversized sets and malformed date ranges.
func (f Filters) Validate() error {
	for _, t := range f.Types {
		if !t.Valid() {
			return fmt.Errorf("%w: unknown type %q", domain.ErrInvalidQuery, t)
		}
	}
	sets := map[string]int{
		document.FieldType:     len(f.Types),
		document.FieldStatus:   len(f.Statuses),
		document.FieldCategory: len(f.Categories),
		document.FieldTags:     len(f.Tags),
	}
	for field, n := range sets {
		if n > MaxValuesPerField {
			return fmt.Errorf("%w: too many %s values (max %d)", domain.ErrInvalidQuery, field, MaxValuesPerField)
		}
	}
	if f.DateRange != nil {
		return f.DateRange.Validate()
	}
	return nil
}

// Validate checks the field name and bound ordering.
func (r DateRange) Validate() error {
	if !document.IsDateField(r.Field) {
		return fmt.Errorf("%w: %q is not a date field", domain.ErrInvalidQuery, r.Field)
	}
	if r.From == nil && r.To == nil {
		return fmt.Errorf("%w: date range needs from or to", domain.ErrInvalidQuery)
	}
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return fmt.Errorf("%w: date range from is after to", domain.ErrInvalidQuery)
	}
	return nil
}

// Contains reports whether t falls inside the inclusive range.
func (r DateRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// Matches evaluates the predicate against d in process.
func (f Filters) Matches(d *document.Document) bool {
	if len(f.Types) > 0 && !contains(f.Types, d.Type) {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, d.Status) {
		return false
	}
	if len(f.Categories) > 0 && !contains(f.Categories, d.Category) {
		return false
	}
	if len(f.Tags) > 0 && !anyTag(f.Tags, d) {
		return false
	}
	if f.Author != "" && f.Author != d.Author {
		return false
	}
	if f.AuthorID != "" && f.AuthorID != d.AuthorID {
		return false
	}
	if f.DateRange != nil {
		var ts *time.Time
		switch f.DateRange.Field {
		case document.FieldCreatedAt:
			ts = &d.CreatedAt
		case document.FieldUpdatedAt:
			ts = d.UpdatedAt
		}
		if ts == nil || !f.DateRange.Contains(*ts) {
			return false
		}
	}
	return true
}

// WithType returns a copy restricted to a single type.
func (f Filters) WithType(t document.Type) Filters {
	out := f
	out.Types = []document.Type{t}
	return out
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func anyTag(want []string, d *document.Document) bool {
	for _, t := range want {
		if d.HasTag(t) {
			return true
		}
	}
	return false
}
