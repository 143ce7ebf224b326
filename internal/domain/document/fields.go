package document

import "slices"

// Canonical field names shared by every adapter.
const (
	FieldID          = "id"
	FieldType        = "type"
	FieldTitle       = "title"
	FieldContent     = "content"
	FieldDescription = "description"
	FieldAuthor      = "author"
	FieldAuthorID    = "authorId"
	FieldTags        = "tags"
	FieldCategory    = "category"
	FieldStatus      = "status"
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"
	FieldMetadata    = "metadata"

	// FieldScore sorts by relevance.
	FieldScore = "_score"
)

var (
	searchableFields  = []string{FieldTitle, FieldContent, FieldDescription}
	filterableFields  = []string{FieldType, FieldStatus, FieldCategory, FieldTags, FieldAuthor, FieldAuthorID, FieldCreatedAt, FieldUpdatedAt}
	sortableFields    = []string{FieldScore, FieldTitle, FieldCreatedAt, FieldUpdatedAt}
	dateFields        = []string{FieldCreatedAt, FieldUpdatedAt}
	aggregatableField = []string{FieldType, FieldStatus, FieldCategory, FieldTags, FieldAuthor}
)

// SearchableFields lists the full-text fields in descending weight order.
func SearchableFields() []string { return slices.Clone(searchableFields) }

// FilterableFields lists fields that accept filter predicates.
func FilterableFields() []string { return slices.Clone(filterableFields) }

// SortableFields lists fields accepted in sort clauses.
func SortableFields() []string { return slices.Clone(sortableFields) }

// DateFields lists timestamp fields usable in date ranges.
func DateFields() []string { return slices.Clone(dateFields) }

// AggregatableFields lists keyword fields accepted for term aggregations.
func AggregatableFields() []string { return slices.Clone(aggregatableField) }

// IsSortable reports whether f may appear in a sort clause.
func IsSortable(f string) bool { return slices.Contains(sortableFields, f) }

// IsDateField reports whether f is a timestamp field.
func IsDateField(f string) bool { return slices.Contains(dateFields, f) }

// IsAggregatable reports whether f supports term aggregations.
func IsAggregatable(f string) bool { return slices.Contains(aggregatableField, f) }

// FieldWeight returns the relative full-text weight of a searchable field.
func FieldWeight(f string) float64 {
	switch f {
	case FieldTitle:
		return 3
	case FieldDescription:
		return 2
	case FieldContent:
		return 1
	default:
		return 0
	}
}
