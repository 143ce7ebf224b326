package db

import (
	"errors"
	"strconv"
)

// StorageType defines how a backend stores documents (HASH or JSON for RediSearch).
type StorageType string

const (
	// StorageHash stores documents as Redis hashes.
	StorageHash StorageType = "HASH"
	// StorageJSON stores documents as JSON.
	StorageJSON StorageType = "JSON"
)

// IndexFieldType enumerates supported index field types.
type IndexFieldType int

const (
	// IndexFieldNumeric is a numeric field.
	IndexFieldNumeric IndexFieldType = iota
	// IndexFieldTag is an exact-match keyword field.
	IndexFieldTag
	// IndexFieldText is a full-text field.
	IndexFieldText
	// IndexFieldDate is a timestamp, stored however the backend requires.
	IndexFieldDate
)

// IndexField describes a single field in an index schema.
type IndexField struct {
	Name string
	Type IndexFieldType

	// TEXT options
	Weight float64

	// TAG options
	TagSeparator     string
	TagCaseSensitive bool

	Sortable bool
}

// IndexDefinition is a backend-neutral index schema.
type IndexDefinition struct {
	Name        string
	StorageType StorageType
	Prefixes    []string
	Fields      []IndexField
	// Language selects the text analyzer. "chinese" enables mixed CJK/Latin tokenization.
	Language string
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool)
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true

		if f.Weight < 0 {
			return errors.New("negative weight for field " + f.Name)
		}
	}

	return nil
}

// TextFields returns the full-text field names in declaration order.
func (idx *IndexDefinition) TextFields() []string {
	return idx.names(func(f *IndexField) bool { return f.Type == IndexFieldText })
}

// FilterFields returns the names of tag, numeric and date fields.
func (idx *IndexDefinition) FilterFields() []string {
	return idx.names(func(f *IndexField) bool { return f.Type != IndexFieldText })
}

// SortFields returns the names of sortable fields.
func (idx *IndexDefinition) SortFields() []string {
	return idx.names(func(f *IndexField) bool { return f.Sortable })
}

// Field looks up a field by name.
func (idx *IndexDefinition) Field(name string) (IndexField, bool) {
	for i := range idx.Fields {
		if idx.Fields[i].Name == name {
			return idx.Fields[i], true
		}
	}
	return IndexField{}, false
}

func (idx *IndexDefinition) names(keep func(*IndexField) bool) []string {
	var out []string
	for i := range idx.Fields {
		if keep(&idx.Fields[i]) {
			out = append(out, idx.Fields[i].Name)
		}
	}
	return out
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
