package document

import (
	"fmt"

	"github.com/kailas-cloud/searchsync/internal/domain"
)

// Type is the closed enumeration of document kinds.
type Type string

// Document kinds.
const (
	TypeProject Type = "project"
	TypeTask    Type = "task"
	TypeArticle Type = "article"
	TypePage    Type = "page"
	TypeComment Type = "comment"
	TypeUser    Type = "user"
	TypeFile    Type = "file"
)

var allTypes = []Type{TypeProject, TypeTask, TypeArticle, TypePage, TypeComment, TypeUser, TypeFile}

// Types returns every known document kind in canonical order.
func Types() []Type {
	out := make([]Type, len(allTypes))
	copy(out, allTypes)
	return out
}

// Valid reports whether t is a known kind.
func (t Type) Valid() bool {
	for _, k := range allTypes {
		if k == t {
			return true
		}
	}
	return false
}

func (t Type) String() string { return string(t) }

// ParseType converts s to a Type, rejecting unknown kinds.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown document type %q", domain.ErrInvalidDocument, s)
	}
	return t, nil
}
