package patch

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
)

// Patch is a partial document update. Nil fields are left unchanged.
// A non-nil Tags slice replaces the tag set; an empty one clears it.
type Patch struct {
	Title       *string        `json:"title,omitempty"`
	Content     *string        `json:"content,omitempty"`
	Description *string        `json:"description,omitempty"`
	Author      *string        `json:"author,omitempty"`
	AuthorID    *string        `json:"authorId,omitempty"`
	Tags        *[]string      `json:"tags,omitempty"`
	Category    *string        `json:"category,omitempty"`
	Status      *string        `json:"status,omitempty"`
	UpdatedAt   *time.Time     `json:"updatedAt,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Description == nil &&
		p.Author == nil && p.AuthorID == nil && p.Tags == nil &&
		p.Category == nil && p.Status == nil && p.UpdatedAt == nil && p.Metadata == nil
}

// Validate rejects empty patches and patches that would blank a mandatory field.
func (p Patch) Validate() error {
	if p.IsEmpty() {
		return fmt.Errorf("%w: at least one field must be provided", domain.ErrInvalidDocument)
	}
	if p.Title != nil && *p.Title == "" {
		return fmt.Errorf("%w: title cannot be cleared", domain.ErrInvalidDocument)
	}
	if p.Content != nil && *p.Content == "" {
		return fmt.Errorf("%w: content cannot be cleared", domain.ErrInvalidDocument)
	}
	return nil
}

// Apply returns d with the patch's fields overlaid. Metadata keys are merged.
func (p Patch) Apply(d document.Document) document.Document {
	out := d
	setStr(&out.Title, p.Title)
	setStr(&out.Content, p.Content)
	setStr(&out.Description, p.Description)
	setStr(&out.Author, p.Author)
	setStr(&out.AuthorID, p.AuthorID)
	setStr(&out.Category, p.Category)
	setStr(&out.Status, p.Status)
	if p.Tags != nil {
		out.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		out.UpdatedAt = &t
	}
	if p.Metadata != nil {
		merged := make(map[string]any, len(d.Metadata)+len(p.Metadata))
		for k, v := range d.Metadata {
			merged[k] = v
		}
		for k, v := range p.Metadata {
			if v == nil {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}
		out.Metadata = merged
	}
	return out.Normalize()
}

// Fields returns the canonical names of the fields the patch touches.
func (p Patch) Fields() []string {
	var fs []string
	add := func(set bool, name string) {
		if set {
			fs = append(fs, name)
		}
	}
	add(p.Title != nil, document.FieldTitle)
	add(p.Content != nil, document.FieldContent)
	add(p.Description != nil, document.FieldDescription)
	add(p.Author != nil, document.FieldAuthor)
	add(p.AuthorID != nil, document.FieldAuthorID)
	add(p.Tags != nil, document.FieldTags)
	add(p.Category != nil, document.FieldCategory)
	add(p.Status != nil, document.FieldStatus)
	add(p.UpdatedAt != nil, document.FieldUpdatedAt)
	add(p.Metadata != nil, document.FieldMetadata)
	return fs
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
