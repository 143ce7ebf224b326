package document

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kailas-cloud/searchsync/internal/domain"
)

// MaxIDLength is the maximum document identifier length.
const MaxIDLength = 512

// Document is the unit of indexing. Identity is per ID: indexing the same ID replaces the prior version.
type Document struct {
	ID          string         `json:"id"`
	Type        Type           `json:"type"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Description string         `json:"description,omitempty"`
	Author      string         `json:"author,omitempty"`
	AuthorID    string         `json:"authorId,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Category    string         `json:"category,omitempty"`
	Status      string         `json:"status,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   *time.Time     `json:"updatedAt,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Option sets an optional document field in New.
type Option func(*Document)

// WithDescription sets the description.
func WithDescription(s string) Option { return func(d *Document) { d.Description = s } }

// WithAuthor sets the author display name and identifier.
func WithAuthor(name, id string) Option {
	return func(d *Document) {
		d.Author = name
		d.AuthorID = id
	}
}

// WithTags sets the tag set.
func WithTags(tags ...string) Option { return func(d *Document) { d.Tags = tags } }

// WithCategory sets the category.
func WithCategory(s string) Option { return func(d *Document) { d.Category = s } }

// WithStatus sets the free-form status.
func WithStatus(s string) Option { return func(d *Document) { d.Status = s } }

// WithUpdatedAt sets the last-modified timestamp.
func WithUpdatedAt(t time.Time) Option { return func(d *Document) { d.UpdatedAt = &t } }

// WithMetadata sets the opaque metadata bag.
func WithMetadata(m map[string]any) Option { return func(d *Document) { d.Metadata = m } }

// New validates mandatory fields and returns a normalized Document.
func New(id string, t Type, title, content string, createdAt time.Time, opts ...Option) (Document, error) {
	d := Document{
		ID:        id,
		Type:      t,
		Title:     title,
		Content:   content,
		CreatedAt: createdAt,
	}
	for _, o := range opts {
		o(&d)
	}
	if err := d.Validate(); err != nil {
		return Document{}, err
	}
	return d.Normalize(), nil
}

// Validate rejects documents missing a mandatory field.
func (d *Document) Validate() error {
	switch {
	case strings.TrimSpace(d.ID) == "":
		return fmt.Errorf("%w: id is required", domain.ErrInvalidDocument)
	case len(d.ID) > MaxIDLength:
		return fmt.Errorf("%w: id too long (max %d)", domain.ErrInvalidDocument, MaxIDLength)
	case d.Type == "":
		return fmt.Errorf("%w: type is required", domain.ErrInvalidDocument)
	case !d.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", domain.ErrInvalidDocument, d.Type)
	case d.Title == "":
		return fmt.Errorf("%w: title is required", domain.ErrInvalidDocument)
	case d.Content == "":
		return fmt.Errorf("%w: content is required", domain.ErrInvalidDocument)
	case d.CreatedAt.IsZero():
		return fmt.Errorf("%w: createdAt is required", domain.ErrInvalidDocument)
	}
	return nil
}

// Normalize returns a copy with set-semantics tags and millisecond UTC timestamps,
// the finest resolution every backend round-trips.
func (d Document) Normalize() Document {
	out := d
	out.CreatedAt = normalizeTime(d.CreatedAt)
	if d.UpdatedAt != nil {
		t := normalizeTime(*d.UpdatedAt)
		out.UpdatedAt = &t
	}
	out.Tags = normalizeTags(d.Tags)
	if d.Metadata != nil {
		out.Metadata = make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// HasTag reports whether the document carries tag.
func (d *Document) HasTag(tag string) bool {
	return slices.Contains(d.Tags, tag)
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
