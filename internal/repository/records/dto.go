package records

import (
	"encoding/json"
	"fmt"
	"time"

	domdoc "github.com/kailas-cloud/searchsync/internal/domain/document"
)

// recordRow mirrors one row of the record query. Optional columns are nullable.
type recordRow struct {
	ID          string
	Type        string
	Title       string
	Content     string
	Description *string
	Author      *string
	AuthorID    *string
	Tags        []string
	Category    *string
	Status      *string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	Metadata    []byte
}

func (r *recordRow) dest() []any {
	return []any{
		&r.ID, &r.Type, &r.Title, &r.Content, &r.Description, &r.Author, &r.AuthorID,
		&r.Tags, &r.Category, &r.Status, &r.CreatedAt, &r.UpdatedAt, &r.Metadata,
	}
}

func (r *recordRow) toDocument() (domdoc.Document, error) {
	t, err := domdoc.ParseType(r.Type)
	if err != nil {
		return domdoc.Document{}, err
	}
	doc := domdoc.Document{
		ID:          r.ID,
		Type:        t,
		Title:       r.Title,
		Content:     r.Content,
		Description: str(r.Description),
		Author:      str(r.Author),
		AuthorID:    str(r.AuthorID),
		Tags:        r.Tags,
		Category:    str(r.Category),
		Status:      str(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &doc.Metadata); err != nil {
			return domdoc.Document{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return doc.Normalize(), nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
