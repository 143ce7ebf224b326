package meili

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/kailas-cloud/searchsync/internal/db"
	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/batch"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/document/patch"
)

// Meilisearch accepts only [A-Za-z0-9_-] primary keys of at most 511 bytes.
var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]{1,511}$`)

// docKey maps a document id to a primary key. Ids outside the allowed
// alphabet are replaced by a stable digest; the id itself is stored alongside.
func docKey(id string) string {
	if validKey.MatchString(id) {
		return id
	}
	sum := sha256.Sum256([]byte(id))
	return "h_" + hex.EncodeToString(sum[:])
}

// wireDoc stores dates as epoch milliseconds so they filter and sort numerically.
type wireDoc struct {
	Key         string         `json:"key"`
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Description string         `json:"description,omitempty"`
	Author      string         `json:"author,omitempty"`
	AuthorID    string         `json:"authorId,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Category    string         `json:"category,omitempty"`
	Status      string         `json:"status,omitempty"`
	CreatedAt   int64          `json:"createdAt"`
	UpdatedAt   *int64         `json:"updatedAt,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func toWire(d *document.Document) wireDoc {
	w := wireDoc{
		Key:         docKey(d.ID),
		ID:          d.ID,
		Type:        string(d.Type),
		Title:       d.Title,
		Content:     d.Content,
		Description: d.Description,
		Author:      d.Author,
		AuthorID:    d.AuthorID,
		Tags:        d.Tags,
		Category:    d.Category,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt.UnixMilli(),
		Metadata:    d.Metadata,
	}
	if d.UpdatedAt != nil {
		ms := d.UpdatedAt.UnixMilli()
		w.UpdatedAt = &ms
	}
	return w
}

func fromWire(w *wireDoc) document.Document {
	d := document.Document{
		ID:          w.ID,
		Type:        document.Type(w.Type),
		Title:       w.Title,
		Content:     w.Content,
		Description: w.Description,
		Author:      w.Author,
		AuthorID:    w.AuthorID,
		Tags:        w.Tags,
		Category:    w.Category,
		Status:      w.Status,
		CreatedAt:   time.UnixMilli(w.CreatedAt).UTC(),
		Metadata:    w.Metadata,
	}
	if w.UpdatedAt != nil {
		t := time.UnixMilli(*w.UpdatedAt).UTC()
		d.UpdatedAt = &t
	}
	return d.Normalize()
}

// IndexDocument adds or replaces the document and waits for the task.
func (s *Store) IndexDocument(ctx context.Context, index string, doc document.Document) error {
	c, err := s.conn(db.OpIndexDocument)
	if err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return domain.IndexError(db.OpIndexDocument, err)
	}
	uid, err := c.AddDocuments(index, []wireDoc{toWire(&doc)})
	if err != nil {
		return wrapErr(domain.KindIndexOperation, db.OpIndexDocument, err)
	}
	return s.wait(ctx, c, domain.KindIndexOperation, db.OpIndexDocument, uid)
}

// BulkIndexDocuments submits every valid document as one task. Meilisearch
// applies a task atomically, so a failed task fails all submitted items.
func (s *Store) BulkIndexDocuments(ctx context.Context, index string, docs []document.Document) (batch.Result, error) {
	c, err := s.conn(db.OpBulkIndex)
	if err != nil {
		return batch.Result{}, err
	}

	var res batch.Result
	wire := make([]wireDoc, 0, len(docs))
	ids := make([]string, 0, len(docs))
	for i := range docs {
		if err := docs[i].Validate(); err != nil {
			res.Fail(docs[i].ID, err)
			continue
		}
		wire = append(wire, toWire(&docs[i]))
		ids = append(ids, docs[i].ID)
	}
	if len(wire) == 0 {
		return res, nil
	}

	uid, err := c.AddDocuments(index, wire)
	if err == nil {
		err = s.wait(ctx, c, domain.KindIndexOperation, db.OpBulkIndex, uid)
	} else {
		err = wrapErr(domain.KindIndexOperation, db.OpBulkIndex, err)
	}
	if err != nil {
		res.FailAll(ids, err)
		return res, nil
	}
	for _, id := range ids {
		res.OK(id)
	}
	return res, nil
}

// UpdateDocument reads, patches and replaces the document so metadata merges
// and normalization match the other backends.
func (s *Store) UpdateDocument(ctx context.Context, index, id string, p patch.Patch) error {
	if err := p.Validate(); err != nil {
		return domain.IndexError(db.OpUpdateDocument, err)
	}
	cur, err := s.GetDocument(ctx, index, id)
	if err != nil {
		return err
	}
	if err := s.IndexDocument(ctx, index, p.Apply(cur)); err != nil {
		return fmt.Errorf("update %q: %w", id, err)
	}
	return nil
}

// DeleteDocument removes the document. Meilisearch reports success for absent ids.
func (s *Store) DeleteDocument(ctx context.Context, index, id string) error {
	c, err := s.conn(db.OpDeleteDocument)
	if err != nil {
		return err
	}
	uid, err := c.DeleteDocument(index, docKey(id))
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil
		}
		return wrapErr(domain.KindIndexOperation, db.OpDeleteDocument, err)
	}
	return s.wait(ctx, c, domain.KindIndexOperation, db.OpDeleteDocument, uid)
}

// GetDocument fetches one document by id.
func (s *Store) GetDocument(_ context.Context, index, id string) (document.Document, error) {
	c, err := s.conn(db.OpGetDocument)
	if err != nil {
		return document.Document{}, err
	}
	var w wireDoc
	if err := c.GetDocument(index, docKey(id), &w); err != nil {
		if errors.Is(err, errNotFound) {
			return document.Document{}, db.NotFound(index, id)
		}
		return document.Document{}, wrapErr(domain.KindIndexOperation, db.OpGetDocument, err)
	}
	return fromWire(&w), nil
}
