package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/searchsync/internal/db"
	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/batch"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/document/patch"
)

const (
	msSuffix     = "Ms"
	tagsField    = document.FieldTags
	tagsCSVField = "tagsCsv"
	isoLayout    = "2006-01-02T15:04:05.000Z07:00"
)

// wireDoc is the RedisJSON representation: ISO-8601 dates for readers plus
// epoch-millisecond shadows and a CSV tag string for the index.
type wireDoc struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Description string         `json:"description,omitempty"`
	Author      string         `json:"author,omitempty"`
	AuthorID    string         `json:"authorId,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	TagsCSV     string         `json:"tagsCsv,omitempty"`
	Category    string         `json:"category,omitempty"`
	Status      string         `json:"status,omitempty"`
	CreatedAt   string         `json:"createdAt"`
	CreatedAtMs int64          `json:"createdAtMs"`
	UpdatedAt   string         `json:"updatedAt,omitempty"`
	UpdatedAtMs *int64         `json:"updatedAtMs,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func toWire(d *document.Document) wireDoc {
	w := wireDoc{
		ID:          d.ID,
		Type:        string(d.Type),
		Title:       d.Title,
		Content:     d.Content,
		Description: d.Description,
		Author:      d.Author,
		AuthorID:    d.AuthorID,
		Tags:        d.Tags,
		TagsCSV:     strings.Join(d.Tags, ","),
		Category:    d.Category,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt.UTC().Format(isoLayout),
		CreatedAtMs: d.CreatedAt.UnixMilli(),
		Metadata:    d.Metadata,
	}
	if d.UpdatedAt != nil {
		w.UpdatedAt = d.UpdatedAt.UTC().Format(isoLayout)
		ms := d.UpdatedAt.UnixMilli()
		w.UpdatedAtMs = &ms
	}
	return w
}

func fromWire(w *wireDoc) (document.Document, error) {
	created, err := time.Parse(time.RFC3339Nano, w.CreatedAt)
	if err != nil {
		return document.Document{}, fmt.Errorf("parse createdAt %q: %w", w.CreatedAt, err)
	}
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
		CreatedAt:   created,
		Metadata:    w.Metadata,
	}
	if w.UpdatedAt != "" {
		updated, err := time.Parse(time.RFC3339Nano, w.UpdatedAt)
		if err != nil {
			return document.Document{}, fmt.Errorf("parse updatedAt %q: %w", w.UpdatedAt, err)
		}
		d.UpdatedAt = &updated
	}
	return d.Normalize(), nil
}

func encodeDoc(d *document.Document) (string, error) {
	data, err := json.Marshal(toWire(d))
	if err != nil {
		return "", fmt.Errorf("encode %q: %w", d.ID, err)
	}
	return string(data), nil
}

func decodeDoc(raw string) (document.Document, error) {
	raw = strings.TrimSpace(raw)
	// JSON.GET with a "$" path wraps the document in an array.
	if strings.HasPrefix(raw, "[") {
		var arr []wireDoc
		if err := json.Unmarshal([]byte(raw), &arr); err != nil {
			return document.Document{}, fmt.Errorf("decode document: %w", err)
		}
		if len(arr) == 0 {
			return document.Document{}, fmt.Errorf("decode document: empty array")
		}
		return fromWire(&arr[0])
	}
	var w wireDoc
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return document.Document{}, fmt.Errorf("decode document: %w", err)
	}
	return fromWire(&w)
}

func docKey(index, id string) string { return index + ":" + id }

// IndexDocument stores the document with JSON.SET, replacing any prior version.
func (s *Store) IndexDocument(ctx context.Context, index string, doc document.Document) error {
	c, err := s.conn(db.OpIndexDocument)
	if err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return domain.IndexError(db.OpIndexDocument, err)
	}
	data, err := encodeDoc(&doc)
	if err != nil {
		return domain.IndexError(db.OpIndexDocument, err)
	}
	cmd := c.B().Arbitrary("JSON.SET").Keys(docKey(index, doc.ID)).Args("$", data).Build()
	return wrapErr(domain.KindIndexOperation, db.OpIndexDocument, c.Do(ctx, cmd).Error())
}

// BulkIndexDocuments pipelines one JSON.SET per valid document in a single
// DoMulti round-trip and reports each reply individually.
func (s *Store) BulkIndexDocuments(ctx context.Context, index string, docs []document.Document) (batch.Result, error) {
	c, err := s.conn(db.OpBulkIndex)
	if err != nil {
		return batch.Result{}, err
	}

	var res batch.Result
	cmds := make([]rueidis.Completed, 0, len(docs))
	ids := make([]string, 0, len(docs))
	for i := range docs {
		if err := docs[i].Validate(); err != nil {
			res.Fail(docs[i].ID, err)
			continue
		}
		data, err := encodeDoc(&docs[i])
		if err != nil {
			res.Fail(docs[i].ID, err)
			continue
		}
		cmds = append(cmds, c.B().Arbitrary("JSON.SET").Keys(docKey(index, docs[i].ID)).Args("$", data).Build())
		ids = append(ids, docs[i].ID)
	}
	if len(cmds) == 0 {
		return res, nil
	}

	for i, r := range c.DoMulti(ctx, cmds...) {
		if err := r.Error(); err != nil {
			res.Fail(ids[i], wrapErr(domain.KindIndexOperation, db.OpBulkIndex, err))
			continue
		}
		res.OK(ids[i])
	}
	return res, nil
}

// UpdateDocument reads, patches and rewrites the document.
func (s *Store) UpdateDocument(ctx context.Context, index, id string, p patch.Patch) error {
	if err := p.Validate(); err != nil {
		return domain.IndexError(db.OpUpdateDocument, err)
	}
	cur, err := s.GetDocument(ctx, index, id)
	if err != nil {
		return err
	}
	next := p.Apply(cur)
	if err := s.IndexDocument(ctx, index, next); err != nil {
		return fmt.Errorf("update %q: %w", id, err)
	}
	return nil
}

// DeleteDocument removes the document key. Missing keys succeed.
func (s *Store) DeleteDocument(ctx context.Context, index, id string) error {
	c, err := s.conn(db.OpDeleteDocument)
	if err != nil {
		return err
	}
	cmd := c.B().Del().Key(docKey(index, id)).Build()
	return wrapErr(domain.KindIndexOperation, db.OpDeleteDocument, c.Do(ctx, cmd).Error())
}

// GetDocument loads the document with JSON.GET.
func (s *Store) GetDocument(ctx context.Context, index, id string) (document.Document, error) {
	c, err := s.conn(db.OpGetDocument)
	if err != nil {
		return document.Document{}, err
	}
	cmd := c.B().Arbitrary("JSON.GET").Keys(docKey(index, id)).Build()
	raw, err := c.Do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return document.Document{}, db.NotFound(index, id)
		}
		return document.Document{}, wrapErr(domain.KindIndexOperation, db.OpGetDocument, err)
	}
	if raw == "" {
		return document.Document{}, db.NotFound(index, id)
	}
	doc, err := decodeDoc(raw)
	if err != nil {
		return document.Document{}, domain.IndexError(db.OpGetDocument, err)
	}
	return doc, nil
}
