package meili

import (
	"context"
	"errors"
	"slices"

	"github.com/kailas-cloud/searchsync/internal/db"
	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
)

// primaryKey is the Meilisearch primary key attribute; see docKey.
const primaryKey = "key"

// CreateIndex creates the index when missing, then applies attribute
// settings derived from def. Settings updates are idempotent server-side.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	c, err := s.conn(db.OpCreateIndex)
	if err != nil {
		return err
	}
	if err := def.Validate(); err != nil {
		return domain.IndexError(db.OpCreateIndex, err)
	}

	exists, err := c.IndexExists(def.Name)
	if err != nil {
		return wrapErr(domain.KindIndexOperation, db.OpCreateIndex, err)
	}
	if !exists {
		uid, err := c.CreateIndex(def.Name, primaryKey)
		if err != nil {
			return wrapErr(domain.KindIndexOperation, db.OpCreateIndex, err)
		}
		if err := s.wait(ctx, c, domain.KindIndexOperation, db.OpCreateIndex, uid); err != nil {
			return err
		}
	}

	updates := []func() (int64, error){
		func() (int64, error) { return c.UpdateSearchable(def.Name, searchableAttributes(def)) },
		func() (int64, error) { return c.UpdateFilterable(def.Name, def.FilterFields()) },
		func() (int64, error) { return c.UpdateSortable(def.Name, def.SortFields()) },
	}
	for _, update := range updates {
		uid, err := update()
		if err != nil {
			return wrapErr(domain.KindIndexOperation, db.OpCreateIndex, err)
		}
		if err := s.wait(ctx, c, domain.KindIndexOperation, db.OpCreateIndex, uid); err != nil {
			return err
		}
	}
	return nil
}

// DeleteIndex removes the index and its documents. A missing index succeeds.
func (s *Store) DeleteIndex(ctx context.Context, name string) error {
	c, err := s.conn(db.OpDeleteIndex)
	if err != nil {
		return err
	}
	exists, err := c.IndexExists(name)
	if err != nil {
		return wrapErr(domain.KindIndexOperation, db.OpDeleteIndex, err)
	}
	if !exists {
		return nil
	}
	uid, err := c.DeleteIndex(name)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil
		}
		return wrapErr(domain.KindIndexOperation, db.OpDeleteIndex, err)
	}
	return s.wait(ctx, c, domain.KindIndexOperation, db.OpDeleteIndex, uid)
}

// IndexExists fetches index info; a 404 means absent.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	c, err := s.conn(db.OpIndexExists)
	if err != nil {
		return false, err
	}
	ok, err := c.IndexExists(name)
	if err != nil {
		return false, wrapErr(domain.KindIndexOperation, db.OpIndexExists, err)
	}
	return ok, nil
}

// searchableAttributes orders text fields by descending weight: Meilisearch
// ranks matches in earlier attributes higher instead of using weights.
func searchableAttributes(def *db.IndexDefinition) []string {
	fields := def.TextFields()
	slices.SortStableFunc(fields, func(a, b string) int {
		wa, wb := weight(def, a), weight(def, b)
		switch {
		case wa > wb:
			return -1
		case wa < wb:
			return 1
		default:
			return 0
		}
	})
	return fields
}

func weight(def *db.IndexDefinition, name string) float64 {
	if f, ok := def.Field(name); ok && f.Weight > 0 {
		return f.Weight
	}
	return document.FieldWeight(name)
}
