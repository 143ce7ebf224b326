package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/kailas-cloud/searchsync/internal/db"
	"github.com/kailas-cloud/searchsync/internal/domain"
)

// CreateIndex issues FT.CREATE. An existing index is left as is.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	c, err := s.conn(db.OpCreateIndex)
	if err != nil {
		return err
	}
	args, err := buildCreateArgs(def)
	if err != nil {
		return domain.IndexError(db.OpCreateIndex, err)
	}

	cmd := c.B().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := c.Do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return wrapErr(domain.KindIndexOperation, db.OpCreateIndex, err)
	}
	return nil
}

// DeleteIndex drops the index together with its documents.
func (s *Store) DeleteIndex(ctx context.Context, name string) error {
	c, err := s.conn(db.OpDeleteIndex)
	if err != nil {
		return err
	}
	cmd := c.B().Arbitrary("FT.DROPINDEX").Args(name, "DD").Build()
	if err := c.Do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return nil
		}
		return wrapErr(domain.KindIndexOperation, db.OpDeleteIndex, err)
	}
	return nil
}

// IndexExists probes index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	c, err := s.conn(db.OpIndexExists)
	if err != nil {
		return false, err
	}
	cmd := c.B().Arbitrary("FT.INFO").Args(name).Build()
	if err := c.Do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return false, nil
		}
		return false, wrapErr(domain.KindIndexOperation, db.OpIndexExists, err)
	}
	return true, nil
}

func buildCreateArgs(idx *db.IndexDefinition) ([]string, error) {
	if err := idx.Validate(); err != nil {
		return nil, err
	}

	args := []string{idx.Name}

	storage := idx.StorageType
	if storage == "" {
		storage = db.StorageHash
	}
	args = append(args, "ON", string(storage))

	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}
	if idx.Language != "" {
		args = append(args, "LANGUAGE", idx.Language)
	}

	args = append(args, "SCHEMA")

	for i := range idx.Fields {
		fieldArgs, err := buildFieldArgs(&idx.Fields[i], storage)
		if err != nil {
			return nil, err
		}
		args = append(args, fieldArgs...)
	}

	return args, nil
}

// buildFieldArgs emits one SCHEMA entry. On JSON storage every field is
// addressed by its path and aliased to the canonical name; dates index the
// epoch-millisecond shadow field and tags the flattened CSV field.
func buildFieldArgs(f *db.IndexField, storage db.StorageType) ([]string, error) {
	if f.Name == "" {
		return nil, errors.New("field name is required")
	}

	var args []string
	if storage == db.StorageJSON {
		args = []string{jsonPath(f), "AS", f.Name}
	} else {
		args = []string{f.Name}
	}

	switch f.Type {
	case db.IndexFieldNumeric, db.IndexFieldDate:
		args = append(args, "NUMERIC")

	case db.IndexFieldText:
		args = append(args, "TEXT")
		if f.Weight > 0 && f.Weight != 1 {
			args = append(args, "WEIGHT", strconv.FormatFloat(f.Weight, 'f', -1, 64))
		}

	case db.IndexFieldTag:
		args = append(args, "TAG")
		if f.TagSeparator != "" {
			args = append(args, "SEPARATOR", f.TagSeparator)
		}
		if f.TagCaseSensitive {
			args = append(args, "CASESENSITIVE")
		}

	default:
		return nil, errors.New("unknown field type")
	}

	if f.Sortable {
		args = append(args, "SORTABLE")
	}
	return args, nil
}

func jsonPath(f *db.IndexField) string {
	switch {
	case f.Type == db.IndexFieldDate:
		return "$." + f.Name + msSuffix
	case f.Name == tagsField:
		return "$." + tagsCSVField
	default:
		return "$." + f.Name
	}
}
