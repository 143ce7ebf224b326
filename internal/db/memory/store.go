// Package memory is an in-process search backend over a document table.
// It mirrors the relative semantics of the network backends with plain
// substring matching and is used offline and as a test double.
package memory

import (
	"context"
	"sync"

	"github.com/kailas-cloud/searchsync/internal/db"
	"github.com/kailas-cloud/searchsync/internal/domain/batch"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/document/patch"
)

// Name is the provider name used in config and metrics.
const Name = "memory"

// Store implements db.Adapter in memory.
type Store struct {
	mu        sync.RWMutex
	connected bool
	indexes   map[string]*table
}

type table struct {
	def  *db.IndexDefinition
	docs map[string]document.Document
}

var _ db.Adapter = (*Store)(nil)

// New creates a disconnected in-memory store.
func New() *Store {
	return &Store{indexes: make(map[string]*table)}
}

// Name returns the backend name.
func (s *Store) Name() string { return Name }

// Connect marks the store usable. Data survives Close/Connect cycles.
func (s *Store) Connect(context.Context) error {
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	return nil
}

// Close marks the store unusable until the next Connect.
func (s *Store) Close() error {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	return nil
}

// IsConnected reports the connection flag.
func (s *Store) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Ping reports whether the store is connected.
func (s *Store) Ping(context.Context) bool { return s.IsConnected() }

// CreateIndex registers an empty table. Existing tables are left untouched.
func (s *Store) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return db.IndexOp(db.OpCreateIndex, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return db.NotConnected(db.OpCreateIndex)
	}
	if t, ok := s.indexes[def.Name]; ok {
		if t.def == nil {
			t.def = def
		}
		return nil
	}
	s.indexes[def.Name] = &table{def: def, docs: make(map[string]document.Document)}
	return nil
}

// DeleteIndex drops a table and its documents.
func (s *Store) DeleteIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return db.NotConnected(db.OpDeleteIndex)
	}
	delete(s.indexes, name)
	return nil
}

// IndexExists reports whether a table exists.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return false, db.NotConnected(db.OpIndexExists)
	}
	_, ok := s.indexes[name]
	return ok, nil
}

// IndexDocument stores a normalized copy, replacing any prior version.
func (s *Store) IndexDocument(_ context.Context, index string, doc document.Document) error {
	if err := doc.Validate(); err != nil {
		return db.IndexOp(db.OpIndexDocument, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return db.NotConnected(db.OpIndexDocument)
	}
	s.tableLocked(index).docs[doc.ID] = doc.Normalize()
	return nil
}

// BulkIndexDocuments stores each valid document and reports invalid ones as failed.
func (s *Store) BulkIndexDocuments(_ context.Context, index string, docs []document.Document) (batch.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return batch.Result{}, db.NotConnected(db.OpBulkIndex)
	}
	var res batch.Result
	t := s.tableLocked(index)
	for i := range docs {
		if err := docs[i].Validate(); err != nil {
			res.Fail(docs[i].ID, err)
			continue
		}
		t.docs[docs[i].ID] = docs[i].Normalize()
		res.OK(docs[i].ID)
	}
	return res, nil
}

// UpdateDocument applies a patch to a stored document.
func (s *Store) UpdateDocument(_ context.Context, index, id string, p patch.Patch) error {
	if err := p.Validate(); err != nil {
		return db.IndexOp(db.OpUpdateDocument, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return db.NotConnected(db.OpUpdateDocument)
	}
	t := s.tableLocked(index)
	cur, ok := t.docs[id]
	if !ok {
		return db.NotFound(index, id)
	}
	t.docs[id] = p.Apply(cur)
	return nil
}

// DeleteDocument removes a document; absent ids succeed.
func (s *Store) DeleteDocument(_ context.Context, index, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return db.NotConnected(db.OpDeleteDocument)
	}
	if t, ok := s.indexes[index]; ok {
		delete(t.docs, id)
	}
	return nil
}

// GetDocument returns a copy of a stored document.
func (s *Store) GetDocument(_ context.Context, index, id string) (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return document.Document{}, db.NotConnected(db.OpGetDocument)
	}
	t, ok := s.indexes[index]
	if !ok {
		return document.Document{}, db.NotFound(index, id)
	}
	doc, ok := t.docs[id]
	if !ok {
		return document.Document{}, db.NotFound(index, id)
	}
	return doc.Normalize(), nil
}

// tableLocked returns the named table, creating it on first write the way
// document stores auto-create collections. Caller must hold the write lock.
func (s *Store) tableLocked(name string) *table {
	t, ok := s.indexes[name]
	if !ok {
		t = &table{docs: make(map[string]document.Document)}
		s.indexes[name] = t
	}
	return t
}

// snapshot copies the documents of an index under the read lock.
func (s *Store) snapshot(op, index string) ([]document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return nil, db.NotConnected(op)
	}
	t, ok := s.indexes[index]
	if !ok {
		return nil, nil
	}
	out := make([]document.Document, 0, len(t.docs))
	for _, d := range t.docs {
		out = append(out, d)
	}
	return out, nil
}
