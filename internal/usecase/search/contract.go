package search

import "github.com/kailas-cloud/searchsync/internal/db"

// Backend is the adapter surface the facade delegates to.
type Backend interface {
	db.Connector
	db.IndexManager
	db.DocumentWriter
	db.DocumentReader
	db.Searcher
}
