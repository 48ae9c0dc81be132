// Package store defines persistence types shared by storage backends.
package store

import "github.com/bookhavenapp/bookhaven-server/internal/domain"

// SearchIndexer maintains the catalog search index. The SQLite store calls
// it after every book write so the index tracks the database without a
// separate sync job.
type SearchIndexer interface {
	IndexBook(book *domain.Book) error
	RemoveBook(bookID string) error
}

// NoopSearchIndexer ignores all indexing calls. Used until the real index
// is wired in, and by tests that don't care about search.
type NoopSearchIndexer struct{}

// NewNoopSearchIndexer creates a search indexer that does nothing.
func NewNoopSearchIndexer() *NoopSearchIndexer { return &NoopSearchIndexer{} }

// IndexBook implements SearchIndexer.
func (*NoopSearchIndexer) IndexBook(_ *domain.Book) error { return nil }

// RemoveBook implements SearchIndexer.
func (*NoopSearchIndexer) RemoveBook(_ string) error { return nil }
