// Package search provides full-text catalog search using Bleve.
// Books are indexed by title, author, and description, with exact-match
// genre filtering, price range queries, and fuzzy matching for typo
// tolerance.
package search

import (
	"github.com/bookhavenapp/bookhaven-server/internal/domain"
)

// Document is the structure stored in the Bleve index, one per book.
type Document struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description,omitempty"`
	GenreSlug   string `json:"genre_slug,omitempty"`

	// Price as a float for range queries. The authoritative decimal
	// price lives in the catalog store; this copy is for filtering only.
	Price float64 `json:"price"`

	InStock   bool  `json:"in_stock"`
	CreatedAt int64 `json:"created_at"` // Unix millis
}

// ToMap converts the document to a map with lowercase field names.
// Bleve defaults to Go struct field names (capitalized), but the index
// mapping uses lowercase names, so we convert explicitly.
func (d *Document) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"title":      d.Title,
		"author":     d.Author,
		"price":      d.Price,
		"in_stock":   d.InStock,
		"created_at": d.CreatedAt,
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.GenreSlug != "" {
		m["genre_slug"] = d.GenreSlug
	}
	return m
}

// BookDocument converts a catalog book into its index document.
func BookDocument(book *domain.Book, genreSlug string) *Document {
	price, _ := book.Price.Float64()
	return &Document{
		ID:          book.ID,
		Title:       book.Title,
		Author:      book.Author,
		Description: book.Description,
		GenreSlug:   genreSlug,
		Price:       price,
		InStock:     book.InStock(),
		CreatedAt:   book.CreatedAt.UnixMilli(),
	}
}
