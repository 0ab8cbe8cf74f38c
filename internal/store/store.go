// Package store holds the persistence adapters: PostgreSQL and SQLite for
// users, MongoDB and SQLite for the book catalog, Redis as a catalog cache
// and MinIO for cover images.
//
// Missing rows are reported as errors of kind NOT_FOUND so callers can test
// them with errors.Is(err, domainerrors.ErrNotFound).
package store

import "github.com/bookshelf/backend/internal/models"

// MsgUsernameTaken is the conflict message for a duplicate username.
const MsgUsernameTaken = "Username already taken"

// orderBooks returns books sorted to match ids. IDs with no matching book
// are skipped.
func orderBooks(ids []int64, books []models.Book) []models.Book {
	byID := make(map[int64]models.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	out := make([]models.Book, 0, len(ids))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out
}
