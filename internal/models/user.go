package models

import (
	"encoding/json"
	"slices"
	"time"

	domainerrors "github.com/bookshelf/backend/internal/errors"
)

// MsgBookAlreadyOwned is returned when a user adds a book they already own.
const MsgBookAlreadyOwned = "Book already owned"

// User is a library member and the books they own.
//
// The collection is private: it changes only through AddBook and RemoveBook,
// which keep at most one entry per book ID.
type User struct {
	ID       int64
	Username string
	Name     string
	Birthday Date

	books []Book
	// unresolved holds stored book IDs the catalog could not return. They are
	// not part of the collection but are written back untouched.
	unresolved []int64
}

func NewUser(username, name string, birthday Date) *User {
	return &User{Username: username, Name: name, Birthday: birthday}
}

// RestoreUser rebuilds a user from its persisted row and the catalog entries
// of the books it references.
func RestoreUser(row *UserRow, books []Book) *User {
	return &User{
		ID:         row.ID,
		Username:   row.Username,
		Name:       row.Name,
		Birthday:   NewDate(row.Birthday),
		books:      slices.Clone(books),
		unresolved: slices.DeleteFunc(slices.Clone(row.BookIDs), func(id int64) bool {
			return slices.ContainsFunc(books, func(b Book) bool { return b.ID == id })
		}),
	}
}

// AddBook appends b to the collection. It fails with a duplicate ownership
// error, leaving the collection untouched, when a book with the same ID is
// already owned.
func (u *User) AddBook(b Book) error {
	if u.Owns(b.ID) {
		return domainerrors.DuplicateOwnership(MsgBookAlreadyOwned)
	}
	u.books = append(u.books, b)
	u.dropUnresolved(b.ID)
	return nil
}

// RemoveBook drops every entry with b's ID. Removing a book the user does
// not own is a no-op.
func (u *User) RemoveBook(b Book) {
	u.books = slices.DeleteFunc(u.books, func(owned Book) bool {
		return owned.ID == b.ID
	})
	u.dropUnresolved(b.ID)
}

func (u *User) dropUnresolved(id int64) {
	u.unresolved = slices.DeleteFunc(u.unresolved, func(ref int64) bool {
		return ref == id
	})
}

// Owns reports whether a book with the given ID is in the collection.
func (u *User) Owns(bookID int64) bool {
	return slices.ContainsFunc(u.books, func(b Book) bool {
		return b.ID == bookID
	})
}

// Books returns a copy of the collection in insertion order.
func (u *User) Books() []Book {
	out := make([]Book, len(u.books))
	copy(out, u.books)
	return out
}

// BookIDs returns the IDs of the owned books in insertion order.
func (u *User) BookIDs() []int64 {
	ids := make([]int64, len(u.books))
	for i, b := range u.books {
		ids[i] = b.ID
	}
	return ids
}

// Row returns the persisted shape of the user. Unresolved book IDs follow
// the owned ones so a save never drops a reference.
func (u *User) Row() *UserRow {
	return &UserRow{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Birthday: u.Birthday.Time,
		BookIDs:  append(u.BookIDs(), u.unresolved...),
	}
}

type userJSON struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Birthday Date   `json:"birthday"`
	Books    []Book `json:"books"`
}

func (u User) MarshalJSON() ([]byte, error) {
	return json.Marshal(userJSON{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Birthday: u.Birthday,
		Books:    u.Books(),
	})
}

// UserRow is a user as the stores persist it: profile columns plus the
// ordered IDs of the books it owns.
type UserRow struct {
	ID       int64
	Username string
	Name     string
	Birthday time.Time
	BookIDs  []int64
}

// UserRequest is the JSON body for POST /api/users and PUT /api/users/{id}.
type UserRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Name     string `json:"name"     validate:"required"`
	Birthday *Date  `json:"birthday" validate:"required"`
}

// User builds the user described by the request. Callers validate first.
func (r UserRequest) User() *User {
	var birthday Date
	if r.Birthday != nil {
		birthday = *r.Birthday
	}
	return NewUser(r.Username, r.Name, birthday)
}
