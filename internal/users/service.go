package users

import (
	"context"
	"log/slog"

	domainerrors "github.com/bookshelf/backend/internal/errors"
	"github.com/bookshelf/backend/internal/models"
)

const (
	MsgUserNotFound = "User not found"
	MsgBookNotFound = "Book not found"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, row *models.UserRow) error
	GetUser(ctx context.Context, id int64) (*models.UserRow, error)
	ListUsers(ctx context.Context) ([]*models.UserRow, error)
	UpdateUser(ctx context.Context, row *models.UserRow) error
	DeleteUser(ctx context.Context, id int64) error
	SetUserBooks(ctx context.Context, userID int64, bookIDs []int64) error
}

// BookLookup resolves catalog books by ID.
type BookLookup interface {
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	GetBooks(ctx context.Context, ids []int64) ([]models.Book, error)
}

// Service applies user use cases on top of the stores. Ownership rules live
// on models.User; the service loads, mutates through the model and saves.
type Service struct {
	users  UserStore
	books  BookLookup
	logger *slog.Logger
}

func NewService(users UserStore, books BookLookup, logger *slog.Logger) *Service {
	return &Service{users: users, books: books, logger: logger}
}

func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.load(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.User, 0, len(rows))
	for _, row := range rows {
		u, err := s.hydrate(ctx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// CreateUser persists u as given. The store assigns the ID.
func (s *Service) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	row := u.Row()
	if err := s.users.CreateUser(ctx, row); err != nil {
		return nil, err
	}
	if len(row.BookIDs) > 0 {
		if err := s.users.SetUserBooks(ctx, row.ID, row.BookIDs); err != nil {
			return nil, err
		}
	}
	u.ID = row.ID

	s.logger.Info("User created", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// UpdateUser overwrites the profile fields of user id with those of u.
// The book collection is left as stored.
func (s *Service) UpdateUser(ctx context.Context, id int64, u *models.User) (*models.User, error) {
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.Username = u.Username
	existing.Name = u.Name
	existing.Birthday = u.Birthday

	if err := s.users.UpdateUser(ctx, existing.Row()); err != nil {
		return nil, translateNotFound(err, MsgUserNotFound)
	}

	s.logger.Info("User updated", "user_id", id)
	return existing, nil
}

// DeleteUser removes user id. A missing user is not an error.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info("User deleted", "user_id", id)
	return nil
}

// AddBook attaches book bookID to user userID. A book the user already
// owns yields a duplicate ownership error and nothing is saved.
func (s *Service) AddBook(ctx context.Context, userID, bookID int64) (*models.User, error) {
	u, book, err := s.loadPair(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	if err := u.AddBook(*book); err != nil {
		s.logger.Info("Book already owned", "user_id", userID, "book_id", bookID)
		return nil, err
	}
	if err := s.users.SetUserBooks(ctx, u.ID, u.Row().BookIDs); err != nil {
		return nil, err
	}

	s.logger.Info("Book added", "user_id", userID, "book_id", bookID)
	return u, nil
}

// RemoveBook detaches book bookID from user userID. Detaching a book the
// user does not own succeeds without changes.
func (s *Service) RemoveBook(ctx context.Context, userID, bookID int64) (*models.User, error) {
	u, book, err := s.loadPair(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	if !u.Owns(book.ID) {
		return u, nil
	}
	u.RemoveBook(*book)
	if err := s.users.SetUserBooks(ctx, u.ID, u.Row().BookIDs); err != nil {
		return nil, err
	}

	s.logger.Info("Book removed", "user_id", userID, "book_id", bookID)
	return u, nil
}

func (s *Service) loadPair(ctx context.Context, userID, bookID int64) (*models.User, *models.Book, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return nil, nil, translateNotFound(err, MsgBookNotFound)
	}
	return u, book, nil
}

func (s *Service) load(ctx context.Context, id int64) (*models.User, error) {
	row, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, MsgUserNotFound)
	}
	return s.hydrate(ctx, row)
}

// hydrate joins a stored row with its catalog books.
func (s *Service) hydrate(ctx context.Context, row *models.UserRow) (*models.User, error) {
	books, err := s.books.GetBooks(ctx, row.BookIDs)
	if err != nil {
		return nil, err
	}
	if len(books) != len(row.BookIDs) {
		s.logger.Warn("User references books missing from the catalog, keeping the references",
			"user_id", row.ID,
			"referenced", len(row.BookIDs),
			"found", len(books),
		)
	}
	return models.RestoreUser(row, books), nil
}

func translateNotFound(err error, msg string) error {
	if domainerrors.Is(err, domainerrors.ErrNotFound) {
		return domainerrors.NotFound(msg).WithCause(err)
	}
	return err
}
