package books

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	domainerrors "github.com/bookshelf/backend/internal/errors"
	"github.com/bookshelf/backend/internal/models"
)

const (
	MsgBookNotFound  = "Book not found"
	MsgCoverNotFound = "Cover not found"
)

// Catalog defines the interface for book persistence.
type Catalog interface {
	CreateBook(ctx context.Context, book *models.Book) error
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	SetBookCover(ctx context.Context, id int64, key string) error
}

// FileStore defines the interface for cover image storage.
type FileStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Remove(ctx context.Context, key string) error
}

// Service manages the book catalog and cover images. files may be nil, in
// which case cover operations report ErrCoversDisabled.
type Service struct {
	catalog Catalog
	files   FileStore
	logger  *slog.Logger
}

// ErrCoversDisabled is returned by cover operations when no object store is configured.
var ErrCoversDisabled = domainerrors.Unavailable("Cover storage is not configured")

func NewService(catalog Catalog, files FileStore, logger *slog.Logger) *Service {
	return &Service{catalog: catalog, files: files, logger: logger}
}

func (s *Service) CreateBook(ctx context.Context, book *models.Book) (*models.Book, error) {
	if err := s.catalog.CreateBook(ctx, book); err != nil {
		return nil, err
	}
	s.logger.Info("Book created", "book_id", book.ID, "title", book.Title)
	return book, nil
}

func (s *Service) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	book, err := s.catalog.GetBook(ctx, id)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound(MsgBookNotFound).WithCause(err)
		}
		return nil, err
	}
	return book, nil
}

func (s *Service) ListBooks(ctx context.Context) ([]models.Book, error) {
	return s.catalog.ListBooks(ctx)
}

// SetCover uploads a new cover for book id and drops the previous one.
func (s *Service) SetCover(ctx context.Context, id int64, r io.Reader, size int64, contentType string) error {
	if s.files == nil {
		return ErrCoversDisabled
	}
	book, err := s.GetBook(ctx, id)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("covers/%d/%s", id, uuid.New().String())
	if err := s.files.Put(ctx, key, r, size, contentType); err != nil {
		return domainerrors.Internal("Failed to store cover", err)
	}
	if err := s.catalog.SetBookCover(ctx, id, key); err != nil {
		if rmErr := s.files.Remove(ctx, key); rmErr != nil {
			s.logger.Warn("Failed to remove orphaned cover", "key", key, "error", rmErr)
		}
		return err
	}

	if book.CoverKey != "" {
		if err := s.files.Remove(ctx, book.CoverKey); err != nil {
			s.logger.Warn("Failed to remove previous cover", "key", book.CoverKey, "error", err)
		}
	}

	s.logger.Info("Cover uploaded", "book_id", id, "key", key, "bytes", size)
	return nil
}

// GetCover opens the cover of book id. The caller closes the reader.
func (s *Service) GetCover(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	if s.files == nil {
		return nil, "", ErrCoversDisabled
	}
	book, err := s.GetBook(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if book.CoverKey == "" {
		return nil, "", domainerrors.NotFound(MsgCoverNotFound)
	}

	rc, contentType, err := s.files.Get(ctx, book.CoverKey)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, "", domainerrors.NotFound(MsgCoverNotFound).WithCause(err)
		}
		return nil, "", err
	}
	return rc, contentType, nil
}
