package users

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/bookshelf/backend/internal/errors"
	"github.com/bookshelf/backend/internal/models"
	"github.com/bookshelf/backend/internal/store"
)

func setupService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(s, s, logger), s
}

func createBook(t *testing.T, s *store.SQLiteStore, title string) models.Book {
	t.Helper()
	b := theShining()
	b.ID = 0
	b.Title = title
	require.NoError(t, s.CreateBook(context.Background(), &b))
	return b
}

func TestService_CreateAndGet(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, carlos(t))
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "carlos", got.Username)
	assert.Equal(t, "carlos", got.Name)
	assert.Equal(t, "1995-06-09", got.Birthday.String())
	assert.Empty(t, got.Books())
}

func TestService_GetUser_NotFound(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.GetUser(context.Background(), 42)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.KindNotFound, domainErr.Kind)
	assert.Equal(t, MsgUserNotFound, domainErr.Message)
}

func TestService_CreateUser_DuplicateUsername(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, carlos(t))
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, carlos(t))
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))
}

func TestService_UpdateUser(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, carlos(t))
	require.NoError(t, err)
	book := createBook(t, s, "kept")
	_, err = svc.AddBook(ctx, created.ID, book.ID)
	require.NoError(t, err)

	birthday, err := models.ParseDate("2001-01-01")
	require.NoError(t, err)
	updated, err := svc.UpdateUser(ctx, created.ID, models.NewUser("charles", "Charles", birthday))
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "charles", updated.Username)
	assert.Equal(t, "2001-01-01", updated.Birthday.String())
	assert.Equal(t, []int64{book.ID}, updated.BookIDs(), "update leaves the collection alone")

	_, err = svc.UpdateUser(ctx, 999, models.NewUser("x", "x", birthday))
	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, MsgUserNotFound, domainErr.Message)
}

func TestService_DeleteUser(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, carlos(t))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, created.ID))
	require.NoError(t, svc.DeleteUser(ctx, created.ID), "deleting twice is fine")

	_, err = svc.GetUser(ctx, created.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestService_AddBook(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, carlos(t))
	require.NoError(t, err)
	first := createBook(t, s, "first")
	second := createBook(t, s, "second")

	t.Run("attaches and persists", func(t *testing.T) {
		got, err := svc.AddBook(ctx, u.ID, first.ID)
		require.NoError(t, err)
		assert.True(t, got.Owns(first.ID))

		_, err = svc.AddBook(ctx, u.ID, second.ID)
		require.NoError(t, err)

		reloaded, err := svc.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{first.ID, second.ID}, reloaded.BookIDs())
		assert.Equal(t, "first", reloaded.Books()[0].Title)
	})

	t.Run("second add is a duplicate and changes nothing", func(t *testing.T) {
		_, err := svc.AddBook(ctx, u.ID, first.ID)
		require.Error(t, err)
		assert.True(t, domainerrors.Is(err, domainerrors.ErrDuplicateOwnership))

		reloaded, err := svc.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{first.ID, second.ID}, reloaded.BookIDs())
	})

	t.Run("another user may own the same book", func(t *testing.T) {
		birthday, err := models.ParseDate("1990-01-01")
		require.NoError(t, err)
		other, err := svc.CreateUser(ctx, models.NewUser("ana", "Ana", birthday))
		require.NoError(t, err)

		_, err = svc.AddBook(ctx, other.ID, first.ID)
		assert.NoError(t, err)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := svc.AddBook(ctx, 999, first.ID)
		var domainErr *domainerrors.Error
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, MsgUserNotFound, domainErr.Message)
	})

	t.Run("missing book", func(t *testing.T) {
		_, err := svc.AddBook(ctx, u.ID, 999)
		var domainErr *domainerrors.Error
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domainerrors.KindNotFound, domainErr.Kind)
		assert.Equal(t, MsgBookNotFound, domainErr.Message)
	})
}

func TestService_RemoveBook(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, carlos(t))
	require.NoError(t, err)
	a := createBook(t, s, "a")
	b := createBook(t, s, "b")
	c := createBook(t, s, "c")

	t.Run("empty collection stays empty", func(t *testing.T) {
		got, err := svc.RemoveBook(ctx, u.ID, a.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Books())
	})

	for _, book := range []models.Book{a, b, c} {
		_, err := svc.AddBook(ctx, u.ID, book.ID)
		require.NoError(t, err)
	}

	t.Run("removes only the matching book", func(t *testing.T) {
		got, err := svc.RemoveBook(ctx, u.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{a.ID, c.ID}, got.BookIDs())

		reloaded, err := svc.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{a.ID, c.ID}, reloaded.BookIDs())
	})

	t.Run("removing a book not owned is a no-op", func(t *testing.T) {
		got, err := svc.RemoveBook(ctx, u.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{a.ID, c.ID}, got.BookIDs())
	})

	t.Run("missing book is not found", func(t *testing.T) {
		_, err := svc.RemoveBook(ctx, u.ID, 999)
		var domainErr *domainerrors.Error
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, MsgBookNotFound, domainErr.Message)
	})
}

func TestService_ListUsers(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, carlos(t))
	require.NoError(t, err)
	book := createBook(t, s, "listed")
	_, err = svc.AddBook(ctx, u.ID, book.ID)
	require.NoError(t, err)

	all, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []int64{book.ID}, all[0].BookIDs())
}

// partialCatalog hides one book, like a catalog that lost a document the
// user store still references.
type partialCatalog struct {
	*store.SQLiteStore
	hidden int64
}

func (c partialCatalog) GetBooks(ctx context.Context, ids []int64) ([]models.Book, error) {
	books, err := c.SQLiteStore.GetBooks(ctx, ids)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(books, func(b models.Book) bool { return b.ID == c.hidden }), nil
}

func TestService_KeepsReferencesMissingFromCatalog(t *testing.T) {
	full, s := setupService(t)
	ctx := context.Background()

	u, err := full.CreateUser(ctx, carlos(t))
	require.NoError(t, err)
	lost := createBook(t, s, "lost")
	kept := createBook(t, s, "kept")
	added := createBook(t, s, "added")
	for _, b := range []models.Book{lost, kept} {
		_, err := full.AddBook(ctx, u.ID, b.ID)
		require.NoError(t, err)
	}

	svc := NewService(s, partialCatalog{SQLiteStore: s, hidden: lost.ID},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	got, err := svc.AddBook(ctx, u.ID, added.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{kept.ID, added.ID}, got.BookIDs())

	row, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{lost.ID, kept.ID, added.ID}, row.BookIDs)

	_, err = svc.RemoveBook(ctx, u.ID, kept.ID)
	require.NoError(t, err)
	row, err = s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{lost.ID, added.ID}, row.BookIDs)

	restored, err := full.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, restored.Owns(lost.ID))
}
