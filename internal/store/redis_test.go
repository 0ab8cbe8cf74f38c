package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/bookshelf/backend/internal/errors"
	"github.com/bookshelf/backend/internal/models"
)

// unreachableRedis points at a port nothing listens on, so every command
// fails fast.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestBookCache_FallsThroughWhenRedisIsDown(t *testing.T) {
	catalog := newTestSQLite(t)
	ctx := context.Background()

	a := sampleBook("a")
	b := sampleBook("b")
	require.NoError(t, catalog.CreateBook(ctx, a))
	require.NoError(t, catalog.CreateBook(ctx, b))

	cache := NewBookCache(unreachableRedis(t), catalog, time.Minute,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	got, err := cache.GetBook(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Title)

	books, err := cache.GetBooks(ctx, []int64{b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "b", books[0].Title)

	require.NoError(t, cache.SetBookCover(ctx, a.ID, "covers/a"))
	got, err = cache.GetBook(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "covers/a", got.CoverKey)

	_, err = cache.GetBook(ctx, 9999)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestDecodeCached_KeepsCoverKey(t *testing.T) {
	raw := []byte(`{"id":3,"title":"t","pages":10,"cover_key":"covers/3/x"}`)

	b, err := decodeCached(raw)
	require.NoError(t, err)

	assert.Equal(t, models.Book{ID: 3, Title: "t", Pages: 10, CoverKey: "covers/3/x"}, b)
}

// countingCatalog records which lookups reach the catalog behind the cache.
type countingCatalog struct {
	*SQLiteStore
	gets    int
	fetched [][]int64
}

func (c *countingCatalog) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	c.gets++
	return c.SQLiteStore.GetBook(ctx, id)
}

func (c *countingCatalog) GetBooks(ctx context.Context, ids []int64) ([]models.Book, error) {
	c.fetched = append(c.fetched, ids)
	return c.SQLiteStore.GetBooks(ctx, ids)
}

func TestBookCache_ReadThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	catalog := &countingCatalog{SQLiteStore: newTestSQLite(t)}
	ctx := context.Background()

	a := sampleBook("a")
	b := sampleBook("b")
	require.NoError(t, catalog.CreateBook(ctx, a))
	require.NoError(t, catalog.CreateBook(ctx, b))
	require.NoError(t, catalog.SetBookCover(ctx, a.ID, "covers/a/1"))

	cache := NewBookCache(rdb, catalog, time.Minute,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	t.Run("miss fills the key with the ttl", func(t *testing.T) {
		got, err := cache.GetBook(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "a", got.Title)
		assert.Equal(t, 1, catalog.gets)

		require.True(t, mr.Exists(bookKey(a.ID)))
		assert.Equal(t, time.Minute, mr.TTL(bookKey(a.ID)))
	})

	t.Run("hit skips the catalog and keeps the cover key", func(t *testing.T) {
		got, err := cache.GetBook(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, catalog.gets)
		assert.Equal(t, "covers/a/1", got.CoverKey)
	})

	t.Run("bulk read merges hits and misses in request order", func(t *testing.T) {
		books, err := cache.GetBooks(ctx, []int64{b.ID, a.ID, 999})
		require.NoError(t, err)

		require.Len(t, books, 2)
		assert.Equal(t, "b", books[0].Title)
		assert.Equal(t, "a", books[1].Title)
		assert.Equal(t, "covers/a/1", books[1].CoverKey)

		require.Len(t, catalog.fetched, 1)
		assert.Equal(t, []int64{b.ID, 999}, catalog.fetched[0])
		assert.True(t, mr.Exists(bookKey(b.ID)))
		assert.False(t, mr.Exists(bookKey(999)))
	})

	t.Run("cover change evicts the key", func(t *testing.T) {
		require.NoError(t, cache.SetBookCover(ctx, a.ID, "covers/a/2"))
		assert.False(t, mr.Exists(bookKey(a.ID)))

		got, err := cache.GetBook(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "covers/a/2", got.CoverKey)
		assert.Equal(t, 2, catalog.gets)
	})
}
