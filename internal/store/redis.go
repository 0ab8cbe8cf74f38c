package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bookshelf/backend/internal/models"
)

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

// Catalog is the book persistence the cache sits in front of.
type Catalog interface {
	CreateBook(ctx context.Context, book *models.Book) error
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	GetBooks(ctx context.Context, ids []int64) ([]models.Book, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	SetBookCover(ctx context.Context, id int64, key string) error
}

// BookCache is a read-through Redis cache over a Catalog. Catalog entries
// only change when a cover is set, which evicts the key. Redis failures are
// logged and fall through to the catalog.
type BookCache struct {
	rdb    *redis.Client
	next   Catalog
	ttl    time.Duration
	logger *slog.Logger
}

func NewBookCache(rdb *redis.Client, next Catalog, ttl time.Duration, logger *slog.Logger) *BookCache {
	return &BookCache{rdb: rdb, next: next, ttl: ttl, logger: logger}
}

// cachedBook is the cached form of a book. Book's JSON form hides the
// cover key, so it travels in its own field.
type cachedBook struct {
	models.Book
	CoverKey string `json:"cover_key,omitempty"`
}

func decodeCached(raw []byte) (models.Book, error) {
	var cb cachedBook
	if err := json.Unmarshal(raw, &cb); err != nil {
		return models.Book{}, err
	}
	b := cb.Book
	b.CoverKey = cb.CoverKey
	return b, nil
}

func bookKey(id int64) string {
	return "book:" + strconv.FormatInt(id, 10)
}

func (c *BookCache) CreateBook(ctx context.Context, book *models.Book) error {
	return c.next.CreateBook(ctx, book)
}

func (c *BookCache) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	if book, ok := c.lookup(ctx, id); ok {
		return book, nil
	}
	book, err := c.next.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, []models.Book{*book})
	return book, nil
}

// GetBooks serves what it can from Redis with a single MGET and asks the
// catalog for the rest.
func (c *BookCache) GetBooks(ctx context.Context, ids []int64) ([]models.Book, error) {
	if len(ids) == 0 {
		return []models.Book{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = bookKey(id)
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("Book cache mget failed", "error", err)
		vals = make([]any, len(ids))
	}

	found := make([]models.Book, 0, len(ids))
	var missing []int64
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		b, err := decodeCached([]byte(raw))
		if err != nil {
			missing = append(missing, ids[i])
			continue
		}
		found = append(found, b)
	}

	if len(missing) > 0 {
		fetched, err := c.next.GetBooks(ctx, missing)
		if err != nil {
			return nil, err
		}
		c.fill(ctx, fetched)
		found = append(found, fetched...)
	}
	return orderBooks(ids, found), nil
}

func (c *BookCache) ListBooks(ctx context.Context) ([]models.Book, error) {
	return c.next.ListBooks(ctx)
}

func (c *BookCache) SetBookCover(ctx context.Context, id int64, key string) error {
	if err := c.next.SetBookCover(ctx, id, key); err != nil {
		return err
	}
	if err := c.rdb.Del(ctx, bookKey(id)).Err(); err != nil {
		c.logger.Warn("Book cache evict failed", "book_id", id, "error", err)
	}
	return nil
}

func (c *BookCache) lookup(ctx context.Context, id int64) (*models.Book, bool) {
	raw, err := c.rdb.Get(ctx, bookKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Book cache get failed", "book_id", id, "error", err)
		return nil, false
	}
	b, err := decodeCached(raw)
	if err != nil {
		return nil, false
	}
	return &b, true
}

// fill stores books with the cache TTL.
func (c *BookCache) fill(ctx context.Context, books []models.Book) {
	if len(books) == 0 {
		return
	}
	_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, b := range books {
			data, err := json.Marshal(cachedBook{Book: b, CoverKey: b.CoverKey})
			if err != nil {
				return err
			}
			p.Set(ctx, bookKey(b.ID), data, c.ttl)
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("Book cache fill failed", "error", err)
	}
}
