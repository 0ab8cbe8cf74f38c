package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainerrors "github.com/bookshelf/backend/internal/errors"
	"github.com/bookshelf/backend/internal/models"
)

const booksSequence = "books"

// MongoStore handles the book catalog in MongoDB. Books keep numeric IDs,
// drawn from a counter document so they can be referenced from SQL.
type MongoStore struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		col:      db.Collection("books"),
		counters: db.Collection("counters"),
	}
}

func (s *MongoStore) CreateBook(ctx context.Context, book *models.Book) error {
	id, err := s.nextID(ctx, booksSequence)
	if err != nil {
		return err
	}
	book.ID = id
	if _, err := s.col.InsertOne(ctx, book); err != nil {
		return fmt.Errorf("mongo insert book: %w", err)
	}
	return nil
}

func (s *MongoStore) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	var book models.Book
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domainerrors.NotFoundf("book %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo get book: %w", err)
	}
	return &book, nil
}

// GetBooks returns the books with the given IDs in the order of ids.
func (s *MongoStore) GetBooks(ctx context.Context, ids []int64) ([]models.Book, error) {
	if len(ids) == 0 {
		return []models.Book{}, nil
	}
	cur, err := s.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("mongo get books: %w", err)
	}
	defer cur.Close(ctx)

	var books []models.Book
	if err := cur.All(ctx, &books); err != nil {
		return nil, fmt.Errorf("mongo get books: %w", err)
	}
	return orderBooks(ids, books), nil
}

func (s *MongoStore) ListBooks(ctx context.Context) ([]models.Book, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo list books: %w", err)
	}
	defer cur.Close(ctx)

	books := []models.Book{}
	if err := cur.All(ctx, &books); err != nil {
		return nil, fmt.Errorf("mongo list books: %w", err)
	}
	return books, nil
}

func (s *MongoStore) SetBookCover(ctx context.Context, id int64, key string) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"cover_key": key}},
	)
	if err != nil {
		return fmt.Errorf("mongo set cover: %w", err)
	}
	if res.MatchedCount == 0 {
		return domainerrors.NotFoundf("book %d not found", id)
	}
	return nil
}

// nextID atomically increments and returns the named sequence.
func (s *MongoStore) nextID(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("mongo next id: %w", err)
	}
	return counter.Seq, nil
}
