package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	domainerrors "github.com/bookshelf/backend/internal/errors"
	"github.com/bookshelf/backend/internal/models"
)

// sqliteSchema sets up users, the book catalog and the ownership join table.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    birthday TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS books (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    genre TEXT NOT NULL DEFAULT '',
    author TEXT NOT NULL,
    image TEXT NOT NULL,
    title TEXT NOT NULL,
    subtitle TEXT NOT NULL,
    publisher TEXT NOT NULL,
    year TEXT NOT NULL,
    pages INTEGER NOT NULL,
    isbn TEXT NOT NULL,
    cover_key TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS user_books (
    user_id INTEGER NOT NULL,
    book_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (user_id, book_id),
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
    FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_user_books_book_id ON user_books(book_id);
`

const bookColumns = "id, genre, author, image, title, subtitle, publisher, year, pages, isbn, cover_key"

// SQLiteStore keeps users and the book catalog in one SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dbPath, creating parent directories
// and running migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// PRAGMAs are per connection, so they go in the DSN and apply to every
	// connection the pool opens.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateUser(ctx context.Context, row *models.UserRow) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, name, birthday) VALUES (?, ?, ?)",
		row.Username, row.Name, formatDate(row.Birthday),
	)
	if err != nil {
		return sqliteError("create user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	row.ID = id
	return nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*models.UserRow, error) {
	var (
		row      models.UserRow
		birthday string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, name, birthday FROM users WHERE id = ?", id,
	).Scan(&row.ID, &row.Username, &row.Name, &birthday)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if row.Birthday, err = parseDate(birthday); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT book_id FROM user_books WHERE user_id = ? ORDER BY position", id)
	if err != nil {
		return nil, fmt.Errorf("get user books: %w", err)
	}
	defer rows.Close()

	row.BookIDs = []int64{}
	for rows.Next() {
		var bookID int64
		if err := rows.Scan(&bookID); err != nil {
			return nil, fmt.Errorf("scan user book: %w", err)
		}
		row.BookIDs = append(row.BookIDs, bookID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user books: %w", err)
	}
	return &row, nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*models.UserRow, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	users := make([]*models.UserRow, 0, len(ids))
	for _, id := range ids {
		u, err := s.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, row *models.UserRow) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET username = ?, name = ?, birthday = ? WHERE id = ?",
		row.Username, row.Name, formatDate(row.Birthday), row.ID,
	)
	if err != nil {
		return sqliteError("update user", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return domainerrors.NotFoundf("user %d not found", row.ID)
	}
	return nil
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SetUserBooks(ctx context.Context, userID int64, bookIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_books WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clear user books: %w", err)
	}
	for i, bookID := range bookIDs {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO user_books (user_id, book_id, position) VALUES (?, ?, ?)",
			userID, bookID, i,
		)
		if err != nil {
			return fmt.Errorf("insert user book: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateBook(ctx context.Context, book *models.Book) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO books (genre, author, image, title, subtitle, publisher, year, pages, isbn, cover_key)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.Genre, book.Author, book.Image, book.Title, book.Subtitle,
		book.Publisher, book.Year, book.Pages, book.ISBN, book.CoverKey,
	)
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	book.ID = id
	return nil
}

func (s *SQLiteStore) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	book, err := scanBook(s.db.QueryRowContext(ctx,
		"SELECT "+bookColumns+" FROM books WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("book %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

func (s *SQLiteStore) GetBooks(ctx context.Context, ids []int64) ([]models.Book, error) {
	if len(ids) == 0 {
		return []models.Book{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	books, err := s.queryBooks(ctx,
		"SELECT "+bookColumns+" FROM books WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, err
	}
	return orderBooks(ids, books), nil
}

func (s *SQLiteStore) ListBooks(ctx context.Context) ([]models.Book, error) {
	return s.queryBooks(ctx, "SELECT "+bookColumns+" FROM books ORDER BY id")
}

func (s *SQLiteStore) SetBookCover(ctx context.Context, id int64, key string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE books SET cover_key = ? WHERE id = ?", key, id)
	if err != nil {
		return fmt.Errorf("set book cover: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set book cover: %w", err)
	}
	if n == 0 {
		return domainerrors.NotFoundf("book %d not found", id)
	}
	return nil
}

func (s *SQLiteStore) queryBooks(ctx context.Context, query string, args ...any) ([]models.Book, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, *book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBook(row scanner) (*models.Book, error) {
	var b models.Book
	err := row.Scan(&b.ID, &b.Genre, &b.Author, &b.Image, &b.Title, &b.Subtitle,
		&b.Publisher, &b.Year, &b.Pages, &b.ISBN, &b.CoverKey)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func formatDate(t time.Time) string {
	return t.Format(models.DateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(models.DateLayout, s)
}

// sqliteError turns a unique violation on users.username into a conflict.
// The primary code is checked since extended codes depend on the connection.
func sqliteError(op string, err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) &&
		sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
		strings.Contains(sqliteErr.Error(), "UNIQUE") {
		return domainerrors.Conflict(MsgUsernameTaken).WithCause(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
