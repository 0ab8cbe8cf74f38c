package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainerrors "github.com/bookshelf/backend/internal/errors"
	"github.com/bookshelf/backend/internal/models"
)

const pgUniqueViolation = "23505"

// PostgresStore handles user CRUD and book ownership against PostgreSQL.
// Book rows live in the catalog; user_books only references them by ID.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the users and user_books tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id         BIGSERIAL PRIMARY KEY,
			username   VARCHAR(50)  UNIQUE NOT NULL,
			name       VARCHAR(255) NOT NULL,
			birthday   DATE         NOT NULL,
			created_at TIMESTAMPTZ  DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS user_books (
			user_id  BIGINT  NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			book_id  BIGINT  NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (user_id, book_id)
		);

		CREATE INDEX IF NOT EXISTS idx_user_books_book_id ON user_books(book_id);
	`)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, row *models.UserRow) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, name, birthday)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		row.Username, row.Name, row.Birthday,
	).Scan(&row.ID)
	if err != nil {
		return pgError("create user", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*models.UserRow, error) {
	var row models.UserRow
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, name, birthday FROM users WHERE id = $1`, id,
	).Scan(&row.ID, &row.Username, &row.Name, &row.Birthday)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainerrors.NotFoundf("user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	ids, err := s.userBookIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	row.BookIDs = ids
	return &row, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]*models.UserRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT u.id, u.username, u.name, u.birthday,
		        COALESCE(array_agg(ub.book_id ORDER BY ub.position)
		                 FILTER (WHERE ub.book_id IS NOT NULL), '{}')
		 FROM users u
		 LEFT JOIN user_books ub ON ub.user_id = u.id
		 GROUP BY u.id
		 ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (*models.UserRow, error) {
		var row models.UserRow
		if err := r.Scan(&row.ID, &row.Username, &row.Name, &row.Birthday, &row.BookIDs); err != nil {
			return nil, err
		}
		return &row, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, row *models.UserRow) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET username = $2, name = $3, birthday = $4 WHERE id = $1`,
		row.ID, row.Username, row.Name, row.Birthday,
	)
	if err != nil {
		return pgError("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.NotFoundf("user %d not found", row.ID)
	}
	return nil
}

// DeleteUser removes the user and its ownership rows. Missing IDs are ignored.
func (s *PostgresStore) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// SetUserBooks replaces the user's collection with bookIDs, keeping their order.
func (s *PostgresStore) SetUserBooks(ctx context.Context, userID int64, bookIDs []int64) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_books WHERE user_id = $1`, userID); err != nil {
			return err
		}
		if len(bookIDs) == 0 {
			return nil
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"user_books"},
			[]string{"user_id", "book_id", "position"},
			pgx.CopyFromSlice(len(bookIDs), func(i int) ([]any, error) {
				return []any{userID, bookIDs[i], i}, nil
			}),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("set user books: %w", err)
	}
	return nil
}

func (s *PostgresStore) userBookIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT book_id FROM user_books WHERE user_id = $1 ORDER BY position`, userID)
	if err != nil {
		return nil, fmt.Errorf("get user books: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("get user books: %w", err)
	}
	return ids, nil
}

// pgError turns a unique violation on users.username into a conflict.
func pgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return domainerrors.Conflict(MsgUsernameTaken).WithCause(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
