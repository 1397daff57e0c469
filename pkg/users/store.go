package users

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLStore persists users in a SQL database. The schema is a single table;
// both sqlite and postgres drivers are supported via the placeholder style.
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

// NewSQLStore creates a store over an open database handle. Set postgres to
// true when the handle uses $1-style placeholders.
func NewSQLStore(db *sql.DB, postgres bool) *SQLStore {
	return &SQLStore{db: db, postgres: postgres}
}

// Migrate creates the users table if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			pass TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}
	return nil
}

func (s *SQLStore) placeholder(n int) string {
	if s.postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Create inserts a new user. Returns ErrAlreadyExists if the ID is taken.
func (s *SQLStore) Create(ctx context.Context, u *User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	existing, err := s.Get(ctx, u.ID)
	if err != nil && err != ErrNotFound {
		return err
	}
	if existing != nil {
		return ErrAlreadyExists
	}

	query := fmt.Sprintf(
		"INSERT INTO users (id, pass, created_at) VALUES (%s, %s, %s)",
		s.placeholder(1), s.placeholder(2), s.placeholder(3),
	)
	if _, err := s.db.ExecContext(ctx, query, u.ID, u.Pass, u.CreatedAt); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Get retrieves a user by ID. Returns ErrNotFound when absent.
func (s *SQLStore) Get(ctx context.Context, id string) (*User, error) {
	query := fmt.Sprintf(
		"SELECT id, pass, created_at FROM users WHERE id = %s",
		s.placeholder(1),
	)

	u := &User{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Pass, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}
