package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/movie-recommender/internal/models"
)

var (
	// ErrStorage wraps any connection or query failure.
	ErrStorage = errors.New("storage error")
	// ErrDuplicate is returned when an insert hits a unique constraint.
	ErrDuplicate = errors.New("username or email already exists")
)

const uniqueViolation = "23505"

// PostgresStore handles user CRUD against PostgreSQL. Every call borrows a
// connection from the pool and returns it before the method returns.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureDatabase creates database name if it does not exist. adminDSN must
// point at a database the user can connect to, usually "postgres".
func EnsureDatabase(ctx context.Context, adminDSN, name string) error {
	conn, err := pgx.Connect(ctx, adminDSN)
	if err != nil {
		return fmt.Errorf("%w: connect admin: %v", ErrStorage, err)
	}
	defer conn.Close(ctx)

	var exists bool
	err = conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%w: check database: %v", ErrStorage, err)
	}
	if exists {
		return nil
	}

	ident := pgx.Identifier{name}.Sanitize()
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+ident); err != nil {
		var pgErr *pgconn.PgError
		// duplicate_database: another process won the race.
		if errors.As(err, &pgErr) && pgErr.Code == "42P04" {
			return nil
		}
		return fmt.Errorf("%w: create database: %v", ErrStorage, err)
	}
	return nil
}

// EnsureSchema creates the users and user_preferences tables if they don't exist.
// Usernames and emails are unique regardless of case.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id         BIGSERIAL    PRIMARY KEY,
			username   VARCHAR(255) UNIQUE NOT NULL,
			email      VARCHAR(255) UNIQUE NOT NULL,
			password   VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ  DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS user_preferences (
			id             BIGSERIAL    PRIMARY KEY,
			user_id        BIGINT       NOT NULL REFERENCES users(id),
			favorite_genre VARCHAR(100),
			favorite_movie VARCHAR(255),
			created_at     TIMESTAMPTZ  DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS users_username_lower_key ON users (lower(username));
		CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_key ON users (lower(email))
	`)
	if err != nil {
		return fmt.Errorf("%w: ensure schema: %v", ErrStorage, err)
	}
	return nil
}

func (s *PostgresStore) InsertUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password)
		 VALUES ($1, $2, $3)
		 RETURNING id, username, email, created_at`,
		username, email, passwordHash,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("%w: insert user: %v", ErrStorage, err)
	}
	return &u, nil
}

// FindByUsernameOrEmail returns the first user matching either field, or nil.
// Both comparisons ignore case.
func (s *PostgresStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	return s.findOne(ctx,
		`SELECT id, username, email, password, created_at FROM users
		 WHERE lower(username) = lower($1) OR lower(email) = lower($2) LIMIT 1`, username, email)
}

// FindByUsername matches username ignoring case.
func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx,
		`SELECT id, username, email, password, created_at FROM users WHERE lower(username) = lower($1)`, username)
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return s.findOne(ctx,
		`SELECT id, username, email, password, created_at FROM users WHERE id = $1`, id)
}

// UpdatePassword replaces the stored credential, used when upgrading hashes.
func (s *PostgresStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("%w: update password: %v", ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: update password: user %d not found", ErrStorage, id)
	}
	return nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx, query, args...).
		Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &u, nil
}

// Tables lists the tables in the public schema.
func (s *PostgresStore) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = 'public' ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("%w: list tables: %v", ErrStorage, err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%w: list tables: %v", ErrStorage, err)
	}
	return names, nil
}

// Column describes one column of a table.
type Column struct {
	Name string
	Type string
}

// Columns describes table in ordinal order.
func (s *PostgresStore) Columns(ctx context.Context, table string) ([]Column, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT column_name, data_type FROM information_schema.columns
		 WHERE table_schema = 'public' AND table_name = $1 ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("%w: describe %s: %v", ErrStorage, table, err)
	}
	cols, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Column, error) {
		var c Column
		err := row.Scan(&c.Name, &c.Type)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: describe %s: %v", ErrStorage, table, err)
	}
	return cols, nil
}
