package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store on a jsonb documents table. It covers
// get/set for deployments that keep user documents in Postgres; change
// subscriptions are only available on the Redis backend.
type PostgresStore struct {
	db *sql.DB
}

const documentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
	key        text PRIMARY KEY,
	data       jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`

// NewPostgresStore connects with the given DSN and ensures the documents
// table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, documentsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure documents table: %w", classifyPgErr(err))
	}
	return &PostgresStore{db: db}, nil
}

// Get retrieves the document at key.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM documents WHERE key = $1`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, classifyPgErr(err))
	}
	return data, true, nil
}

// Set writes the document. Merge uses the jsonb concatenation operator, so
// top-level fields of value overlay the stored object.
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte, merge bool) error {
	if err := validateKey(key); err != nil {
		return err
	}
	query := `INSERT INTO documents (key, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`
	if merge {
		query = `INSERT INTO documents (key, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = now()`
	}
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, classifyPgErr(err))
	}
	return nil
}

// Subscribe is not supported on the Postgres backend.
func (s *PostgresStore) Subscribe(_ context.Context, collection string) (<-chan Event, error) {
	return nil, fmt.Errorf("subscribe %s: %w", collection, ErrSubscribeUnsupported)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// classifyPgErr maps insufficient_privilege onto ErrPermissionDenied.
func classifyPgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42501" {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, pgErr.Message)
	}
	return err
}
