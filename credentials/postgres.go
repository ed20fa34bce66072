package credentials

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

// Schema creates the table read by PostgresStore.
const Schema = `CREATE TABLE IF NOT EXISTS credentials (
	username      TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	user_id       TEXT NOT NULL UNIQUE,
	display_name  TEXT,
	email         TEXT,
	role          TEXT NOT NULL
)`

const lookupSQL = `SELECT username, password_hash, user_id, COALESCE(display_name, ''), COALESCE(email, ''), role
FROM credentials WHERE username = $1`

const upsertSQL = `INSERT INTO credentials (username, password_hash, user_id, display_name, email, role)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (username) DO UPDATE SET
	password_hash = EXCLUDED.password_hash,
	user_id = EXCLUDED.user_id,
	display_name = EXCLUDED.display_name,
	email = EXCLUDED.email,
	role = EXCLUDED.role`

// pool is the subset of *pgxpool.Pool used here.
type pool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore reads credentials from PostgreSQL.
type PostgresStore struct {
	pool pool
}

// NewPostgresStore returns a store using p, typically a *pgxpool.Pool.
func NewPostgresStore(p pool) *PostgresStore {
	return &PostgresStore{pool: p}
}

// EnsureSchema creates the credentials table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return oops.In("credentials").With("operation", "ensure schema").Wrap(err)
	}
	return nil
}

// Upsert inserts or replaces r.
func (s *PostgresStore) Upsert(ctx context.Context, r Record) error {
	_, err := s.pool.Exec(ctx, upsertSQL, r.Username, r.PasswordHash, r.UserID, r.DisplayName, r.Email, r.Role)
	if err != nil {
		return oops.In("credentials").With("operation", "upsert").With("username", r.Username).Wrap(err)
	}
	return nil
}

func (s *PostgresStore) LookupCredential(ctx context.Context, username string) (Record, error) {
	var r Record
	err := s.pool.QueryRow(ctx, lookupSQL, username).Scan(
		&r.Username, &r.PasswordHash, &r.UserID, &r.DisplayName, &r.Email, &r.Role,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, oops.In("credentials").With("username", username).Wrap(ErrNotFound)
	}
	if err != nil {
		return Record{}, oops.In("credentials").With("operation", "lookup").With("username", username).Wrap(err)
	}
	return r, nil
}
