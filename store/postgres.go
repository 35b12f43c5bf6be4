package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore stores objects in a PostgreSQL table through a pgx pool.
//
// Tables:
//
//	objects(name, data, modified_at)  PRIMARY KEY (name)
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS objects (
		name TEXT PRIMARY KEY,
		data BYTEA NOT NULL,
		modified_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create objects table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, name string, r io.Reader) (int64, error) {
	clean, err := CleanName(name)
	if err != nil {
		return 0, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), fmt.Errorf("read %s: %w", name, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO objects (name, data, modified_at) VALUES ($1, $2, now())
		 ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, modified_at = EXCLUDED.modified_at`,
		clean, data,
	)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func (s *PostgresStore) Get(ctx context.Context, name string) (*Object, error) {
	clean, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	var (
		data     []byte
		modified time.Time
	)
	err = s.pool.QueryRow(ctx,
		"SELECT data, modified_at FROM objects WHERE name = $1", clean,
	).Scan(&data, &modified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &Object{
		Name:    clean,
		Content: nopSeekCloser{bytes.NewReader(data)},
		Size:    int64(len(data)),
		ModTime: modified,
	}, nil
}
