package store

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SqliteStore stores all objects in a single SQLite database.
//
// Tables:
//
//	objects(name, data, modified_at)  PRIMARY KEY (name)
type SqliteStore struct {
	db *sql.DB
}

func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers; sqlite3 reports SQLITE_BUSY otherwise.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS objects (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		modified_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) Put(ctx context.Context, name string, r io.Reader) (int64, error) {
	clean, err := CleanName(name)
	if err != nil {
		return 0, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), fmt.Errorf("read %s: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO objects (name, data, modified_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data, modified_at = excluded.modified_at`,
		clean, data, time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func (s *SqliteStore) Get(ctx context.Context, name string) (*Object, error) {
	clean, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	var (
		data     []byte
		modified int64
	)
	err = s.db.QueryRowContext(ctx,
		"SELECT data, modified_at FROM objects WHERE name = ?", clean,
	).Scan(&data, &modified)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &Object{
		Name:    clean,
		Content: nopSeekCloser{bytes.NewReader(data)},
		Size:    int64(len(data)),
		ModTime: time.UnixMilli(modified),
	}, nil
}
