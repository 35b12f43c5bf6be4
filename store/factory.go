package store

import (
	"context"
	"fmt"
	"path/filepath"
)

// Options carries backend-specific settings for New.
type Options struct {
	DataDir     string
	SqlitePath  string
	DatabaseURL string
}

// New creates a Store based on the backend name.
//
// Supported backends:
//
//	"disk"     - files under DataDir (default)
//	"sqlite"   - SQLite database at SqlitePath, or DataDir/records.db
//	"postgres" - PostgreSQL at DatabaseURL
//	"memory"   - In-memory (ephemeral, for testing)
func New(ctx context.Context, backend string, opts Options) (Store, error) {
	switch backend {
	case "disk", "":
		return NewDiskStore(opts.DataDir)
	case "sqlite":
		dbPath := opts.SqlitePath
		if dbPath == "" {
			dbPath = filepath.Join(opts.DataDir, "records.db")
		}
		return NewSqliteStore(dbPath)
	case "postgres":
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres backend requires a database URL")
		}
		return NewPostgresStore(ctx, opts.DatabaseURL)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: disk, sqlite, postgres, memory)", backend)
	}
}
