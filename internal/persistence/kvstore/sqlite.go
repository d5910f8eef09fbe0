package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists keys in a single sqlite file and indexes written save
// archives.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS archives (
			save_time INTEGER NOT NULL,
			path TEXT NOT NULL,
			seed REAL NOT NULL,
			buildings INTEGER NOT NULL,
			scouts INTEGER NOT NULL,
			explored INTEGER NOT NULL,
			fog_chunks INTEGER NOT NULL,
			PRIMARY KEY (save_time, path)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_archives_seed ON archives(seed, save_time);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv(key, value, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

type ArchiveRow struct {
	SaveTime  int64
	Path      string
	Seed      float64
	Buildings int
	Scouts    int
	Explored  int
	FogChunks int
}

func (s *SQLiteStore) RecordArchive(ctx context.Context, r ArchiveRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO archives(save_time, path, seed, buildings, scouts, explored, fog_chunks)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		r.SaveTime, r.Path, r.Seed, r.Buildings, r.Scouts, r.Explored, r.FogChunks)
	return err
}

// LatestArchive returns the most recent archive row, or ErrNotFound.
func (s *SQLiteStore) LatestArchive(ctx context.Context) (ArchiveRow, error) {
	var r ArchiveRow
	err := s.db.QueryRowContext(ctx,
		`SELECT save_time, path, seed, buildings, scouts, explored, fog_chunks
		 FROM archives ORDER BY save_time DESC LIMIT 1`).
		Scan(&r.SaveTime, &r.Path, &r.Seed, &r.Buildings, &r.Scouts, &r.Explored, &r.FogChunks)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

// ListArchives returns archive rows newest first. limit <= 0 means all.
func (s *SQLiteStore) ListArchives(ctx context.Context, limit int) ([]ArchiveRow, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT save_time, path, seed, buildings, scouts, explored, fog_chunks
		 FROM archives ORDER BY save_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ArchiveRow
	for rows.Next() {
		var r ArchiveRow
		if err := rows.Scan(&r.SaveTime, &r.Path, &r.Seed, &r.Buildings, &r.Scouts, &r.Explored, &r.FogChunks); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
