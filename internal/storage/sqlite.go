package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			key TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			entities INTEGER,
			truncated INTEGER,
			diagnostics JSON
		);`,
		`CREATE TABLE IF NOT EXISTS document_files (
			key TEXT,
			path TEXT,
			hash TEXT,
			PRIMARY KEY (key, path)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_document_files_path ON document_files(path);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveDocument(ctx context.Context, e *Entry) error {
	if e == nil || e.Key == "" {
		return fmt.Errorf("document entry needs a key")
	}
	diags, err := json.Marshal(e.Diagnostics)
	if err != nil {
		return fmt.Errorf("failed to encode diagnostics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. Save document
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (key, data, entities, truncated, diagnostics)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data=excluded.data,
			entities=excluded.entities,
			truncated=excluded.truncated,
			diagnostics=excluded.diagnostics
	`, e.Key, e.Data, e.Entities, e.Truncated, diags)
	if err != nil {
		return err
	}

	// 2. Replace the file snapshot
	if _, err := tx.ExecContext(ctx, "DELETE FROM document_files WHERE key = ?", e.Key); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO document_files (key, path, hash) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	paths := make([]string, 0, len(e.Files))
	for p := range e.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if _, err := stmt.ExecContext(ctx, e.Key, p, e.Files[p]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadDocument(ctx context.Context, key string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT data, entities, truncated, diagnostics FROM documents WHERE key = ?", key)

	e := &Entry{Key: key}
	var diags []byte
	if err := row.Scan(&e.Data, &e.Entities, &e.Truncated, &diags); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	if len(diags) > 0 {
		if err := json.Unmarshal(diags, &e.Diagnostics); err != nil {
			return nil, fmt.Errorf("failed to decode diagnostics: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, "SELECT path, hash FROM document_files WHERE key = ?", key)
	if err != nil {
		return nil, fmt.Errorf("failed to query document files: %w", err)
	}
	defer rows.Close()

	e.Files = make(map[string]string)
	for rows.Next() {
		var p, h string
		if err := rows.Scan(&p, &h); err != nil {
			return nil, fmt.Errorf("failed to scan document file: %w", err)
		}
		e.Files[p] = h
	}
	return e, rows.Err()
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM document_files WHERE key = ?",
		"DELETE FROM documents WHERE key = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, key); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM documents ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// KeysForFile returns the run keys whose snapshot includes path.
func (s *SQLiteStore) KeysForFile(ctx context.Context, path string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM document_files WHERE path = ? ORDER BY key", path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
