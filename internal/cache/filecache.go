// Package cache persists what indexing learned about each file in SQLite.
package cache

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ErrFileNotFound is returned for paths that were never indexed.
var ErrFileNotFound = errors.New("cache: file not found")

// File is the summary stored for one indexed file.
type File struct {
	Path      string
	Language  string
	Modified  time.Time
	Rows      int
	Bytes     int
	HasError  bool
	IndexedAt time.Time
}

// Symbol is a declaration found in an indexed file.
type Symbol struct {
	Path   string
	Name   string
	Kind   string
	Row    uint32
	Column uint32
}

// Filecache stores files and symbols in a SQLite database.
type Filecache struct {
	db *sql.DB
}

// NewFilecache opens (or creates) the SQLite database at the provided path,
// enables WAL mode, initializes the schema from the embedded file, and returns a Filecache.
func NewFilecache(dbPath string) (*Filecache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Filecache{db: db}, nil
}

// withTx is a helper function to execute a function within a transaction.
func (fc *Filecache) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := fc.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// UpsertFile replaces the summary and the symbols of a file.
func (fc *Filecache) UpsertFile(file File, symbols []Symbol) error {
	return fc.withTx(func(tx *sql.Tx) error {
		if file.IndexedAt.IsZero() {
			file.IndexedAt = time.Now()
		}
		if _, err := tx.Exec(`
            INSERT INTO files (path, language, mtime, rows, bytes, has_error, indexed_at)
            VALUES (?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(path) DO UPDATE SET
                language = excluded.language,
                mtime = excluded.mtime,
                rows = excluded.rows,
                bytes = excluded.bytes,
                has_error = excluded.has_error,
                indexed_at = excluded.indexed_at
        `, file.Path, file.Language, file.Modified.UnixNano(), file.Rows, file.Bytes,
			file.HasError, file.IndexedAt.UnixNano()); err != nil {
			return err
		}

		if _, err := tx.Exec(`DELETE FROM symbols WHERE path = ?`, file.Path); err != nil {
			return err
		}
		for _, s := range symbols {
			if _, err := tx.Exec(`
                INSERT INTO symbols (path, name, kind, row, col) VALUES (?, ?, ?, ?, ?)
            `, file.Path, s.Name, s.Kind, s.Row, s.Column); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteFile forgets a file and its symbols.
func (fc *Filecache) DeleteFile(path string) error {
	return fc.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM symbols WHERE path = ?`, path); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM files WHERE path = ?`, path)
		return err
	})
}

// GetLastModified returns the modification time recorded for path.
func (fc *Filecache) GetLastModified(path string) (time.Time, error) {
	var ns int64
	err := fc.db.QueryRow(`SELECT mtime FROM files WHERE path = ?`, path).Scan(&ns)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrFileNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, ns), nil
}

// GetFiles returns every indexed file, ordered by path.
func (fc *Filecache) GetFiles() ([]File, error) {
	rows, err := fc.db.Query(`
        SELECT path, language, mtime, rows, bytes, has_error, indexed_at
        FROM files ORDER BY path
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		var mtime, indexed int64
		if err := rows.Scan(&f.Path, &f.Language, &mtime, &f.Rows, &f.Bytes, &f.HasError, &indexed); err != nil {
			return nil, err
		}
		f.Modified = time.Unix(0, mtime)
		f.IndexedAt = time.Unix(0, indexed)
		files = append(files, f)
	}
	return files, rows.Err()
}

// getSymbols is a helper function to retrieve symbols from the database.
func (fc *Filecache) getSymbols(query string, args ...any) ([]Symbol, error) {
	rows, err := fc.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []Symbol
	for rows.Next() {
		var s Symbol
		if err := rows.Scan(&s.Path, &s.Name, &s.Kind, &s.Row, &s.Column); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// GetSymbols returns the symbols of one file in document order.
func (fc *Filecache) GetSymbols(path string) ([]Symbol, error) {
	return fc.getSymbols(`
        SELECT path, name, kind, row, col FROM symbols WHERE path = ? ORDER BY row, col
    `, path)
}

// FindSymbols returns every symbol called name across all files.
func (fc *Filecache) FindSymbols(name string) ([]Symbol, error) {
	return fc.getSymbols(`
        SELECT path, name, kind, row, col FROM symbols WHERE name = ? ORDER BY path, row, col
    `, name)
}

// Close closes the database.
func (fc *Filecache) Close() error {
	return fc.db.Close()
}
