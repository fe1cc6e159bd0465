package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists the catalog in a SQLite database. Position order is
// the id column, which must stay contiguous from 0.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY,
		filename TEXT NOT NULL,
		filepath TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load reads all items in position order.
func (s *SQLiteStore) Load(ctx context.Context) (*Catalog, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, filename, filepath FROM images ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Filename, &item.Filepath); err != nil {
			return nil, fmt.Errorf("scan image row: %w", err)
		}
		if item.ID != len(items) {
			return nil, fmt.Errorf("catalog ids not contiguous: gap before id %d", item.ID)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate image rows: %w", err)
	}
	return New(items), nil
}

// Save replaces the stored catalog with c in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, c *Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM images"); err != nil {
		return fmt.Errorf("clear images: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO images (id, filename, filepath) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, item := range c.Items() {
		if _, err := stmt.ExecContext(ctx, item.ID, item.Filename, item.Filepath); err != nil {
			return fmt.Errorf("insert image %d: %w", item.ID, err)
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
