package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/etnz/profit"
	_ "modernc.org/sqlite"
)

// SQLite stores every saved document in a SQLite database. Load returns the
// most recent one, older ones are kept as history.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			saved_at     INTEGER NOT NULL,
			transactions INTEGER NOT NULL,
			document     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_saved_at ON snapshots(saved_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

// Save appends doc to the history.
func (s *SQLite) Save(ctx context.Context, doc *profit.Document) error {
	var buf bytes.Buffer
	if err := profit.EncodeDocument(&buf, doc); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (saved_at, transactions, document) VALUES (?, ?, ?)`,
		time.Now().UnixNano(), len(doc.Transactions), buf.String())
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns the most recently saved document, or an error wrapping
// fs.ErrNotExist if none was saved.
func (s *SQLite) Load(ctx context.Context) (*profit.Document, error) {
	var text string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM snapshots ORDER BY id DESC LIMIT 1`).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no snapshot saved: %w", fs.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	doc, err := profit.DecodeDocument(bytes.NewReader([]byte(text)))
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return doc, nil
}

// Entry describes a saved document.
type Entry struct {
	ID           int64
	SavedAt      time.Time
	Transactions int
}

// History lists the saved documents, most recent first.
func (s *SQLite) History(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, saved_at, transactions FROM snapshots ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		var ns int64
		if err := rows.Scan(&e.ID, &ns, &e.Transactions); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.SavedAt = time.Unix(0, ns)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes all but the keep most recent documents.
func (s *SQLite) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}
