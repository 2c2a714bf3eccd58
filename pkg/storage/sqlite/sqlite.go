package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/adfharrison1/json-updates/pkg/domain"
)

// IsConflict reports whether a failed insert violated the document key
func IsConflict(cause domain.WriteCause) bool {
	switch sqlite3.ErrNoExtended(cause.Code) {
	case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
		return true
	default:
		return false
	}
}

// Store keeps every collection in one SQLite database.
//
// Tables:
//
//	documents(collection, id, data, created_at)  PRIMARY KEY (collection, id)
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Printf("INFO: Opened SQLite store at %s", path)
	return &Store{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// BulkInsert implements domain.DocumentStore. Each document is its own
// statement inside one transaction, so a rejected row leaves the rest in place.
func (s *Store) BulkInsert(ctx context.Context, collection string, docs []domain.PreparedDocument) (domain.BulkWriteResult, error) {
	if len(docs) == 0 {
		return domain.BulkWriteResult{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.BulkWriteResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO documents (collection, id, data, created_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return domain.BulkWriteResult{}, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	var result domain.BulkWriteResult
	for i, doc := range docs {
		data, err := json.Marshal(doc.Data)
		if err != nil {
			result.Outcomes = append(result.Outcomes, domain.ItemOutcome{
				Index:  i,
				Status: domain.ItemFailed,
				Cause:  domain.WriteCause{Code: int(sqlite3.ErrMismatch), Message: err.Error()},
			})
			continue
		}

		_, err = stmt.ExecContext(ctx, collection, doc.ID, string(data), doc.CreatedAt.UTC().Format(time.RFC3339Nano))
		if err == nil {
			continue
		}
		var sqliteErr sqlite3.Error
		if !errors.As(err, &sqliteErr) {
			return domain.BulkWriteResult{}, fmt.Errorf("failed to insert document %q: %w", doc.ID, err)
		}
		result.Outcomes = append(result.Outcomes, domain.ItemOutcome{
			Index:  i,
			Status: domain.ItemFailed,
			Cause:  domain.WriteCause{Code: int(sqliteErr.ExtendedCode), Message: sqliteErr.Error()},
		})
	}

	if err := tx.Commit(); err != nil {
		return domain.BulkWriteResult{}, fmt.Errorf("failed to commit batch: %w", err)
	}
	return result, nil
}

// GetById returns a stored envelope
func (s *Store) GetById(ctx context.Context, collection, id string) (domain.PreparedDocument, error) {
	var data, createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT data, created_at FROM documents WHERE collection = ? AND id = ?", collection, id,
	).Scan(&data, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PreparedDocument{}, fmt.Errorf("document with id %s not found in collection %s", id, collection)
	}
	if err != nil {
		return domain.PreparedDocument{}, err
	}

	doc := domain.PreparedDocument{ID: id}
	if err := json.Unmarshal([]byte(data), &doc.Data); err != nil {
		return domain.PreparedDocument{}, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	if doc.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return domain.PreparedDocument{}, fmt.Errorf("failed to parse created_at of %s: %w", id, err)
	}
	return doc, nil
}

// Count returns the number of documents in a collection
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE collection = ?", collection).Scan(&n)
	return n, err
}

// Ping implements domain.DocumentStore
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements domain.DocumentStore
func (s *Store) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
