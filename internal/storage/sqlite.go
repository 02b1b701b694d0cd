package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/ownerscope/internal/models"
)

// SQLiteStore keeps change history in a local SQLite file
type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLiteStore creates a new SQLite storage
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	db.Exec("PRAGMA journal_mode = WAL")

	store := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS change_records (
		id INTEGER PRIMARY KEY,
		repo_id TEXT NOT NULL DEFAULT '',
		file_paths TEXT NOT NULL,
		approvers TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		additions INTEGER NOT NULL DEFAULT 0,
		deletions INTEGER NOT NULL DEFAULT 0,
		title TEXT NOT NULL DEFAULT '',
		created_at DATETIME,
		merged_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_change_records_repo ON change_records(repo_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRecords upserts records in one transaction
func (s *SQLiteStore) SaveRecords(ctx context.Context, records []*models.ChangeRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT OR REPLACE INTO change_records
		(id, repo_id, file_paths, approvers, author, additions, deletions, title, created_at, merged_at)
		VALUES (:id, :repo_id, :file_paths, :approvers, :author, :additions, :deletions, :title, :created_at, :merged_at)
	`

	inserted := 0
	for _, r := range records {
		var exists int
		if err := tx.GetContext(ctx, &exists, `SELECT COUNT(1) FROM change_records WHERE id = ?`, r.ID); err != nil {
			return 0, fmt.Errorf("check record %d: %w", r.ID, err)
		}

		row, err := toRow(r)
		if err != nil {
			return 0, err
		}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return 0, fmt.Errorf("save record %d: %w", r.ID, err)
		}
		if exists == 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit records: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"records": len(records),
		"new":     inserted,
	}).Debug("saved change records")

	return inserted, nil
}

// ListRecords returns every record ordered by id
func (s *SQLiteStore) ListRecords(ctx context.Context) ([]*models.ChangeRecord, error) {
	var rows []recordRow
	query := `SELECT * FROM change_records ORDER BY id`

	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	return rowsToRecords(rows)
}

// KnownIDs returns the ids already stored
func (s *SQLiteStore) KnownIDs(ctx context.Context) (map[int64]bool, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM change_records`); err != nil {
		return nil, fmt.Errorf("list record ids: %w", err)
	}

	known := make(map[int64]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	return known, nil
}

// Count returns the number of stored records
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(1) FROM change_records`); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// DeleteAll removes every record
func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM change_records`); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}
