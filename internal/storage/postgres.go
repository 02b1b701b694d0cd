package storage

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/ownerscope/internal/models"
)

// PostgresStore keeps change history in PostgreSQL
type PostgresStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPostgresStore creates a new PostgreSQL storage
func NewPostgresStore(dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &PostgresStore{
		db:     db,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS change_records (
		id BIGINT PRIMARY KEY,
		repo_id TEXT NOT NULL DEFAULT '',
		file_paths JSONB NOT NULL,
		approvers JSONB NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		additions INTEGER NOT NULL DEFAULT 0,
		deletions INTEGER NOT NULL DEFAULT 0,
		title TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ,
		merged_at TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_change_records_repo ON change_records(repo_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// SaveRecords upserts records in one transaction
func (s *PostgresStore) SaveRecords(ctx context.Context, records []*models.ChangeRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// xmax = 0 only for freshly inserted rows
	query := `
		INSERT INTO change_records (id, repo_id, file_paths, approvers, author,
			additions, deletions, title, created_at, merged_at)
		VALUES (:id, :repo_id, CAST(:file_paths AS JSONB), CAST(:approvers AS JSONB), :author,
			:additions, :deletions, :title, :created_at, :merged_at)
		ON CONFLICT (id) DO UPDATE SET
			repo_id = EXCLUDED.repo_id,
			file_paths = EXCLUDED.file_paths,
			approvers = EXCLUDED.approvers,
			author = EXCLUDED.author,
			additions = EXCLUDED.additions,
			deletions = EXCLUDED.deletions,
			title = EXCLUDED.title,
			created_at = EXCLUDED.created_at,
			merged_at = EXCLUDED.merged_at
		RETURNING (xmax = 0) AS inserted
	`

	inserted := 0
	for _, r := range records {
		row, err := toRow(r)
		if err != nil {
			return 0, err
		}

		named, args, err := tx.BindNamed(query, row)
		if err != nil {
			return 0, fmt.Errorf("bind record %d: %w", r.ID, err)
		}
		var isNew bool
		if err := tx.GetContext(ctx, &isNew, named, args...); err != nil {
			return 0, fmt.Errorf("save record %d: %w", r.ID, err)
		}
		if isNew {
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
func (s *PostgresStore) ListRecords(ctx context.Context) ([]*models.ChangeRecord, error) {
	var rows []recordRow
	query := `
		SELECT id, repo_id, file_paths::text AS file_paths, approvers::text AS approvers,
			author, additions, deletions, title, created_at, merged_at
		FROM change_records ORDER BY id
	`

	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	return rowsToRecords(rows)
}

// KnownIDs returns the ids already stored
func (s *PostgresStore) KnownIDs(ctx context.Context) (map[int64]bool, error) {
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
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(1) FROM change_records`); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// DeleteAll removes every record
func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM change_records`); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}
