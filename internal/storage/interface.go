package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/ownerscope/internal/models"
)

// Common errors
var (
	ErrNotFound       = errors.New("not found")
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// HistoryStore holds the collected change records
type HistoryStore interface {
	// SaveRecords upserts records by id and returns how many were new
	SaveRecords(ctx context.Context, records []*models.ChangeRecord) (int, error)
	// ListRecords returns every record ordered by id
	ListRecords(ctx context.Context) ([]*models.ChangeRecord, error)
	KnownIDs(ctx context.Context) (map[int64]bool, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error

	Close() error
}

// Backend names
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// OpenHistory opens the history store for backend
func OpenHistory(backend, sqlitePath, postgresDSN string, logger *logrus.Logger) (HistoryStore, error) {
	switch backend {
	case "", BackendSQLite:
		return NewSQLiteStore(sqlitePath, logger)
	case BackendPostgres:
		return NewPostgresStore(postgresDSN, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
