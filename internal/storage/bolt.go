package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/rohankatakam/ownerscope/internal/codeowners"
	"github.com/rohankatakam/ownerscope/internal/models"
	"github.com/rohankatakam/ownerscope/internal/training"
)

var (
	ledgerBucket    = []byte("ledger")
	groupsBucket    = []byte("group_models")
	teamsBucket     = []byte("team_models")
	fallbacksBucket = []byte("group_fallbacks")
	metaBucket      = []byte("meta")

	allBuckets = [][]byte{ledgerBucket, groupsBucket, teamsBucket, fallbacksBucket, metaBucket}

	keyRules       = []byte("rules")
	keyTrained     = []byte("trained")
	keyLastTrained = []byte("last_trained")
	keyRuns        = []byte("runs")
)

// ModelStore persists the processed-id ledger, trained models and ownership
// rules in a bbolt file. Commit rewrites all of them in one transaction.
type ModelStore struct {
	db     *bolt.DB
	logger *logrus.Logger
}

// NewModelStore opens or creates the model store at path
func NewModelStore(path string, logger *logrus.Logger) (*ModelStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create model store directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open model store: %w", err)
	}

	return &ModelStore{db: db, logger: logger}, nil
}

// Close closes the bbolt file
func (s *ModelStore) Close() error {
	return s.db.Close()
}

// Load reads the committed state. An empty store yields an untrained state.
func (s *ModelStore) Load(ctx context.Context) (*training.State, error) {
	state := training.NewState()

	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(ledgerBucket); b != nil {
			err := b.ForEach(func(k, _ []byte) error {
				id, err := strconv.ParseInt(string(k), 10, 64)
				if err != nil {
					return fmt.Errorf("ledger key %q: %w", k, err)
				}
				state.ProcessedIDs[id] = true
				return nil
			})
			if err != nil {
				return err
			}
		}

		if err := loadJSON(tx.Bucket(groupsBucket), state.Groups); err != nil {
			return err
		}
		if err := loadJSON(tx.Bucket(teamsBucket), state.Teams); err != nil {
			return err
		}
		if err := loadJSON(tx.Bucket(fallbacksBucket), state.Fallbacks); err != nil {
			return err
		}

		meta := tx.Bucket(metaBucket)
		if meta == nil {
			return nil
		}
		if v := meta.Get(keyRules); v != nil {
			var rules []codeowners.Rule
			if err := json.Unmarshal(v, &rules); err != nil {
				return fmt.Errorf("decode rules: %w", err)
			}
			state.Rules = rules
		}
		if v := meta.Get(keyTrained); v != nil {
			state.Trained = string(v) == "true"
		}
		if v := meta.Get(keyLastTrained); v != nil {
			if err := state.LastTrained.UnmarshalText(v); err != nil {
				return fmt.Errorf("decode last trained: %w", err)
			}
		}
		if v := meta.Get(keyRuns); v != nil {
			var runs []models.RunSummary
			if err := json.Unmarshal(v, &runs); err != nil {
				return fmt.Errorf("decode runs: %w", err)
			}
			state.Runs = runs
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load model store: %w", err)
	}

	return state, nil
}

// loadJSON decodes every value of b into dst, keyed by target id
func loadJSON[T any](b *bolt.Bucket, dst map[string]*T) error {
	if b == nil {
		return nil
	}
	return b.ForEach(func(k, v []byte) error {
		var m T
		if err := json.Unmarshal(v, &m); err != nil {
			return fmt.Errorf("decode %q: %w", k, err)
		}
		dst[string(k)] = &m
		return nil
	})
}

// Commit replaces the stored state in a single read-write transaction, so
// the ledger never advances without the models that go with it.
func (s *ModelStore) Commit(ctx context.Context, state *training.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if tx.Bucket(name) != nil {
				if err := tx.DeleteBucket(name); err != nil {
					return fmt.Errorf("clear bucket %s: %w", name, err)
				}
			}
		}

		ledger, err := tx.CreateBucket(ledgerBucket)
		if err != nil {
			return err
		}
		for _, id := range state.Processed() {
			if err := ledger.Put([]byte(strconv.FormatInt(id, 10)), []byte("1")); err != nil {
				return err
			}
		}

		if err := putJSON(tx, groupsBucket, state.Groups); err != nil {
			return err
		}
		if err := putJSON(tx, teamsBucket, state.Teams); err != nil {
			return err
		}
		if err := putJSON(tx, fallbacksBucket, state.Fallbacks); err != nil {
			return err
		}

		meta, err := tx.CreateBucket(metaBucket)
		if err != nil {
			return err
		}
		rules, err := json.Marshal(state.Rules)
		if err != nil {
			return fmt.Errorf("encode rules: %w", err)
		}
		if err := meta.Put(keyRules, rules); err != nil {
			return err
		}
		if err := meta.Put(keyTrained, []byte(strconv.FormatBool(state.Trained))); err != nil {
			return err
		}
		lastTrained, err := state.LastTrained.MarshalText()
		if err != nil {
			return fmt.Errorf("encode last trained: %w", err)
		}
		if err := meta.Put(keyLastTrained, lastTrained); err != nil {
			return err
		}
		runs, err := json.Marshal(state.Runs)
		if err != nil {
			return fmt.Errorf("encode runs: %w", err)
		}
		return meta.Put(keyRuns, runs)
	})
	if err != nil {
		return fmt.Errorf("commit model store: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"processed": len(state.ProcessedIDs),
		"groups":    len(state.Groups),
		"teams":     len(state.Teams),
		"fallbacks": len(state.Fallbacks),
	}).Debug("committed training state")

	return nil
}

func putJSON[T any](tx *bolt.Tx, name []byte, src map[string]*T) error {
	b, err := tx.CreateBucket(name)
	if err != nil {
		return err
	}
	for id, m := range src {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", name, id, err)
		}
		if err := b.Put([]byte(id), data); err != nil {
			return err
		}
	}
	return nil
}

// Reset drops the ledger, every model and every fallback
func (s *ModelStore) Reset(ctx context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if tx.Bucket(name) == nil {
				continue
			}
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reset model store: %w", err)
	}
	s.logger.Info("model store reset")
	return nil
}
