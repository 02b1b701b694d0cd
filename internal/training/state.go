package training

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/rohankatakam/ownerscope/internal/classifier"
	"github.com/rohankatakam/ownerscope/internal/codeowners"
	"github.com/rohankatakam/ownerscope/internal/models"
	"github.com/rohankatakam/ownerscope/internal/stats"
)

// MaxRuns bounds the run history kept in the ledger
const MaxRuns = 20

// TrainedModel is the persisted artifact for one group or team: the fitted
// classifier, the feature order it was trained with, its scaler and the
// full-history stats snapshot used at inference.
type TrainedModel struct {
	Target        string                          `json:"target"`
	Family        models.Family                   `json:"family"`
	Classifier    string                          `json:"classifier"`
	Params        json.RawMessage                 `json:"params"`
	FeatureNames  []string                        `json:"feature_names"`
	Scaler        *classifier.Scaler              `json:"scaler"`
	Stats         map[string]stats.DeveloperStats `json:"stats"`
	Candidates    []string                        `json:"candidates"`
	Samples       int                             `json:"samples"`
	Positive      int                             `json:"positive"`
	Negative      int                             `json:"negative"`
	TrainAccuracy float64                         `json:"train_accuracy"`
	TestAccuracy  float64                         `json:"test_accuracy"`
	TrainedAt     time.Time                       `json:"trained_at"`
}

// GroupFallback keeps the full-history stats of a group's owners when the
// group did not qualify for a model. Owners are scored by approval rate.
type GroupFallback struct {
	Group     string                          `json:"group"`
	Owners    []string                        `json:"owners"`
	Stats     map[string]stats.DeveloperStats `json:"stats"`
	Reason    string                          `json:"reason"`
	UpdatedAt time.Time                       `json:"updated_at"`
}

// State is the ledger plus model bundle committed at the end of every run.
type State struct {
	ProcessedIDs map[int64]bool            `json:"processed_ids"`
	Groups       map[string]*TrainedModel  `json:"groups"`
	Teams        map[string]*TrainedModel  `json:"teams"`
	Fallbacks    map[string]*GroupFallback `json:"fallbacks,omitempty"`
	Rules        []codeowners.Rule         `json:"rules"`
	Trained      bool                      `json:"trained"`
	LastTrained  time.Time                 `json:"last_trained"`
	Runs         []models.RunSummary       `json:"runs"`
}

// NewState returns an empty, untrained state
func NewState() *State {
	return &State{
		ProcessedIDs: make(map[int64]bool),
		Groups:       make(map[string]*TrainedModel),
		Teams:        make(map[string]*TrainedModel),
		Fallbacks:    make(map[string]*GroupFallback),
	}
}

// Clone copies the maps and slices a run mutates. Models are shared; they
// are replaced, never modified in place.
func (s *State) Clone() *State {
	out := NewState()
	for id := range s.ProcessedIDs {
		out.ProcessedIDs[id] = true
	}
	for k, v := range s.Groups {
		out.Groups[k] = v
	}
	for k, v := range s.Teams {
		out.Teams[k] = v
	}
	for k, v := range s.Fallbacks {
		out.Fallbacks[k] = v
	}
	out.Rules = append([]codeowners.Rule(nil), s.Rules...)
	out.Trained = s.Trained
	out.LastTrained = s.LastTrained
	out.Runs = append([]models.RunSummary(nil), s.Runs...)
	return out
}

// Processed returns the ledger ids in ascending order
func (s *State) Processed() []int64 {
	ids := make([]int64, 0, len(s.ProcessedIDs))
	for id := range s.ProcessedIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// HasModels reports whether any group or team model exists
func (s *State) HasModels() bool {
	return len(s.Groups)+len(s.Teams) > 0
}

func (s *State) appendRun(r models.RunSummary) {
	s.Runs = append(s.Runs, r)
	if len(s.Runs) > MaxRuns {
		s.Runs = s.Runs[len(s.Runs)-MaxRuns:]
	}
}

// StateStore persists State. Commit must write the ledger, models and rules
// atomically: after a crash either all of them or none are visible.
type StateStore interface {
	Load(ctx context.Context) (*State, error)
	Commit(ctx context.Context, s *State) error
	Reset(ctx context.Context) error
}

// MemoryStore is an in-process StateStore
type MemoryStore struct {
	data []byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load decodes the last committed state
func (m *MemoryStore) Load(ctx context.Context) (*State, error) {
	if m.data == nil {
		return NewState(), nil
	}
	return DecodeState(m.data)
}

// Commit replaces the stored state
func (m *MemoryStore) Commit(ctx context.Context, s *State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.data = data
	return nil
}

// Reset clears the stored state
func (m *MemoryStore) Reset(ctx context.Context) error {
	m.data = nil
	return nil
}

// DecodeState unmarshals a state and fills nil maps
func DecodeState(data []byte) (*State, error) {
	s := NewState()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if s.ProcessedIDs == nil {
		s.ProcessedIDs = make(map[int64]bool)
	}
	if s.Groups == nil {
		s.Groups = make(map[string]*TrainedModel)
	}
	if s.Teams == nil {
		s.Teams = make(map[string]*TrainedModel)
	}
	if s.Fallbacks == nil {
		s.Fallbacks = make(map[string]*GroupFallback)
	}
	return s, nil
}
