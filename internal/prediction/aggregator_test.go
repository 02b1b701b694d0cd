package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/ownerscope/internal/classifier"
	"github.com/rohankatakam/ownerscope/internal/codeowners"
	ownerrors "github.com/rohankatakam/ownerscope/internal/errors"
	"github.com/rohankatakam/ownerscope/internal/models"
	"github.com/rohankatakam/ownerscope/internal/training"
)

type stubTrainer struct{}

type stubModel struct {
	Rate float64 `json:"rate"`
}

func (m *stubModel) PredictProbability(x []float64) float64 { return m.Rate }

func (stubTrainer) Name() string { return "stub" }

func (stubTrainer) Fit(X [][]float64, y []int) (classifier.Model, error) {
	pos := 0
	for _, v := range y {
		pos += v
	}
	return &stubModel{Rate: float64(pos) / float64(len(y))}, nil
}

func (stubTrainer) Decode(b []byte) (classifier.Model, error) {
	var m stubModel
	err := json.Unmarshal(b, &m)
	return &m, err
}

func train(t *testing.T, trainer classifier.Trainer, ownership string, history []*models.ChangeRecord) (*training.State, *training.MemoryStore) {
	t.Helper()
	store := training.NewMemoryStore()
	o := training.NewOrchestrator(training.DefaultConfig(), trainer, store)
	state, _, err := o.Run(context.Background(), codeowners.Parse(ownership), history)
	require.NoError(t, err)
	return state, store
}

func aggregator(t *testing.T, state *training.State, trainer classifier.Trainer) *Aggregator {
	t.Helper()
	a, err := NewAggregator(state, []classifier.Trainer{trainer})
	require.NoError(t, err)
	return a
}

// approvalHistory builds records where the first approved of every ten
// changes (per ratio) are approved by devs.
func approvalHistory(startID, n int, file string, ratio int, devs ...string) []*models.ChangeRecord {
	var out []*models.ChangeRecord
	for i := 0; i < n; i++ {
		rec := &models.ChangeRecord{
			ID:        int64(startID + i),
			FilePaths: []string{fmt.Sprintf(file, i)},
			Title:     "update",
			Additions: 10 + i,
		}
		if i%10 < ratio {
			rec.Approvers = append(rec.Approvers, devs...)
		}
		out = append(out, rec)
	}
	return out
}

func TestPredictRanksCoreOwnerFirst(t *testing.T) {
	ownership := "* @alice @bob\n/core/ @carol\n"
	history := append(
		approvalHistory(1, 30, "core/f%d.cpp", 8, "carol"),
		approvalHistory(100, 20, "lib/g%d.cpp", 5, "alice", "bob")...,
	)
	lr := classifier.NewLogisticTrainer(300, 0.1, 0.01)
	state, _ := train(t, lr, ownership, history)
	require.Contains(t, state.Groups, "carol")
	require.Contains(t, state.Groups, "alice,bob")

	preds, err := aggregator(t, state, lr).Predict([]string{"core/a.cpp"}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, preds)

	assert.Equal(t, "carol", preds[0].Approver)
	assert.Equal(t, []models.Family{models.FamilyGroup}, preds[0].Families)
	for _, p := range preds[1:] {
		assert.Less(t, p.Probability, preds[0].Probability)
	}
}

func TestPredictCoreOwnerFromApprovalRate(t *testing.T) {
	ownership := "* @alice @bob\n/core/ @carol\n"
	history := append(
		approvalHistory(1, 10, "core/f%d.cpp", 8, "carol"),
		approvalHistory(100, 10, "lib/g%d.cpp", 5, "alice", "bob")...,
	)
	lr := classifier.NewLogisticTrainer(300, 0.1, 0.01)
	state, store := train(t, lr, ownership, history)

	// ten core changes are below the sample threshold
	require.NotContains(t, state.Groups, "carol")
	require.Contains(t, state.Groups, "alice,bob")
	require.Contains(t, state.Fallbacks, "carol")
	assert.InDelta(t, 0.8, state.Fallbacks["carol"].Stats["carol"].ApprovalRate, 1e-9)
	assert.Contains(t, state.Fallbacks["carol"].Reason, "insufficient samples")

	reloaded, err := store.Load(context.Background())
	require.NoError(t, err)

	for _, st := range []*training.State{state, reloaded} {
		preds, err := aggregator(t, st, lr).Predict([]string{"core/a.cpp"}, 5)
		require.NoError(t, err)
		require.Len(t, preds, 1)

		assert.Equal(t, "carol", preds[0].Approver)
		assert.InDelta(t, 0.8, preds[0].Probability, 1e-9)
		assert.InDelta(t, 80.0, preds[0].Confidence, 1e-9)
		assert.Equal(t, []models.Family{models.FamilyStats}, preds[0].Families)
		assert.Contains(t, preds[0].Reasoning, "stats model carol")
	}
}

func TestPredictPrefersModelOverApprovalRate(t *testing.T) {
	history := approvalHistory(1, 20, "core/f%d.go", 5, "alice", "bob")
	state, _ := train(t, stubTrainer{}, "/core/ @alice @bob\n", history)

	// a stale snapshot left next to a trained model is ignored
	state.Fallbacks["alice,bob"] = &training.GroupFallback{
		Group:  "alice,bob",
		Owners: []string{"alice", "bob"},
	}

	preds, err := aggregator(t, state, stubTrainer{}).Predict([]string{"core/x.go"}, 0)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	for _, p := range preds {
		assert.Equal(t, []models.Family{models.FamilyGroup}, p.Families)
		assert.InDelta(t, 0.5, p.Probability, 1e-9)
	}
}

func TestPredictTeamFanOut(t *testing.T) {
	devs := []string{"carol", "dave", "erin"}
	var history []*models.ChangeRecord
	for i := 0; i < 21; i++ {
		history = append(history, &models.ChangeRecord{
			ID:        int64(i),
			FilePaths: []string{fmt.Sprintf("docs/p%d.md", i)},
			Approvers: []string{devs[i%3]},
		})
	}
	state, _ := train(t, stubTrainer{}, "/docs/ @carol @acme/writers\n", history)
	require.Contains(t, state.Teams, "acme/writers")

	preds, err := aggregator(t, state, stubTrainer{}).Predict([]string{"docs/new.md"}, 0)
	require.NoError(t, err)
	require.Len(t, preds, 3)

	assert.Equal(t, "carol", preds[0].Approver)
	assert.InDelta(t, 2.0/3.0, preds[0].Probability, 1e-9)
	assert.Equal(t, []models.Family{models.FamilyGroup, models.FamilyTeam}, preds[0].Families)
	assert.Len(t, preds[0].Contributions, 2)

	assert.Equal(t, "dave", preds[1].Approver)
	assert.Equal(t, []models.Family{models.FamilyTeam}, preds[1].Families)
	assert.InDelta(t, 100.0/3.0, preds[1].Confidence, 1e-9)
	assert.Contains(t, preds[1].Reasoning, "team model acme/writers")
}

func TestPredictWeightsByFileShare(t *testing.T) {
	history := approvalHistory(1, 20, "core/f%d.go", 5, "alice", "bob")
	state, _ := train(t, stubTrainer{}, "/core/ @alice @bob\n/lib/ @zed\n", history)

	a := aggregator(t, state, stubTrainer{})

	full, err := a.Predict([]string{"core/x.go"}, 0)
	require.NoError(t, err)
	half, err := a.Predict([]string{"core/x.go", "unowned.txt"}, 0)
	require.NoError(t, err)

	require.Len(t, full, 2)
	require.Len(t, half, 2)
	assert.InDelta(t, full[0].Probability/2, half[0].Probability, 1e-9)
	assert.Equal(t, 0.5, half[0].Contributions[0].Weight)

	// alice and bob tie; ties break by name
	assert.Equal(t, "alice", full[0].Approver)
	assert.Equal(t, "bob", full[1].Approver)

	top, err := a.Predict([]string{"core/x.go"}, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	// lib group never appeared in history: its owner is never guessed
	none, err := a.Predict([]string{"lib/y.go"}, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPredictNoMatchAndNotTrained(t *testing.T) {
	history := approvalHistory(1, 20, "core/f%d.go", 5, "alice", "bob")
	state, _ := train(t, stubTrainer{}, "/core/ @alice @bob\n", history)

	preds, err := aggregator(t, state, stubTrainer{}).Predict([]string{"elsewhere/a.txt"}, 5)
	require.NoError(t, err)
	assert.Empty(t, preds)

	empty := aggregator(t, training.NewState(), stubTrainer{})
	_, err = empty.Predict([]string{"core/a.go"}, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ownerrors.ErrNotTrained)
}

func TestNewAggregatorRejectsUnknownClassifier(t *testing.T) {
	history := approvalHistory(1, 20, "core/f%d.go", 5, "alice", "bob")
	state, _ := train(t, stubTrainer{}, "/core/ @alice @bob\n", history)

	_, err := NewAggregator(state, []classifier.Trainer{classifier.NewLogisticTrainer(0, 0, 0)})
	require.Error(t, err)
	assert.True(t, ownerrors.IsType(err, ownerrors.ErrorTypePredictionInput))
}

func TestPredictSurvivesReload(t *testing.T) {
	history := append(
		approvalHistory(1, 30, "core/f%d.cpp", 8, "carol"),
		approvalHistory(100, 20, "lib/g%d.cpp", 5, "alice", "bob")...,
	)
	lr := classifier.NewLogisticTrainer(200, 0.1, 0.01)
	state, store := train(t, lr, "* @alice @bob\n/core/ @carol\n", history)

	reloaded, err := store.Load(context.Background())
	require.NoError(t, err)

	files := []string{"core/a.cpp", "lib/b.cpp", "README.md"}
	before, err := aggregator(t, state, lr).Predict(files, 5)
	require.NoError(t, err)
	after, err := aggregator(t, reloaded, lr).Predict(files, 5)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}
