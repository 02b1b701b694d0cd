package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/ownerscope/internal/models"
	"github.com/rohankatakam/ownerscope/internal/training"
)

func TestPickRuns(t *testing.T) {
	runs := []models.RunSummary{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	from, to, err := pickRuns(runs, []string{"latest"})
	require.NoError(t, err)
	assert.Equal(t, "b", from.ID)
	assert.Equal(t, "c", to.ID)

	from, to, err = pickRuns(runs, []string{"a", "c"})
	require.NoError(t, err)
	assert.Equal(t, "a", from.ID)
	assert.Equal(t, "c", to.ID)

	_, _, err = pickRuns(runs, []string{"a", "zzz"})
	assert.Error(t, err)
	_, _, err = pickRuns(runs[:1], []string{"latest"})
	assert.Error(t, err)
	_, _, err = pickRuns(runs, []string{"a"})
	assert.Error(t, err)
}

func TestStatusReport(t *testing.T) {
	state := training.NewState()
	state.Trained = true
	state.LastTrained = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	state.ProcessedIDs[1] = true
	state.ProcessedIDs[2] = true
	state.Groups["bob"] = &training.TrainedModel{Target: "bob", Family: models.FamilyGroup, Candidates: []string{"bob"}, Samples: 20}
	state.Groups["alice"] = &training.TrainedModel{Target: "alice", Family: models.FamilyGroup, Candidates: []string{"alice"}, Samples: 30}
	state.Teams["acme/core"] = &training.TrainedModel{Target: "acme/core", Family: models.FamilyTeam, Candidates: []string{"x", "y"}}
	state.Fallbacks["carol"] = &training.GroupFallback{Group: "carol", Owners: []string{"carol"}}

	r := statusReport(state, 5)
	assert.True(t, r.Trained)
	require.NotNil(t, r.LastTrained)
	assert.Equal(t, 5, r.StoredRecords)
	assert.Equal(t, 2, r.ProcessedRecords)
	require.Len(t, r.Models, 4)
	assert.Equal(t, "alice", r.Models[0].Target)
	assert.Equal(t, "bob", r.Models[1].Target)
	assert.Equal(t, "carol", r.Models[2].Target)
	assert.Equal(t, models.FamilyStats, r.Models[2].Family)
	assert.Equal(t, "acme/core", r.Models[3].Target)
	assert.Equal(t, 2, r.Models[3].Candidates)

	assert.Nil(t, statusReport(training.NewState(), 0).LastTrained)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", maskToken("short"))
	assert.Equal(t, "ghp_...wxyz", maskToken("ghp_abcdefghijklmnopqrstuvwxyz"))
}
