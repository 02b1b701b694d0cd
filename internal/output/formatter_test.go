package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/ownerscope/internal/codeowners"
	"github.com/rohankatakam/ownerscope/internal/errors"
	"github.com/rohankatakam/ownerscope/internal/models"
	"github.com/rohankatakam/ownerscope/internal/stats"
)

func samplePredictions() PredictionReport {
	return PredictionReport{
		Files: []string{"core/a.cpp", "core/b.cpp"},
		Predictions: []models.Prediction{
			{Approver: "carol", Confidence: 82.5, Probability: 0.825, Reasoning: "group model carol: p=0.82 weight=1.00", Families: []models.Family{models.FamilyGroup}},
			{Approver: "dave", Confidence: 10, Probability: 0.1},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"TEXT", FormatText, false},
		{"json", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPredictionsText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(FormatText, &buf).Predictions(samplePredictions()))

	out := buf.String()
	assert.Contains(t, out, "Likely approvers for 2 file(s)")
	assert.Contains(t, out, "1. @carol")
	assert.Contains(t, out, "82.5%")
	assert.Contains(t, out, "████████░░")
	assert.Contains(t, out, "group model carol")
}

func TestPredictionsEmptyText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(FormatText, &buf).Predictions(PredictionReport{Files: []string{"x"}}))
	assert.Contains(t, buf.String(), "No trained model covers these files.")
}

func TestPredictionsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(FormatJSON, &buf).Predictions(samplePredictions()))

	var got PredictionReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Predictions, 2)
	assert.Equal(t, "carol", got.Predictions[0].Approver)
	assert.InDelta(t, 82.5, got.Predictions[0].Confidence, 1e-9)
}

func TestPredictionsEmptyJSONIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(FormatJSON, &buf).Predictions(PredictionReport{Files: []string{"x"}}))
	assert.Contains(t, buf.String(), `"predictions": []`)
}

func TestRunSummaryText(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s := &models.RunSummary{
		ID:            "run-1",
		StartedAt:     start,
		FinishedAt:    start.Add(1500 * time.Millisecond),
		NewRecordIDs:  []int64{1, 2, 3},
		TotalRecords:  50,
		Rules:         4,
		RulesChanged:  true,
		TrainedGroups: 1,
		Outcomes: []models.TargetOutcome{
			{Target: "carol", Family: models.FamilyGroup, Status: models.StatusTrained, Samples: 30, Positive: 24, Negative: 6, TestAccuracy: 0.83},
			{Target: "acme/core", Family: models.FamilyTeam, Status: models.StatusSkipped, Reason: "insufficient_samples", Samples: 4},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(FormatText, &buf).RunSummary(s))
	out := buf.String()
	assert.Contains(t, out, "Training run run-1")
	assert.Contains(t, out, "New records:     3 (of 50)")
	assert.Contains(t, out, "changed, full retrain")
	assert.Contains(t, out, "Duration:        1.5s")
	assert.Contains(t, out, "skipped: insufficient_samples")
}

func TestRunSummaryNoOp(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(FormatText, &buf).RunSummary(&models.RunSummary{NoOp: true, TotalRecords: 12}))
	assert.Equal(t, "✅ Models are up to date (12 records, no new changes)\n", buf.String())
}

func TestRunsNewestFirstYAML(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	runs := []models.RunSummary{
		{ID: "old", StartedAt: t0},
		{ID: "new", StartedAt: t0.Add(time.Hour)},
	}

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(FormatYAML, &buf).Runs(runs))

	var got []models.RunSummary
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	// caller's slice untouched
	assert.Equal(t, "old", runs[0].ID)
}

func TestCompareRuns(t *testing.T) {
	from := models.RunSummary{
		ID: "a", TotalRecords: 40, NewRecordIDs: []int64{1, 2, 3}, TrainedGroups: 2, TotalSamples: 60,
		Outcomes: []models.TargetOutcome{
			{Target: "alice", Family: models.FamilyGroup, Status: models.StatusTrained},
			{Target: "bob", Family: models.FamilyGroup, Status: models.StatusTrained},
		},
	}
	to := models.RunSummary{
		ID: "b", TotalRecords: 55, NewRecordIDs: []int64{9, 3, 2}, TrainedGroups: 1, TrainedTeams: 1, TotalSamples: 75,
		Outcomes: []models.TargetOutcome{
			{Target: "bob", Family: models.FamilyGroup, Status: models.StatusSkipped},
			{Target: "acme/core", Family: models.FamilyTeam, Status: models.StatusTrained},
		},
	}

	c := CompareRuns(from, to)
	assert.Equal(t, 15, c.NewRecords)
	assert.Equal(t, -1, c.GroupsDelta)
	assert.Equal(t, 1, c.TeamsDelta)
	assert.Equal(t, 15, c.SamplesDelta)
	assert.Equal(t, []string{"team:acme/core"}, c.Gained)
	assert.Equal(t, []string{"group:bob"}, c.Lost)
	assert.Equal(t, []int64{2, 3}, c.SharedRecords)

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(FormatText, &buf).Comparison(c))
	assert.Contains(t, buf.String(), "Group models: -1")
	assert.Contains(t, buf.String(), "  + team:acme/core")
	assert.Contains(t, buf.String(), "Reprocessed:  2 record(s)")
}

func TestOwnershipText(t *testing.T) {
	r := codeowners.NewResolver(codeowners.Parse("/core/ @alice @acme/core\n"))

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(FormatText, &buf).Ownership(r.Explain([]string{"core/a.go", "misc/b.go"})))
	out := buf.String()
	assert.Contains(t, out, "/core/ → @alice @acme/core (line 1)")
	assert.Contains(t, out, "misc/b.go\n  (no owner)")
}

func TestStatsJSONFlattensDeveloperStats(t *testing.T) {
	reports := []StatsReport{{
		Target:      "group:alice",
		Appearances: 10,
		Developers:  []DeveloperRow{{Developer: "alice", DeveloperStats: stats.NewDeveloperStats(8, 10, 12)}},
	}}

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(FormatJSON, &buf).Stats(reports))

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	dev := raw[0]["developers"].([]any)[0].(map[string]any)
	assert.Equal(t, "alice", dev["developer"])
	assert.Equal(t, float64(8), dev["approval_count"])
	assert.InDelta(t, 2.8, dev["experience_score"], 1e-9)
}

func TestStatusText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(FormatText, &buf).Status(StatusReport{StoredRecords: 3}))
	assert.Contains(t, buf.String(), "No models trained yet")

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	buf.Reset()
	require.NoError(t, NewPrinter(FormatText, &buf).Status(StatusReport{
		Trained:     true,
		LastTrained: &ts,
		Models:      []ModelInfo{{Target: "alice", Family: models.FamilyGroup, Candidates: 1, Samples: 25, TestAccuracy: 0.8}},
	}))
	out := buf.String()
	assert.Contains(t, out, "Trained at 2024-05-01T12:00:00Z")
	assert.Contains(t, out, "alice")
}
