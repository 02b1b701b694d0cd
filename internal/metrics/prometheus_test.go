package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCounts(t *testing.T) {
	m := NewManager()
	m.RecordRun(ResultTrained, 40, 50*time.Millisecond)
	m.RecordRun(ResultNoOp, 0, time.Millisecond)
	m.RecordTarget("group", "")
	m.RecordTarget("team", "insufficient_data")
	m.RecordPrediction(3)
	m.RecordPage(7)
	m.RecordFetchError()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.trainingRuns.WithLabelValues(ResultTrained)))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.trainingSamples))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.targetsTrained.WithLabelValues("group")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.targetsSkipped.WithLabelValues("team", "insufficient_data")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.upstreamRecords))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamFetchErrors))
}

func TestNilManagerIsNoop(t *testing.T) {
	var m *Manager
	m.RecordRun(ResultFailed, 1, time.Second)
	m.RecordTarget("group", "")
	m.RecordPrediction(1)
	m.RecordPage(1)
	m.RecordFetchError()
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile("/nonexistent/x.prom"))
}

func TestWriteTextfile(t *testing.T) {
	m := NewManager()
	m.RecordPrediction(2)

	path := filepath.Join(t.TempDir(), "metrics", "ownerscope.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ownerscope_prediction_requests_total 1")
}
