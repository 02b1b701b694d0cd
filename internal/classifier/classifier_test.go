package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func separable() ([][]float64, []int) {
	var X [][]float64
	var y []int
	for i := 0; i < 20; i++ {
		X = append(X, []float64{float64(i%5) + 10, 1})
		y = append(y, 1)
		X = append(X, []float64{float64(i % 5), 1})
		y = append(y, 0)
	}
	return X, y
}

func TestScaler(t *testing.T) {
	s := FitScaler([][]float64{{1, 5}, {3, 5}})
	assert.Equal(t, []float64{2, 5}, s.Mean)
	assert.Equal(t, []float64{1, 1}, s.Std) // zero variance column uses 1

	assert.Equal(t, []float64{-1, 0}, s.Transform([]float64{1, 5}))
	assert.Equal(t, []float64{1, 0}, s.Transform([]float64{3, 5}))
}

func TestLogisticSeparatesClasses(t *testing.T) {
	X, y := separable()
	s := FitScaler(X)
	m, err := NewLogisticTrainer(300, 0.5, 0.001).Fit(s.TransformAll(X), y)
	require.NoError(t, err)

	assert.Greater(t, m.PredictProbability(s.Transform([]float64{14, 1})), 0.9)
	assert.Less(t, m.PredictProbability(s.Transform([]float64{0, 1})), 0.1)
	assert.Equal(t, 1.0, Accuracy(m, s.TransformAll(X), y))
}

func TestLogisticIsDeterministic(t *testing.T) {
	X, y := separable()
	tr := NewLogisticTrainer(50, 0.1, 0.01)
	a, err := tr.Fit(X, y)
	require.NoError(t, err)
	b, err := tr.Fit(X, y)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLogisticRejectsBadInput(t *testing.T) {
	tr := NewLogisticTrainer(0, 0, 0)
	assert.Equal(t, 500, tr.Iterations)

	_, err := tr.Fit(nil, nil)
	assert.Error(t, err)
	_, err = tr.Fit([][]float64{{1}, {2}}, []int{1, 1})
	assert.Error(t, err)
	_, err = tr.Fit([][]float64{{1}, {2, 3}}, []int{1, 0})
	assert.Error(t, err)
	_, err = tr.Fit([][]float64{{1}}, []int{1, 0})
	assert.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	X, y := separable()
	tr := NewLogisticTrainer(100, 0.1, 0)
	m, err := tr.Fit(X, y)
	require.NoError(t, err)

	data, err := Encode(m)
	require.NoError(t, err)
	restored, err := tr.Decode(data)
	require.NoError(t, err)

	for _, row := range X {
		assert.Equal(t, m.PredictProbability(row), restored.PredictProbability(row))
	}

	_, err = tr.Decode([]byte("{"))
	assert.Error(t, err)
}

func TestSplitStratified(t *testing.T) {
	y := make([]int, 20)
	for i := 0; i < 5; i++ {
		y[i] = 1
	}

	train, test := Split(y, 0.2, 42)
	assert.Len(t, train, 16)
	assert.Len(t, test, 4)

	posTest := 0
	for _, i := range test {
		posTest += y[i]
	}
	assert.Equal(t, 1, posTest)

	train2, test2 := Split(y, 0.2, 42)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)
}

func TestSplitUnstratifiedWhenClassTooSmall(t *testing.T) {
	y := []int{1, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	train, test := Split(y, 0.2, 42)
	assert.Len(t, test, 2)
	assert.Len(t, train, 8)
	assert.ElementsMatch(t, allIndices(10), append(append([]int{}, train...), test...))
}

func TestSplitNoHoldout(t *testing.T) {
	train, test := Split([]int{1, 0, 1}, 0, 42)
	assert.Equal(t, []int{0, 1, 2}, train)
	assert.Empty(t, test)
}
