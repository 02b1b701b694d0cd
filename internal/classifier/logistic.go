package classifier

import (
	"encoding/json"
	"fmt"
	"math"
)

// LogisticName identifies logistic-regression models in persisted state
const LogisticName = "logistic_regression"

// LogisticTrainer fits an L2-regularised logistic regression by full-batch
// gradient descent with class-balanced sample weights. Fitting is
// deterministic: weights start at zero and rows are visited in order.
type LogisticTrainer struct {
	Iterations   int
	LearningRate float64
	L2           float64
}

// NewLogisticTrainer creates a trainer, falling back to defaults for non-positive values
func NewLogisticTrainer(iterations int, learningRate, l2 float64) *LogisticTrainer {
	if iterations <= 0 {
		iterations = 500
	}
	if learningRate <= 0 {
		learningRate = 0.1
	}
	if l2 < 0 {
		l2 = 0
	}
	return &LogisticTrainer{Iterations: iterations, LearningRate: learningRate, L2: l2}
}

// Name returns LogisticName
func (t *LogisticTrainer) Name() string { return LogisticName }

// Fit trains on X (rows of equal width) with labels in {0,1}.
func (t *LogisticTrainer) Fit(X [][]float64, y []int) (Model, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("fit: empty training set")
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("fit: %d rows but %d labels", len(X), len(y))
	}

	cols := len(X[0])
	pos := 0
	for i, row := range X {
		if len(row) != cols {
			return nil, fmt.Errorf("fit: row %d has %d features, want %d", i, len(row), cols)
		}
		if y[i] == 1 {
			pos++
		}
	}
	neg := len(y) - pos
	if pos == 0 || neg == 0 {
		return nil, fmt.Errorf("fit: need both classes, got %d positive and %d negative", pos, neg)
	}

	n := float64(len(y))
	wPos := n / (2 * float64(pos))
	wNeg := n / (2 * float64(neg))

	m := &LogisticModel{Weights: make([]float64, cols)}
	grad := make([]float64, cols)

	for iter := 0; iter < t.Iterations; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		gradBias := 0.0

		for i, row := range X {
			sw := wNeg
			if y[i] == 1 {
				sw = wPos
			}
			diff := sw * (m.PredictProbability(row) - float64(y[i]))
			for j, v := range row {
				grad[j] += diff * v
			}
			gradBias += diff
		}

		for j := range m.Weights {
			m.Weights[j] -= t.LearningRate * (grad[j]/n + t.L2*m.Weights[j])
		}
		m.Bias -= t.LearningRate * gradBias / n
	}

	return m, nil
}

// Decode restores a model written by Encode
func (t *LogisticTrainer) Decode(params []byte) (Model, error) {
	var m LogisticModel
	if err := json.Unmarshal(params, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", LogisticName, err)
	}
	return &m, nil
}

// LogisticModel is a fitted linear decision function passed through a sigmoid.
type LogisticModel struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// PredictProbability returns sigmoid(w·x + b). Extra trailing features are ignored.
func (m *LogisticModel) PredictProbability(x []float64) float64 {
	z := m.Bias
	for j, w := range m.Weights {
		if j < len(x) {
			z += w * x[j]
		}
	}
	return sigmoid(z)
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
