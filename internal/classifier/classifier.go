// Package classifier provides the binary classifiers trained per group and
// team, behind a fit / predict-probability contract.
package classifier

import (
	"encoding/json"
	"fmt"
	"math"
)

// Model scores one feature vector with a probability of approval in [0,1].
type Model interface {
	PredictProbability(x []float64) float64
}

// Trainer fits models and decodes persisted ones.
type Trainer interface {
	Name() string
	Fit(X [][]float64, y []int) (Model, error)
	Decode(params []byte) (Model, error)
}

// Scaler standardises each feature to zero mean and unit variance.
// Features with zero variance are divided by 1.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-column mean and standard deviation
func FitScaler(X [][]float64) *Scaler {
	if len(X) == 0 {
		return &Scaler{}
	}
	cols := len(X[0])
	s := &Scaler{Mean: make([]float64, cols), Std: make([]float64, cols)}

	n := float64(len(X))
	for _, row := range X {
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= n
	}
	for _, row := range X {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Std[j] += d * d
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / n)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	return s
}

// Transform returns a scaled copy of x
func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		if j >= len(s.Mean) {
			out[j] = v
			continue
		}
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}

// TransformAll scales every row
func (s *Scaler) TransformAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.Transform(row)
	}
	return out
}

// Accuracy is the fraction of rows whose thresholded probability equals the label.
func Accuracy(m Model, X [][]float64, y []int) float64 {
	if len(X) == 0 {
		return 0
	}
	correct := 0
	for i, row := range X {
		pred := 0
		if m.PredictProbability(row) >= 0.5 {
			pred = 1
		}
		if pred == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X))
}

// Encode serialises a model's parameters for persistence
func Encode(m Model) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	return data, nil
}
