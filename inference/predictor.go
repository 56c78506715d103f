package inference

import (
	"errors"
	"fmt"

	"irisapi/ml"
)

// ErrInconsistent marks a disagreement between the artifact and this code,
// such as a class index with no name. It needs an operator, not a retry.
var ErrInconsistent = errors.New("artifact inconsistency")

// DegenerateProbability is reported for the predicted class when the
// classifier cannot estimate probabilities.
const DegenerateProbability = "1.000"

// Result is the success payload of a prediction.
type Result struct {
	Status          string            `json:"status"`
	Prediction      string            `json:"prediction"`
	PredictionIndex int               `json:"prediction_index"`
	Probabilities   map[string]string `json:"probabilities"`
	Proba           []float64         `json:"proba"`
	TargetNames     []string          `json:"target_names"`
}

// Predictor shapes classifier output into a Result.
type Predictor struct {
	Classifier ml.Classifier
	ClassNames []string
}

// Predict classifies a single-row matrix produced by Validate.
func (p *Predictor) Predict(rows [][]float64) (*Result, error) {
	if len(rows) != 1 {
		return nil, fmt.Errorf("%w: expected one row, got %d", ErrInconsistent, len(rows))
	}
	labels, err := p.Classifier.Predict(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: classifier failed: %v", ErrInconsistent, err)
	}
	if len(labels) != 1 {
		return nil, fmt.Errorf("%w: classifier returned %d labels for one row", ErrInconsistent, len(labels))
	}
	idx := labels[0]
	if idx < 0 || idx >= len(p.ClassNames) {
		return nil, fmt.Errorf("%w: class index %d outside %d class names", ErrInconsistent, idx, len(p.ClassNames))
	}
	label := p.ClassNames[idx]

	result := &Result{
		Status:          "success",
		Prediction:      label,
		PredictionIndex: idx,
		TargetNames:     p.ClassNames,
	}

	estimator, ok := p.Classifier.(ml.ProbabilityEstimator)
	if !ok {
		result.Proba = []float64{}
		result.Probabilities = map[string]string{label: DegenerateProbability}
		return result, nil
	}

	proba, err := estimator.PredictProba(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: probability estimate failed: %v", ErrInconsistent, err)
	}
	if len(proba) != 1 || len(proba[0]) != len(p.ClassNames) {
		return nil, fmt.Errorf("%w: probability row does not match %d class names", ErrInconsistent, len(p.ClassNames))
	}
	result.Proba = proba[0]
	result.Probabilities = make(map[string]string, len(p.ClassNames))
	for i, name := range p.ClassNames {
		result.Probabilities[name] = fmt.Sprintf("%.3f", proba[0][i])
	}
	return result, nil
}
