package ml

import "errors"

var (
	ErrNotTrained       = errors.New("model not trained")
	ErrUnknownModelType = errors.New("unsupported model type")
)

// Classifier assigns a class index to every row of a batch.
type Classifier interface {
	Predict(rows [][]float64) ([]int, error)
}

// ProbabilityEstimator is the optional capability of returning one
// probability per class for every row. Each row sums to 1.
type ProbabilityEstimator interface {
	PredictProba(rows [][]float64) ([][]float64, error)
}

// MLModel is a trainable classifier that can be persisted inside an artifact.
type MLModel interface {
	Classifier
	Train(features [][]float64, labels []int) error
	Type() string
	NumFeatures() int
}
