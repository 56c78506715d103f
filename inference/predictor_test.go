package inference

import (
	"errors"
	"math"
	"testing"

	"irisapi/ml"
)

type labelOnly struct {
	label int
	err   error
}

func (c *labelOnly) Predict(rows [][]float64) ([]int, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make([]int, len(rows))
	for i := range out {
		out[i] = c.label
	}
	return out, nil
}

type withProba struct {
	labelOnly
	proba []float64
}

func (c *withProba) PredictProba(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i := range out {
		out[i] = c.proba
	}
	return out, nil
}

var classNames = []string{"setosa", "versicolor", "virginica"}

func TestPredictWithProbabilities(t *testing.T) {
	p := &Predictor{
		Classifier: &withProba{labelOnly: labelOnly{label: 1}, proba: []float64{0.1, 0.7256, 0.1744}},
		ClassNames: classNames,
	}
	result, err := p.Predict([][]float64{{5.9, 3.0, 4.2, 1.5}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != "success" || result.Prediction != "versicolor" || result.PredictionIndex != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Proba) != len(classNames) {
		t.Fatalf("expected %d probabilities, got %d", len(classNames), len(result.Proba))
	}
	want := map[string]string{"setosa": "0.100", "versicolor": "0.726", "virginica": "0.174"}
	for name, v := range want {
		if result.Probabilities[name] != v {
			t.Fatalf("%s: expected %s, got %s", name, v, result.Probabilities[name])
		}
	}
	// display strings are rounded, the numbers are not
	if result.Proba[1] != 0.7256 {
		t.Fatalf("expected raw probability 0.7256, got %v", result.Proba[1])
	}
	if len(result.TargetNames) != 3 {
		t.Fatalf("expected target names, got %v", result.TargetNames)
	}
}

func TestPredictDegenerateConfidence(t *testing.T) {
	p := &Predictor{Classifier: &labelOnly{label: 2}, ClassNames: classNames}
	result, err := p.Predict([][]float64{{6.7, 3.0, 5.2, 2.3}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Probabilities) != 1 || result.Probabilities["virginica"] != DegenerateProbability {
		t.Fatalf("expected single virginica entry, got %v", result.Probabilities)
	}
	if result.Proba == nil || len(result.Proba) != 0 {
		t.Fatalf("expected empty probability list, got %v", result.Proba)
	}
}

func TestPredictOutOfRangeIndexIsInconsistent(t *testing.T) {
	for _, label := range []int{-1, 3, 10} {
		p := &Predictor{Classifier: &labelOnly{label: label}, ClassNames: classNames}
		_, err := p.Predict([][]float64{{1, 2, 3, 4}})
		if !errors.Is(err, ErrInconsistent) {
			t.Fatalf("label %d: expected ErrInconsistent, got %v", label, err)
		}
		if IsValidationError(err) {
			t.Fatalf("label %d: inconsistency must not look like a validation error", label)
		}
	}
}

func TestPredictProbabilityLengthMismatchIsInconsistent(t *testing.T) {
	p := &Predictor{
		Classifier: &withProba{labelOnly: labelOnly{label: 0}, proba: []float64{1, 0}},
		ClassNames: classNames,
	}
	if _, err := p.Predict([][]float64{{1, 2, 3, 4}}); !errors.Is(err, ErrInconsistent) {
		t.Fatalf("expected ErrInconsistent, got %v", err)
	}
}

func TestPredictClassifierFailureIsInconsistent(t *testing.T) {
	p := &Predictor{Classifier: &labelOnly{err: errors.New("boom")}, ClassNames: classNames}
	if _, err := p.Predict([][]float64{{1, 2, 3, 4}}); !errors.Is(err, ErrInconsistent) {
		t.Fatalf("expected ErrInconsistent, got %v", err)
	}
}

func TestPredictWithTrainedForest(t *testing.T) {
	ds, err := ml.LoadIris()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	forest := ml.NewRandomForest(20, 0, 42)
	if err := forest.Train(ds.X, ds.Y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := &Predictor{Classifier: forest, ClassNames: ds.ClassNames}

	rows := [][]float64{{5.1, 3.5, 1.4, 0.2}}
	first, err := p.Predict(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.Predict(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.PredictionIndex != second.PredictionIndex || first.Prediction != second.Prediction {
		t.Fatalf("repeated prediction differs: %+v vs %+v", first, second)
	}
	if first.PredictionIndex != 0 || first.Prediction != "setosa" {
		t.Fatalf("expected setosa, got %+v", first)
	}

	sum := 0.0
	for _, v := range first.Proba {
		if v < 0 || v > 1 {
			t.Fatalf("probability %v outside [0, 1]", v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Fatalf("probabilities sum to %v", sum)
	}
}
