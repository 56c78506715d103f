package ml

import (
	"errors"
	"testing"
)

func TestNearestCentroid(t *testing.T) {
	nc := &NearestCentroid{}
	if _, err := nc.Predict([][]float64{{1, 2}}); !errors.Is(err, ErrNotTrained) {
		t.Fatalf("expected ErrNotTrained, got %v", err)
	}

	features := [][]float64{{0, 0}, {0, 1}, {10, 10}, {10, 11}}
	labels := []int{0, 0, 1, 1}
	if err := nc.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nc.NumFeatures() != 2 {
		t.Fatalf("expected 2 features, got %d", nc.NumFeatures())
	}

	got, err := nc.Predict([][]float64{{1, 1}, {9, 9}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != 0 || got[1] != 1 {
		t.Fatalf("unexpected labels: %v", got)
	}

	if _, err := nc.Predict([][]float64{{1, 1, 1}}); err == nil {
		t.Fatal("expected width mismatch error")
	}

	var model Classifier = nc
	if _, ok := model.(ProbabilityEstimator); ok {
		t.Fatal("nearest centroid must not estimate probabilities")
	}
}

func TestNearestCentroidUnseenClass(t *testing.T) {
	nc := &NearestCentroid{}
	// label 1 never appears
	if err := nc.Train([][]float64{{0}, {1}, {5}}, []int{0, 0, 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := nc.Predict([][]float64{{1e6}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != 2 {
		t.Fatalf("expected class 2, got %d", got[0])
	}
}
