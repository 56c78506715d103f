package ml

import (
	"encoding/json"
	"math"
	"testing"
)

func TestDecisionTreeTrainPredict(t *testing.T) {
	features := [][]float64{
		{0.1, 0.2},
		{0.2, 0.1},
		{0.9, 0.8},
		{0.8, 0.9},
	}
	labels := []int{0, 0, 2, 2}

	model := NewDecisionTree(2)
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	predicted, err := model.Predict([][]float64{{0.15, 0.15}, {0.85, 0.85}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if predicted[0] != 0 || predicted[1] != 2 {
		t.Fatalf("expected [0 2], got %v", predicted)
	}

	proba, err := model.PredictProba([][]float64{{0.15, 0.15}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(proba[0]) != 3 {
		t.Fatalf("expected 3 class weights, got %d", len(proba[0]))
	}
	if proba[0][0] != 1 {
		t.Fatalf("expected pure leaf, got %v", proba[0])
	}
}

func TestDecisionTreeRespectsMaxDepth(t *testing.T) {
	ds, err := LoadIris()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	model := NewDecisionTree(1)
	if err := model.Train(ds.X, ds.Y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// one split, two leaves
	if len(model.nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(model.nodes))
	}
	proba, err := model.PredictProba(ds.X[:1])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sum := 0.0
	for _, p := range proba[0] {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("expected probabilities to sum to 1, got %v", sum)
	}
}

func TestDecisionTreeErrors(t *testing.T) {
	model := &DecisionTree{}
	if _, err := model.Predict([][]float64{{1, 2}}); err != ErrNotTrained {
		t.Fatalf("expected ErrNotTrained, got %v", err)
	}
	if err := model.Train(nil, nil); err == nil {
		t.Fatal("expected error for empty training set")
	}
	if err := model.Train([][]float64{{1, 2}, {3}}, []int{0, 1}); err == nil {
		t.Fatal("expected error for ragged rows")
	}
	if err := model.Train([][]float64{{1}, {2}}, []int{0, -1}); err == nil {
		t.Fatal("expected error for negative label")
	}

	if err := model.Train([][]float64{{1, 1}, {2, 2}}, []int{0, 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := model.Predict([][]float64{{1}}); err == nil {
		t.Fatal("expected error for wrong row width")
	}
}

func TestDecisionTreeRejectsCorruptNodes(t *testing.T) {
	payload := `{"model_type":"decision_tree","n_features":2,"n_classes":2,
		"nodes":[{"feature_idx":5,"threshold":1,"left_child":1,"right_child":2,"is_leaf":false},
		{"feature_idx":-1,"left_child":-1,"right_child":-1,"value":[1,0],"is_leaf":true},
		{"feature_idx":-1,"left_child":-1,"right_child":-1,"value":[0,1],"is_leaf":true}]}`
	var tree DecisionTree
	if err := json.Unmarshal([]byte(payload), &tree); err == nil {
		t.Fatal("expected error for out of range feature index")
	}
}
