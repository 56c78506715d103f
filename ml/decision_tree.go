package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

const DecisionTreeType = "decision_tree"

// DecisionTree is a CART classifier using Gini impurity. Leaves keep the
// class distribution of their training samples, so the tree also reports
// probabilities.
type DecisionTree struct {
	MaxDepth        int
	MinSamplesSplit int
	// MaxFeatures limits the features tried per split; 0 tries all of them.
	MaxFeatures int

	nFeatures int
	nClasses  int
	nodes     []TreeNode
	rng       *rand.Rand
}

type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	Value      []float64 `json:"value"`
	IsLeaf     bool      `json:"is_leaf"`
}

type treePayload struct {
	ModelType string     `json:"model_type"`
	MaxDepth  int        `json:"max_depth"`
	NFeatures int        `json:"n_features"`
	NClasses  int        `json:"n_classes"`
	Nodes     []TreeNode `json:"nodes"`
}

func NewDecisionTree(maxDepth int) *DecisionTree {
	return &DecisionTree{MaxDepth: maxDepth}
}

func (dt *DecisionTree) Type() string { return DecisionTreeType }

func (dt *DecisionTree) NumFeatures() int { return dt.nFeatures }

func (dt *DecisionTree) NumClasses() int { return dt.nClasses }

func (dt *DecisionTree) Train(features [][]float64, labels []int) error {
	nFeatures, nClasses, err := checkTrainingSet(features, labels)
	if err != nil {
		return err
	}
	idx := make([]int, len(features))
	for i := range idx {
		idx[i] = i
	}
	dt.fit(features, labels, idx, nFeatures, nClasses)
	return nil
}

// fit grows the tree on the rows selected by idx. Forests call it directly
// with bootstrap indices and the class count of the full training set.
func (dt *DecisionTree) fit(features [][]float64, labels []int, idx []int, nFeatures, nClasses int) {
	dt.nFeatures = nFeatures
	dt.nClasses = nClasses
	dt.nodes = nil
	dt.grow(features, labels, idx, 0)
}

func (dt *DecisionTree) Predict(rows [][]float64) ([]int, error) {
	out := make([]int, len(rows))
	for i, row := range rows {
		leaf, err := dt.leaf(row)
		if err != nil {
			return nil, err
		}
		out[i] = argmax(leaf.Value)
	}
	return out, nil
}

func (dt *DecisionTree) PredictProba(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		leaf, err := dt.leaf(row)
		if err != nil {
			return nil, err
		}
		out[i] = append([]float64(nil), leaf.Value...)
	}
	return out, nil
}

func (dt *DecisionTree) MarshalJSON() ([]byte, error) {
	if len(dt.nodes) == 0 {
		return nil, ErrNotTrained
	}
	return json.Marshal(treePayload{
		ModelType: DecisionTreeType,
		MaxDepth:  dt.MaxDepth,
		NFeatures: dt.nFeatures,
		NClasses:  dt.nClasses,
		Nodes:     dt.nodes,
	})
}

func (dt *DecisionTree) UnmarshalJSON(data []byte) error {
	var payload treePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload.ModelType != "" && payload.ModelType != DecisionTreeType {
		return fmt.Errorf("%w: %q", ErrUnknownModelType, payload.ModelType)
	}
	if err := validateNodes(payload.Nodes, payload.NFeatures, payload.NClasses); err != nil {
		return err
	}
	dt.MaxDepth = payload.MaxDepth
	dt.nFeatures = payload.NFeatures
	dt.nClasses = payload.NClasses
	dt.nodes = payload.Nodes
	return nil
}

func (dt *DecisionTree) leaf(row []float64) (*TreeNode, error) {
	if len(dt.nodes) == 0 {
		return nil, ErrNotTrained
	}
	if len(row) != dt.nFeatures {
		return nil, fmt.Errorf("expected %d features, got %d", dt.nFeatures, len(row))
	}
	idx := 0
	for {
		node := &dt.nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if row[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return nil, errors.New("invalid tree state")
		}
	}
}

func (dt *DecisionTree) grow(features [][]float64, labels []int, idx []int, depth int) int {
	counts := classCounts(labels, idx, dt.nClasses)
	pos := len(dt.nodes)
	dt.nodes = append(dt.nodes, TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		Value:      distribution(counts, len(idx)),
		IsLeaf:     true,
	})

	if dt.MaxDepth > 0 && depth >= dt.MaxDepth {
		return pos
	}
	if len(idx) < dt.minSamplesSplit() || isPure(counts) {
		return pos
	}

	feature, threshold, ok := dt.findBestSplit(features, labels, idx, counts)
	if !ok {
		return pos
	}
	left, right := splitIndices(features, idx, feature, threshold)
	if len(left) == 0 || len(right) == 0 {
		return pos
	}

	leftPos := dt.grow(features, labels, left, depth+1)
	rightPos := dt.grow(features, labels, right, depth+1)

	node := &dt.nodes[pos]
	node.FeatureIdx = feature
	node.Threshold = threshold
	node.LeftChild = leftPos
	node.RightChild = rightPos
	node.IsLeaf = false
	return pos
}

func (dt *DecisionTree) minSamplesSplit() int {
	if dt.MinSamplesSplit < 2 {
		return 2
	}
	return dt.MinSamplesSplit
}

func (dt *DecisionTree) candidateFeatures() []int {
	if dt.MaxFeatures <= 0 || dt.MaxFeatures >= dt.nFeatures || dt.rng == nil {
		all := make([]int, dt.nFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return dt.rng.Perm(dt.nFeatures)[:dt.MaxFeatures]
}

// findBestSplit sweeps every candidate feature in sorted order and keeps the
// midpoint threshold with the lowest weighted Gini impurity.
func (dt *DecisionTree) findBestSplit(features [][]float64, labels []int, idx []int, counts []int) (int, float64, bool) {
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64
	total := float64(len(idx))

	sorted := make([]int, len(idx))
	left := make([]int, dt.nClasses)
	right := make([]int, dt.nClasses)

	for _, featureIdx := range dt.candidateFeatures() {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool {
			return features[sorted[a]][featureIdx] < features[sorted[b]][featureIdx]
		})
		for i := range left {
			left[i] = 0
		}
		copy(right, counts)

		for i := 0; i < len(sorted)-1; i++ {
			label := labels[sorted[i]]
			left[label]++
			right[label]--

			value := features[sorted[i]][featureIdx]
			next := features[sorted[i+1]][featureIdx]
			if value == next {
				continue
			}
			nLeft := float64(i + 1)
			nRight := total - nLeft
			impurity := (nLeft*gini(left, nLeft) + nRight*gini(right, nRight)) / total
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = featureIdx
				bestThreshold = midpoint(value, next)
			}
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func splitIndices(features [][]float64, idx []int, featureIdx int, threshold float64) ([]int, []int) {
	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if features[i][featureIdx] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func validateNodes(nodes []TreeNode, nFeatures, nClasses int) error {
	if len(nodes) == 0 || nFeatures <= 0 || nClasses <= 0 {
		return ErrNotTrained
	}
	for i, node := range nodes {
		if node.IsLeaf {
			if len(node.Value) != nClasses {
				return fmt.Errorf("node %d: expected %d class weights, got %d", i, nClasses, len(node.Value))
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= nFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		if node.LeftChild <= i || node.LeftChild >= len(nodes) || node.RightChild <= i || node.RightChild >= len(nodes) {
			return fmt.Errorf("node %d: invalid children", i)
		}
	}
	return nil
}

func checkTrainingSet(features [][]float64, labels []int) (nFeatures, nClasses int, err error) {
	if len(features) == 0 || len(labels) == 0 {
		return 0, 0, errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return 0, 0, errors.New("features and labels size mismatch")
	}
	nFeatures = len(features[0])
	if nFeatures == 0 {
		return 0, 0, errors.New("rows have no features")
	}
	for i, row := range features {
		if len(row) != nFeatures {
			return 0, 0, fmt.Errorf("row %d: expected %d features, got %d", i, nFeatures, len(row))
		}
	}
	for _, label := range labels {
		if label < 0 {
			return 0, 0, fmt.Errorf("negative label %d", label)
		}
		if label+1 > nClasses {
			nClasses = label + 1
		}
	}
	return nFeatures, nClasses, nil
}

func classCounts(labels []int, idx []int, nClasses int) []int {
	counts := make([]int, nClasses)
	for _, i := range idx {
		counts[labels[i]]++
	}
	return counts
}

func distribution(counts []int, total int) []float64 {
	dist := make([]float64, len(counts))
	if total == 0 {
		return dist
	}
	for i, c := range counts {
		dist[i] = float64(c) / float64(total)
	}
	return dist
}

func gini(counts []int, total float64) float64 {
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := float64(c) / total
		impurity -= p * p
	}
	return impurity
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func midpoint(a, b float64) float64 {
	m := a + (b-a)/2
	if m >= b {
		return a
	}
	return m
}

// argmax returns the first index holding the largest value.
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
