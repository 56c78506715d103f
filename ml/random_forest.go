package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
)

const RandomForestType = "random_forest"

// RandomForest averages the leaf distributions of bootstrap-trained trees.
// Training is deterministic for a given Seed.
type RandomForest struct {
	NEstimators int
	MaxDepth    int
	// MaxFeatures per split; 0 means sqrt(n_features).
	MaxFeatures int
	Seed        int64

	nFeatures int
	nClasses  int
	trees     []*DecisionTree
}

type forestPayload struct {
	ModelType   string          `json:"model_type"`
	NEstimators int             `json:"n_estimators"`
	MaxDepth    int             `json:"max_depth"`
	MaxFeatures int             `json:"max_features"`
	Seed        int64           `json:"seed"`
	NFeatures   int             `json:"n_features"`
	NClasses    int             `json:"n_classes"`
	Trees       []*DecisionTree `json:"trees"`
}

func NewRandomForest(nEstimators, maxDepth int, seed int64) *RandomForest {
	return &RandomForest{NEstimators: nEstimators, MaxDepth: maxDepth, Seed: seed}
}

func (rf *RandomForest) Type() string { return RandomForestType }

func (rf *RandomForest) NumFeatures() int { return rf.nFeatures }

func (rf *RandomForest) NumClasses() int { return rf.nClasses }

func (rf *RandomForest) Train(features [][]float64, labels []int) error {
	nFeatures, nClasses, err := checkTrainingSet(features, labels)
	if err != nil {
		return err
	}
	if rf.NEstimators <= 0 {
		return fmt.Errorf("n_estimators must be positive, got %d", rf.NEstimators)
	}

	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(nFeatures)))))
	}

	rng := rand.New(rand.NewSource(rf.Seed))
	trees := make([]*DecisionTree, rf.NEstimators)
	sample := make([]int, len(features))
	for t := range trees {
		for i := range sample {
			sample[i] = rng.Intn(len(features))
		}
		tree := &DecisionTree{
			MaxDepth:    rf.MaxDepth,
			MaxFeatures: maxFeatures,
			rng:         rand.New(rand.NewSource(rng.Int63())),
		}
		tree.fit(features, labels, sample, nFeatures, nClasses)
		tree.rng = nil
		trees[t] = tree
	}

	rf.nFeatures = nFeatures
	rf.nClasses = nClasses
	rf.trees = trees
	return nil
}

func (rf *RandomForest) PredictProba(rows [][]float64) ([][]float64, error) {
	if len(rf.trees) == 0 {
		return nil, ErrNotTrained
	}
	out := make([][]float64, len(rows))
	for i := range out {
		out[i] = make([]float64, rf.nClasses)
	}
	for _, tree := range rf.trees {
		proba, err := tree.PredictProba(rows)
		if err != nil {
			return nil, err
		}
		for i := range proba {
			for c, p := range proba[i] {
				out[i][c] += p
			}
		}
	}
	n := float64(len(rf.trees))
	for i := range out {
		for c := range out[i] {
			out[i][c] /= n
		}
	}
	return out, nil
}

func (rf *RandomForest) Predict(rows [][]float64) ([]int, error) {
	proba, err := rf.PredictProba(rows)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		out[i] = argmax(p)
	}
	return out, nil
}

func (rf *RandomForest) MarshalJSON() ([]byte, error) {
	if len(rf.trees) == 0 {
		return nil, ErrNotTrained
	}
	return json.Marshal(forestPayload{
		ModelType:   RandomForestType,
		NEstimators: rf.NEstimators,
		MaxDepth:    rf.MaxDepth,
		MaxFeatures: rf.MaxFeatures,
		Seed:        rf.Seed,
		NFeatures:   rf.nFeatures,
		NClasses:    rf.nClasses,
		Trees:       rf.trees,
	})
}

func (rf *RandomForest) UnmarshalJSON(data []byte) error {
	var payload forestPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload.ModelType != "" && payload.ModelType != RandomForestType {
		return fmt.Errorf("%w: %q", ErrUnknownModelType, payload.ModelType)
	}
	if len(payload.Trees) == 0 {
		return ErrNotTrained
	}
	for i, tree := range payload.Trees {
		if tree == nil || tree.nFeatures != payload.NFeatures || tree.nClasses != payload.NClasses {
			return fmt.Errorf("tree %d does not match forest shape", i)
		}
	}
	rf.NEstimators = payload.NEstimators
	rf.MaxDepth = payload.MaxDepth
	rf.MaxFeatures = payload.MaxFeatures
	rf.Seed = payload.Seed
	rf.nFeatures = payload.NFeatures
	rf.nClasses = payload.NClasses
	rf.trees = payload.Trees
	return nil
}
