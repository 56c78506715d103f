package ml

import (
	"encoding/json"
	"fmt"
)

// ModelOptions are the training parameters shared by the model factories.
type ModelOptions struct {
	NEstimators int
	MaxDepth    int
	Seed        int64
}

// NewModel returns an untrained model of the given type.
func NewModel(modelType string, opts ModelOptions) (MLModel, error) {
	switch modelType {
	case RandomForestType:
		return NewRandomForest(opts.NEstimators, opts.MaxDepth, opts.Seed), nil
	case DecisionTreeType:
		return NewDecisionTree(opts.MaxDepth), nil
	case NearestCentroidType:
		return &NearestCentroid{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModelType, modelType)
	}
}

// DecodeModel restores a trained model from its JSON form, dispatching on
// the model_type field.
func DecodeModel(data []byte) (MLModel, error) {
	var header struct {
		ModelType string `json:"model_type"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	model, err := NewModel(header.ModelType, ModelOptions{})
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, model); err != nil {
		return nil, fmt.Errorf("decode %s: %w", header.ModelType, err)
	}
	return model, nil
}
