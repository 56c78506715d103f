package ml

import (
	"encoding/json"
	"fmt"
	"math"
)

const NearestCentroidType = "nearest_centroid"

// NearestCentroid assigns each row to the class with the closest mean.
// It has no probability estimate.
type NearestCentroid struct {
	centroids [][]float64
}

type centroidPayload struct {
	ModelType string      `json:"model_type"`
	Centroids [][]float64 `json:"centroids"`
}

func (nc *NearestCentroid) Type() string { return NearestCentroidType }

func (nc *NearestCentroid) NumFeatures() int {
	if len(nc.centroids) == 0 {
		return 0
	}
	return len(nc.centroids[0])
}

func (nc *NearestCentroid) Train(features [][]float64, labels []int) error {
	nFeatures, nClasses, err := checkTrainingSet(features, labels)
	if err != nil {
		return err
	}
	sums := make([][]float64, nClasses)
	counts := make([]int, nClasses)
	for c := range sums {
		sums[c] = make([]float64, nFeatures)
	}
	for i, row := range features {
		counts[labels[i]]++
		for j, v := range row {
			sums[labels[i]][j] += v
		}
	}
	for c := range sums {
		if counts[c] == 0 {
			// unseen classes can never be the nearest
			for j := range sums[c] {
				sums[c][j] = math.MaxFloat64
			}
			continue
		}
		for j := range sums[c] {
			sums[c][j] /= float64(counts[c])
		}
	}
	nc.centroids = sums
	return nil
}

func (nc *NearestCentroid) Predict(rows [][]float64) ([]int, error) {
	if len(nc.centroids) == 0 {
		return nil, ErrNotTrained
	}
	nFeatures := nc.NumFeatures()
	out := make([]int, len(rows))
	for i, row := range rows {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("expected %d features, got %d", nFeatures, len(row))
		}
		best, bestDist := 0, math.Inf(1)
		for c, centroid := range nc.centroids {
			d := 0.0
			for j, v := range row {
				diff := v - centroid[j]
				d += diff * diff
			}
			if d < bestDist {
				best, bestDist = c, d
			}
		}
		out[i] = best
	}
	return out, nil
}

func (nc *NearestCentroid) MarshalJSON() ([]byte, error) {
	if len(nc.centroids) == 0 {
		return nil, ErrNotTrained
	}
	return json.Marshal(centroidPayload{ModelType: NearestCentroidType, Centroids: nc.centroids})
}

func (nc *NearestCentroid) UnmarshalJSON(data []byte) error {
	var payload centroidPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload.ModelType != "" && payload.ModelType != NearestCentroidType {
		return fmt.Errorf("%w: %q", ErrUnknownModelType, payload.ModelType)
	}
	if len(payload.Centroids) == 0 || len(payload.Centroids[0]) == 0 {
		return ErrNotTrained
	}
	for c, centroid := range payload.Centroids {
		if len(centroid) != len(payload.Centroids[0]) {
			return fmt.Errorf("centroid %d has %d features, want %d", c, len(centroid), len(payload.Centroids[0]))
		}
	}
	nc.centroids = payload.Centroids
	return nil
}
