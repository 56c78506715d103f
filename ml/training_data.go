package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit holds out round(testSize * n_c) rows of every class c,
// shuffled with seed, so both halves keep the class proportions.
func StratifiedSplit(features [][]float64, labels []int, testSize float64, seed int64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int, err error) {
	if len(features) != len(labels) {
		return nil, nil, nil, nil, errors.New("features and labels size mismatch")
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, nil, nil, fmt.Errorf("test size must be in (0, 1), got %v", testSize)
	}

	byClass := make(map[int][]int)
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for label := range byClass {
		classes = append(classes, label)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewSource(seed))
	for _, label := range classes {
		idx := byClass[label]
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		nTest := int(math.Round(testSize * float64(len(idx))))
		for k, i := range idx {
			if k < nTest {
				testX = append(testX, features[i])
				testY = append(testY, labels[i])
			} else {
				trainX = append(trainX, features[i])
				trainY = append(trainY, labels[i])
			}
		}
	}
	if len(trainX) == 0 || len(testX) == 0 {
		return nil, nil, nil, nil, errors.New("split left one side empty")
	}
	return trainX, trainY, testX, testY, nil
}

// Accuracy is the fraction of rows whose predicted label matches.
func Accuracy(model Classifier, features [][]float64, labels []int) (float64, error) {
	if len(features) == 0 {
		return 0, errors.New("features is empty")
	}
	predicted, err := model.Predict(features)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i, label := range predicted {
		if label == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(features)), nil
}
