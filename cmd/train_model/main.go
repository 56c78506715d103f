package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"go.uber.org/zap"

	"irisapi/config"
	"irisapi/logging"
	"irisapi/ml"
)

type summary struct {
	Output       string   `json:"output"`
	AccuracyTest float64  `json:"accuracy_test"`
	Classes      []string `json:"classes"`
	Features     []string `json:"features"`
}

func main() {
	output := flag.String("output", ml.DefaultArtifactPath, "artifact output path (.gz to compress)")
	testSize := flag.Float64("test-size", 0.2, "fraction of each class held out for evaluation")
	nEstimators := flag.Int("n-estimators", 200, "number of trees in the forest")
	seed := flag.Int64("seed", 42, "random seed for the split and the model")
	maxDepth := flag.Int("max-depth", 0, "max tree depth, 0 for unlimited")
	modelType := flag.String("model", ml.RandomForestType, "random_forest, decision_tree or nearest_centroid")
	bare := flag.Bool("bare", false, "write only the classifier, without metadata")
	flag.Parse()

	logger, err := logging.New(config.LogConfig{Level: "info", Development: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ds, err := ml.LoadIris()
	if err != nil {
		logger.Fatal("failed to load dataset", zap.Error(err))
	}

	trainX, trainY, testX, testY, err := ml.StratifiedSplit(ds.X, ds.Y, *testSize, *seed)
	if err != nil {
		logger.Fatal("failed to split dataset", zap.Error(err))
	}

	model, err := ml.NewModel(*modelType, ml.ModelOptions{
		NEstimators: *nEstimators,
		MaxDepth:    *maxDepth,
		Seed:        *seed,
	})
	if err != nil {
		logger.Fatal("unknown model", zap.Error(err))
	}
	if err := model.Train(trainX, trainY); err != nil {
		logger.Fatal("failed to train model", zap.Error(err))
	}

	accuracy, err := ml.Accuracy(model, testX, testY)
	if err != nil {
		logger.Fatal("failed to evaluate model", zap.Error(err))
	}
	logger.Info("model trained",
		zap.String("model_type", model.Type()),
		zap.Int("train_rows", len(trainX)),
		zap.Int("test_rows", len(testX)),
		zap.Float64("accuracy_test", accuracy))

	artifact := &ml.Artifact{
		Model:        model,
		ClassNames:   ds.ClassNames,
		FeatureNames: ds.FeatureNames,
		NFeatures:    len(ds.FeatureNames),
		TestAccuracy: accuracy,
		Meta: &ml.TrainingMeta{
			ModelType:   model.Type(),
			Seed:        *seed,
			TestSize:    *testSize,
			NEstimators: *nEstimators,
			MaxDepth:    *maxDepth,
			TrainedAt:   time.Now().UTC(),
		},
		Bare: *bare,
	}
	if err := ml.SaveArtifact(*output, artifact); err != nil {
		logger.Fatal("failed to save artifact", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(summary{
		Output:       *output,
		AccuracyTest: math.Round(accuracy*1000) / 1000,
		Classes:      ds.ClassNames,
		Features:     ds.FeatureNames,
	})
}
