package ml

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const DefaultArtifactPath = "model.json"

// ErrMissingModel is returned for a bundle without a "model" entry.
var ErrMissingModel = errors.New("artifact has no model entry")

// TrainingMeta records how the bundled model was produced.
type TrainingMeta struct {
	ModelType   string    `json:"model_type"`
	Seed        int64     `json:"seed"`
	TestSize    float64   `json:"test_size"`
	NEstimators int       `json:"n_estimators,omitempty"`
	MaxDepth    int       `json:"max_depth,omitempty"`
	TrainedAt   time.Time `json:"trained_at"`
}

// Artifact is a trained model plus the metadata the service needs.
// It is never modified after LoadArtifact returns.
type Artifact struct {
	Model        MLModel
	ClassNames   []string
	FeatureNames []string
	NFeatures    int
	TestAccuracy float64
	Meta         *TrainingMeta
	// Bare is set when the file held only a classifier and the metadata
	// above are defaults.
	Bare bool
}

type bundleFile struct {
	Model        json.RawMessage `json:"model,omitempty"`
	ClassNames   []string        `json:"class_names,omitempty"`
	FeatureNames []string        `json:"feature_names,omitempty"`
	NFeatures    *int            `json:"n_features,omitempty"`
	TestAccuracy *float64        `json:"test_accuracy,omitempty"`
	TrainingMeta *TrainingMeta   `json:"training_meta,omitempty"`
}

// LoadArtifact reads an artifact file. Both the metadata bundle and a bare
// classifier are accepted; the bare form gets the reference metadata.
func LoadArtifact(path string) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err := maybeGunzip(raw)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	artifact, err := DecodeArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return artifact, nil
}

// DecodeArtifact parses the JSON form of an artifact.
func DecodeArtifact(data []byte) (*Artifact, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}

	if _, bare := fields["model_type"]; bare {
		model, err := DecodeModel(data)
		if err != nil {
			return nil, err
		}
		artifact := &Artifact{
			Model:        model,
			ClassNames:   IrisClassNames(),
			FeatureNames: DefaultFeatureNames(),
			NFeatures:    len(DefaultFeatureNames()),
			Bare:         true,
		}
		return artifact, artifact.check()
	}

	var bundle bundleFile
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if len(bundle.Model) == 0 || bytes.Equal(bytes.TrimSpace(bundle.Model), []byte("null")) {
		return nil, ErrMissingModel
	}
	model, err := DecodeModel(bundle.Model)
	if err != nil {
		return nil, err
	}

	artifact := &Artifact{
		Model:        model,
		ClassNames:   bundle.ClassNames,
		FeatureNames: bundle.FeatureNames,
		NFeatures:    len(DefaultFeatureNames()),
		Meta:         bundle.TrainingMeta,
	}
	if artifact.ClassNames == nil {
		artifact.ClassNames = IrisClassNames()
	}
	if artifact.FeatureNames == nil {
		artifact.FeatureNames = DefaultFeatureNames()
	}
	if bundle.NFeatures != nil {
		artifact.NFeatures = *bundle.NFeatures
	}
	if bundle.TestAccuracy != nil {
		artifact.TestAccuracy = *bundle.TestAccuracy
	}
	return artifact, artifact.check()
}

func (a *Artifact) check() error {
	if len(a.ClassNames) < 1 {
		return errors.New("artifact has no class names")
	}
	if a.NFeatures < 1 {
		return fmt.Errorf("artifact n_features must be positive, got %d", a.NFeatures)
	}
	if n := a.Model.NumFeatures(); n != a.NFeatures {
		return fmt.Errorf("model expects %d features but artifact declares %d", n, a.NFeatures)
	}
	if a.TestAccuracy < 0 || a.TestAccuracy > 1 {
		return fmt.Errorf("test accuracy %v outside [0, 1]", a.TestAccuracy)
	}
	return nil
}

// Encode returns the JSON form of the artifact. A bare artifact encodes the
// model alone.
func (a *Artifact) Encode() ([]byte, error) {
	if a.Model == nil {
		return nil, ErrMissingModel
	}
	model, err := json.Marshal(a.Model)
	if err != nil {
		return nil, err
	}
	if a.Bare {
		return model, nil
	}
	nFeatures := a.NFeatures
	accuracy := a.TestAccuracy
	return json.MarshalIndent(bundleFile{
		Model:        model,
		ClassNames:   a.ClassNames,
		FeatureNames: a.FeatureNames,
		NFeatures:    &nFeatures,
		TestAccuracy: &accuracy,
		TrainingMeta: a.Meta,
	}, "", "  ")
}

// SaveArtifact writes the artifact atomically, gzip-compressed when the
// path ends in ".gz".
func SaveArtifact(path string, a *Artifact) error {
	data, err := a.Encode()
	if err != nil {
		return err
	}
	if strings.HasSuffix(path, ".gz") {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		data = buf.Bytes()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func maybeGunzip(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
