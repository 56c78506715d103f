package inference

import (
	"errors"

	"go.uber.org/zap"

	"irisapi/ml"
)

// Version is reported by the health and description operations.
const Version = "1.0.0"

// ErrModelUnavailable is returned by every prediction on an Unloaded service.
var ErrModelUnavailable = errors.New("model not available")

// State of the service. It is fixed when the service is constructed.
type State int

const (
	StateUnloaded State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "unloaded"
}

// Service owns the artifact for the process lifetime. It is read-only after
// construction and safe for concurrent use.
type Service struct {
	state     State
	artifact  *ml.Artifact
	predictor *Predictor
	loadErr   error
}

// Load makes the single load attempt for path. A failed load yields an
// Unloaded service rather than an error.
func Load(path string, logger *zap.Logger) *Service {
	artifact, err := ml.LoadArtifact(path)
	if err != nil {
		logger.Error("model artifact not loaded, serving in degraded mode",
			zap.String("path", path), zap.Error(err))
		return NewUnloaded(err)
	}
	logger.Info("model artifact loaded",
		zap.String("path", path),
		zap.String("model_type", artifact.Model.Type()),
		zap.Bool("bare", artifact.Bare),
		zap.Int("n_features", artifact.NFeatures),
		zap.Strings("class_names", artifact.ClassNames),
		zap.Float64("test_accuracy", artifact.TestAccuracy))
	return NewReady(artifact)
}

// NewReady wraps an already loaded artifact.
func NewReady(artifact *ml.Artifact) *Service {
	return &Service{
		state:    StateReady,
		artifact: artifact,
		predictor: &Predictor{
			Classifier: artifact.Model,
			ClassNames: artifact.ClassNames,
		},
	}
}

// NewUnloaded records a failed load.
func NewUnloaded(cause error) *Service {
	return &Service{state: StateUnloaded, loadErr: cause}
}

func (s *Service) State() State { return s.state }

// LoadError is the cause of the Unloaded state, nil when Ready.
func (s *Service) LoadError() error { return s.loadErr }

// Artifact returns the loaded artifact or ErrModelUnavailable.
func (s *Service) Artifact() (*ml.Artifact, error) {
	if s.state != StateReady {
		return nil, ErrModelUnavailable
	}
	return s.artifact, nil
}

// Predict validates a decoded request payload and classifies it.
func (s *Service) Predict(payload any) (*Result, error) {
	artifact, err := s.Artifact()
	if err != nil {
		return nil, err
	}
	rows, err := Validate(payload, artifact.NFeatures)
	if err != nil {
		return nil, err
	}
	return s.predictor.Predict(rows)
}

// Health is the payload of the health operation.
type Health struct {
	Status       string   `json:"status"`
	Message      string   `json:"message"`
	ModelLoaded  bool     `json:"model_loaded"`
	Version      string   `json:"version"`
	NFeatures    int      `json:"n_features"`
	ClassNames   []string `json:"class_names"`
	TestAccuracy float64  `json:"test_accuracy"`
}

func (s *Service) Health() Health {
	h := Health{
		Status:     "error",
		Message:    "model not loaded",
		Version:    Version,
		ClassNames: []string{},
	}
	artifact, err := s.Artifact()
	if err != nil {
		return h
	}
	h.Status = "ok"
	h.Message = "service healthy"
	h.ModelLoaded = true
	h.NFeatures = artifact.NFeatures
	h.ClassNames = artifact.ClassNames
	h.TestAccuracy = artifact.TestAccuracy
	return h
}

// ModelInfo describes the loaded model in the description payload.
type ModelInfo struct {
	Loaded       bool     `json:"loaded"`
	ModelType    string   `json:"model_type,omitempty"`
	NFeatures    int      `json:"n_features"`
	FeatureNames []string `json:"feature_names"`
	ClassNames   []string `json:"class_names"`
	TestAccuracy float64  `json:"test_accuracy"`
}

// Description is the static documentation payload of the service.
type Description struct {
	Message   string                    `json:"message"`
	Status    string                    `json:"status"`
	Version   string                    `json:"version"`
	Endpoints map[string]string         `json:"endpoints"`
	Usage     map[string]any            `json:"usage"`
	Schema    map[string]map[string]any `json:"schema"`
	ModelInfo ModelInfo                 `json:"model_info"`
}

func (s *Service) Describe() Description {
	info := ModelInfo{FeatureNames: []string{}, ClassNames: []string{}}
	nFeatures := len(ml.DefaultFeatureNames())
	if artifact, err := s.Artifact(); err == nil {
		info = ModelInfo{
			Loaded:       true,
			ModelType:    artifact.Model.Type(),
			NFeatures:    artifact.NFeatures,
			FeatureNames: artifact.FeatureNames,
			ClassNames:   artifact.ClassNames,
			TestAccuracy: artifact.TestAccuracy,
		}
		nFeatures = artifact.NFeatures
	}

	schema := make([]string, nFeatures)
	for i := range schema {
		schema[i] = "float"
	}
	return Description{
		Message: "Iris classification API",
		Status:  "success",
		Version: Version,
		Endpoints: map[string]string{
			"GET /":         "API documentation",
			"GET /health":   "Service status and model metadata",
			"GET /metrics":  "Request and prediction counters",
			"POST /predict": "Classify one iris flower",
		},
		Usage: map[string]any{
			"predict_example": map[string]any{FeaturesKey: []float64{5.1, 3.5, 1.4, 0.2}},
		},
		Schema: map[string]map[string]any{
			"POST /predict": {FeaturesKey: schema},
		},
		ModelInfo: info,
	}
}
