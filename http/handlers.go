package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"irisapi/inference"
	"irisapi/monitoring"
)

// Handler serves the inference routes over a shared service.
type Handler struct {
	service *inference.Service
	metrics *monitoring.MetricsCollector
	logger  *zap.Logger
}

func NewHandler(service *inference.Service, metrics *monitoring.MetricsCollector, logger *zap.Logger) *Handler {
	if metrics == nil {
		metrics = monitoring.NewMetricsCollector()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, metrics: metrics, logger: logger}
}

func RegisterHandlers(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /{$}", h.handleRoot)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /metrics", h.handleMetrics)
}

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Kind   string `json:"error_kind,omitempty"`
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Describe())
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := h.service.Health()
	status := http.StatusOK
	if !health.ModelLoaded {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.metrics.Snapshot())
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := monitoring.OutcomeSuccess
	defer func() { h.metrics.RecordRequest(outcome, time.Since(start)) }()

	if h.service.State() != inference.StateReady {
		outcome = monitoring.OutcomeUnavailable
		writeError(w, http.StatusServiceUnavailable, inference.ErrModelUnavailable.Error(), "")
		return
	}

	if !isJSONContentType(r.Header.Get("Content-Type")) {
		outcome = monitoring.OutcomeBadRequest
		writeError(w, http.StatusBadRequest, "Content-Type must be application/json", "")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		outcome = monitoring.OutcomeBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "")
			return
		}
		writeError(w, http.StatusBadRequest, "could not read request body", "")
		return
	}

	payload, err := inference.DecodePayload(body)
	if err != nil || payload == nil {
		outcome = monitoring.OutcomeBadRequest
		writeError(w, http.StatusBadRequest, "invalid or empty JSON", "")
		return
	}

	result, err := h.service.Predict(payload)
	if err != nil {
		var ve *inference.ValidationError
		switch {
		case errors.As(err, &ve):
			outcome = monitoring.OutcomeValidationError
			writeError(w, http.StatusBadRequest, ve.Error(), ve.Kind.String())
		case errors.Is(err, inference.ErrModelUnavailable):
			outcome = monitoring.OutcomeUnavailable
			writeError(w, http.StatusServiceUnavailable, err.Error(), "")
		default:
			outcome = monitoring.OutcomeInternalError
			h.logger.Error("prediction failed",
				zap.String("request_id", GetRequestID(r.Context())),
				zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal model error", "")
		}
		return
	}

	h.metrics.RecordPrediction(result.Prediction)
	writeJSON(w, http.StatusOK, result)
}

// isJSONContentType accepts application/json and application/*+json.
func isJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	if mediaType == "application/json" {
		return true
	}
	return strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, kind string) {
	writeJSON(w, status, errorResponse{Status: "error", Error: message, Kind: kind})
}
