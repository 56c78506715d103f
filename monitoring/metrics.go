package monitoring

import (
	"runtime"
	"sync"
	"time"
)

// Outcome classifies how a prediction request ended.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeValidationError Outcome = "validation_error"
	OutcomeBadRequest      Outcome = "bad_request"
	OutcomeUnavailable     Outcome = "unavailable"
	OutcomeInternalError   Outcome = "internal_error"
)

// MetricsCollector counts prediction requests by outcome and by predicted
// label. Safe for concurrent use.
type MetricsCollector struct {
	mu           sync.RWMutex
	outcomes     map[Outcome]int64
	predictions  map[string]int64
	latencyTotal time.Duration
	latencyCount int64

	startTime time.Time
}

// Snapshot is a point-in-time copy of the collected metrics.
type Snapshot struct {
	UptimeSeconds float64           `json:"uptime_seconds"`
	Requests      map[Outcome]int64 `json:"requests"`
	Predictions   map[string]int64  `json:"predictions"`
	AvgLatencyMs  float64           `json:"avg_latency_ms"`
	Goroutines    int               `json:"goroutines"`
	HeapAllocMB   float64           `json:"heap_alloc_mb"`
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		outcomes:    make(map[Outcome]int64),
		predictions: make(map[string]int64),
		startTime:   time.Now(),
	}
}

// RecordRequest counts one finished prediction request.
func (mc *MetricsCollector) RecordRequest(outcome Outcome, elapsed time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.outcomes[outcome]++
	mc.latencyTotal += elapsed
	mc.latencyCount++
}

// RecordPrediction counts one served label.
func (mc *MetricsCollector) RecordPrediction(label string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.predictions[label]++
}

func (mc *MetricsCollector) Snapshot() Snapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(mc.startTime).Seconds(),
		Requests:      make(map[Outcome]int64, len(mc.outcomes)),
		Predictions:   make(map[string]int64, len(mc.predictions)),
		Goroutines:    runtime.NumGoroutine(),
	}
	for k, v := range mc.outcomes {
		snap.Requests[k] = v
	}
	for k, v := range mc.predictions {
		snap.Predictions[k] = v
	}
	if mc.latencyCount > 0 {
		snap.AvgLatencyMs = float64(mc.latencyTotal.Microseconds()) / float64(mc.latencyCount) / 1000
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	snap.HeapAllocMB = float64(mem.HeapAlloc) / 1024 / 1024
	return snap
}
