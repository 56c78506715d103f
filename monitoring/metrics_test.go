package monitoring

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsCollectorCounts(t *testing.T) {
	mc := NewMetricsCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mc.RecordRequest(OutcomeSuccess, 2*time.Millisecond)
			mc.RecordPrediction("setosa")
		}()
	}
	wg.Wait()
	mc.RecordRequest(OutcomeValidationError, 2*time.Millisecond)

	snap := mc.Snapshot()
	if snap.Requests[OutcomeSuccess] != 50 || snap.Requests[OutcomeValidationError] != 1 {
		t.Fatalf("unexpected request counts: %v", snap.Requests)
	}
	if snap.Predictions["setosa"] != 50 {
		t.Fatalf("unexpected prediction counts: %v", snap.Predictions)
	}
	if snap.AvgLatencyMs != 2 {
		t.Fatalf("expected 2ms average latency, got %v", snap.AvgLatencyMs)
	}

	// snapshots are copies
	snap.Requests[OutcomeSuccess] = 0
	if mc.Snapshot().Requests[OutcomeSuccess] != 50 {
		t.Fatal("snapshot shares state with the collector")
	}
}
