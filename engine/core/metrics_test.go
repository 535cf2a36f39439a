package core

import (
	"testing"
	"time"
)

func TestLoadMetricsCounters(t *testing.T) {
	lm := NewLoadMetrics()
	lm.RecordLoad(10 * time.Millisecond)
	lm.RecordLoad(20 * time.Millisecond)
	lm.RecordFailure()
	lm.RecordFetch(100, false)
	lm.RecordFetch(50, true)

	snap := lm.Snapshot()
	if snap.ResourcesLoaded != 2 {
		t.Fatalf("resourcesLoaded = %d, want 2", snap.ResourcesLoaded)
	}
	if snap.ResourcesFailed != 1 {
		t.Fatalf("resourcesFailed = %d, want 1", snap.ResourcesFailed)
	}
	if snap.FilesFetched != 2 || snap.FetchFailures != 1 {
		t.Fatalf("fetches = (%d, %d), want (2, 1)", snap.FilesFetched, snap.FetchFailures)
	}
	if snap.BytesFetched != 150 {
		t.Fatalf("bytesFetched = %d, want 150", snap.BytesFetched)
	}
}

func TestLoadMetricsAverageWindow(t *testing.T) {
	lm := NewLoadMetrics()
	// The average publishes once the ring fills.
	for i := uint8(0); i < AVG_COUNT; i++ {
		lm.RecordLoad(10 * time.Millisecond)
	}
	snap := lm.Snapshot()
	if snap.LoadTimeAvgMS < 9.9 || snap.LoadTimeAvgMS > 10.1 {
		t.Fatalf("loadTimeAvgMs = %f, want ~10", snap.LoadTimeAvgMS)
	}
}
