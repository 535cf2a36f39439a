package core

import (
	"sync"
	"time"
)

const AVG_COUNT uint8 = 30

// LoadMetrics accumulates counters for the loading pipeline. The load time
// average is computed over a ring of the last AVG_COUNT completed loads.
type LoadMetrics struct {
	mutex sync.Mutex

	loadAVGCounter uint8
	loadMStimes    [AVG_COUNT]float64
	loadMSavg      float64

	resourcesLoaded int64
	resourcesFailed int64
	filesFetched    int64
	fetchFailures   int64
	bytesFetched    int64
}

type MetricsSnapshot struct {
	ResourcesLoaded int64   `json:"resourcesLoaded"`
	ResourcesFailed int64   `json:"resourcesFailed"`
	FilesFetched    int64   `json:"filesFetched"`
	FetchFailures   int64   `json:"fetchFailures"`
	BytesFetched    int64   `json:"bytesFetched"`
	LoadTimeAvgMS   float64 `json:"loadTimeAvgMs"`
}

func NewLoadMetrics() *LoadMetrics {
	return &LoadMetrics{}
}

func (lm *LoadMetrics) RecordLoad(elapsed time.Duration) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	loadMS := float64(elapsed) / float64(time.Millisecond)
	lm.loadMStimes[lm.loadAVGCounter] = loadMS
	if lm.loadAVGCounter == AVG_COUNT-1 {
		lm.loadMSavg = 0
		for i := uint8(0); i < AVG_COUNT; i++ {
			lm.loadMSavg += lm.loadMStimes[i]
		}
		lm.loadMSavg /= float64(AVG_COUNT)
	}
	lm.loadAVGCounter++
	lm.loadAVGCounter %= AVG_COUNT

	lm.resourcesLoaded++
}

func (lm *LoadMetrics) RecordFailure() {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	lm.resourcesFailed++
}

func (lm *LoadMetrics) RecordFetch(bytes int, failed bool) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	lm.filesFetched++
	lm.bytesFetched += int64(bytes)
	if failed {
		lm.fetchFailures++
	}
}

func (lm *LoadMetrics) Snapshot() MetricsSnapshot {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	return MetricsSnapshot{
		ResourcesLoaded: lm.resourcesLoaded,
		ResourcesFailed: lm.resourcesFailed,
		FilesFetched:    lm.filesFetched,
		FetchFailures:   lm.fetchFailures,
		BytesFetched:    lm.bytesFetched,
		LoadTimeAvgMS:   lm.loadMSavg,
	}
}
