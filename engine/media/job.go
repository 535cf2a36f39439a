package media

import (
	"fmt"
	"sync"
)

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")

// JobSystem runs fetch jobs on a fixed pool of workers. All asynchrony in
// the media layer goes through here; the storage fetchers themselves block.
type JobSystem struct {
	numWorkers int
	jobQueue   chan func()
	wg         sync.WaitGroup
}

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan func(), channelSize),
	}
	js.start()
	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				job()
			}
		}()
	}
}

/**
 * @brief Shuts the job system down after the queued jobs drain.
 */
func (js *JobSystem) Shutdown() error {
	close(js.jobQueue)
	js.wg.Wait()
	return nil
}

// SubmitNonBlocking adds work and returns immediately even when the queue is
// full. Completion callbacks submit nested fetches through this so a full
// queue cannot deadlock a worker.
func (js *JobSystem) SubmitNonBlocking(job func()) {
	select {
	case js.jobQueue <- job:
	default:
		go js.Submit(job)
	}
}

/**
 * @brief Submits the provided job to be queued for execution.
 */
func (js *JobSystem) Submit(job func()) {
	js.jobQueue <- job
}
