package queue

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

// BatchProcessor submits a set of jobs and collects their results in input order.
type BatchProcessor struct {
	processor *AsyncProcessor
	tracker   *ProgressTracker
}

func NewBatchProcessor(processor *AsyncProcessor) *BatchProcessor {
	return &BatchProcessor{processor: processor, tracker: NewProgressTracker(0)}
}

// ProcessBatch blocks until every accepted job has finished. The error combines the
// rejected submissions and the failed jobs; results stay aligned with jobs.
func (b *BatchProcessor) ProcessBatch(jobs []Job) ([]JobResult, error) {
	results := make([]JobResult, len(jobs))
	b.tracker.Add(len(jobs))

	var wg sync.WaitGroup
	rejected := make([]error, len(jobs))
	for i, job := range jobs {
		wg.Add(1)
		original := job.Callback
		job.Callback = func(result JobResult) {
			defer wg.Done()
			results[i] = result
			b.tracker.Record(result.Success())
			if original != nil {
				original(result)
			}
		}

		if _, err := b.processor.Submit(job); err != nil {
			wg.Done()
			rejected[i] = err
			results[i] = JobResult{JobID: job.ID, Err: err}
			b.tracker.Record(false)
		}
	}
	wg.Wait()

	var errs error
	for i, r := range results {
		switch {
		case rejected[i] != nil:
			errs = multierr.Append(errs, fmt.Errorf("submit job %d: %w", i, rejected[i]))
		case r.Err != nil:
			errs = multierr.Append(errs, fmt.Errorf("job %d: %w", i, r.Err))
		}
	}
	return results, errs
}

// Progress returns the tracker shared by every batch of this processor.
func (b *BatchProcessor) Progress() *ProgressTracker {
	return b.tracker
}

// ProgressTracker counts finished jobs.
type ProgressTracker struct {
	total     int
	completed int
	failed    int
	mu        sync.RWMutex
}

func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{total: total}
}

// Add grows the expected total.
func (t *ProgressTracker) Add(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total += n
}

// Record counts one finished job.
func (t *ProgressTracker) Record(success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if success {
		t.completed++
	} else {
		t.failed++
	}
}

func (t *ProgressTracker) Progress() (completed, failed, total int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.completed, t.failed, t.total
}

// Percentage returns finished jobs as a share of the total, in [0, 100].
func (t *ProgressTracker) Percentage() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.total == 0 {
		return 0
	}
	return float64(t.completed+t.failed) / float64(t.total) * 100
}
