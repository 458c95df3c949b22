// Package queue runs render requests on a bounded pool of workers and stores the
// encoded assets.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/leeforge/imageproc/logging"
	"github.com/leeforge/imageproc/media/encoder"
	"github.com/leeforge/imageproc/media/pipeline"
	"github.com/leeforge/imageproc/media/storage"
)

var (
	ErrQueueFull    = errors.New("job queue is full")
	ErrShuttingDown = errors.New("processor is shutting down")
)

// Config sizes the worker pool.
type Config struct {
	Workers     int           `json:"workers" mapstructure:"workers" default:"4"`
	QueueSize   int           `json:"queueSize" mapstructure:"queue-size" default:"100"`
	StopTimeout time.Duration `json:"stopTimeout" mapstructure:"stop-timeout" default:"30s"`
}

// Processor renders one request. *pipeline.Pipeline implements it.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Sink stores an encoded asset. *storage.Sink implements it.
type Sink interface {
	Store(ctx context.Context, asset encoder.Asset) (storage.Object, error)
}

// Job is one queued request.
type Job struct {
	ID       string
	Request  pipeline.Request
	Callback func(result JobResult)
}

// JobResult is the outcome of a job. Object is set when a sink stored the asset.
type JobResult struct {
	JobID  string
	Result *pipeline.Result
	Object *storage.Object
	Err    error
}

func (r JobResult) Success() bool {
	return r.Err == nil
}

// AsyncProcessor is a fixed pool of workers draining a bounded job queue.
type AsyncProcessor struct {
	cfg       Config
	jobQueue  chan Job
	processor Processor
	sink      Sink
	logger    logging.Logger
	uploaded  func(n int)

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures an AsyncProcessor.
type Option func(*AsyncProcessor)

// WithSink uploads every successful result.
func WithSink(s Sink) Option {
	return func(p *AsyncProcessor) { p.sink = s }
}

func WithLogger(l logging.Logger) Option {
	return func(p *AsyncProcessor) { p.logger = l }
}

// WithUploadHook is called with the size of every stored asset.
func WithUploadHook(fn func(n int)) Option {
	return func(p *AsyncProcessor) { p.uploaded = fn }
}

// NewAsyncProcessor creates a stopped processor. Non-positive sizes fall back to one
// worker and an unbuffered queue respectively.
func NewAsyncProcessor(cfg Config, proc Processor, opts ...Option) *AsyncProcessor {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())

	p := &AsyncProcessor{
		cfg:       cfg,
		jobQueue:  make(chan Job, cfg.QueueSize),
		processor: proc,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.Named("queue")
	}
	return p
}

// Start launches the workers.
func (p *AsyncProcessor) Start() {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *AsyncProcessor) worker(id int) {
	defer p.wg.Done()
	for job := range p.jobQueue {
		p.processJob(id, job)
	}
}

// processJob renders and stores one job. Failures are reported once; there is no retry.
func (p *AsyncProcessor) processJob(worker int, job Job) {
	result := JobResult{JobID: job.ID}
	log := p.logger.With(zap.String("job_id", job.ID), zap.Int("worker", worker))

	res, err := p.processor.Process(p.ctx, job.Request)
	switch {
	case err != nil:
		result.Err = err
	case p.sink != nil:
		result.Result = res
		obj, err := p.sink.Store(p.ctx, res.Asset)
		if err != nil {
			result.Err = fmt.Errorf("upload failed: %w", err)
			break
		}
		result.Object = &obj
		if p.uploaded != nil {
			p.uploaded(obj.Size)
		}
	default:
		result.Result = res
	}

	if result.Err != nil {
		log.Warn("job failed", zap.Error(result.Err))
	} else {
		log.Debug("job completed")
	}
	if job.Callback != nil {
		job.Callback(result)
	}
}

// Submit enqueues job without blocking. An empty ID is replaced by a UUID.
func (p *AsyncProcessor) Submit(job Job) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return "", ErrShuttingDown
	}
	select {
	case p.jobQueue <- job:
		return job.ID, nil
	default:
		return "", ErrQueueFull
	}
}

// SubmitBatch enqueues every job, returning the combined errors of those rejected.
func (p *AsyncProcessor) SubmitBatch(jobs []Job) error {
	var errs error
	for i, job := range jobs {
		if _, err := p.Submit(job); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("job %d: %w", i, err))
		}
	}
	return errs
}

// Stop rejects new jobs and waits for queued ones to finish. After StopTimeout the
// in-flight requests are canceled.
func (p *AsyncProcessor) Stop() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobQueue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timeout := p.cfg.StopTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	select {
	case <-done:
		p.cancel()
		return nil
	case <-time.After(timeout):
		p.cancel()
		<-done
		return fmt.Errorf("timeout waiting for jobs to complete")
	}
}

// QueueSize returns the number of jobs waiting for a worker.
func (p *AsyncProcessor) QueueSize() int {
	return len(p.jobQueue)
}
