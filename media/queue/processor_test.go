package queue

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/leeforge/imageproc/errors"
	"github.com/leeforge/imageproc/logging"
	"github.com/leeforge/imageproc/media/options"
	"github.com/leeforge/imageproc/media/pipeline"
	"github.com/leeforge/imageproc/media/raster"
	"github.com/leeforge/imageproc/media/storage"
	fixtures "github.com/leeforge/imageproc/testing"
)

func newPipeline() *pipeline.Pipeline {
	loader := fixtures.NewMemoryLoader().
		Add("mem://a.png", fixtures.Solid(6, 4, fixtures.Red)).
		Add("mem://b.png", fixtures.Solid(3, 3, fixtures.Blue))
	return pipeline.New(options.Defaults(), pipeline.WithLoader(loader), pipeline.WithLogger(logging.Nop()))
}

func job(url, target string) Job {
	return Job{Request: pipeline.Request{Source: raster.FromURL(url, raster.Hints{}), Target: target}}
}

func newSink(t *testing.T) (*storage.Sink, string) {
	dir := t.TempDir()
	p, err := storage.NewLocalProvider(dir, "/media")
	require.NoError(t, err)
	return storage.NewSink(p, "out", logging.Nop()), dir
}

func TestAsyncProcessorStoresResults(t *testing.T) {
	sink, dir := newSink(t)
	var uploaded atomic.Int64
	p := NewAsyncProcessor(Config{Workers: 2, QueueSize: 4, StopTimeout: time.Second}, newPipeline(),
		WithSink(sink),
		WithLogger(logging.Nop()),
		WithUploadHook(func(n int) { uploaded.Add(int64(n)) }),
	)
	p.Start()

	results := make(chan JobResult, 2)
	for _, j := range []Job{job("mem://a.png", "a"), job("mem://b.png", "b")} {
		j.Callback = func(r JobResult) { results <- r }
		id, err := p.Submit(j)
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}
	require.NoError(t, p.Stop())
	close(results)

	var total int64
	for r := range results {
		require.NoError(t, r.Err)
		require.NotNil(t, r.Object)
		assert.True(t, r.Success())
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(r.Object.Key)))
		require.NoError(t, err)
		assert.Equal(t, r.Result.Asset.Data, data)
		total += int64(len(data))
	}
	assert.Equal(t, total, uploaded.Load())
}

func TestAsyncProcessorQueueFullAndShutdown(t *testing.T) {
	p := NewAsyncProcessor(Config{Workers: 1, QueueSize: 1, StopTimeout: time.Second}, newPipeline(), WithLogger(logging.Nop()))

	var done atomic.Int32
	first := job("mem://a.png", "a")
	first.Callback = func(JobResult) { done.Add(1) }
	_, err := p.Submit(first)
	require.NoError(t, err)

	_, err = p.Submit(job("mem://a.png", "a"))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 1, p.QueueSize())

	p.Start()
	require.NoError(t, p.Stop())
	assert.Equal(t, int32(1), done.Load())

	_, err = p.Submit(job("mem://a.png", "a"))
	assert.ErrorIs(t, err, ErrShuttingDown)
	require.NoError(t, p.Stop())
}

type blockingProcessor struct{}

func (blockingProcessor) Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestAsyncProcessorStopTimeoutCancels(t *testing.T) {
	p := NewAsyncProcessor(Config{Workers: 1, QueueSize: 1, StopTimeout: 50 * time.Millisecond}, blockingProcessor{}, WithLogger(logging.Nop()))
	p.Start()

	got := make(chan JobResult, 1)
	j := job("mem://a.png", "a")
	j.Callback = func(r JobResult) { got <- r }
	_, err := p.Submit(j)
	require.NoError(t, err)

	assert.Error(t, p.Stop())
	r := <-got
	assert.ErrorIs(t, r.Err, context.Canceled)
}

func TestBatchProcessorIsolatesFailures(t *testing.T) {
	sink, _ := newSink(t)
	p := NewAsyncProcessor(Config{Workers: 3, QueueSize: 8, StopTimeout: time.Second}, newPipeline(),
		WithSink(sink), WithLogger(logging.Nop()))
	p.Start()
	defer p.Stop()

	var mu sync.Mutex
	var calls int
	jobs := []Job{job("mem://a.png", "a"), job("mem://broken", "b"), job("mem://b.png", "c")}
	jobs[0].Callback = func(JobResult) {
		mu.Lock()
		calls++
		mu.Unlock()
	}

	b := NewBatchProcessor(p)
	results, err := b.ProcessBatch(jobs)
	require.Len(t, results, 3)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)

	assert.True(t, results[0].Success())
	assert.Equal(t, "a", results[0].Result.Target)
	assert.True(t, errors.IsType(results[1].Err, errors.ErrorTypeLoadFailure))
	assert.Nil(t, results[1].Object)
	assert.True(t, results[2].Success())
	assert.Equal(t, 1, calls)

	completed, failed, total := b.Progress().Progress()
	assert.Equal(t, 2, completed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 3, total)
	assert.Equal(t, 100.0, b.Progress().Percentage())
}

func TestBatchProcessorRejectedSubmissions(t *testing.T) {
	p := NewAsyncProcessor(Config{Workers: 1, QueueSize: 1}, newPipeline(), WithLogger(logging.Nop()))
	p.Start()
	require.NoError(t, p.Stop())

	results, err := NewBatchProcessor(p).ProcessBatch([]Job{job("mem://a.png", "a"), job("mem://b.png", "b")})
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorIs(t, results[0].Err, ErrShuttingDown)
	assert.ErrorIs(t, results[1].Err, ErrShuttingDown)
}

func TestSubmitBatchCombinesErrors(t *testing.T) {
	p := NewAsyncProcessor(Config{Workers: 1, QueueSize: 1}, newPipeline(), WithLogger(logging.Nop()))
	err := p.SubmitBatch([]Job{job("mem://a.png", "a"), job("mem://a.png", "a"), job("mem://a.png", "a")})
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorIs(t, err, ErrQueueFull)
	p.Start()
	require.NoError(t, p.Stop())
}

func TestProgressTracker(t *testing.T) {
	tr := NewProgressTracker(0)
	assert.Equal(t, 0.0, tr.Percentage())
	tr.Add(4)
	tr.Record(true)
	tr.Record(false)
	assert.Equal(t, 50.0, tr.Percentage())
}
