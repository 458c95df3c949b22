package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Task is a request running on its own goroutine.
type Task struct {
	ID string

	mu      sync.RWMutex
	history []State
	done    chan struct{}
	result  *Result
	err     error
}

func newTask() *Task {
	return &Task{
		ID:      uuid.NewString(),
		history: []State{StateCreated},
		done:    make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (t *Task) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.history[len(t.history)-1]
}

// History returns every state the task has been in, oldest first.
func (t *Task) History() []State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]State(nil), t.history...)
}

func (t *Task) setState(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.history[len(t.history)-1] != s {
		t.history = append(t.history, s)
	}
}

// Done is closed when the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes and returns its outcome.
func (t *Task) Wait() (*Result, error) {
	<-t.done
	return t.result, t.err
}

func (t *Task) finish(res *Result, err error) {
	t.result, t.err = res, err
	close(t.done)
}

// Submit starts req on a new goroutine.
func (p *Pipeline) Submit(ctx context.Context, req Request) *Task {
	task := newTask()
	go func() {
		task.finish(p.run(ctx, req, task))
	}()
	return task
}

// Outcome is the result of one request of a batch.
type Outcome struct {
	Result *Result
	Err    error
}

// ProcessBatch runs every request concurrently and independently. The returned slice
// is aligned with reqs; a failing request never affects the others.
func (p *Pipeline) ProcessBatch(ctx context.Context, reqs []Request) []Outcome {
	out := make([]Outcome, len(reqs))
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			res, err := p.Process(ctx, req)
			out[i] = Outcome{Result: res, Err: err}
		}(i, req)
	}
	wg.Wait()
	return out
}
