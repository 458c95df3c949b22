package pipeline

import "time"

// StartEvent is delivered when a request leaves the created state.
type StartEvent struct {
	RequestID string
	Source    string
	Target    string
}

// ProcessedEvent is delivered once the encoded result is available.
type ProcessedEvent struct {
	RequestID string
	Source    string
	Target    string
	Result    *Result
	Duration  time.Duration
}

// ErrorEvent is delivered when a request halts. Err is a *errors.PipelineError.
type ErrorEvent struct {
	RequestID string
	Source    string
	Target    string
	Err       error
	// State is the lifecycle state the failure was raised in.
	State    State
	Duration time.Duration
}

// Observer receives lifecycle callbacks. Callbacks run synchronously on the request's
// goroutine.
type Observer interface {
	OnStart(StartEvent)
	OnProcessed(ProcessedEvent)
	OnError(ErrorEvent)
}

// ObserverFuncs adapts optional functions to Observer. Nil funcs are skipped.
type ObserverFuncs struct {
	Start     func(StartEvent)
	Processed func(ProcessedEvent)
	Error     func(ErrorEvent)
}

func (f ObserverFuncs) OnStart(e StartEvent) {
	if f.Start != nil {
		f.Start(e)
	}
}

func (f ObserverFuncs) OnProcessed(e ProcessedEvent) {
	if f.Processed != nil {
		f.Processed(e)
	}
}

func (f ObserverFuncs) OnError(e ErrorEvent) {
	if f.Error != nil {
		f.Error(e)
	}
}

type multiObserver []Observer

// Observers fans callbacks out to every non-nil observer, in order.
func Observers(obs ...Observer) Observer {
	out := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (m multiObserver) OnStart(e StartEvent) {
	for _, o := range m {
		o.OnStart(e)
	}
}

func (m multiObserver) OnProcessed(e ProcessedEvent) {
	for _, o := range m {
		o.OnProcessed(e)
	}
}

func (m multiObserver) OnError(e ErrorEvent) {
	for _, o := range m {
		o.OnError(e)
	}
}
