package pipeline

import (
	"github.com/felixgeelhaar/statekit"
	"go.uber.org/zap"

	"github.com/leeforge/imageproc/logging"
)

// State is a request lifecycle state.
type State string

const (
	StateCreated          State = "created"
	StateLoading          State = "loading"
	StateDrawing          State = "drawing"
	StateLoadingWatermark State = "loading_watermark"
	StateCompositing      State = "compositing"
	StateEncoding         State = "encoding"
	StateCompleted        State = "completed"
	StateErrored          State = "errored"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateErrored
}

// Statechart events. They are untyped so they convert to statekit.EventType.
const (
	evLoad          = "LOAD"
	evDraw          = "DRAW"
	evLoadWatermark = "LOAD_WATERMARK"
	evComposite     = "COMPOSITE"
	evEncode        = "ENCODE"
	evComplete      = "COMPLETE"
	evFail          = "FAIL"
)

// lifecycle is the statechart context of one request.
type lifecycle struct {
	requestID string
	logger    logging.Logger
	events    []statekit.EventType
}

func logEntry(ctx **lifecycle, event statekit.Event) {
	if ctx == nil || *ctx == nil || (*ctx).logger == nil {
		return
	}
	(*ctx).logger.Debug("lifecycle transition", zap.String("event", string(event.Type)))
}

func recordTransition(ctx **lifecycle, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	(*ctx).events = append((*ctx).events, event.Type)
}

// newMachine builds the request statechart. Errored is reachable from loading (source
// load failure, missing target, invalid configuration), loading_watermark and encoding.
func newMachine() (*statekit.MachineConfig[*lifecycle], error) {
	return statekit.NewMachine[*lifecycle]("request").
		WithInitial(statekit.StateID(StateCreated)).
		WithContext(&lifecycle{}).
		WithAction("logEntry", logEntry).
		WithAction("recordTransition", recordTransition).
		State(statekit.StateID(StateCreated)).
			On(evLoad).Target(statekit.StateID(StateLoading)).Do("recordTransition").
			Done().
		State(statekit.StateID(StateLoading)).
			OnEntry("logEntry").
			On(evDraw).Target(statekit.StateID(StateDrawing)).Do("recordTransition").
			On(evFail).Target(statekit.StateID(StateErrored)).Do("recordTransition").
			Done().
		State(statekit.StateID(StateDrawing)).
			OnEntry("logEntry").
			On(evLoadWatermark).Target(statekit.StateID(StateLoadingWatermark)).Do("recordTransition").
			On(evComposite).Target(statekit.StateID(StateCompositing)).Do("recordTransition").
			On(evEncode).Target(statekit.StateID(StateEncoding)).Do("recordTransition").
			Done().
		State(statekit.StateID(StateLoadingWatermark)).
			OnEntry("logEntry").
			On(evComposite).Target(statekit.StateID(StateCompositing)).Do("recordTransition").
			On(evEncode).Target(statekit.StateID(StateEncoding)).Do("recordTransition").
			On(evFail).Target(statekit.StateID(StateErrored)).Do("recordTransition").
			Done().
		State(statekit.StateID(StateCompositing)).
			OnEntry("logEntry").
			On(evEncode).Target(statekit.StateID(StateEncoding)).Do("recordTransition").
			Done().
		State(statekit.StateID(StateEncoding)).
			OnEntry("logEntry").
			On(evComplete).Target(statekit.StateID(StateCompleted)).Do("recordTransition").
			On(evFail).Target(statekit.StateID(StateErrored)).Do("recordTransition").
			Done().
		State(statekit.StateID(StateCompleted)).
			Final().
			OnEntry("logEntry").
			Done().
		State(statekit.StateID(StateErrored)).
			Final().
			OnEntry("logEntry").
			Done().
		Build()
}

// run drives one statechart interpreter and mirrors its state into the task.
type run struct {
	interp *statekit.Interpreter[*lifecycle]
	ctx    *lifecycle
	task   *Task
}

func (p *Pipeline) start(task *Task, logger logging.Logger) *run {
	lc := &lifecycle{requestID: task.ID, logger: logger}
	interp := statekit.NewInterpreter(p.machine)
	interp.UpdateContext(func(c **lifecycle) {
		*c = lc
	})
	interp.Start()
	r := &run{interp: interp, ctx: lc, task: task}
	r.sync()
	return r
}

func (r *run) send(ev string) {
	r.interp.Send(statekit.Event{Type: statekit.EventType(ev)})
	r.sync()
}

func (r *run) sync() {
	r.task.setState(State(r.interp.State().Value))
}

func (r *run) state() State {
	return State(r.interp.State().Value)
}

// transitions lists the events that caused a transition so far.
func (r *run) transitions() []string {
	out := make([]string, len(r.ctx.events))
	for i, ev := range r.ctx.events {
		out[i] = string(ev)
	}
	return out
}

func (r *run) stop() {
	r.interp.Stop()
}
