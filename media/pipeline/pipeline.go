// Package pipeline orchestrates one render request: load the source, draw it through
// the geometry and filter chain, composite an optional watermark, encode the surface
// and report the outcome to observers.
package pipeline

import (
	"context"
	"time"

	"github.com/felixgeelhaar/statekit"
	"go.uber.org/zap"

	"github.com/leeforge/imageproc/errors"
	"github.com/leeforge/imageproc/logging"
	"github.com/leeforge/imageproc/media/canvas"
	"github.com/leeforge/imageproc/media/encoder"
	"github.com/leeforge/imageproc/media/geometry"
	"github.com/leeforge/imageproc/media/options"
	"github.com/leeforge/imageproc/media/raster"
	"github.com/leeforge/imageproc/media/watermark"
	"github.com/leeforge/imageproc/utils"
)

// Request is one unit of work.
type Request struct {
	Source raster.Source
	// Target identifies the destination surface of the collaborator. It is required.
	Target  string
	Overlay options.Overlay
	// Observer receives the callbacks of this request only. It may be nil.
	Observer Observer
}

// Result is the outcome of a completed request.
type Result struct {
	RequestID string            `json:"requestId"`
	Source    string            `json:"source"`
	Target    string            `json:"target"`
	Asset     encoder.Asset     `json:"asset"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	AltText   string            `json:"altText"`
	Style     map[string]string `json:"style,omitempty"`
}

// Pipeline runs requests against an immutable default configuration. It is safe for
// concurrent use.
type Pipeline struct {
	defaults options.Config
	loader   raster.Loader
	logger   logging.Logger
	observer Observer
	fallback bool
	machine  *statekit.MachineConfig[*lifecycle]
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLoader replaces the default raster loader.
func WithLoader(l raster.Loader) Option {
	return func(p *Pipeline) { p.loader = l }
}

func WithLogger(l logging.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithObserver adds an observer notified for every request, before the request's own.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithWatermarkFallback makes a failed watermark load produce unwatermarked output
// instead of failing the request.
func WithWatermarkFallback() Option {
	return func(p *Pipeline) { p.fallback = true }
}

// New creates a pipeline. defaults is copied and never modified afterwards.
func New(defaults options.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		defaults: defaults.Clone(),
		logger:   logging.Named("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.loader == nil {
		p.loader = raster.NewLoader(raster.WithLogger(p.logger))
	}
	p.machine = utils.Panic(newMachine())
	return p
}

// Defaults returns a copy of the default configuration.
func (p *Pipeline) Defaults() options.Config {
	return p.defaults.Clone()
}

// Process runs req to completion on the calling goroutine.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Result, error) {
	task := newTask()
	res, err := p.run(ctx, req, task)
	task.finish(res, err)
	return res, err
}

func (p *Pipeline) run(ctx context.Context, req Request, task *Task) (*Result, error) {
	began := time.Now()
	source := req.Source.String()

	ctx = logging.SetRequestID(ctx, task.ID)
	ctx = logging.SetSource(ctx, source)
	ctx = logging.SetTarget(ctx, req.Target)
	log := logging.WithContext(p.logger, ctx)
	obs := Observers(p.observer, req.Observer)

	r := p.start(task, log)
	defer r.stop()

	fail := func(err error) (*Result, error) {
		pe := errors.FromError(err)
		if pe.Source == "" {
			pe.Source = source
		}
		state := r.state()
		r.send(evFail)
		log.Error("processing failed",
			zap.String("error_type", string(pe.Type)),
			zap.String("state", string(state)),
			zap.Error(pe),
		)
		obs.OnError(ErrorEvent{
			RequestID: task.ID,
			Source:    source,
			Target:    req.Target,
			Err:       pe,
			State:     state,
			Duration:  time.Since(began),
		})
		return nil, pe
	}

	r.send(evLoad)
	obs.OnStart(StartEvent{RequestID: task.ID, Source: source, Target: req.Target})

	if req.Target == "" {
		return fail(errors.NewMissingTarget(source))
	}
	cfg := options.Merge(p.defaults, req.Overlay)
	if err := cfg.Validate(); err != nil {
		return fail(err)
	}

	src := req.Source
	if src.Hints == (raster.Hints{}) {
		src.Hints = cfg.Hints
	}
	h, err := p.loader.Load(ctx, src).Wait(ctx)
	if err != nil {
		return fail(errors.Wrap(err, errors.ErrorTypeLoadFailure, source, "failed to load image"))
	}

	r.send(evDraw)
	plan := geometry.Resolve(h.Width, h.Height, cfg)
	surface := canvas.NewSurface(plan.Width, plan.Height)
	plan.Draw(surface, h.Image, cfg.FilterChain())
	h = nil

	if wm := cfg.Watermark; wm != nil {
		if err := p.composite(ctx, r, surface, wm, log); err != nil {
			return fail(err)
		}
	}

	if r.state() != StateEncoding {
		r.send(evEncode)
	}
	asset, err := encoder.Encode(surface.Image(), cfg.Format, cfg.Quality)
	if err != nil {
		return fail(err)
	}
	r.send(evComplete)

	res := &Result{
		RequestID: task.ID,
		Source:    source,
		Target:    req.Target,
		Asset:     asset,
		Width:     plan.Width,
		Height:    plan.Height,
		AltText:   cfg.AltText,
		Style:     cfg.Style,
	}
	elapsed := time.Since(began)
	log.Info("processed",
		zap.String("format", asset.Format),
		zap.Int("bytes", asset.Size()),
		zap.Int("width", res.Width),
		zap.Int("height", res.Height),
		zap.Duration("duration", elapsed),
		zap.Strings("transitions", r.transitions()),
	)
	obs.OnProcessed(ProcessedEvent{
		RequestID: task.ID,
		Source:    source,
		Target:    req.Target,
		Result:    res,
		Duration:  elapsed,
	})
	return res, nil
}

// composite draws the watermark. A failed image load is returned as an error unless
// the pipeline falls back, in which case the run moves straight to encoding.
func (p *Pipeline) composite(ctx context.Context, r *run, surface *canvas.Surface, wm *watermark.Spec, log logging.Logger) error {
	if wm.Kind != watermark.KindImage {
		r.send(evComposite)
		watermark.DrawText(surface, wm)
		return nil
	}

	r.send(evLoadWatermark)
	h, err := p.loader.Load(ctx, wm.Image).Wait(ctx)
	if err != nil {
		err = errors.Wrap(err, errors.ErrorTypeLoadFailure, wm.Image.String(), "failed to load watermark")
		if !p.fallback {
			return err
		}
		log.Warn("watermark unavailable, encoding without it",
			zap.String("watermark", wm.Image.String()),
			zap.Error(err),
		)
		r.send(evEncode)
		return nil
	}

	r.send(evComposite)
	watermark.DrawImage(surface, h.Image, wm)
	return nil
}
