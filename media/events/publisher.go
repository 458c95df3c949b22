package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/leeforge/imageproc/logging"
	"github.com/leeforge/imageproc/media/pipeline"
)

// Publisher is a pipeline.Observer that republishes callbacks on a Bus.
type Publisher struct {
	bus     *Bus
	timeout time.Duration
	logger  logging.Logger
}

// NewPublisher returns an observer publishing on bus. A publish that cannot be buffered
// within timeout is dropped with a warning.
func NewPublisher(bus *Bus, timeout time.Duration, logger logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.Named("events")
	}
	return &Publisher{bus: bus, timeout: timeout, logger: logger}
}

func (p *Publisher) OnStart(e pipeline.StartEvent) {
	p.publish(Event{Name: TopicStarted, RequestID: e.RequestID, Source: e.Source, Target: e.Target})
}

func (p *Publisher) OnProcessed(e pipeline.ProcessedEvent) {
	p.publish(Event{Name: TopicProcessed, RequestID: e.RequestID, Source: e.Source, Target: e.Target, Data: e.Result})
}

func (p *Publisher) OnError(e pipeline.ErrorEvent) {
	p.publish(Event{Name: TopicFailed, RequestID: e.RequestID, Source: e.Source, Target: e.Target, Data: e.Err})
}

func (p *Publisher) publish(e Event) {
	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.bus.Publish(ctx, e); err != nil {
		p.logger.Warn("dropping lifecycle event",
			zap.String("event", e.Name),
			zap.String("request_id", e.RequestID),
			zap.Error(err))
	}
}

var _ pipeline.Observer = (*Publisher)(nil)
