package kafka

import (
	"context"

	"github.com/soladkov/beatkeeper/internal/domain/event"
)

type FlipEventsKafka struct {
	p *Producer
}

func NewFlipEventsKafka(p *Producer) *FlipEventsKafka { return &FlipEventsKafka{p: p} }

var _ event.FlipPublisher = (*FlipEventsKafka)(nil)

func (e *FlipEventsKafka) PublishFlip(ctx context.Context, f event.Flip) error {
	return e.p.PublishJSON(ctx, KeyFromInt64(f.CheckID), f)
}
