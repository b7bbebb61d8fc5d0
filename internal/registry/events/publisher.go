package events

import (
	"context"
	"log/slog"
)

// Sink persists or forwards a single event. Implementations may block; the
// Publisher keeps them off the request path.
type Sink interface {
	Write(ctx context.Context, event Event) error
	Close() error
}

// Publisher decouples event emission from delivery with a buffered inbox and
// a background worker. Emit never blocks: when the buffer is full the event
// is dropped and counted, matching the no-acknowledgment contract.
type Publisher struct {
	inbox  chan Event
	sink   Sink
	logger *slog.Logger
	onDrop func()
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithDropCounter registers a callback invoked when an event is dropped.
func WithDropCounter(fn func()) Option {
	return func(p *Publisher) { p.onDrop = fn }
}

// WithBuffer sets the inbox capacity.
func WithBuffer(n int) Option {
	return func(p *Publisher) { p.inbox = make(chan Event, n) }
}

const defaultBuffer = 256

// NewPublisher builds a publisher draining into sink. Run must be started
// for events to flow.
func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		inbox: make(chan Event, defaultBuffer),
		sink:  sink,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit enqueues an event without blocking.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	select {
	case p.inbox <- event:
	default:
		if p.onDrop != nil {
			p.onDrop()
		}
		if p.logger != nil {
			p.logger.WarnContext(ctx, "event dropped, inbox full",
				"action", event.Action,
				"name", event.Name,
				"tld", event.TLD,
			)
		}
	}
}

// Run drains the inbox until ctx is cancelled, then closes the sink.
// Delivery failures are logged, never retried here.
func (p *Publisher) Run(ctx context.Context) error {
	defer p.sink.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-p.inbox:
			if err := p.sink.Write(ctx, event); err != nil && p.logger != nil {
				p.logger.ErrorContext(ctx, "event delivery failed",
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}
