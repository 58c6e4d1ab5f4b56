package runtime

import (
	"context"
	"log/slog"

	"pairchat/contract"
	"pairchat/domain/event"
	"pairchat/observability"
)

// outbox delivers events to sinks without ever blocking the caller.
// Dropped events are counted and logged, never returned to the producer.
type outbox struct {
	log     *slog.Logger
	monitor *observability.Monitor
}

func newOutbox(log *slog.Logger, monitor *observability.Monitor) *outbox {
	return &outbox{log: log, monitor: monitor}
}

func (o *outbox) send(ctx context.Context, sink contract.EventSink, e event.Outbound) {
	if err := sink.Consume(ctx, e); err != nil {
		o.monitor.EventDropped()
		o.log.Debug("Event not delivered", "type", e.Type(), "error", err)
	}
}

func (o *outbox) sessionReplaced(ctx context.Context, sink contract.EventSink) {
	o.monitor.SessionReplaced()
	o.send(ctx, sink, event.SessionReplaced())
}

func (o *outbox) broadcast(ctx context.Context, sinks []contract.EventSink, e event.Outbound) {
	for _, sink := range sinks {
		o.send(ctx, sink, e)
	}
}
