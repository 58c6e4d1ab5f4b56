package sink

import (
	"context"
	"log/slog"
	"sync"

	"pairchat/contract"
	"pairchat/domain/chat"
	"pairchat/domain/event"
	"pairchat/errors"
)

// ConnectionSink is the bounded outbound queue of one connection.
// Producers never block on it: a full queue drops the event for this
// connection only. A single writer drains it with Drain.
type ConnectionSink struct {
	handle chat.Handle
	events chan event.Outbound
	done   chan struct{}
	once   sync.Once
	log    *slog.Logger
}

var _ contract.EventSink = (*ConnectionSink)(nil)

func NewConnectionSink(handle chat.Handle, bufferSize int, log *slog.Logger) *ConnectionSink {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &ConnectionSink{
		handle: handle,
		events: make(chan event.Outbound, bufferSize),
		done:   make(chan struct{}),
		log:    log,
	}
}

func (s *ConnectionSink) Consume(ctx context.Context, e event.Outbound) error {
	select {
	case <-s.done:
		return errors.ErrSinkClosed
	default:
	}

	select {
	case s.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.log.Warn("Outbound queue full, dropping event", "handle", s.handle, "type", e.Type())
		return errors.ErrSinkFull
	}
}

// Drain passes queued events to write, in order, until the sink is closed,
// ctx is done or write fails. Events still queued at close are discarded.
func (s *ConnectionSink) Drain(ctx context.Context, write func(event.Outbound) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case e := <-s.events:
			if err := write(e); err != nil {
				return err
			}
		}
	}
}

// Close is idempotent. Later Consume calls return ErrSinkClosed.
func (s *ConnectionSink) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *ConnectionSink) Handle() chat.Handle {
	return s.handle
}

// Len is the number of queued events.
func (s *ConnectionSink) Len() int {
	return len(s.events)
}
