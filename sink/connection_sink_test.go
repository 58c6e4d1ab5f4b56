package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"pairchat/domain/chat"
	"pairchat/domain/event"
	"pairchat/errors"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func typing(name string) event.Outbound {
	return event.TypingUpdate{Handle: "h-" + chat.Handle(name), Name: name, IsTyping: true}
}

func TestConnectionSink_DropsWhenFull(t *testing.T) {
	req := require.New(t)
	s := NewConnectionSink("h1", 2, logs.GetLoggerFromLevel(slog.LevelDebug))
	ctx := context.Background()

	req.NoError(s.Consume(ctx, typing("a")))
	req.NoError(s.Consume(ctx, typing("b")))

	// Then the third event is dropped without blocking
	req.ErrorIs(s.Consume(ctx, typing("c")), errors.ErrSinkFull)
	req.Equal(2, s.Len())
}

func TestConnectionSink_DrainPreservesOrder(t *testing.T) {
	req := require.New(t)
	s := NewConnectionSink("h1", 10, logs.GetLoggerFromLevel(slog.LevelDebug))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		req.NoError(s.Consume(ctx, typing(fmt.Sprint(i))))
	}

	var got []string
	err := s.Drain(ctx, func(e event.Outbound) error {
		got = append(got, e.(event.TypingUpdate).Name)
		if len(got) == 5 {
			s.Close()
		}
		return nil
	})
	req.NoError(err)
	req.Equal([]string{"0", "1", "2", "3", "4"}, got)
}

func TestConnectionSink_DrainStopsOnWriteError(t *testing.T) {
	req := require.New(t)
	s := NewConnectionSink("h1", 10, logs.GetLoggerFromLevel(slog.LevelDebug))
	boom := fmt.Errorf("broken pipe")

	req.NoError(s.Consume(context.Background(), typing("a")))
	err := s.Drain(context.Background(), func(event.Outbound) error { return boom })
	req.ErrorIs(err, boom)
}

func TestConnectionSink_ClosedRejectsEvents(t *testing.T) {
	req := require.New(t)
	s := NewConnectionSink("h1", 10, logs.GetLoggerFromLevel(slog.LevelDebug))

	s.Close()
	s.Close()

	req.ErrorIs(s.Consume(context.Background(), typing("a")), errors.ErrSinkClosed)
	req.NoError(s.Drain(context.Background(), func(event.Outbound) error { return nil }))
}

func TestConnectionSink_ConcurrentProducers(t *testing.T) {
	req := require.New(t)
	s := NewConnectionSink("h1", 1000, logs.GetLoggerFromLevel(slog.LevelDebug))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Consume(context.Background(), typing("x"))
			}
		}()
	}
	wg.Wait()

	req.Equal(1000, s.Len())
}
