package workers

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pairchat/observability"

	"github.com/stretchr/testify/require"
)

type countingSource struct {
	calls atomic.Int32
}

func (s *countingSource) Stats() observability.Stats {
	s.calls.Add(1)
	return observability.Stats{OnlineUsers: 2, MessagesRouted: 7}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestReporterWorker_Reports_Periodically(t *testing.T) {
	req := require.New(t)
	out := &syncBuffer{}
	source := &countingSource{}
	worker := NewReporterWorker(slog.New(slog.NewTextHandler(out, nil)), source, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req.NoError(worker.Run(ctx))

	req.GreaterOrEqual(source.calls.Load(), int32(2))
	req.Contains(out.String(), "messages=7")
	req.Contains(out.String(), "online=2")
}

func TestReporterWorker_Disabled(t *testing.T) {
	req := require.New(t)
	source := &countingSource{}
	worker := NewReporterWorker(testLogger(), source, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	req.NoError(worker.Run(ctx))
	req.Zero(source.calls.Load())
}
