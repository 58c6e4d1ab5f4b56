package workers

import (
	"context"
	"log/slog"
	"time"

	"pairchat/observability"
)

type StatsSource interface {
	Stats() observability.Stats
}

// ReporterWorker logs a stats line at a fixed interval, and a last one
// when it stops.
type ReporterWorker struct {
	log      *slog.Logger
	source   StatsSource
	interval time.Duration
}

func NewReporterWorker(log *slog.Logger, source StatsSource, interval time.Duration) *ReporterWorker {
	return &ReporterWorker{log: log, source: source, interval: interval}
}

func (w *ReporterWorker) Run(ctx context.Context) error {
	if w.interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.report()
			return nil
		case <-ticker.C:
			w.report()
		}
	}
}

func (w *ReporterWorker) report() {
	stats := w.source.Stats()
	w.log.Info("Stats",
		"uptime", stats.Uptime,
		"connections", stats.OpenConnections,
		"online", stats.OnlineUsers,
		"messages", stats.MessagesRouted,
		"dropped", stats.EventsDropped,
		"failures", stats.Failures,
		"rss_bytes", stats.RssBytes,
		"goroutines", stats.Goroutines,
	)
}
