package observability

import (
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Stats is the payload of GET /stats and of the periodic stats log line.
type Stats struct {
	// --- CHAT METRICS ---
	OpenConnections  int64  `json:"open_connections"`
	OnlineUsers      int    `json:"online_users"`
	LoginsSucceeded  uint64 `json:"logins_succeeded"`
	LoginsFailed     uint64 `json:"logins_failed"`
	MessagesRouted   uint64 `json:"messages_routed"`
	TypingUpdates    uint64 `json:"typing_updates"`
	SessionsReplaced uint64 `json:"sessions_replaced"`
	EventsDropped    uint64 `json:"events_dropped"`
	Failures         uint64 `json:"failures"`

	// --- PROCESS METRICS ---
	Pid        int32   `json:"pid"`
	CpuPercent float64 `json:"cpu_percent"`
	RssBytes   uint64  `json:"rss_bytes"`
	Goroutines int     `json:"goroutines"`
	AllocMemMb uint64  `json:"alloc_mem_mb"`
	NumGC      uint32  `json:"num_gc"`
	Uptime     string  `json:"uptime"`
}

// Monitor counts what happens in the engine. A nil *Monitor is valid
// and counts nothing.
type Monitor struct {
	log       *slog.Logger
	startedAt time.Time
	self      *process.Process

	openConnections  atomic.Int64
	loginsSucceeded  atomic.Uint64
	loginsFailed     atomic.Uint64
	messagesRouted   atomic.Uint64
	typingUpdates    atomic.Uint64
	sessionsReplaced atomic.Uint64
	eventsDropped    atomic.Uint64
	failures         atomic.Uint64
}

func NewMonitor(log *slog.Logger) *Monitor {
	m := &Monitor{log: log, startedAt: time.Now()}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Process stats unavailable", "error", err)
	} else {
		m.self = p
	}
	return m
}

func (m *Monitor) ConnectionOpened() {
	if m != nil {
		m.openConnections.Add(1)
	}
}

func (m *Monitor) ConnectionClosed() {
	if m != nil {
		m.openConnections.Add(-1)
	}
}

func (m *Monitor) LoginSucceeded() {
	if m != nil {
		m.loginsSucceeded.Add(1)
	}
}

func (m *Monitor) LoginFailed() {
	if m != nil {
		m.loginsFailed.Add(1)
	}
}

func (m *Monitor) MessageRouted() {
	if m != nil {
		m.messagesRouted.Add(1)
	}
}

func (m *Monitor) TypingUpdated() {
	if m != nil {
		m.typingUpdates.Add(1)
	}
}

func (m *Monitor) SessionReplaced() {
	if m != nil {
		m.sessionsReplaced.Add(1)
	}
}

func (m *Monitor) EventDropped() {
	if m != nil {
		m.eventsDropped.Add(1)
	}
}

func (m *Monitor) Failure() {
	if m != nil {
		m.failures.Add(1)
	}
}

// Snapshot reads the counters and samples the process.
// onlineUsers comes from the presence registry, the monitor does not track it.
func (m *Monitor) Snapshot(onlineUsers int) Stats {
	if m == nil {
		return Stats{OnlineUsers: onlineUsers}
	}
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := Stats{
		OpenConnections:  m.openConnections.Load(),
		OnlineUsers:      onlineUsers,
		LoginsSucceeded:  m.loginsSucceeded.Load(),
		LoginsFailed:     m.loginsFailed.Load(),
		MessagesRouted:   m.messagesRouted.Load(),
		TypingUpdates:    m.typingUpdates.Load(),
		SessionsReplaced: m.sessionsReplaced.Load(),
		EventsDropped:    m.eventsDropped.Load(),
		Failures:         m.failures.Load(),
		Pid:              int32(os.Getpid()),
		Goroutines:       runtime.NumGoroutine(),
		AllocMemMb:       mem.Alloc / 1024 / 1024,
		NumGC:            mem.NumGC,
		Uptime:           time.Since(m.startedAt).Truncate(time.Second).String(),
	}

	if m.self != nil {
		if memInfo, err := m.self.MemoryInfo(); err == nil {
			stats.RssBytes = memInfo.RSS
		} else {
			m.log.Debug("Failed to read process memory", "error", err)
		}
		if cpu, err := m.self.CPUPercent(); err == nil {
			stats.CpuPercent = cpu
		} else {
			m.log.Debug("Failed to read process cpu", "error", err)
		}
	}
	return stats
}
