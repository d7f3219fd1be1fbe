package health

import (
	"context"
	"sync"
	"time"

	"github.com/nminhdao/registrar/internal/registration/retry"
)

// Checker reports whether one dependency is reachable.
type Checker interface {
	Health(ctx context.Context) error
}

// StatsSource exposes registration run statistics for the detailed report.
type StatsSource interface {
	RetryStats() retry.Stats
}

// component pairs a dependency name with how to probe it. Critical components
// take the whole system to critical when down; others only degrade it.
type component struct {
	name     string
	checker  Checker
	critical bool
}

// Monitor aggregates health status from the service's dependencies.
type Monitor struct {
	components []component
	stats      StatsSource

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport *Report
}

// NewMonitor creates a new health monitor.
func NewMonitor(stats StatsSource) *Monitor {
	return &Monitor{stats: stats}
}

// Register adds a dependency to probe. A nil checker is ignored, which lets
// callers wire optional dependencies unconditionally.
func (m *Monitor) Register(name string, checker Checker, critical bool) {
	if checker == nil {
		return
	}
	m.components = append(m.components, component{name: name, checker: checker, critical: critical})
}

// CheckHealth probes all registered dependencies and builds a report.
func (m *Monitor) CheckHealth(ctx context.Context) *Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit probes to avoid hammering dependencies on every scrape.
	if time.Since(m.lastCheck) < 10*time.Second && m.lastReport != nil {
		return m.lastReport
	}

	report := &Report{
		SystemStatus: StatusHealthy,
		Components:   make(map[string]ComponentHealth),
	}
	if m.stats != nil {
		report.Registration = m.stats.RetryStats()
	}

	for _, c := range m.components {
		health := ComponentHealth{Name: c.name, Status: StatusHealthy}

		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := c.checker.Health(probeCtx)
		cancel()

		if err != nil {
			health.Error = err.Error()
			if c.critical {
				health.Status = StatusCritical
				report.SystemStatus = StatusCritical
			} else {
				health.Status = StatusDegraded
				if report.SystemStatus == StatusHealthy {
					report.SystemStatus = StatusDegraded
				}
			}
		}

		report.Components[c.name] = health
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
