package util

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// PerfMetric accumulates timings for one named operation
type PerfMetric struct {
	Name      string        `json:"name"`
	Count     int64         `json:"count"`
	Failures  int64         `json:"failures"`
	TotalTime time.Duration `json:"total_ns"`
	Last      time.Duration `json:"last_ns"`
	Slowest   time.Duration `json:"slowest_ns"`
}

// Average returns the mean duration of the operation
func (m PerfMetric) Average() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return m.TotalTime / time.Duration(m.Count)
}

// PerfTracker tracks per-operation timings. Safe for concurrent use.
type PerfTracker struct {
	mu      sync.RWMutex
	metrics map[string]*PerfMetric
	started time.Time
}

// NewPerfTracker creates an empty tracker
func NewPerfTracker() *PerfTracker {
	return &PerfTracker{
		metrics: make(map[string]*PerfMetric),
		started: time.Now(),
	}
}

// Timer represents an active timing operation
type Timer struct {
	name    string
	start   time.Time
	tracker *PerfTracker
}

// StartTimer starts a timer for the named operation
func (pt *PerfTracker) StartTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now(), tracker: pt}
}

// Stop records the elapsed time; failed marks the call as unsuccessful
func (t *Timer) Stop(failed bool) time.Duration {
	if t == nil || t.tracker == nil {
		return 0
	}
	d := time.Since(t.start)
	t.tracker.Record(t.name, d, failed)
	Debugf("[PERF] %s took %v", t.name, d)
	return d
}

// Record records a metric with the given name and duration
func (pt *PerfTracker) Record(name string, duration time.Duration, failed bool) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	metric, exists := pt.metrics[name]
	if !exists {
		metric = &PerfMetric{Name: name}
		pt.metrics[name] = metric
	}

	metric.Count++
	metric.TotalTime += duration
	metric.Last = duration
	if duration > metric.Slowest {
		metric.Slowest = duration
	}
	if failed {
		metric.Failures++
	}
}

// Snapshot returns a copy of every metric, slowest total first
func (pt *PerfTracker) Snapshot() []PerfMetric {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	out := make([]PerfMetric, 0, len(pt.metrics))
	for _, m := range pt.metrics {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalTime == out[j].TotalTime {
			return out[i].Name < out[j].Name
		}
		return out[i].TotalTime > out[j].TotalTime
	})
	return out
}

// Uptime returns the time since tracking started
func (pt *PerfTracker) Uptime() time.Duration {
	return time.Since(pt.started)
}

var (
	perfTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	perfMetricStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1D3"))

	perfSlowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	perfFastStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7BED9F"))

	perfSeparatorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#636E72"))
)

// Report renders the metrics as a terminal table
func (pt *PerfTracker) Report() string {
	var report strings.Builder

	report.WriteString(perfTitleStyle.Render("Performance report"))
	report.WriteString("\n")
	report.WriteString(perfSeparatorStyle.Render(strings.Repeat("─", 72)))
	report.WriteString("\n")
	report.WriteString(fmt.Sprintf("%-36s %8s %8s %8s %10s\n", "Operation", "Count", "Failed", "Avg", "Slowest"))

	for _, m := range pt.Snapshot() {
		avg := m.Average().Round(time.Millisecond).String()
		switch {
		case m.Average() > 5*time.Second:
			avg = perfSlowStyle.Render(avg)
		case m.Average() < 500*time.Millisecond:
			avg = perfFastStyle.Render(avg)
		}

		name := m.Name
		if len(name) > 34 {
			name = name[:31] + "..."
		}
		report.WriteString(fmt.Sprintf("%-36s %8d %8d %8s %10s\n",
			perfMetricStyle.Render(name), m.Count, m.Failures, avg, m.Slowest.Round(time.Millisecond)))
	}

	report.WriteString(perfSeparatorStyle.Render(strings.Repeat("─", 72)))
	report.WriteString("\n")
	report.WriteString(fmt.Sprintf("Uptime: %s\n", pt.Uptime().Round(time.Second)))
	return report.String()
}
