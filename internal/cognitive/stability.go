// Package cognitive implements the stability monitor and reward engine: the two hooks the
// scheduler consults once per agent per tick to judge how settled an agent's beliefs are and to
// modulate its health accordingly.
package cognitive

import (
	"github.com/helix9vm/helix9/internal/log"
	"github.com/helix9vm/helix9/internal/memory"
	"github.com/helix9vm/helix9/internal/scheduler"
)

// DefaultWindow is the sliding window size (in ticks) over which flux is averaged, per spec.
const DefaultWindow = 10

// snapshot is one agent's previous belief-page contents, kept to diff against the next capture.
type snapshot struct {
	pages  map[uint32][memory.PageSize]int64
	window []float64
}

// StabilityMonitor tracks, per agent, a previous belief-page snapshot and a sliding window of
// normalized flux values. It reads pages directly through Memory.Page, bypassing access control,
// since it always runs under the scheduler's system-context authority between agent quanta.
type StabilityMonitor struct {
	mem *memory.Memory

	window    int
	threshold float64

	snapshots map[uint32]*snapshot

	log *log.Logger
}

// Option configures a StabilityMonitor at construction.
type Option func(*StabilityMonitor)

// WithLogger overrides the monitor's logger.
func WithLogger(l *log.Logger) Option {
	return func(m *StabilityMonitor) { m.log = l }
}

// WithWindow overrides the sliding window size.
func WithWindow(n int) Option {
	return func(m *StabilityMonitor) { m.window = n }
}

// WithThreshold overrides the mean-flux convergence threshold.
func WithThreshold(t float64) Option {
	return func(m *StabilityMonitor) { m.threshold = t }
}

// NewStabilityMonitor creates a StabilityMonitor reading belief pages from mem.
func NewStabilityMonitor(mem *memory.Memory, opts ...Option) *StabilityMonitor {
	m := &StabilityMonitor{
		mem:       mem,
		window:    DefaultWindow,
		threshold: 0.02,
		snapshots: make(map[uint32]*snapshot),
		log:       log.DefaultLogger(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Observe captures the current contents of agentID's belief pages, computes flux against the
// previous capture (an all-zero page before the first capture), pushes the normalized value into the agent's sliding window, and returns the
// window's mean. It satisfies scheduler.Monitor.
func (m *StabilityMonitor) Observe(agentID uint32, belief scheduler.PageRange) float64 {
	snap, ok := m.snapshots[agentID]
	if !ok {
		snap = &snapshot{pages: make(map[uint32][memory.PageSize]int64)}
		m.snapshots[agentID] = snap
	}

	var totalFlux float64

	for id := belief.Base; id < belief.Base+belief.Count; id++ {
		page := m.mem.Page(id)

		var current [memory.PageSize]int64
		if page != nil {
			words := page.View()
			for i, w := range words {
				current[i] = w.ToInt()
			}
		}

		prev := snap.pages[id]

		var raw float64
		for i := range current {
			d := current[i] - prev[i]
			if d < 0 {
				d = -d
			}

			raw += float64(d)
		}

		snap.pages[id] = current
		totalFlux += raw
	}

	normalized := totalFlux / float64(2*memory.PageSize*maxInt(int(belief.Count), 1))

	snap.window = append(snap.window, normalized)
	if len(snap.window) > m.window {
		snap.window = snap.window[len(snap.window)-m.window:]
	}

	mean := meanOf(snap.window)

	m.log.Debug("belief flux observed", "agent", agentID, "flux", normalized, "mean", mean)

	return mean
}

// Analyze returns the mean flux over agentID's window and whether it is below the convergence
// threshold. It does not itself capture a new observation.
func (m *StabilityMonitor) Analyze(agentID uint32) (mean float64, converged bool) {
	snap, ok := m.snapshots[agentID]
	if !ok {
		return 0, false
	}

	mean = meanOf(snap.window)

	return mean, mean < m.threshold
}

// Converged reports whether agentID's mean flux is currently below the convergence threshold. It
// satisfies scheduler.Monitor.
func (m *StabilityMonitor) Converged(agentID uint32) bool {
	_, converged := m.Analyze(agentID)

	return converged
}

func meanOf(window []float64) float64 {
	if len(window) == 0 {
		return 0
	}

	var sum float64
	for _, v := range window {
		sum += v
	}

	return sum / float64(len(window))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
