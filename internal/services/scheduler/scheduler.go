// Package scheduler decides how often a grabbed frame is sent through detection.
package scheduler

import "sync"

// DefaultMinIntervalMs is the minimum time between two processed frames.
const DefaultMinIntervalMs = 3000

// State is the scheduler's only mutable state.
type State struct {
	LastUpdateMs int64
}

// Phase of the gate.
type Phase int

const (
	// Idle means the interval has not elapsed yet.
	Idle Phase = iota
	// Ready means the next frame should be processed.
	Ready
)

func (p Phase) String() string {
	if p == Ready {
		return "ready"
	}
	return "idle"
}

// ShouldProcess reports whether at least minIntervalMs passed since the last processed frame.
func ShouldProcess(nowMs int64, state *State, minIntervalMs int64) bool {
	return nowMs-state.LastUpdateMs >= minIntervalMs
}

// MarkProcessed closes the gate until the interval elapses again.
// Callers must invoke it when they start processing a frame; otherwise the gate stays open.
func MarkProcessed(nowMs int64, state *State) {
	state.LastUpdateMs = nowMs
}

// Gate bundles the state with its interval. It is safe for concurrent use so
// that status handlers can read the phase while the frame loop drives it.
type Gate struct {
	mu            sync.Mutex
	state         State
	minIntervalMs int64
}

// NewGate creates a gate whose interval starts counting at startMs.
func NewGate(minIntervalMs, startMs int64) *Gate {
	if minIntervalMs < 0 {
		minIntervalMs = 0
	}
	return &Gate{
		state:         State{LastUpdateMs: startMs},
		minIntervalMs: minIntervalMs,
	}
}

func (g *Gate) ShouldProcess(nowMs int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ShouldProcess(nowMs, &g.state, g.minIntervalMs)
}

func (g *Gate) MarkProcessed(nowMs int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	MarkProcessed(nowMs, &g.state)
}

// Phase returns Ready when ShouldProcess would return true.
func (g *Gate) Phase(nowMs int64) Phase {
	if g.ShouldProcess(nowMs) {
		return Ready
	}
	return Idle
}

// LastUpdateMs returns the time the last frame started processing.
func (g *Gate) LastUpdateMs() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.LastUpdateMs
}

func (g *Gate) MinIntervalMs() int64 {
	return g.minIntervalMs
}
