package logic

// Gate admits at most one run per period. A zero period admits every call.
type Gate struct {
	Period  uint32
	lastRun Ticks
	started bool
}

// NewGate returns a gate whose first period is measured from start.
func NewGate(period uint32, start Ticks) Gate {
	return Gate{Period: period, lastRun: start, started: true}
}

// Ready reports whether a period has elapsed since the last admitted run
// and, if so, records now as the new last run.
func (g *Gate) Ready(now Ticks) bool {
	if !g.started {
		g.started = true
		g.lastRun = now
		return true
	}
	if now.Since(g.lastRun) < g.Period {
		return false
	}
	g.lastRun = now
	return true
}

// Reset makes the next period start at now.
func (g *Gate) Reset(now Ticks) {
	g.lastRun = now
	g.started = true
}
