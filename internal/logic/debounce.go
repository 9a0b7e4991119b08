package logic

// Level is a debounced two-state input level.
type Level string

const (
	LevelHigh Level = "HIGH"
	LevelLow  Level = "LOW"
)

// Debouncer tracks one digital input (the panel dismiss button) and
// reports stable transitions. Nothing is reported until a baseline level
// has been held for the debounce period.
type Debouncer struct {
	debounceMs   uint32
	stable       Level
	pending      Level
	pendingSince Ticks
	baselined    bool
}

// NewDebouncer creates a debouncer with the given hold period.
func NewDebouncer(debounceMs uint32) *Debouncer {
	return &Debouncer{debounceMs: debounceMs}
}

// Process takes a sample and returns the new stable level when a debounced
// transition completes on this call.
func (d *Debouncer) Process(high bool, now Ticks) (Level, bool) {
	level := LevelLow
	if high {
		level = LevelHigh
	}

	if !d.baselined {
		if d.pending != level {
			// first sample, or the level changed while establishing baseline
			d.pending = level
			d.pendingSince = now
			return "", false
		}
		if now.Since(d.pendingSince) >= d.debounceMs {
			d.stable = level
			d.baselined = true
			d.pending = ""
		}
		return "", false
	}

	if level == d.stable {
		d.pending = ""
		return "", false
	}
	if d.pending != level {
		d.pending = level
		d.pendingSince = now
		return "", false
	}
	if now.Since(d.pendingSince) < d.debounceMs {
		return "", false
	}
	d.stable = level
	d.pending = ""
	return level, true
}

// IsBaselined reports whether a baseline level has been established.
func (d *Debouncer) IsBaselined() bool {
	return d.baselined
}

// Stable returns the current debounced level.
func (d *Debouncer) Stable() Level {
	return d.stable
}
