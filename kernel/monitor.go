package kernel

// Status is the escalation level reported by the monitor.
type Status uint8

const (
	StatusNominal Status = iota
	StatusWarning
	StatusDegraded
)

func (s Status) String() string {
	switch s {
	case StatusNominal:
		return "nominal"
	case StatusWarning:
		return "warning"
	case StatusDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// MonitorConfig sets the escalation thresholds. Zero fields take defaults.
type MonitorConfig struct {
	// LoadThreshold is the SystemLoad above which a check counts as overloaded.
	LoadThreshold float64
	// MissLimit is the number of consecutive checks with a deadline miss that
	// escalates to StatusDegraded.
	MissLimit int
	// OverloadLimit is the number of consecutive overloaded checks that
	// escalates to StatusDegraded.
	OverloadLimit int
}

const (
	defaultLoadThreshold = 1.0
	defaultMissLimit     = 3
	defaultOverloadLimit = 3

	missHistoryLen = 10
)

// Report is the result of one Monitor.Check.
type Report struct {
	Tick           Tick
	Load           float64
	Misses         uint64 // bit i set when task i missed
	MissStreak     int
	OverloadStreak int
	Status         Status
}

// Missed reports whether id was in the miss set.
func (r Report) Missed(id TaskID) bool {
	return r.Misses&(1<<uint(id)) != 0
}

// Monitor turns the scheduler's deadline and load bookkeeping into an
// escalation signal. It keeps only system-wide streaks, never per-task state.
type Monitor struct {
	s   *Scheduler
	cfg MonitorConfig

	missStreak     int
	overloadStreak int

	history [missHistoryLen]bool
	checks  int
}

// NewMonitor returns a monitor reading from s.
func NewMonitor(s *Scheduler, cfg MonitorConfig) *Monitor {
	if cfg.LoadThreshold <= 0 {
		cfg.LoadThreshold = defaultLoadThreshold
	}
	if cfg.MissLimit <= 0 {
		cfg.MissLimit = defaultMissLimit
	}
	if cfg.OverloadLimit <= 0 {
		cfg.OverloadLimit = defaultOverloadLimit
	}
	return &Monitor{s: s, cfg: cfg}
}

// Config returns the effective thresholds.
func (m *Monitor) Config() MonitorConfig { return m.cfg }

// Check samples the scheduler once. The caller picks the cadence.
func (m *Monitor) Check() Report {
	r := Report{
		Tick:   m.s.Now(),
		Load:   m.s.SystemLoad(),
		Misses: m.s.MissMask(),
	}

	missed := r.Misses != 0
	if missed {
		m.missStreak++
	} else {
		m.missStreak = 0
	}
	overloaded := r.Load > m.cfg.LoadThreshold
	if overloaded {
		m.overloadStreak++
	} else {
		m.overloadStreak = 0
	}

	m.history[m.checks%missHistoryLen] = missed
	m.checks++

	r.MissStreak = m.missStreak
	r.OverloadStreak = m.overloadStreak
	switch {
	case m.missStreak >= m.cfg.MissLimit || m.overloadStreak >= m.cfg.OverloadLimit:
		r.Status = StatusDegraded
	case missed || overloaded:
		r.Status = StatusWarning
	default:
		r.Status = StatusNominal
	}
	return r
}

// MissFrequency returns the percentage of the last ten checks that saw at
// least one deadline miss. Checks not yet made count as clean.
func (m *Monitor) MissFrequency() float64 {
	n := 0
	for _, missed := range m.history {
		if missed {
			n++
		}
	}
	return float64(n) / missHistoryLen * 100
}

// Reset clears the streaks and the miss history.
func (m *Monitor) Reset() {
	m.missStreak = 0
	m.overloadStreak = 0
	m.history = [missHistoryLen]bool{}
	m.checks = 0
}
