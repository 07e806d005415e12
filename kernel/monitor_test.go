package kernel

import "testing"

func TestMonitorDefaults(t *testing.T) {
	m := NewMonitor(NewScheduler(1), MonitorConfig{})
	cfg := m.Config()
	if cfg.LoadThreshold != 1.0 || cfg.MissLimit != 3 || cfg.OverloadLimit != 3 {
		t.Fatalf("Config() = %+v, want defaults", cfg)
	}
}

func TestMonitorEscalatesOnRepeatedMisses(t *testing.T) {
	s := NewScheduler(2)
	id, _ := s.AddTask(periodic("late", 1, 10, 2))
	s.OnTaskStarted(id)
	m := NewMonitor(s, MonitorConfig{MissLimit: 2})

	s.Tick()
	if r := m.Check(); r.Status != StatusNominal || r.Misses != 0 {
		t.Fatalf("Check() at tick 1 = %+v, want nominal", r)
	}

	advance(s, 2)
	r := m.Check()
	if r.Status != StatusWarning || !r.Missed(id) || r.MissStreak != 1 {
		t.Fatalf("Check() at tick 3 = %+v, want warning with miss", r)
	}

	s.Tick()
	r = m.Check()
	if r.Status != StatusDegraded || r.MissStreak != 2 {
		t.Fatalf("Check() at tick 4 = %+v, want degraded", r)
	}

	// Restarting the task clears the miss and the streak.
	s.OnTaskStarted(id)
	r = m.Check()
	if r.Status != StatusNominal || r.MissStreak != 0 {
		t.Fatalf("Check() after restart = %+v, want nominal", r)
	}
}

func TestMonitorSustainedOverload(t *testing.T) {
	s := NewScheduler(2)
	s.AddTask(Task{Priority: 1, Period: 4, ExecutionTime: 3, Periodic: true})
	s.AddTask(Task{Priority: 1, Period: 4, ExecutionTime: 2, Periodic: true})
	m := NewMonitor(s, MonitorConfig{LoadThreshold: 0.9, OverloadLimit: 3})

	want := []Status{StatusWarning, StatusWarning, StatusDegraded, StatusDegraded}
	for i, w := range want {
		r := m.Check()
		if r.Status != w {
			t.Fatalf("Check() #%d status = %s, want %s", i, r.Status, w)
		}
		if r.Load != 1.25 {
			t.Fatalf("Check() #%d load = %v, want 1.25", i, r.Load)
		}
	}
}

func TestMonitorMissFrequency(t *testing.T) {
	s := NewScheduler(1)
	id, _ := s.AddTask(periodic("t", 1, 1, 0))
	m := NewMonitor(s, MonitorConfig{MissLimit: 100})

	if got := m.MissFrequency(); got != 0 {
		t.Fatalf("MissFrequency() = %v, want 0", got)
	}

	s.OnTaskStarted(id)
	for i := 0; i < 4; i++ {
		s.Tick() // one tick late each time
		m.Check()
		s.OnTaskStarted(id)
		m.Check()
	}
	if got := m.MissFrequency(); got != 40 {
		t.Fatalf("MissFrequency() = %v, want 40", got)
	}

	m.Reset()
	if got := m.MissFrequency(); got != 0 {
		t.Fatalf("MissFrequency() after Reset = %v, want 0", got)
	}
}

func TestStatusString(t *testing.T) {
	if StatusDegraded.String() != "degraded" || Status(9).String() != "unknown" {
		t.Fatal("Status.String() mismatch")
	}
}
