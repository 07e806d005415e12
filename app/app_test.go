package app

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"rtcore/config"
	"rtcore/hal"
	"rtcore/kernel"
)

type testLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *testLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, s)
}

func (l *testLogger) WriteLineBytes(b []byte) { l.WriteLineString(string(b)) }

func (l *testLogger) contains(sub string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.lines {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

type testFB struct {
	buf      []byte
	presents int
}

func (f *testFB) Width() int              { return 160 }
func (f *testFB) Height() int             { return 120 }
func (f *testFB) Format() hal.PixelFormat { return hal.PixelFormatRGB565 }
func (f *testFB) StrideBytes() int        { return 320 }
func (f *testFB) Buffer() []byte          { return f.buf }
func (f *testFB) ClearRGB(r, g, b uint8)  {}
func (f *testFB) Present() error          { f.presents++; return nil }

type testDisplay struct{ fb *testFB }

func (d testDisplay) Framebuffer() hal.Framebuffer { return d.fb }

type testIRQ struct{ sink hal.IRQSink }

func (i *testIRQ) Attach(s hal.IRQSink) { i.sink = s }

type testHAL struct {
	log *testLogger
	fb  *testFB
	irq *testIRQ
}

func newTestHAL() *testHAL {
	return &testHAL{
		log: &testLogger{},
		fb:  &testFB{buf: make([]byte, 320*120)},
		irq: &testIRQ{},
	}
}

func (h *testHAL) Logger() hal.Logger         { return h.log }
func (h *testHAL) Display() hal.Display       { return testDisplay{fb: h.fb} }
func (h *testHAL) Interrupts() hal.Interrupts { return h.irq }

func newSystem(t *testing.T, h *testHAL, cfg config.Config) *System {
	t.Helper()
	s, err := New(h, cfg)
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}
	return s
}

func steps(t *testing.T, s *System, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := s.Step(); err != nil {
			t.Fatalf("Step() at tick %d err = %v", s.Now(), err)
		}
	}
}

func runsByName(snap Snapshot) map[string]uint64 {
	out := make(map[string]uint64)
	for _, v := range snap.Tasks {
		out[v.Task.Name] = v.Runs
	}
	return out
}

func TestNewDefault(t *testing.T) {
	h := newTestHAL()
	s := newSystem(t, h, config.Default())

	snap := s.Snapshot()
	if len(snap.Tasks) != 5 {
		t.Fatalf("len(Tasks) = %d, want 5", len(snap.Tasks))
	}
	if snap.Usage.Allocated != 3 || snap.Usage.Critical != 2 || snap.Usage.MemoryUsed != 1792 {
		t.Fatalf("Usage = %+v, want 3 allocated, 2 critical, 1792 bytes", snap.Usage)
	}
	if len(snap.IRQs) != 3 {
		t.Fatalf("len(IRQs) = %d, want 3", len(snap.IRQs))
	}
	if h.irq.sink != s.Router() {
		t.Fatal("router not attached to interrupt source")
	}
	if !h.log.contains("rtcore: 5 tasks") {
		t.Fatalf("startup log missing: %v", h.log.lines)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Capacity.Tasks = 2
	if _, err := New(newTestHAL(), cfg); err == nil {
		t.Fatal("New() err = nil, want capacity error")
	}
}

func TestStepRunsHighestPriorityFirst(t *testing.T) {
	cfg := config.Default()
	cfg.Capacity = config.Capacity{Tasks: 2, Resources: 1, Lines: 1}
	cfg.Resources = nil
	cfg.Interrupts = nil
	cfg.Tasks = []config.Task{
		{Name: "A", Priority: 5, Period: 10, Deadline: 8, ExecutionTime: 1, Work: config.WorkIdle},
		{Name: "B", Priority: 9, Period: 10, Deadline: 8, ExecutionTime: 1, Work: config.WorkIdle},
	}
	s := newSystem(t, newTestHAL(), cfg)

	steps(t, s, 1)
	if got := runsByName(s.Snapshot()); got["B"] != 1 || got["A"] != 0 {
		t.Fatalf("after tick 1 runs = %v, want B=1 A=0", got)
	}
	steps(t, s, 1)
	if got := runsByName(s.Snapshot()); got["B"] != 1 || got["A"] != 1 {
		t.Fatalf("after tick 2 runs = %v, want B=1 A=1", got)
	}
	steps(t, s, 9) // tick 11: both eligible again
	if got := runsByName(s.Snapshot()); got["B"] != 2 || got["A"] != 1 {
		t.Fatalf("after tick 11 runs = %v, want B=2 A=1", got)
	}
}

func TestDefaultWorkloadStaysNominal(t *testing.T) {
	h := newTestHAL()
	s := newSystem(t, h, config.Default())
	steps(t, s, 500)

	snap := s.Snapshot()
	if snap.Report.Status != kernel.StatusNominal {
		t.Fatalf("Status = %v, want nominal", snap.Report.Status)
	}
	if snap.MissFrequency != 0 {
		t.Fatalf("MissFrequency = %v, want 0", snap.MissFrequency)
	}
	runs := runsByName(snap)
	if runs["alerts"] != 50 || runs["sample"] != 50 || runs["buffer"] != 20 || runs["report"] != 10 {
		t.Fatalf("runs = %v", runs)
	}
	if runs["maintenance"] != 0 {
		t.Fatalf("aperiodic task ran %d times", runs["maintenance"])
	}
	if !snap.HasReading || snap.Latest.Tick != 492 {
		t.Fatalf("latest reading = %+v (ok=%v), want tick 492", snap.Latest, snap.HasReading)
	}
	if snap.Usage.Allocated != 3 {
		t.Fatalf("Allocated = %d, want 3 after buffer runs", snap.Usage.Allocated)
	}
	if !h.log.contains("report: avg(10)") {
		t.Fatal("report task never logged an average")
	}
	if h.fb.presents != 50 {
		t.Fatalf("presents = %d, want 50", h.fb.presents)
	}
}

func TestMonitorTransitionsAreLogged(t *testing.T) {
	cfg := config.Default()
	cfg.Monitor = config.Monitor{LoadThreshold: 1, MissLimit: 2, OverloadLimit: 3}
	cfg.Tasks = []config.Task{
		{Name: "late", Priority: 1, Period: 5, Deadline: 2, ExecutionTime: 1, Work: config.WorkIdle},
	}
	h := newTestHAL()
	s := newSystem(t, h, cfg)

	steps(t, s, 3) // started at tick 1, on time through tick 3
	if s.Snapshot().Report.Status != kernel.StatusNominal {
		t.Fatalf("Status at tick 3 = %v, want nominal", s.Snapshot().Report.Status)
	}
	steps(t, s, 1)
	if got := s.Snapshot().Report; got.Status != kernel.StatusWarning || !got.Missed(0) {
		t.Fatalf("report at tick 4 = %+v, want warning with task 0 missed", got)
	}
	steps(t, s, 1)
	if got := s.Snapshot().Report.Status; got != kernel.StatusDegraded {
		t.Fatalf("Status at tick 5 = %v, want degraded", got)
	}
	steps(t, s, 1) // runs again at tick 6
	if got := s.Snapshot().Report.Status; got != kernel.StatusNominal {
		t.Fatalf("Status at tick 6 = %v, want nominal", got)
	}
	for _, want := range []string{"nominal -> warning", "warning -> degraded", "degraded -> nominal"} {
		if !h.log.contains(want) {
			t.Fatalf("log missing %q: %v", want, h.log.lines)
		}
	}
}

func TestInterruptsRunBottomHalves(t *testing.T) {
	h := newTestHAL()
	s := newSystem(t, h, config.Default())

	h.irq.sink.Record(1)
	h.irq.sink.Record(1)
	h.irq.sink.Record(2) // disabled
	h.irq.sink.Record(0)
	steps(t, s, 1)

	if !h.log.contains("irq 1 (button): count=2") {
		t.Fatalf("count handler not run: %v", h.log.lines)
	}
	if h.log.contains("uart-rx") {
		t.Fatal("disabled line ran its handler")
	}
	snap := s.Snapshot()
	if !snap.HasReading || snap.Latest.Tick != 1 {
		t.Fatalf("forced sample = %+v (ok=%v), want tick 1", snap.Latest, snap.HasReading)
	}
	if s.Router().Pending() != 0 {
		t.Fatalf("Pending() = %#x, want 0", s.Router().Pending())
	}

	steps(t, s, 1)
	if h.log.contains("count=3") {
		t.Fatal("handler ran again without a new interrupt")
	}
}

func TestPanickingTaskIsRemoved(t *testing.T) {
	h := newTestHAL()
	s := newSystem(t, h, config.Default())

	// alerts has the highest priority and runs first.
	s.tasks[1].work = func(*System, kernel.TaskID) error { panic("sensor bus fault") }
	steps(t, s, 1)

	panics := s.Panics()
	if len(panics) != 1 {
		t.Fatalf("len(Panics()) = %d, want 1", len(panics))
	}
	if p := panics[0]; p.Task != 1 || p.Name != "alerts" || p.Value != "sensor bus fault" || len(p.Stack) == 0 {
		t.Fatalf("panic = %+v", p)
	}
	if _, err := s.sched.Task(1); !errors.Is(err, kernel.ErrTaskNotFound) {
		t.Fatalf("Task(1) err = %v, want ErrTaskNotFound", err)
	}
	if !h.log.contains("rtcore panic: tick=1 task=1 (alerts) panic=sensor bus fault") {
		t.Fatalf("panic not logged: %v", h.log.lines)
	}
	if h.fb.presents != 1 {
		t.Fatalf("presents = %d, want 1 (panic screen)", h.fb.presents)
	}

	// The loop keeps going and the panic screen holds.
	steps(t, s, 20)
	if got := runsByName(s.Snapshot()); got["sample"] != 2 {
		t.Fatalf("runs after panic = %v, want sample=2", got)
	}
	if h.fb.presents != 1 {
		t.Fatalf("presents = %d, want 1 while the panic screen holds", h.fb.presents)
	}
}

func TestPanickingInterruptIsUnbound(t *testing.T) {
	h := newTestHAL()
	s := newSystem(t, h, config.Default())
	s.lines[1].fn = func(*System, kernel.Line) error { panic("bad handler") }

	h.irq.sink.Record(1)
	steps(t, s, 1)
	if len(s.Panics()) != 1 || !s.Panics()[0].IRQ {
		t.Fatalf("Panics() = %+v, want one irq panic", s.Panics())
	}
	if s.Router().Enabled(1) {
		t.Fatal("line 1 still enabled after panic")
	}
	h.irq.sink.Record(1)
	if s.Router().Count(1) != 1 {
		t.Fatalf("Count(1) = %d, want 1", s.Router().Count(1))
	}
}

type silentHAL struct{ *testHAL }

func (silentHAL) Logger() hal.Logger { return nil }

func TestAlertsWithoutLogger(t *testing.T) {
	h := newTestHAL()
	s, err := New(silentHAL{h}, config.Default())
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}
	s.sensor = func(now kernel.Tick) Reading {
		return Reading{Tick: now, Temperature: 40, Humidity: 95, AirQuality: 150, Pressure: 101}
	}

	h.irq.sink.Record(0) // sample before alerts runs at tick 1
	steps(t, s, 1)

	if p := s.Panics(); len(p) != 0 {
		t.Fatalf("Panics() = %+v, want none", p)
	}
	snap := s.Snapshot()
	if got := runsByName(snap); got["alerts"] != 1 {
		t.Fatalf("runs = %v, want alerts=1", got)
	}
	if !snap.HasAlert || snap.AlertFrequency != 10 {
		t.Fatalf("alerts = (%v, %v%%), want one raising check", snap.HasAlert, snap.AlertFrequency)
	}
}

func TestWorkErrorsAreLogged(t *testing.T) {
	cfg := config.Default()
	cfg.Capacity.Resources = len(cfg.Resources)
	h := newTestHAL()
	s := newSystem(t, h, cfg)

	steps(t, s, 3) // buffer runs at tick 3 with the table full
	if !h.log.contains("task 2 (buffer): comm buffer: resource: no available slots") {
		t.Fatalf("buffer error not logged: %v", h.log.lines)
	}
	if snap := s.Snapshot(); snap.Errors != 1 {
		t.Fatalf("Errors = %d, want 1", snap.Errors)
	}
}

func TestSnapshotText(t *testing.T) {
	s := newSystem(t, newTestHAL(), config.Default())
	steps(t, s, 12)

	text := strings.Join(s.Snapshot().Text(), "\n")
	for _, want := range []string{"tick 12", "status nominal", "sample", "maintenance", "adc-ready", "T:"} {
		if !strings.Contains(text, want) {
			t.Fatalf("Text() missing %q:\n%s", want, text)
		}
	}
}

func TestEnvRing(t *testing.T) {
	var r envRing
	if _, ok := r.latest(); ok {
		t.Fatal("latest() ok on empty ring")
	}
	for i := 1; i <= envRingSize+5; i++ {
		r.push(Reading{Tick: kernel.Tick(i), Temperature: float64(i)})
	}
	if r.len() != envRingSize {
		t.Fatalf("len() = %d, want %d", r.len(), envRingSize)
	}
	if got, _ := r.latest(); got.Tick != envRingSize+5 {
		t.Fatalf("latest().Tick = %d, want %d", got.Tick, envRingSize+5)
	}
	avg, ok := r.average(3)
	if !ok || avg.Temperature != 54 {
		t.Fatalf("average(3) = (%v, %v), want 54", avg.Temperature, ok)
	}
	if _, ok := r.average(0); ok {
		t.Fatal("average(0) ok = true")
	}
	if _, ok := r.average(envRingSize + 1); ok {
		t.Fatal("average(51) ok = true")
	}
}

func TestEvaluateAlerts(t *testing.T) {
	calm := Reading{Temperature: 22, Humidity: 50, AirQuality: 40, Pressure: 101}
	if got := evaluate(calm); len(got) != 0 {
		t.Fatalf("evaluate(calm) = %v, want none", got)
	}
	bad := Reading{Tick: 7, Temperature: 40, Humidity: 95, AirQuality: 150, Pressure: 101}
	got := evaluate(bad)
	if len(got) != 3 {
		t.Fatalf("len(evaluate(bad)) = %d, want 3", len(got))
	}
	if got[1].Level != AlertCritical {
		t.Fatalf("temperature alert level = %v, want CRITICAL", got[1].Level)
	}
	if s := got[0].String(); s != "ALERT[WARNING]: air quality critical - value 150.0 at 7" {
		t.Fatalf("String() = %q", s)
	}

	var log alertLog
	for i := 0; i < 4; i++ {
		log.record(got)
	}
	for i := 0; i < 6; i++ {
		log.record(nil)
	}
	if f := log.frequency(); f != 40 {
		t.Fatalf("frequency() = %v, want 40", f)
	}
	if a, ok := log.last(); !ok || a.Message != "humidity out of range" {
		t.Fatalf("last() = (%+v, %v)", a, ok)
	}
}

func TestSynthReadingsInRange(t *testing.T) {
	aqHigh := false
	for i := kernel.Tick(0); i < 2000; i++ {
		r := synthReading(i)
		if err := r.validate(); err != nil {
			t.Fatalf("synthReading(%d) = %v", i, err)
		}
		if r.AirQuality > airQualityLimit {
			aqHigh = true
		}
	}
	if !aqHigh {
		t.Fatal("air quality never crossed the alert limit")
	}
	if err := (Reading{Temperature: 200, Pressure: 100}).validate(); !errors.Is(err, ErrSensorRange) {
		t.Fatalf("validate() = %v, want ErrSensorRange", err)
	}
}
