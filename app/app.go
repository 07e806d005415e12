// Package app drives the real-time core: it owns one scheduler, resource
// table, interrupt router and monitor, binds work to tasks and lines, and
// advances everything one tick per Step.
package app

import (
	"fmt"
	"math/bits"

	"rtcore/config"
	"rtcore/console"
	"rtcore/hal"
	"rtcore/kernel"
)

type boundTask struct {
	work taskFunc
	runs uint64
}

type boundLine struct {
	name string
	fn   irqFunc
}

// System is the cooperative driver loop.
type System struct {
	log hal.Logger
	con *console.Console
	cfg config.Config

	sched  *kernel.Scheduler
	res    *kernel.ResourceTable
	router *kernel.Router
	mon    *kernel.Monitor

	tasks [kernel.MaxTasks]boundTask
	lines [kernel.MaxLines]boundLine

	sensor func(kernel.Tick) Reading
	env    envRing
	alerts alertLog

	last      kernel.Report
	errs      uint64
	panics    []PanicInfo
	holdUntil kernel.Tick
}

// New builds the tables from cfg, registers tasks, resources and interrupt
// lines, and attaches the router to the platform's interrupt sources.
func New(h hal.HAL, cfg config.Config) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	s := &System{
		log:    h.Logger(),
		cfg:    cfg,
		sched:  kernel.NewScheduler(cfg.Capacity.Tasks),
		res:    kernel.NewResourceTable(cfg.Capacity.Resources),
		router: kernel.NewRouter(cfg.Capacity.Lines),
		sensor: synthReading,
	}
	s.mon = kernel.NewMonitor(s.sched, cfg.MonitorConfig())

	var fb hal.Framebuffer
	if d := h.Display(); d != nil {
		fb = d.Framebuffer()
	}
	s.con = console.New(fb)

	for _, t := range cfg.Tasks {
		id, err := s.sched.AddTask(t.Kernel())
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", t.Name, err)
		}
		s.tasks[id] = boundTask{work: taskCatalogue[t.Work]}
	}
	for _, r := range cfg.Resources {
		if _, err := s.res.Allocate(r.Kernel()); err != nil {
			return nil, fmt.Errorf("resource %q: %w", r.Name, err)
		}
	}
	for _, in := range cfg.Interrupts {
		l := kernel.Line(in.Line)
		s.lines[l] = boundLine{name: in.Name, fn: irqCatalogue[in.Work]}
		if in.Enabled {
			s.router.Enable(l)
		}
	}

	if irq := h.Interrupts(); irq != nil {
		irq.Attach(s.router)
	}

	s.logf("rtcore: %d tasks, %d resources, %d lines, load %.2f",
		s.sched.Len(), s.res.Usage().Allocated, len(cfg.Interrupts), s.sched.SystemLoad())
	return s, nil
}

// Router returns the interrupt router. Record may be called on it from any
// goroutine.
func (s *System) Router() *kernel.Router { return s.router }

// Now returns the current tick.
func (s *System) Now() kernel.Tick { return s.sched.Now() }

// Step advances one tick: interrupt bottom halves, then at most one task,
// then the monitor, then the console when due.
func (s *System) Step() error {
	s.sched.Tick()
	now := s.sched.Now()

	pending := s.router.TakePending()
	for pending != 0 {
		l := kernel.Line(bits.TrailingZeros32(pending))
		pending &^= 1 << l
		s.runLine(l)
	}

	if id, ok := s.sched.Schedule(); ok {
		if err := s.sched.OnTaskStarted(id); err != nil {
			return fmt.Errorf("start task %d: %w", id, err)
		}
		s.runTask(id)
	}

	rep := s.mon.Check()
	if rep.Status != s.last.Status {
		s.logf("monitor: %s -> %s at tick %d (load %.2f, miss streak %d, overload streak %d)",
			s.last.Status, rep.Status, now, rep.Load, rep.MissStreak, rep.OverloadStreak)
	}
	s.last = rep

	if s.cfg.RenderEvery > 0 && now%kernel.Tick(s.cfg.RenderEvery) == 0 && now >= s.holdUntil {
		if err := s.con.Render(s.Snapshot().Text()); err != nil {
			return fmt.Errorf("console: %w", err)
		}
	}
	return nil
}

func (s *System) runTask(id kernel.TaskID) {
	b := &s.tasks[id]
	if b.work == nil {
		return
	}
	defer s.recoverTask(id)
	if err := b.work(s, id); err != nil {
		s.errs++
		t, _ := s.sched.Task(id)
		s.logf("task %d (%s): %v", id, t.Name, err)
	}
	b.runs++
}

func (s *System) runLine(l kernel.Line) {
	b := s.lines[l]
	if b.fn == nil {
		return
	}
	defer s.recoverLine(l)
	if err := b.fn(s, l); err != nil {
		s.errs++
		s.logf("irq %d (%s): %v", l, b.name, err)
	}
}

func (s *System) logf(format string, args ...any) {
	if s.log == nil {
		return
	}
	s.log.WriteLineString(fmt.Sprintf(format, args...))
}
