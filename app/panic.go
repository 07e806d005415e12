package app

import (
	"fmt"
	"runtime/debug"
	"strings"

	"rtcore/kernel"
)

// panicHoldTicks keeps the panic screen up before the status panel resumes.
const panicHoldTicks = 300

// PanicInfo describes a recovered panic in task or interrupt work.
type PanicInfo struct {
	Tick  kernel.Tick
	Task  kernel.TaskID
	Line  kernel.Line
	IRQ   bool
	Name  string
	Value any
	Stack []byte
}

func (p PanicInfo) source() string {
	if p.IRQ {
		return fmt.Sprintf("irq=%d (%s)", p.Line, p.Name)
	}
	return fmt.Sprintf("task=%d (%s)", p.Task, p.Name)
}

// Panics returns the panics recovered so far, oldest first.
func (s *System) Panics() []PanicInfo {
	return append([]PanicInfo(nil), s.panics...)
}

// recoverTask must be deferred directly. A panicking task is removed from
// the table so the loop keeps running.
func (s *System) recoverTask(id kernel.TaskID) {
	v := recover()
	if v == nil {
		return
	}
	t, _ := s.sched.Task(id)
	_ = s.sched.RemoveTask(id)
	s.tasks[id] = boundTask{}
	s.reportPanic(PanicInfo{Tick: s.sched.Now(), Task: id, Name: t.Name, Value: v, Stack: debug.Stack()})
}

// recoverLine must be deferred directly. The line is disabled and unbound.
func (s *System) recoverLine(l kernel.Line) {
	v := recover()
	if v == nil {
		return
	}
	name := s.lines[l].name
	s.router.Disable(l)
	s.lines[l] = boundLine{}
	s.reportPanic(PanicInfo{Tick: s.sched.Now(), Line: l, IRQ: true, Name: name, Value: v, Stack: debug.Stack()})
}

func (s *System) reportPanic(info PanicInfo) {
	s.panics = append(s.panics, info)
	s.holdUntil = info.Tick + panicHoldTicks

	s.logf("rtcore panic: tick=%d %s panic=%v", info.Tick, info.source(), info.Value)
	var stack []string
	for _, line := range strings.Split(string(info.Stack), "\n") {
		if line == "" {
			continue
		}
		stack = append(stack, line)
		if s.log != nil {
			s.log.WriteLineString(line)
		}
	}

	lines := []string{
		fmt.Sprintf("tick: %d", info.Tick),
		info.source(),
		fmt.Sprintf("panic: %v", info.Value),
		"stack:",
	}
	lines = append(lines, stack...)
	if err := s.con.Panic("rtcore panic", lines); err != nil {
		s.logf("rtcore panic: screen: %v", err)
	}
}
