package app

import (
	"fmt"

	"rtcore/internal/buildinfo"
	"rtcore/kernel"
)

type TaskView struct {
	ID     kernel.TaskID
	Task   kernel.Task
	Runs   uint64
	Missed bool
}

type LineView struct {
	Line    kernel.Line
	Name    string
	Enabled bool
	Count   uint32
}

// Snapshot is a copy of the driver state for display.
type Snapshot struct {
	Tick           kernel.Tick
	Report         kernel.Report
	MissFrequency  float64
	Tasks          []TaskView
	Usage          kernel.Usage
	IRQs           []LineView
	Latest         Reading
	HasReading     bool
	LastAlert      Alert
	HasAlert       bool
	AlertFrequency float64
	Errors         uint64
	Panics         int
}

// Snapshot collects the current state. The report is the one from the last
// Step.
func (s *System) Snapshot() Snapshot {
	snap := Snapshot{
		Tick:           s.sched.Now(),
		Report:         s.last,
		MissFrequency:  s.mon.MissFrequency(),
		Usage:          s.res.Usage(),
		AlertFrequency: s.alerts.frequency(),
		Errors:         s.errs,
		Panics:         len(s.panics),
	}
	s.sched.Each(func(id kernel.TaskID, t kernel.Task) bool {
		snap.Tasks = append(snap.Tasks, TaskView{ID: id, Task: t, Runs: s.tasks[id].runs, Missed: s.last.Missed(id)})
		return true
	})
	for l := 0; l < s.router.Lines(); l++ {
		line := kernel.Line(l)
		if s.lines[l].name == "" && !s.router.Enabled(line) {
			continue
		}
		snap.IRQs = append(snap.IRQs, LineView{
			Line:    line,
			Name:    s.lines[l].name,
			Enabled: s.router.Enabled(line),
			Count:   s.router.Count(line),
		})
	}
	snap.Latest, snap.HasReading = s.env.latest()
	snap.LastAlert, snap.HasAlert = s.alerts.last()
	return snap
}

// Text formats the snapshot as console lines.
func (s Snapshot) Text() []string {
	out := []string{
		fmt.Sprintf("rtcore %s  tick %d", buildinfo.Short(), s.Tick),
		fmt.Sprintf("status %s  load %.2f  miss %.0f%%", s.Report.Status, s.Report.Load, s.MissFrequency),
		fmt.Sprintf("res %d used %dB free %d crit %d",
			s.Usage.Allocated, s.Usage.MemoryUsed, s.Usage.Available, s.Usage.Critical),
		"",
		"id name         pri per  dl runs",
	}
	for _, v := range s.Tasks {
		mark := " "
		if v.Missed {
			mark = "!"
		}
		per := "-"
		if v.Task.Periodic {
			per = fmt.Sprint(v.Task.Period)
		}
		out = append(out, fmt.Sprintf("%2d %-12.12s %3d %3s %3d %4d%s",
			v.ID, v.Task.Name, v.Task.Priority, per, v.Task.Deadline, v.Runs, mark))
	}
	out = append(out, "")
	for _, v := range s.IRQs {
		state := "off"
		if v.Enabled {
			state = "on"
		}
		out = append(out, fmt.Sprintf("irq %2d %-10.10s %-3s %d", v.Line, v.Name, state, v.Count))
	}
	if s.HasReading {
		out = append(out, "", s.Latest.String())
	}
	if s.HasAlert {
		out = append(out, fmt.Sprintf("alerts %.0f%%  %s", s.AlertFrequency, s.LastAlert.Message))
	}
	if s.Errors > 0 || s.Panics > 0 {
		out = append(out, fmt.Sprintf("errors %d  panics %d", s.Errors, s.Panics))
	}
	return out
}
