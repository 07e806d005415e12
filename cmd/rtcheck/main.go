//go:build !tinygo

// Command rtcheck loads a workload file, prints the task table with its
// declared utilisation, and replays the scheduler for a number of ticks to
// report deadline misses and monitor escalations without running any work.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"rtcore/config"
	"rtcore/kernel"
)

const defaultTicks = 1000

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "rtcheck:", err)
		os.Exit(1)
	}
}

type result struct {
	ticks    uint64
	runs     [kernel.MaxTasks]uint64
	misses   [kernel.MaxTasks]uint64
	statuses [3]uint64
	worst    kernel.Status
}

func run(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("rtcheck", flag.ContinueOnError)
	fs.SetOutput(w)
	cfgPath := fs.String("config", "", "YAML workload file (default: built-in workload)")
	ticks := fs.Uint64("ticks", defaultTicks, "ticks to replay")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *ticks == 0 {
		return errors.New("-ticks must be positive")
	}

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			return err
		}
	}

	s := kernel.NewScheduler(cfg.Capacity.Tasks)
	for _, t := range cfg.Tasks {
		if _, err := s.AddTask(t.Kernel()); err != nil {
			return fmt.Errorf("task %q: %w", t.Name, err)
		}
	}
	res := replay(s, kernel.NewMonitor(s, cfg.MonitorConfig()), *ticks)
	return printReport(w, s, res)
}

// replay ticks the scheduler and starts whatever it picks, as the driver
// loop would, with no work attached.
func replay(s *kernel.Scheduler, m *kernel.Monitor, ticks uint64) result {
	r := result{ticks: ticks}
	for i := uint64(0); i < ticks; i++ {
		s.Tick()
		if id, ok := s.Schedule(); ok {
			if err := s.OnTaskStarted(id); err == nil {
				r.runs[id]++
			}
		}
		rep := m.Check()
		for id := 0; id < kernel.MaxTasks; id++ {
			if rep.Missed(kernel.TaskID(id)) {
				r.misses[id]++
			}
		}
		if int(rep.Status) < len(r.statuses) {
			r.statuses[rep.Status]++
		}
		if rep.Status > r.worst {
			r.worst = rep.Status
		}
	}
	return r
}

func printReport(w io.Writer, s *kernel.Scheduler, r result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRIO\tPERIOD\tDEADLINE\tEXEC\tUTIL\tRUNS\tMISSED")
	s.Each(func(id kernel.TaskID, t kernel.Task) bool {
		period, util := "-", "-"
		if t.Periodic && t.Period > 0 {
			period = fmt.Sprint(t.Period)
			util = fmt.Sprintf("%.3f", float64(t.ExecutionTime)/float64(t.Period))
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\t%d\t%s\t%d\t%d\n",
			id, t.Name, t.Priority, period, t.Deadline, t.ExecutionTime, util, r.runs[id], r.misses[id])
		return true
	})
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nload %.3f over %d ticks\n", s.SystemLoad(), r.ticks)
	fmt.Fprintf(w, "checks: %s=%d %s=%d %s=%d, worst %s\n",
		kernel.StatusNominal, r.statuses[kernel.StatusNominal],
		kernel.StatusWarning, r.statuses[kernel.StatusWarning],
		kernel.StatusDegraded, r.statuses[kernel.StatusDegraded],
		r.worst)
	return nil
}
