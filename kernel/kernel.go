// Package kernel is the deterministic real-time core: a fixed-size task table
// with rate/priority selection, a fixed-slot resource table, an interrupt
// router with lock-free counters, and a deadline monitor.
//
// Everything except Router.Record belongs to a single cooperative context (the
// driver loop) and takes no locks. No call allocates on the heap after
// construction, suspends, or performs I/O; the worst case is one scan over a
// table.
package kernel

const (
	// MaxTasks bounds the task table. Miss reports are a uint64 bitmask.
	MaxTasks = 64
	// MaxResources bounds the resource table.
	MaxResources = 64
	// MaxLines bounds the interrupt router. Pending lines are a uint32 bitmask.
	MaxLines = 32
)

// Tick is the core time base, advanced once per Scheduler.Tick call.
type Tick uint64

// NeverRun is the LastExecution value of a task that has not been started.
const NeverRun = ^Tick(0)

// TaskID identifies a live task. It is the task's slot index.
type TaskID uint8

// Handle identifies a live resource. It is the resource's slot index and is
// only meaningful until the resource is deallocated.
type Handle uint8

// Line identifies an interrupt line.
type Line uint8

func clampCapacity(n, max int) int {
	if n < 1 {
		return 1
	}
	if n > max {
		return max
	}
	return n
}
