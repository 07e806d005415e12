package kernel

import "sync/atomic"

type irqLine struct {
	enabled atomic.Bool
	count   atomic.Uint32
}

// Router owns a fixed set of interrupt lines.
//
// Record may be called from any goroutine (the host stand-in for an interrupt
// context) and never blocks. Every other method belongs to the cooperative
// context. A Record racing an Enable or Disable on the same line may be
// counted or dropped.
type Router struct {
	lines   [MaxLines]irqLine
	pending atomic.Uint32
	n       int
}

// NewRouter returns a router with lines lines, clamped to [1, MaxLines]. All
// lines start disabled.
func NewRouter(lines int) *Router {
	return &Router{n: clampCapacity(lines, MaxLines)}
}

// Lines returns the number of lines.
func (r *Router) Lines() int { return r.n }

func (r *Router) line(l Line) *irqLine {
	if int(l) >= r.n {
		return nil
	}
	return &r.lines[l]
}

// Enable starts counting events on l. Out-of-range lines are ignored.
func (r *Router) Enable(l Line) {
	if ln := r.line(l); ln != nil {
		ln.enabled.Store(true)
	}
}

// Disable stops counting events on l. Events recorded while disabled are lost.
func (r *Router) Disable(l Line) {
	if ln := r.line(l); ln != nil {
		ln.enabled.Store(false)
	}
}

// Enabled reports whether l is counting. False for out-of-range lines.
func (r *Router) Enabled(l Line) bool {
	if ln := r.line(l); ln != nil {
		return ln.enabled.Load()
	}
	return false
}

// Record notes one event on l if l is enabled and marks it pending.
func (r *Router) Record(l Line) {
	ln := r.line(l)
	if ln == nil || !ln.enabled.Load() {
		return
	}
	ln.count.Add(1)
	bit := uint32(1) << l
	for {
		old := r.pending.Load()
		if old&bit != 0 || r.pending.CompareAndSwap(old, old|bit) {
			return
		}
	}
}

// Count returns the number of events recorded on l while enabled. Zero for
// out-of-range lines.
func (r *Router) Count(l Line) uint32 {
	if ln := r.line(l); ln != nil {
		return ln.count.Load()
	}
	return 0
}

// Pending returns the lines that recorded an event since the last TakePending.
func (r *Router) Pending() uint32 {
	return r.pending.Load()
}

// TakePending returns the pending lines and clears them.
func (r *Router) TakePending() uint32 {
	return r.pending.Swap(0)
}
