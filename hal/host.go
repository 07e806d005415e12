//go:build !tinygo

package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"rtcore/kernel"
)

const (
	hostFBWidth  = 320
	hostFBHeight = 240
)

type hostHAL struct {
	logger *hostLogger
	fb     *hostFramebuffer
	kbd    *hostKeyboard
	irq    *hostInterrupts
}

// New returns a host HAL implementation logging to stdout.
func New() HAL {
	return newHost(os.Stdout)
}

func newHost(w io.Writer) *hostHAL {
	irq := &hostInterrupts{}
	return &hostHAL{
		logger: &hostLogger{w: w},
		fb:     newHostFramebuffer(hostFBWidth, hostFBHeight),
		kbd:    newHostKeyboard(irq),
		irq:    irq,
	}
}

func (h *hostHAL) Logger() Logger         { return h.logger }
func (h *hostHAL) Display() Display       { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Interrupts() Interrupts { return h.irq }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

// hostInterrupts fans host event sources (window keys, terminal keys) into
// the attached sink. raise is safe from any goroutine and never blocks.
type hostInterrupts struct {
	sink atomic.Value // IRQSink
}

func (in *hostInterrupts) Attach(sink IRQSink) {
	in.sink.Store(sinkBox{sink})
}

type sinkBox struct{ IRQSink }

func (in *hostInterrupts) raise(l kernel.Line) {
	v, ok := in.sink.Load().(sinkBox)
	if !ok || v.IRQSink == nil {
		return
	}
	v.Record(l)
}

// lineForKey maps the digit keys '0'..'9' to interrupt lines 0..9.
func lineForKey(r rune) (kernel.Line, bool) {
	if r < '0' || r > '9' {
		return 0, false
	}
	return kernel.Line(r - '0'), true
}

// WindowConfig controls the desktop window runner.
type WindowConfig struct {
	Hz    int
	Scale int
	Title string
}
