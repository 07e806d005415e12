// Package hal is the boundary between the real-time core and the platform it
// runs on: log output, a status framebuffer, and asynchronous interrupt
// sources.
package hal

import "rtcore/kernel"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// IRQSink receives events raised from an asynchronous context.
// *kernel.Router satisfies it.
type IRQSink interface {
	Record(l kernel.Line)
}

// Interrupts routes the platform's asynchronous event sources (keys, pins,
// timers) into a sink. Sources call the sink from their own goroutine.
type Interrupts interface {
	Attach(sink IRQSink)
}

// HAL provides the only contact point between the core and the outside world.
type HAL interface {
	Logger() Logger
	Display() Display
	Interrupts() Interrupts
}
