//go:build !tinygo

package hal

import "github.com/mattn/go-tty"

// startTTYInterrupts reads raw key presses from the controlling terminal on
// its own goroutine, which plays the part of an interrupt context: digits are
// raised as interrupts, everything else is ignored.
func startTTYInterrupts(irq *hostInterrupts) (stop func(), err error) {
	t, err := tty.Open()
	if err != nil {
		return nil, err
	}
	go func() {
		for {
			r, err := t.ReadRune()
			if err != nil {
				return
			}
			if l, ok := lineForKey(r); ok {
				irq.raise(l)
			}
		}
	}()
	return func() { _ = t.Close() }, nil
}
