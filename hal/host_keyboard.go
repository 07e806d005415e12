//go:build !tinygo && cgo

package hal

import "github.com/hajimehoshi/ebiten/v2"

// hostKeyboard turns digit keys typed into the window into interrupts.
type hostKeyboard struct {
	irq *hostInterrupts
}

func newHostKeyboard(irq *hostInterrupts) *hostKeyboard {
	return &hostKeyboard{irq: irq}
}

func (k *hostKeyboard) poll() {
	for _, r := range ebiten.AppendInputChars(nil) {
		if l, ok := lineForKey(r); ok {
			k.irq.raise(l)
		}
	}
}
