//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"time"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Enabled bool
	Hz      int
	Ticks   uint64
	// TTY puts the controlling terminal in raw mode and turns digit key
	// presses into interrupts on lines 0..9.
	TTY bool
}

// AppFactory builds the application on top of a HAL and returns its per-tick
// step function.
type AppFactory func(HAL) (step func() error, err error)

// RunHeadless runs the driver loop without opening a window, calling step
// once per 1/Hz seconds.
func RunHeadless(ctx context.Context, newApp AppFactory, cfg HeadlessConfig) error {
	return runHeadless(ctx, New().(*hostHAL), newApp, cfg)
}

func runHeadless(ctx context.Context, h *hostHAL, newApp AppFactory, cfg HeadlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}

	step, err := newApp(h)
	if err != nil {
		return err
	}

	if cfg.TTY {
		stop, err := startTTYInterrupts(h.irq)
		if err != nil {
			h.logger.WriteLineString(fmt.Sprintf("hal: tty interrupts unavailable: %v", err))
		} else {
			defer stop()
			h.logger.WriteLineString("hal: tty interrupts on lines 0-9 (press digits)")
		}
	}

	t := time.NewTicker(d)
	defer t.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if step != nil {
				if err := step(); err != nil {
					return err
				}
			}
			tick++
			if cfg.Ticks > 0 && tick >= cfg.Ticks {
				return nil
			}
		}
	}
}
