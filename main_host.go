//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"rtcore/app"
	"rtcore/config"
	"rtcore/hal"
	"rtcore/internal/buildinfo"
)

func main() {
	var (
		headless hal.HeadlessConfig
		window   hal.WindowConfig
		cfgPath  string
	)
	flag.BoolVar(&headless.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&headless.Hz, "hz", 60, "Tick rate.")
	flag.Uint64Var(&headless.Ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run forever).")
	flag.StringVar(&cfgPath, "config", "", "YAML workload file (default: built-in environmental monitor).")
	flag.BoolVar(&headless.TTY, "tty-irq", false, "In headless mode, raise interrupts 0-9 from terminal digit keys.")
	flag.IntVar(&window.Scale, "scale", 2, "Window scale factor.")
	flag.Parse()

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}

	newApp := func(h hal.HAL) (func() error, error) {
		h.Logger().WriteLineString(buildinfo.Banner("rtcore"))
		s, err := app.New(h, cfg)
		if err != nil {
			return nil, err
		}
		return s.Step, nil
	}

	if headless.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := hal.RunHeadless(ctx, newApp, headless); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	window.Hz = headless.Hz
	window.Title = "rtcore"
	if err := hal.RunWindow(newApp, window); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
