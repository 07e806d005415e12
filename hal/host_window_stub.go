//go:build !tinygo && !cgo

package hal

import "errors"

// RunWindow needs ebiten, which needs cgo on this platform.
func RunWindow(_ AppFactory, _ WindowConfig) error {
	return errors.New("hal: built without cgo, no window available; run with -headless or rebuild with CGO_ENABLED=1")
}
