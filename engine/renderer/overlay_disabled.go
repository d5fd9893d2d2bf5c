//go:build nooverlay

package renderer

import "errors"

const overlayCompiled = false

type overlayBrush any

func newOverlayBrush() overlayBrush {
	return nil
}

func newOverlaySurface(width, height uint32) (overlaySurface, error) {
	return nil, errors.New("overlay compiled out")
}
