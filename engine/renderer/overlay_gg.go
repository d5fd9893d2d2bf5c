//go:build !nooverlay

package renderer

import (
	"github.com/gogpu/gg"
)

const overlayCompiled = true

type overlayBrush = gg.Brush

func newOverlayBrush() overlayBrush {
	return gg.Solid(gg.RGBA2(0, 0, 0, 1))
}

// ggSurface renders the overlay on the CPU with gg into a pixmap the size of the swap chain.
type ggSurface struct {
	pm     *gg.Pixmap
	dc     *gg.Context
	width  float64
	height float64
}

func newOverlaySurface(width, height uint32) (overlaySurface, error) {
	pm := gg.NewPixmap(int(width), int(height))
	dc := gg.NewContext(int(width), int(height), gg.WithPixmap(pm))
	dc.SetLineWidth(1)
	return &ggSurface{pm: pm, dc: dc, width: float64(width), height: float64(height)}, nil
}

func (s *ggSurface) DrawDiagonal(brush overlayBrush, v float64) ([]byte, error) {
	s.dc.Clear()
	s.dc.SetStrokeBrush(brush)
	s.dc.DrawLine(0, 0, s.width*v, s.height*v)
	if err := s.dc.Stroke(); err != nil {
		return nil, err
	}
	if err := s.dc.FlushGPU(); err != nil {
		return nil, err
	}
	return s.pm.Data(), nil
}

func (s *ggSurface) Close() error {
	return s.dc.Close()
}
