package cloudcover

import (
	"fmt"
	"image"
)

const (
	DefaultThreshold = 80
	DefaultHalfWidth = 5
)

// SamplerConfig holds the cloud mask parameters.
type SamplerConfig struct {
	// Threshold is the lowest intensity classified as cloud.
	Threshold uint8 `json:"threshold"`
	// HalfWidth is the window radius in pixels; the window is 2*HalfWidth+1 wide.
	HalfWidth int `json:"halfWidth"`
}

// DefaultSamplerConfig returns the threshold 80, half-width 5 mask.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{Threshold: DefaultThreshold, HalfWidth: DefaultHalfWidth}
}

// Sampler classifies a pixel neighborhood as cloud or clear and reduces it to
// a percentage. It holds no mutable state.
type Sampler struct {
	projector *Projector
	cfg       SamplerConfig
}

// NewSampler creates a Sampler projecting through p.
func NewSampler(p *Projector, cfg SamplerConfig) (*Sampler, error) {
	if p == nil {
		return nil, fmt.Errorf("sampler requires a projector")
	}
	if cfg.HalfWidth < 0 {
		return nil, fmt.Errorf("window half-width must not be negative, got %d", cfg.HalfWidth)
	}
	return &Sampler{projector: p, cfg: cfg}, nil
}

// Config returns the sampler configuration.
func (s *Sampler) Config() SamplerConfig {
	return s.cfg
}

// Projector returns the projector used to locate pixels.
func (s *Sampler) Projector() *Projector {
	return s.projector
}

// Sample returns the cloud percentage around pt and the pixel it projected to.
func (s *Sampler) Sample(img Raster, pt GeoPoint) (float64, PixelCoordinate, error) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	px, err := s.projector.Project(pt, width, height)
	if err != nil {
		return 0, PixelCoordinate{}, err
	}
	if !px.In(width, height) {
		return 0, px, &OutOfBoundsError{Point: pt, Pixel: px, Width: width, Height: height}
	}

	win := s.Window(px, width, height)

	var cloud, total int
	for y := win.Min.Y; y < win.Max.Y; y++ {
		for x := win.Min.X; x < win.Max.X; x++ {
			if img.GrayAt(b.Min.X+x, b.Min.Y+y).Y >= s.cfg.Threshold {
				cloud++
			}
			total++
		}
	}

	return float64(cloud) / float64(total) * 100, px, nil
}

// Window returns the sampling window around px in grid coordinates. The window
// keeps its full size where the grid allows and slides to stay inside it, so a
// corner pixel yields [0, min(n,width)) x [0, min(n,height)). Windows within
// HalfWidth of an edge are therefore not centered on px.
func (s *Sampler) Window(px PixelCoordinate, width, height int) image.Rectangle {
	x0, x1 := windowSpan(px.X, s.cfg.HalfWidth, width)
	y0, y1 := windowSpan(px.Y, s.cfg.HalfWidth, height)
	return image.Rect(x0, y0, x1, y1)
}

func windowSpan(center, half, size int) (int, int) {
	n := 2*half + 1
	if n >= size {
		return 0, size
	}
	lo := center - half
	if lo < 0 {
		lo = 0
	}
	if lo+n > size {
		lo = size - n
	}
	return lo, lo + n
}
