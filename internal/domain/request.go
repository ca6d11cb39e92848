package domain

import (
	"errors"
	"fmt"
	"image"
	"net/url"
	"strings"
)

type Strategy string

const (
	StrategyResize     Strategy = "resize"
	StrategyCenterCrop Strategy = "crop"
	StrategySmartCrop  Strategy = "smartcrop"
)

func (s Strategy) Valid() bool {
	switch s {
	case StrategyResize, StrategyCenterCrop, StrategySmartCrop:
		return true
	default:
		return false
	}
}

type Dimensions struct {
	Width  int
	Height int
}

func (d Dimensions) Positive() bool {
	return d.Width > 0 && d.Height > 0
}

// Aspect is width/height. Callers guarantee Height > 0.
func (d Dimensions) Aspect() float64 {
	return float64(d.Width) / float64(d.Height)
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// CropRectangle is expressed in source pixel coordinates with Right and Bottom exclusive.
type CropRectangle struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

func (r CropRectangle) Width() int {
	return r.Right - r.Left
}

func (r CropRectangle) Height() int {
	return r.Bottom - r.Top
}

func (r CropRectangle) Rect() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right, r.Bottom)
}

// Within reports whether r is non-empty and fully contained in a source of the given size.
func (r CropRectangle) Within(src Dimensions) bool {
	return r.Left >= 0 && r.Top >= 0 &&
		r.Left < r.Right && r.Top < r.Bottom &&
		r.Right <= src.Width && r.Bottom <= src.Height
}

func (r CropRectangle) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", r.Left, r.Top, r.Right, r.Bottom)
}

type SaliencyResult struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (s SaliencyResult) Rectangle() CropRectangle {
	return CropRectangle{
		Left:   s.X,
		Top:    s.Y,
		Right:  s.X + s.Width,
		Bottom: s.Y + s.Height,
	}
}

type PipelineRequest struct {
	SourceURL string
	Target    Dimensions
	Strategy  Strategy
}

func (r PipelineRequest) Validate() error {
	if !r.Strategy.Valid() {
		return Wrap(KindInput, "validate", fmt.Errorf("unsupported strategy: %q", r.Strategy))
	}
	if strings.TrimSpace(r.SourceURL) == "" {
		return Wrap(KindInput, "validate", errors.New("url is required"))
	}
	if _, err := url.Parse(r.SourceURL); err != nil {
		return Wrap(KindInput, "validate", fmt.Errorf("invalid url: %w", err))
	}
	if r.Target.Width <= 0 {
		return Wrap(KindGeometry, "validate", fmt.Errorf("%w: width must be positive, got %d", ErrInvalidDimensions, r.Target.Width))
	}
	if r.Target.Height <= 0 {
		return Wrap(KindGeometry, "validate", fmt.Errorf("%w: height must be positive, got %d", ErrInvalidDimensions, r.Target.Height))
	}
	return nil
}
