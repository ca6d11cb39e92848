package pipeline

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/dunamismax/cropflow/internal/domain"
)

type Transformer interface {
	CropAndFit(img image.Image, rect domain.CropRectangle, target domain.Dimensions) (image.Image, error)
}

// imagingTransformer hard-crops to rect and then scales down with Lanczos so the result
// fits inside target. It never upscales.
type imagingTransformer struct{}

func (imagingTransformer) CropAndFit(img image.Image, rect domain.CropRectangle, target domain.Dimensions) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	if !target.Positive() {
		return nil, domain.Wrap(domain.KindGeometry, "crop_and_fit", fmt.Errorf("%w: target %s", domain.ErrInvalidDimensions, target))
	}

	bounds := img.Bounds()
	src := domain.Dimensions{Width: bounds.Dx(), Height: bounds.Dy()}
	if !rect.Within(src) {
		return nil, fmt.Errorf("%w: %s in %s", domain.ErrRectOutOfBounds, rect, src)
	}

	cropped := imaging.Crop(img, rect.Rect().Add(bounds.Min))

	width, height := fitWithin(rect.Width(), rect.Height(), target.Width, target.Height)
	if width == rect.Width() && height == rect.Height() {
		return cropped, nil
	}
	return imaging.Resize(cropped, width, height, imaging.Lanczos), nil
}

// fitWithin scales (w, h) down by a single factor so neither side exceeds the bounds.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}

	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := clamp(int(math.Round(float64(w)*scale)), 1, maxW)
	nh := clamp(int(math.Round(float64(h)*scale)), 1, maxH)
	return nw, nh
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
