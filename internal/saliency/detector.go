// Package saliency finds the most visually important window of a given size in an image.
package saliency

import (
	"context"
	"fmt"
	"image"

	"github.com/artyom/smartcrop"
	"github.com/dunamismax/cropflow/internal/domain"
)

type Detector interface {
	Detect(ctx context.Context, img image.Image, window domain.Dimensions) (domain.SaliencyResult, error)
}

type finder func(img image.Image, width, height int) (image.Rectangle, error)

// SmartcropDetector scores candidate windows on edges, skin tones and saturation.
// Input is always coerced to RGB first since the scoring assumes three color channels.
type SmartcropDetector struct {
	find finder
}

func NewSmartcropDetector() *SmartcropDetector {
	return &SmartcropDetector{find: smartcrop.SmartCrop}
}

func (d *SmartcropDetector) Detect(ctx context.Context, img image.Image, window domain.Dimensions) (domain.SaliencyResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.SaliencyResult{}, err
	}
	if img == nil {
		return domain.SaliencyResult{}, fail(fmt.Errorf("nil image"))
	}

	bounds := img.Bounds()
	src := domain.Dimensions{Width: bounds.Dx(), Height: bounds.Dy()}
	if !window.Positive() {
		return domain.SaliencyResult{}, fail(fmt.Errorf("%w: window %s", domain.ErrInvalidDimensions, window))
	}
	if window.Width > src.Width || window.Height > src.Height {
		return domain.SaliencyResult{}, fail(fmt.Errorf("%w: window %s, image %s", domain.ErrWindowTooLarge, window, src))
	}

	rgb := domain.ToRGB(img)
	found, err := d.find(rgb, window.Width, window.Height)
	if err != nil {
		return domain.SaliencyResult{}, fail(fmt.Errorf("find best crop: %w", err))
	}

	found = found.Sub(rgb.Bounds().Min)
	result := domain.SaliencyResult{
		X:      found.Min.X,
		Y:      found.Min.Y,
		Width:  found.Dx(),
		Height: found.Dy(),
	}
	if !result.Rectangle().Within(src) {
		return domain.SaliencyResult{}, fail(fmt.Errorf("%w: detector returned %s for image %s",
			domain.ErrRectOutOfBounds, result.Rectangle(), src))
	}
	return result, nil
}

func fail(err error) error {
	return domain.Wrap(domain.KindSaliency, "detect", err)
}
