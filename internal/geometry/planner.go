// Package geometry computes crop rectangles that match a target aspect ratio.
//
// Offsets are floored exactly once and the far edge is derived from the near edge plus
// the cropped span, so both edges always move together and the span never drifts by a
// pixel.
package geometry

import (
	"fmt"
	"math"

	"github.com/dunamismax/cropflow/internal/domain"
)

// PlanCenterCrop returns the largest rectangle centered on src whose aspect ratio matches
// target. When src is relatively wider the width is trimmed, otherwise the height.
func PlanCenterCrop(src, target domain.Dimensions) (domain.CropRectangle, error) {
	if err := validate(src, target); err != nil {
		return domain.CropRectangle{}, err
	}

	window := planWindow(src, target)
	if window.Width < src.Width {
		left := int(math.Floor(float64(src.Width-window.Width) / 2))
		return domain.CropRectangle{
			Left:   left,
			Top:    0,
			Right:  left + window.Width,
			Bottom: src.Height,
		}, nil
	}

	top := int(math.Floor(float64(src.Height-window.Height) / 2))
	return domain.CropRectangle{
		Left:   0,
		Top:    top,
		Right:  src.Width,
		Bottom: top + window.Height,
	}, nil
}

// PlanSmartCropWindow returns the size of the window handed to the saliency detector.
// Its position is chosen by the detector.
func PlanSmartCropWindow(src, target domain.Dimensions) (domain.Dimensions, error) {
	if err := validate(src, target); err != nil {
		return domain.Dimensions{}, err
	}
	return planWindow(src, target), nil
}

// FullFrame is the rectangle covering all of src.
func FullFrame(src domain.Dimensions) (domain.CropRectangle, error) {
	if !src.Positive() {
		return domain.CropRectangle{}, domain.Wrap(domain.KindGeometry, "full_frame",
			fmt.Errorf("%w: source %s", domain.ErrInvalidDimensions, src))
	}
	return domain.CropRectangle{Right: src.Width, Bottom: src.Height}, nil
}

func planWindow(src, target domain.Dimensions) domain.Dimensions {
	srcAspect := src.Aspect()
	targetAspect := target.Aspect()

	if srcAspect > targetAspect {
		newWidth := int(math.Floor(targetAspect * float64(src.Height)))
		return domain.Dimensions{Width: clampSpan(newWidth, src.Width), Height: src.Height}
	}

	// Equal aspects land here and produce the full frame.
	newHeight := int(math.Floor(float64(src.Width) / targetAspect))
	return domain.Dimensions{Width: src.Width, Height: clampSpan(newHeight, src.Height)}
}

// clampSpan keeps at least one pixel so extreme ratios never yield an empty crop.
func clampSpan(span, limit int) int {
	if span < 1 {
		return 1
	}
	if span > limit {
		return limit
	}
	return span
}

func validate(src, target domain.Dimensions) error {
	if !src.Positive() {
		return domain.Wrap(domain.KindGeometry, "plan",
			fmt.Errorf("%w: source %s", domain.ErrInvalidDimensions, src))
	}
	if !target.Positive() {
		return domain.Wrap(domain.KindGeometry, "plan",
			fmt.Errorf("%w: target %s", domain.ErrInvalidDimensions, target))
	}
	return nil
}
