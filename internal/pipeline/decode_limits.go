package pipeline

import (
	"fmt"

	"github.com/dunamismax/cropflow/internal/domain"
)

// DefaultMaxPixels caps the decoded area of a source image (50 MP).
const DefaultMaxPixels int64 = 50_000_000

// checkPixelBudget runs against header dimensions, before any pixel buffer exists.
func checkPixelBudget(width, height int, maxPixels int64) error {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: header declares %dx%d", domain.ErrInvalidDimensions, width, height)
	}
	if area := int64(width) * int64(height); area > maxPixels {
		return fmt.Errorf("%w: %dx%d is %d pixels, limit %d", domain.ErrImageTooLarge, width, height, area, maxPixels)
	}
	return nil
}
