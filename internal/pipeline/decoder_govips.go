//go:build govips && cgo

package pipeline

import (
	"context"
	"fmt"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/dunamismax/cropflow/internal/domain"
)

// govipsDecoder loads through libvips, which adds HEIF/AVIF/JPEG XL inputs, and
// applies the EXIF orientation before handing pixels to the Go pipeline.
type govipsDecoder struct {
	maxPixels int64
}

func (d govipsDecoder) Decode(ctx context.Context, path string) (domain.Image, error) {
	if err := ctx.Err(); err != nil {
		return domain.Image{}, err
	}

	ref, err := vips.NewImageFromFile(path)
	if err != nil {
		return domain.Image{}, fmt.Errorf("decode source image: %w", err)
	}
	defer ref.Close()

	if err := checkPixelBudget(ref.Width(), ref.Height(), d.maxPixels); err != nil {
		return domain.Image{}, err
	}

	if err := ref.AutoRotate(); err != nil {
		return domain.Image{}, fmt.Errorf("auto-rotate source image: %w", err)
	}

	img, err := ref.ToImage(vips.NewDefaultExportParams())
	if err != nil {
		return domain.Image{}, fmt.Errorf("convert source image: %w", err)
	}
	return domain.NewImage(img), nil
}
