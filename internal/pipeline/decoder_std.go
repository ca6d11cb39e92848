//go:build !govips || !cgo

package pipeline

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/dunamismax/cropflow/internal/domain"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type imagingDecoder struct {
	maxPixels int64
}

func (d imagingDecoder) Decode(ctx context.Context, path string) (domain.Image, error) {
	if err := ctx.Err(); err != nil {
		return domain.Image{}, err
	}

	if err := d.checkHeader(path); err != nil {
		return domain.Image{}, err
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return domain.Image{}, fmt.Errorf("decode source image: %w", err)
	}
	return domain.NewImage(img), nil
}

func (d imagingDecoder) checkHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open source image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("read image header: %w", err)
	}
	return checkPixelBudget(cfg.Width, cfg.Height, d.maxPixels)
}
