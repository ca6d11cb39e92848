package domain

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

type ColorMode string

const (
	ModeRGB     ColorMode = "RGB"
	ModeRGBA    ColorMode = "RGBA"
	ModeGray    ColorMode = "L"
	ModePalette ColorMode = "P"
	ModeCMYK    ColorMode = "CMYK"
	ModeOther   ColorMode = "other"
)

// Image is a decoded raster owned by a single pipeline run.
type Image struct {
	image.Image
}

func NewImage(img image.Image) Image {
	return Image{Image: img}
}

func (i Image) Mode() ColorMode {
	return ModeOf(i.Image)
}

func (i Image) Dimensions() Dimensions {
	b := i.Bounds()
	return Dimensions{Width: b.Dx(), Height: b.Dy()}
}

func (i Image) String() string {
	if i.Image == nil {
		return "image <nil>"
	}
	return fmt.Sprintf("image mode=%s size=%s", i.Mode(), i.Dimensions())
}

type opaquer interface {
	Opaque() bool
}

func ModeOf(img image.Image) ColorMode {
	switch v := img.(type) {
	case nil:
		return ModeOther
	case *image.YCbCr:
		return ModeRGB
	case *image.Gray, *image.Gray16:
		return ModeGray
	case *image.Paletted:
		return ModePalette
	case *image.CMYK:
		return ModeCMYK
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		if v.(opaquer).Opaque() {
			return ModeRGB
		}
		return ModeRGBA
	default:
		return ModeOther
	}
}

// ToRGB returns img unchanged when it is already RGB; otherwise it converts to an opaque
// NRGBA raster, discarding any alpha channel rather than compositing it.
func ToRGB(img image.Image) image.Image {
	if ModeOf(img) == ModeRGB {
		return img
	}
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
