package pipeline

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/dunamismax/cropflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCropAndFitNeverUpscales(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tr := imagingTransformer{}

	for i := 0; i < 200; i++ {
		src := domain.Dimensions{Width: 1 + rng.Intn(300), Height: 1 + rng.Intn(300)}
		target := domain.Dimensions{Width: 1 + rng.Intn(200), Height: 1 + rng.Intn(200)}
		img := image.NewRGBA(image.Rect(0, 0, src.Width, src.Height))

		left, top := rng.Intn(src.Width), rng.Intn(src.Height)
		rect := domain.CropRectangle{
			Left:   left,
			Top:    top,
			Right:  left + 1 + rng.Intn(src.Width-left),
			Bottom: top + 1 + rng.Intn(src.Height-top),
		}

		out, err := tr.CropAndFit(img, rect, target)
		require.NoError(t, err)

		b := out.Bounds()
		require.LessOrEqualf(t, b.Dx(), target.Width, "src=%s rect=%s target=%s", src, rect, target)
		require.LessOrEqualf(t, b.Dy(), target.Height, "src=%s rect=%s target=%s", src, rect, target)
		require.LessOrEqual(t, b.Dx(), rect.Width())
		require.LessOrEqual(t, b.Dy(), rect.Height())
		require.Positive(t, b.Dx())
		require.Positive(t, b.Dy())
	}
}

func TestCropAndFitIsPixelExact(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	marker := color.RGBA{R: 255, A: 255}
	for y := 5; y < 15; y++ {
		for x := 10; x < 30; x++ {
			img.SetRGBA(x, y, marker)
		}
	}

	out, err := imagingTransformer{}.CropAndFit(img, domain.CropRectangle{Left: 10, Top: 5, Right: 30, Bottom: 15}, domain.Dimensions{Width: 100, Height: 100})
	require.NoError(t, err)

	b := out.Bounds()
	assert.Equal(t, 20, b.Dx())
	assert.Equal(t, 10, b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := out.At(x, y).RGBA()
			require.Equal(t, [4]uint32{0xffff, 0, 0, 0xffff}, [4]uint32{r, g, bl, a}, "pixel %d,%d", x, y)
		}
	}
}

func TestCropAndFitPreservesAspect(t *testing.T) {
	img := buildTestImage(1000, 500)

	out, err := imagingTransformer{}.CropAndFit(img, domain.CropRectangle{Left: 250, Right: 750, Bottom: 500}, domain.Dimensions{Width: 100, Height: 100})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 100), out.Bounds())

	out, err = imagingTransformer{}.CropAndFit(img, domain.CropRectangle{Right: 1000, Bottom: 500}, domain.Dimensions{Width: 100, Height: 100})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 50), out.Bounds())
}

func TestCropAndFitHandlesOffsetBounds(t *testing.T) {
	base := buildTestImage(100, 100)
	sub := base.SubImage(image.Rect(50, 50, 100, 100))

	out, err := imagingTransformer{}.CropAndFit(sub, domain.CropRectangle{Left: 0, Top: 0, Right: 10, Bottom: 10}, domain.Dimensions{Width: 10, Height: 10})
	require.NoError(t, err)
	wr, wg, wb, wa := base.At(50, 50).RGBA()
	gr, gg, gb, ga := out.At(0, 0).RGBA()
	assert.Equal(t, [4]uint32{wr, wg, wb, wa}, [4]uint32{gr, gg, gb, ga})
}

func TestCropAndFitRejectsRectOutsideImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))

	_, err := imagingTransformer{}.CropAndFit(img, domain.CropRectangle{Left: 10, Top: 0, Right: 60, Bottom: 50}, domain.Dimensions{Width: 10, Height: 10})
	assert.ErrorIs(t, err, domain.ErrRectOutOfBounds)

	_, err = imagingTransformer{}.CropAndFit(img, domain.CropRectangle{Right: 50, Bottom: 50}, domain.Dimensions{Width: 10, Height: 0})
	assert.True(t, domain.IsKind(err, domain.KindGeometry))
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name             string
		w, h, maxW, maxH int
		wantW, wantH     int
	}{
		{"already fits", 80, 40, 100, 100, 80, 40},
		{"landscape", 500, 250, 100, 100, 100, 50},
		{"portrait", 300, 900, 100, 100, 33, 100},
		{"exact", 400, 200, 200, 100, 200, 100},
		{"sliver keeps a pixel", 1000, 1, 10, 10, 10, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, h := fitWithin(tc.w, tc.h, tc.maxW, tc.maxH)
			assert.Equal(t, tc.wantW, w)
			assert.Equal(t, tc.wantH, h)
		})
	}
}
