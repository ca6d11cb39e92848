package pipeline

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func buildTestImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / w),
				G: uint8((y * 255) / h),
				B: 140,
				A: 255,
			})
		}
	}
	return img
}

func buildTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, buildTestImage(w, h)); err != nil {
		t.Fatalf("encode source png: %v", err)
	}
	return buf.Bytes()
}
