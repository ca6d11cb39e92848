package pipeline

import (
	"bytes"
	"image"
	"image/color"
	_ "image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeJPEGIsDeterministic(t *testing.T) {
	img := buildTestImage(64, 48)
	enc := JPEGEncoder{}

	first, err := enc.EncodeJPEG(img)
	require.NoError(t, err)
	second, err := enc.EncodeJPEG(img)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEncodeJPEGFlattensAlphaAndPalette(t *testing.T) {
	transparent := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	transparent.SetNRGBA(3, 3, color.NRGBA{R: 10, G: 20, B: 30, A: 40})
	paletted := image.NewPaletted(image.Rect(0, 0, 16, 16), color.Palette{color.Black, color.White})
	gray := image.NewGray(image.Rect(0, 0, 16, 16))

	for name, img := range map[string]image.Image{"nrgba": transparent, "paletted": paletted, "gray": gray} {
		t.Run(name, func(t *testing.T) {
			data, err := JPEGEncoder{Quality: 90}.EncodeJPEG(img)
			require.NoError(t, err)

			cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, "jpeg", format)
			assert.Equal(t, 16, cfg.Width)
			assert.Equal(t, color.YCbCrModel, cfg.ColorModel, "output is three-channel")
		})
	}
}

func TestEncodeJPEGQualityDefaults(t *testing.T) {
	img := buildTestImage(128, 128)

	def, err := JPEGEncoder{}.EncodeJPEG(img)
	require.NoError(t, err)
	explicit, err := JPEGEncoder{Quality: DefaultJPEGQuality}.EncodeJPEG(img)
	require.NoError(t, err)
	outOfRange, err := JPEGEncoder{Quality: 500}.EncodeJPEG(img)
	require.NoError(t, err)

	assert.Equal(t, explicit, def)
	assert.Equal(t, explicit, outOfRange)
}

func TestEncodeJPEGRejectsNil(t *testing.T) {
	_, err := JPEGEncoder{}.EncodeJPEG(nil)
	assert.Error(t, err)
}
