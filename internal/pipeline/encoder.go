package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/dunamismax/cropflow/internal/domain"
)

const DefaultJPEGQuality = 75

type Encoder interface {
	EncodeJPEG(img image.Image) ([]byte, error)
}

// JPEGEncoder coerces to RGB and encodes into memory. Alpha and palette data are lost.
type JPEGEncoder struct {
	Quality int
}

func (e JPEGEncoder) EncodeJPEG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}

	quality := e.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, domain.ToRGB(img), imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
