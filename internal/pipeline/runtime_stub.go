//go:build !govips || !cgo

package pipeline

func Startup() error {
	return nil
}

func Shutdown() {}

func newDecoder(maxPixels int64) (Decoder, error) {
	return imagingDecoder{maxPixels: maxPixels}, nil
}
