//go:build govips && cgo

package pipeline

import (
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/rs/zerolog/log"
)

var (
	vipsOnce   sync.Once
	vipsMu     sync.Mutex
	vipsActive bool
)

// Startup brings libvips up once per process. Decoded pixels are copied out of
// libvips immediately, so a small operation cache is enough.
func Startup() error {
	vipsOnce.Do(func() {
		vips.LoggingSettings(logVips, vips.LogLevelWarning)
		vips.Startup(&vips.Config{
			ConcurrencyLevel: 1,
			MaxCacheFiles:    0,
			MaxCacheMem:      64 * 1024 * 1024,
			MaxCacheSize:     50,
		})

		vipsMu.Lock()
		vipsActive = true
		vipsMu.Unlock()
	})
	return nil
}

func Shutdown() {
	vipsMu.Lock()
	defer vipsMu.Unlock()
	if !vipsActive {
		return
	}
	vips.Shutdown()
	vipsActive = false
}

func logVips(domain string, level vips.LogLevel, message string) {
	event := log.Debug()
	switch level {
	case vips.LogLevelError, vips.LogLevelCritical:
		event = log.Error()
	case vips.LogLevelWarning:
		event = log.Warn()
	}
	event.Str("component", "vips").Str("domain", domain).Msg(message)
}

func newDecoder(maxPixels int64) (Decoder, error) {
	if err := Startup(); err != nil {
		return nil, err
	}
	return govipsDecoder{maxPixels: maxPixels}, nil
}
