package id

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/gofrs/uuid/v5"
)

// New returns a short random token used to name scratch files and requests.
func New() string {
	u, err := uuid.NewV4()
	if err != nil {
		var b [8]byte
		if _, err := rand.Read(b[:]); err != nil {
			return "scratch"
		}
		return hex.EncodeToString(b[:])
	}
	return hex.EncodeToString(u.Bytes())[:8]
}
