package id

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	hexToken := regexp.MustCompile(`^[0-9a-f]{8}$`)

	seen := make(map[string]struct{}, 256)
	for range 256 {
		v := New()
		assert.Regexp(t, hexToken, v)
		seen[v] = struct{}{}
	}
	assert.Greater(t, len(seen), 250)
}
