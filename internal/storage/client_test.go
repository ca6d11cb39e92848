package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	c, err := NewClient(Config{Endpoint: "localhost:9000", Access: "a", Secret: "b", Bucket: "images"})
	require.NoError(t, err)
	assert.Equal(t, "images", c.Bucket())

	_, err = NewClient(Config{Endpoint: "localhost:9000", Bucket: "  "})
	assert.Error(t, err)
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{Endpoint: "minio:9000"}.Enabled())
}
