package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestConfigAddr(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "defaults", cfg: Config{}, want: "localhost:6379"},
		{name: "explicit", cfg: Config{Host: "cache.internal", Port: 6380}, want: "cache.internal:6380"},
		{name: "ipv6", cfg: Config{Host: "::1", Port: 6379}, want: "[::1]:6379"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cfg.Addr())
		})
	}
}

func TestReadyReportsUnreachableServer(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := newClientFrom(rdb)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.Error(t, c.Ready(ctx))
}
