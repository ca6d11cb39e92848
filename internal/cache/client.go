package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Host     string
	Port     int
	DB       int
	Password string
}

func (c Config) Addr() string {
	host := strings.TrimSpace(c.Host)
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port <= 0 {
		port = 6379
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Client is the key-value handle carried by the process. Transformed images are
// never stored in it; only readiness touches the connection.
type Client struct {
	rdb redis.UniversalClient
}

func NewClient(cfg Config) *Client {
	return &Client{rdb: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
}

func newClientFrom(rdb redis.UniversalClient) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) Ready(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
