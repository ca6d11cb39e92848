package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/dunamismax/cropflow/internal/domain"
)

const SchemeS3 = "s3"

type objectDownloader interface {
	Bucket() string
	Download(ctx context.Context, bucket, objectKey string, dst io.Writer) error
}

// ObjectStoreFetcher reads s3://bucket/key sources. An empty bucket (s3:///key) selects
// the configured default bucket.
type ObjectStoreFetcher struct {
	Storage  objectDownloader
	Timeout  time.Duration
	MaxBytes int64
}

func (f ObjectStoreFetcher) Fetch(ctx context.Context, source string, dst io.Writer) error {
	if f.Storage == nil {
		return errors.New("storage client is required")
	}

	bucket, key, err := parseObjectURL(source)
	if err != nil {
		return domain.Wrap(domain.KindInput, "fetch", err)
	}
	if bucket == "" {
		bucket = f.Storage.Bucket()
	}

	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	if f.MaxBytes > 0 {
		dst = &limitedWriter{w: dst, remaining: f.MaxBytes, limit: f.MaxBytes}
	}
	if err := f.Storage.Download(ctx, bucket, key, dst); err != nil {
		return fmt.Errorf("download %s/%s: %w", bucket, key, err)
	}
	return nil
}

// limitedWriter fails once more than limit bytes have been written.
type limitedWriter struct {
	w         io.Writer
	remaining int64
	limit     int64
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if int64(len(p)) > l.remaining {
		return 0, fmt.Errorf("%w: more than %d bytes", ErrSourceTooLarge, l.limit)
	}
	n, err := l.w.Write(p)
	l.remaining -= int64(n)
	return n, err
}

func parseObjectURL(source string) (bucket, key string, err error) {
	u, err := url.Parse(source)
	if err != nil {
		return "", "", fmt.Errorf("invalid url: %w", err)
	}
	if normalizeScheme(u.Scheme) != SchemeS3 {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", errors.New("object key is required")
	}
	return u.Host, key, nil
}
