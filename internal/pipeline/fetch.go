package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dunamismax/cropflow/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	ErrSourceTooLarge    = errors.New("source exceeds size limit")
)

// Fetcher streams the resource behind source into dst.
type Fetcher interface {
	Fetch(ctx context.Context, source string, dst io.Writer) error
}

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.URL, e.Code)
}

type HTTPFetcherConfig struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

type HTTPFetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

func NewHTTPFetcher(cfg HTTPFetcherConfig) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = "cropflow/1.0"
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: timeout,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConnsPerHost:   8,
			},
		},
		maxBytes:  cfg.MaxBytes,
		userAgent: userAgent,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, source string, dst io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return domain.Wrap(domain.KindInput, "fetch", fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/*")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return &StatusError{URL: source, Code: resp.StatusCode}
	}

	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}

	n, err := io.Copy(dst, body)
	if err != nil {
		return fmt.Errorf("read body of %s: %w", source, err)
	}
	if f.maxBytes > 0 && n > f.maxBytes {
		return fmt.Errorf("%w: more than %d bytes", ErrSourceTooLarge, f.maxBytes)
	}
	return nil
}

// SchemeFetcher routes a source to the Fetcher registered for its URL scheme.
type SchemeFetcher struct {
	byScheme map[string]Fetcher
}

func NewSchemeFetcher() *SchemeFetcher {
	return &SchemeFetcher{byScheme: make(map[string]Fetcher)}
}

func (s *SchemeFetcher) Register(f Fetcher, schemes ...string) *SchemeFetcher {
	for _, scheme := range schemes {
		s.byScheme[normalizeScheme(scheme)] = f
	}
	return s
}

func (s *SchemeFetcher) Fetch(ctx context.Context, source string, dst io.Writer) error {
	u, err := url.Parse(source)
	if err != nil {
		return domain.Wrap(domain.KindInput, "fetch", fmt.Errorf("invalid url: %w", err))
	}

	f, ok := s.byScheme[normalizeScheme(u.Scheme)]
	if !ok {
		return domain.Wrap(domain.KindInput, "fetch", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme))
	}
	return f.Fetch(ctx, source, dst)
}

func normalizeScheme(scheme string) string {
	return strings.ToLower(strings.TrimSpace(scheme))
}
