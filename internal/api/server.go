package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dunamismax/cropflow/internal/domain"
	"github.com/dunamismax/cropflow/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"go.opentelemetry.io/otel/trace"
)

const (
	ResizeModeCrop = "crop"
	ResizeModeFit  = "fit"

	readyTimeout = 3 * time.Second
)

type processor interface {
	Process(ctx context.Context, req domain.PipelineRequest) (pipeline.Result, error)
}

// Checker reports whether a backing dependency is usable.
type Checker interface {
	Ready(ctx context.Context) error
}

type Options struct {
	Logger     zerolog.Logger
	Tracer     trace.Tracer
	Registry   *prometheus.Registry
	ResizeMode string
	Checks     map[string]Checker
}

type Server struct {
	logger     zerolog.Logger
	processor  processor
	tracer     trace.Tracer
	metrics    *metrics
	resizeMode string
	checks     map[string]Checker
	mux        *http.ServeMux
}

func NewServer(p processor, opts Options) *Server {
	mode := strings.ToLower(strings.TrimSpace(opts.ResizeMode))
	if mode == "" {
		mode = ResizeModeCrop
	}

	s := &Server{
		logger:     opts.Logger,
		processor:  p,
		tracer:     opts.Tracer,
		metrics:    newMetrics(opts.Registry),
		resizeMode: mode,
		checks:     opts.Checks,
		mux:        http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the mux wrapped in logging, tracing and metrics middleware.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = s.metrics.withHTTPMetrics(h)
	h = s.withTracing(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(h)
	h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
	h = hlog.NewHandler(s.logger)(h)
	return h
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
	s.mux.HandleFunc("GET /resize", s.handleTransform(s.resizeStrategy()))
	s.mux.HandleFunc("GET /crop", s.handleTransform(domain.StrategyCenterCrop))
	s.mux.HandleFunc("GET /smartcrop", s.handleTransform(domain.StrategySmartCrop))
}

func (s *Server) resizeStrategy() domain.Strategy {
	if s.resizeMode == ResizeModeFit {
		return domain.StrategyResize
	}
	return domain.StrategyCenterCrop
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	deps := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.checks[name].Ready(ctx); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Str("dependency", name).Msg("readiness check failed")
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "unavailable"
	}
	writeJSON(w, status, map[string]any{"status": state, "dependencies": deps})
}

func (s *Server) handleTransform(strategy domain.Strategy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseRequest(r.URL.Query(), strategy)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		res, err := s.processor.Process(r.Context(), req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		h := w.Header()
		h.Set("Content-Type", "image/jpeg")
		h.Set("Content-Length", strconv.Itoa(len(res.Data)))
		h.Set("Cache-Control", "no-store")
		h.Set("X-Crop-Rect", res.Rect.String())
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(res.Data); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("write response body")
		}
	}
}

func parseRequest(q url.Values, strategy domain.Strategy) (domain.PipelineRequest, error) {
	source := strings.TrimSpace(q.Get("url"))
	if source == "" {
		return domain.PipelineRequest{}, domain.Wrap(domain.KindInput, "parse", errors.New("url is required"))
	}

	width, err := parseDimension(q, "width")
	if err != nil {
		return domain.PipelineRequest{}, err
	}
	height, err := parseDimension(q, "height")
	if err != nil {
		return domain.PipelineRequest{}, err
	}

	req := domain.PipelineRequest{
		SourceURL: source,
		Target:    domain.Dimensions{Width: width, Height: height},
		Strategy:  strategy,
	}
	return req, req.Validate()
}

func parseDimension(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, domain.Wrap(domain.KindInput, "parse", fmt.Errorf("%s is required", name))
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Wrap(domain.KindInput, "parse", fmt.Errorf("%s must be an integer: %q", name, raw))
	}
	return v, nil
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindInput, domain.KindGeometry:
		return http.StatusBadRequest
	case domain.KindFetch:
		return http.StatusBadGateway
	case domain.KindDecode, domain.KindSaliency:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)

	event := hlog.FromRequest(r).Warn()
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		event = hlog.FromRequest(r).Error()
	}
	var de *domain.Error
	if errors.As(err, &de) {
		event = event.Str("op", de.Op)
	}
	event.Err(err).Str("kind", string(kind)).Int("status", status).Msg("request failed")

	body := map[string]any{
		"error": err.Error(),
		"kind":  string(kind),
	}
	var statusErr *pipeline.StatusError
	if errors.As(err, &statusErr) {
		body["upstream_status"] = statusErr.Code
	}
	if status == http.StatusInternalServerError {
		body["error"] = http.StatusText(status)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
