package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const argPrefix = "arguments."

// Instrumenter opens one span per stage call and records how long the stage took.
type Instrumenter struct {
	tracer    trace.Tracer
	durations *prometheus.HistogramVec
}

// NewInstrumenter builds an Instrumenter. A nil registerer skips the duration histogram.
func NewInstrumenter(tracer trace.Tracer, reg prometheus.Registerer) *Instrumenter {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	ins := &Instrumenter{tracer: tracer}
	if reg != nil {
		ins.durations = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cropflow_pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage call.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage", "outcome"})
		reg.MustRegister(ins.durations)
	}
	return ins
}

func Nop() *Instrumenter {
	return NewInstrumenter(nil, nil)
}

// StageFunc is the shape every pipeline stage is adapted to. Stages with several
// arguments bundle them in In.
type StageFunc[In, Out any] func(ctx context.Context, in In) (Out, error)

// Instrument wraps fn so each call runs inside a span called name. describe turns the
// input into span attributes; it may be nil. Arguments, results and errors pass through
// untouched, and the span is ended on every exit path, panics included.
func Instrument[In, Out any](ins *Instrumenter, name string, describe func(In) []attribute.KeyValue, fn StageFunc[In, Out]) StageFunc[In, Out] {
	if ins == nil {
		ins = Nop()
	}

	return func(ctx context.Context, in In) (out Out, err error) {
		ctx, span := ins.tracer.Start(ctx, name)
		started := time.Now()

		defer func() {
			if r := recover(); r != nil {
				span.SetStatus(codes.Error, fmt.Sprintf("panic: %v", r))
				ins.observe(name, "panic", started)
				span.End()
				panic(r)
			}

			outcome := "ok"
			if err != nil {
				outcome = "error"
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			ins.observe(name, outcome, started)
			span.End()
		}()

		if describe != nil {
			span.SetAttributes(describe(in)...)
		}
		return fn(ctx, in)
	}
}

func (ins *Instrumenter) observe(stage, outcome string, started time.Time) {
	if ins.durations == nil {
		return
	}
	ins.durations.WithLabelValues(stage, outcome).Observe(time.Since(started).Seconds())
}

// Arg records one stage argument. Scalars keep their type; anything else is recorded
// through its String method or its %v form.
func Arg(name string, value any) attribute.KeyValue {
	key := argPrefix + name

	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case float32:
		return attribute.Float64(key, float64(v))
	case []byte:
		return attribute.String(key, string(v))
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
