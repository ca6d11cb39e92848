package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dunamismax/cropflow/internal/domain"
	"github.com/dunamismax/cropflow/internal/geometry"
	"github.com/dunamismax/cropflow/internal/id"
	"github.com/dunamismax/cropflow/internal/saliency"
	"github.com/dunamismax/cropflow/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

type Config struct {
	TempDir     string
	JPEGQuality int
	// MaxPixels bounds width*height of a decoded source; zero means DefaultMaxPixels.
	MaxPixels   int64
}

type Result struct {
	Data        []byte
	Rect        domain.CropRectangle
	Source      domain.Dimensions
	Output      domain.Dimensions
	SourceBytes int64
}

type Decoder interface {
	Decode(ctx context.Context, path string) (domain.Image, error)
}

type Processor struct {
	cfg         Config
	fetcher     Fetcher
	decoder     Decoder
	detector    saliency.Detector
	transformer Transformer
	encoder     Encoder

	runs        map[domain.Strategy]telemetry.StageFunc[domain.PipelineRequest, Result]
	fetchStage  telemetry.StageFunc[fetchInput, int64]
	decodeStage telemetry.StageFunc[decodeInput, domain.Image]
	centerStage telemetry.StageFunc[planInput, domain.CropRectangle]
	windowStage telemetry.StageFunc[planInput, domain.Dimensions]
	detectStage telemetry.StageFunc[detectInput, domain.SaliencyResult]
	cropStage   telemetry.StageFunc[cropInput, domain.Image]
	encodeStage telemetry.StageFunc[encodeInput, []byte]
}

func NewProcessor(cfg Config, fetcher Fetcher, detector saliency.Detector, ins *telemetry.Instrumenter) (*Processor, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if detector == nil {
		detector = saliency.NewSmartcropDetector()
	}

	decoder, err := newDecoder(cfg.MaxPixels)
	if err != nil {
		return nil, fmt.Errorf("build decoder: %w", err)
	}

	p := &Processor{
		cfg:         cfg,
		fetcher:     fetcher,
		decoder:     decoder,
		detector:    detector,
		transformer: imagingTransformer{},
		encoder:     JPEGEncoder{Quality: cfg.JPEGQuality},
	}
	p.instrument(ins)
	return p, nil
}

func (p *Processor) instrument(ins *telemetry.Instrumenter) {
	p.runs = map[domain.Strategy]telemetry.StageFunc[domain.PipelineRequest, Result]{
		domain.StrategyResize:     telemetry.Instrument(ins, string(domain.StrategyResize), describeRequest, p.execute),
		domain.StrategyCenterCrop: telemetry.Instrument(ins, string(domain.StrategyCenterCrop), describeRequest, p.execute),
		domain.StrategySmartCrop:  telemetry.Instrument(ins, string(domain.StrategySmartCrop), describeRequest, p.execute),
	}
	p.fetchStage = telemetry.Instrument(ins, "file_download", describeFetch, p.fetch)
	p.decodeStage = telemetry.Instrument(ins, "decode", describeDecode, p.decode)
	p.centerStage = telemetry.Instrument(ins, "plan_center_crop", describePlan, p.planCenter)
	p.windowStage = telemetry.Instrument(ins, "plan_smart_crop_window", describePlan, p.planWindow)
	p.detectStage = telemetry.Instrument(ins, "detect_salient_region", describeDetect, p.detect)
	p.cropStage = telemetry.Instrument(ins, "crop_and_fit", describeCrop, p.cropAndFit)
	p.encodeStage = telemetry.Instrument(ins, "encode_jpeg", describeEncode, p.encode)
}

// Process runs one isolated pipeline invocation. No output is produced unless every
// stage succeeds, and the scratch directory is removed on every path.
func (p *Processor) Process(ctx context.Context, req domain.PipelineRequest) (Result, error) {
	run, ok := p.runs[req.Strategy]
	if !ok {
		return Result{}, req.Validate()
	}
	return run(ctx, req)
}

func (p *Processor) execute(ctx context.Context, req domain.PipelineRequest) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	dir, err := os.MkdirTemp(p.cfg.TempDir, "cropflow-")
	if err != nil {
		return Result{}, domain.Wrap(domain.KindInternal, "tempdir", fmt.Errorf("create scratch dir: %w", err))
	}
	defer removeScratch(ctx, dir)

	sourcePath := filepath.Join(dir, id.New())
	sourceBytes, err := p.fetchStage(ctx, fetchInput{URL: req.SourceURL, Path: sourcePath})
	if err != nil {
		return Result{}, fmt.Errorf("fetch stage: %w", err)
	}

	img, err := p.decodeStage(ctx, decodeInput{Path: sourcePath})
	if err != nil {
		return Result{}, fmt.Errorf("decode stage: %w", err)
	}

	rect, err := p.plan(ctx, req, img)
	if err != nil {
		return Result{}, fmt.Errorf("plan stage strategy=%s: %w", req.Strategy, err)
	}

	out, err := p.cropStage(ctx, cropInput{Image: img, Rect: rect, Target: req.Target})
	if err != nil {
		return Result{}, fmt.Errorf("crop stage: %w", err)
	}

	data, err := p.encodeStage(ctx, encodeInput{Image: out})
	if err != nil {
		return Result{}, fmt.Errorf("encode stage: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("strategy", string(req.Strategy)).
		Stringer("source", img.Dimensions()).
		Stringer("rect", rect).
		Stringer("output", out.Dimensions()).
		Int("bytes", len(data)).
		Msg("pipeline finished")

	return Result{
		Data:        data,
		Rect:        rect,
		Source:      img.Dimensions(),
		Output:      out.Dimensions(),
		SourceBytes: sourceBytes,
	}, nil
}

func (p *Processor) plan(ctx context.Context, req domain.PipelineRequest, img domain.Image) (domain.CropRectangle, error) {
	in := planInput{Source: img.Dimensions(), Target: req.Target}

	switch req.Strategy {
	case domain.StrategyResize:
		return geometry.FullFrame(in.Source)
	case domain.StrategyCenterCrop:
		return p.centerStage(ctx, in)
	case domain.StrategySmartCrop:
		window, err := p.windowStage(ctx, in)
		if err != nil {
			return domain.CropRectangle{}, err
		}
		found, err := p.detectStage(ctx, detectInput{Image: img, Window: window})
		if err != nil {
			return domain.CropRectangle{}, err
		}
		return found.Rectangle(), nil
	default:
		return domain.CropRectangle{}, domain.Wrap(domain.KindInput, "plan", fmt.Errorf("unsupported strategy: %q", req.Strategy))
	}
}

func (p *Processor) fetch(ctx context.Context, in fetchInput) (int64, error) {
	f, err := os.OpenFile(in.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, domain.Wrap(domain.KindInternal, "fetch", fmt.Errorf("create scratch file: %w", err))
	}

	sink := &countingWriter{w: f}
	fetchErr := p.fetcher.Fetch(ctx, in.URL, sink)
	closeErr := f.Close()
	if fetchErr != nil {
		return 0, domain.Wrap(domain.KindFetch, "fetch", fetchErr)
	}
	if closeErr != nil {
		return 0, domain.Wrap(domain.KindFetch, "fetch", fmt.Errorf("flush scratch file: %w", closeErr))
	}

	zerolog.Ctx(ctx).Debug().Str("url", in.URL).Int64("bytes", sink.n).Msg("source downloaded")
	return sink.n, nil
}

func (p *Processor) decode(ctx context.Context, in decodeInput) (domain.Image, error) {
	img, err := p.decoder.Decode(ctx, in.Path)
	if err != nil {
		return domain.Image{}, domain.Wrap(domain.KindDecode, "decode", err)
	}
	if !img.Dimensions().Positive() {
		return domain.Image{}, domain.Wrap(domain.KindDecode, "decode", fmt.Errorf("%w: decoded %s", domain.ErrInvalidDimensions, img.Dimensions()))
	}
	return img, nil
}

func (p *Processor) planCenter(_ context.Context, in planInput) (domain.CropRectangle, error) {
	return geometry.PlanCenterCrop(in.Source, in.Target)
}

func (p *Processor) planWindow(_ context.Context, in planInput) (domain.Dimensions, error) {
	return geometry.PlanSmartCropWindow(in.Source, in.Target)
}

func (p *Processor) detect(ctx context.Context, in detectInput) (domain.SaliencyResult, error) {
	res, err := p.detector.Detect(ctx, in.Image.Image, in.Window)
	if err != nil {
		return domain.SaliencyResult{}, domain.Wrap(domain.KindSaliency, "detect", err)
	}
	return res, nil
}

func (p *Processor) cropAndFit(_ context.Context, in cropInput) (domain.Image, error) {
	out, err := p.transformer.CropAndFit(in.Image.Image, in.Rect, in.Target)
	if err != nil {
		return domain.Image{}, domain.Wrap(domain.KindTransform, "crop_and_fit", err)
	}
	return domain.NewImage(out), nil
}

func (p *Processor) encode(_ context.Context, in encodeInput) ([]byte, error) {
	data, err := p.encoder.EncodeJPEG(in.Image.Image)
	if err != nil {
		return nil, domain.Wrap(domain.KindEncode, "encode", err)
	}
	return data, nil
}

func removeScratch(ctx context.Context, dir string) {
	if err := os.RemoveAll(dir); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("dir", dir).Msg("could not clean up scratch dir")
	}
}

type fetchInput struct {
	URL  string
	Path string
}

type decodeInput struct {
	Path string
}

type planInput struct {
	Source domain.Dimensions
	Target domain.Dimensions
}

type detectInput struct {
	Image  domain.Image
	Window domain.Dimensions
}

type cropInput struct {
	Image  domain.Image
	Rect   domain.CropRectangle
	Target domain.Dimensions
}

type encodeInput struct {
	Image domain.Image
}

func describeRequest(req domain.PipelineRequest) []attribute.KeyValue {
	return []attribute.KeyValue{
		telemetry.Arg("url", req.SourceURL),
		telemetry.Arg("width", req.Target.Width),
		telemetry.Arg("height", req.Target.Height),
	}
}

func describeFetch(in fetchInput) []attribute.KeyValue {
	return []attribute.KeyValue{
		telemetry.Arg("url", in.URL),
		telemetry.Arg("target_path", in.Path),
	}
}

func describeDecode(in decodeInput) []attribute.KeyValue {
	return []attribute.KeyValue{telemetry.Arg("path", in.Path)}
}

func describePlan(in planInput) []attribute.KeyValue {
	return []attribute.KeyValue{
		telemetry.Arg("source", in.Source),
		telemetry.Arg("width", in.Target.Width),
		telemetry.Arg("height", in.Target.Height),
	}
}

func describeDetect(in detectInput) []attribute.KeyValue {
	return []attribute.KeyValue{
		telemetry.Arg("image", in.Image),
		telemetry.Arg("window", in.Window),
	}
}

func describeCrop(in cropInput) []attribute.KeyValue {
	return []attribute.KeyValue{
		telemetry.Arg("image", in.Image),
		telemetry.Arg("rect", in.Rect),
		telemetry.Arg("width", in.Target.Width),
		telemetry.Arg("height", in.Target.Height),
	}
}

func describeEncode(in encodeInput) []attribute.KeyValue {
	return []attribute.KeyValue{telemetry.Arg("image", in.Image)}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	m, err := c.w.Write(p)
	c.n += int64(m)
	return m, err
}
