package flow

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/censorgate/audit"
	"github.com/BaSui01/censorgate/cache"
	"github.com/BaSui01/censorgate/censor"
	"github.com/BaSui01/censorgate/internal/metrics"
	"github.com/BaSui01/censorgate/internal/telemetry"
	"github.com/BaSui01/censorgate/ratelimit"
	"github.com/BaSui01/censorgate/types"
)

// ReasonDuplicateInFlight is the canonical reason attached to the
// provisional verdict returned for a concurrent duplicate submission.
// Duplicates do not block waiting for the in-flight evaluation; they get an
// immediate fail-closed review verdict instead.
const ReasonDuplicateInFlight = "duplicate request in flight"

// ReasonImageCensorDisabled marks image submissions received while image
// censoring is switched off.
const ReasonImageCensorDisabled = "image censoring disabled"

// DefaultAuditWindow is the per-fingerprint audit dedup window.
const DefaultAuditWindow = 5 * time.Minute

// DefaultDetectTimeout bounds each upstream adapter call.
const DefaultDetectTimeout = 10 * time.Second

// Options configures a Flow.
type Options struct {
	// TextChain is the ordered fallback chain for text submissions.
	// Required.
	TextChain []censor.Detector
	// ImageChain is the ordered fallback chain for image submissions.
	// Required when EnableImage is set.
	ImageChain []censor.Detector

	// Results is the verdict cache. Required.
	Results *cache.ResultCache
	// Coalescer tracks in-flight fingerprints. Required.
	Coalescer *cache.Coalescer

	// Audit receives non-clean verdicts when EnableAudit is set.
	Audit       audit.Logger
	EnableAudit bool
	// AuditWindow deduplicates audit writes per fingerprint.
	AuditWindow time.Duration

	// EnableImage switches image submissions on.
	EnableImage bool

	// DetectTimeout bounds each adapter call.
	DetectTimeout time.Duration

	// Metrics is optional; nil disables collection.
	Metrics *metrics.Collector

	Logger *zap.Logger
}

// Flow orchestrates submissions end to end. A well-formed submission always
// completes with a CensorResult; the worst case is a review verdict, never
// an error and never a silent pass.
type Flow struct {
	opts   Options
	tracer *telemetry.Tracer
	logger *zap.Logger
}

// New validates options and creates a Flow.
func New(opts Options) (*Flow, error) {
	if len(opts.TextChain) == 0 {
		return nil, types.NewConfigurationError("flow: text chain is empty")
	}
	if opts.EnableImage && len(opts.ImageChain) == 0 {
		return nil, types.NewConfigurationError("flow: image censoring enabled but image chain is empty")
	}
	if opts.Results == nil {
		return nil, types.NewConfigurationError("flow: result cache is required")
	}
	if opts.Coalescer == nil {
		return nil, types.NewConfigurationError("flow: coalescer is required")
	}
	if opts.EnableAudit && opts.Audit == nil {
		return nil, types.NewConfigurationError("flow: audit enabled but no audit logger supplied")
	}
	if opts.AuditWindow <= 0 {
		opts.AuditWindow = DefaultAuditWindow
	}
	if opts.DetectTimeout <= 0 {
		opts.DetectTimeout = DefaultDetectTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Flow{
		opts:   opts,
		tracer: telemetry.NewTracer(),
		logger: opts.Logger.With(zap.String("component", "censor_flow")),
	}, nil
}

// SubmitText moderates a text submission.
func (f *Flow) SubmitText(ctx context.Context, content, source string, extra map[string]string) *types.CensorResult {
	msg := types.NewMessage(content, source)
	return f.submit(ctx, types.ContentTypeText, msg, extra, f.opts.TextChain)
}

// SubmitImage moderates an image submission. The image argument is an
// HTTP(S) URL or a types.Base64Prefix-prefixed inline payload.
func (f *Flow) SubmitImage(ctx context.Context, image, source string) *types.CensorResult {
	msg := types.NewMessage(image, source)
	extra := map[string]string{"source": source}
	if !f.opts.EnableImage {
		return types.NewCensorResult(msg, types.RiskReview, []string{ReasonImageCensorDisabled}, extra)
	}
	return f.submit(ctx, types.ContentTypeImage, msg, extra, f.opts.ImageChain)
}

func (f *Flow) submit(ctx context.Context, contentType string, msg types.Message, extra map[string]string, chain []censor.Detector) *types.CensorResult {
	fp := types.Fingerprint(contentType, msg.Content)

	ctx, span := f.tracer.StartSubmission(ctx, contentType, fp)

	release, dup := f.opts.Coalescer.Begin(fp)
	if dup {
		f.recordCoalesced()
		result := types.NewCensorResult(msg, types.RiskReview, []string{ReasonDuplicateInFlight}, extra)
		telemetry.EndWithVerdict(span, result.Risk.String(), false)
		return result
	}
	defer release()

	if cached, err := f.opts.Results.Lookup(ctx, fp); err == nil {
		f.recordCacheHit()
		f.recordSubmission(contentType, cached.Risk)
		telemetry.EndWithVerdict(span, cached.Risk.String(), true)
		return cached
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		f.logger.Warn("cache lookup failed", zap.Error(err))
	}
	f.recordCacheMiss()

	result := f.evaluate(ctx, contentType, msg, extra, chain)

	f.opts.Results.Store(ctx, fp, result)
	f.auditHook(ctx, fp, contentType, result)
	f.recordSubmission(contentType, result.Risk)
	telemetry.EndWithVerdict(span, result.Risk.String(), false)
	return result
}

// evaluate walks the fallback chain. Providers are consulted in priority
// order; the first non-pass verdict short-circuits the chain. An adapter
// failure becomes a review verdict carrying the error text, never a pass
// and never a propagated error.
func (f *Flow) evaluate(ctx context.Context, contentType string, msg types.Message, extra map[string]string, chain []censor.Detector) *types.CensorResult {
	risk := types.RiskPass
	var reasons []string

	for _, detector := range chain {
		callCtx, cancel := context.WithTimeout(ctx, f.opts.DetectTimeout)
		callCtx, span := f.tracer.StartProviderCall(callCtx, detector.Name())
		start := time.Now()

		var err error
		if contentType == types.ContentTypeImage {
			risk, reasons, err = detector.DetectImage(callCtx, msg.Content)
		} else {
			risk, reasons, err = detector.DetectText(callCtx, msg.Content)
		}
		cancel()

		f.recordProviderCall(detector, time.Since(start), err)

		if err != nil {
			telemetry.EndWithError(span, err)
			f.logger.Warn("provider failed, failing closed to review",
				zap.String("provider", detector.Name()),
				zap.Error(err),
			)
			return types.NewCensorResult(msg, types.RiskReview, []string{err.Error()}, extra)
		}
		telemetry.EndWithVerdict(span, risk.String(), false)

		if risk != types.RiskPass {
			break
		}
	}

	return types.NewCensorResult(msg, risk, reasons, extra)
}

func (f *Flow) auditHook(ctx context.Context, fp, contentType string, result *types.CensorResult) {
	if result.Risk == types.RiskPass || !f.opts.EnableAudit || f.opts.Audit == nil {
		return
	}

	recent, err := f.opts.Audit.HasRecentLog(ctx, fp, f.opts.AuditWindow)
	if err != nil {
		f.logger.Warn("audit window check failed", zap.Error(err))
		return
	}
	if recent {
		if f.opts.Metrics != nil {
			f.opts.Metrics.RecordAuditSkipped()
		}
		return
	}

	var extraJSON string
	if len(result.Extra) > 0 {
		if data, err := json.Marshal(result.Extra); err == nil {
			extraJSON = string(data)
		}
	}
	err = f.opts.Audit.Add(ctx, audit.Entry{
		Content:     result.Message.Content,
		ContentType: contentType,
		Risk:        result.Risk.String(),
		Reasons:     types.JoinReasons(result.Reasons),
		Fingerprint: fp,
		Extra:       extraJSON,
	})
	if err != nil {
		// Best effort: the verdict is already final, audit never blocks it.
		f.logger.Warn("audit write failed", zap.Error(err))
		return
	}
	if f.opts.Metrics != nil {
		f.opts.Metrics.RecordAuditWrite()
	}
}

// Close releases all owned resources: adapters (once each, even when shared
// between chains), the result cache, and the audit store.
func (f *Flow) Close() error {
	var firstErr error
	seen := make(map[censor.Detector]struct{})
	for _, d := range append(append([]censor.Detector{}, f.opts.TextChain...), f.opts.ImageChain...) {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		if err := d.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.opts.Results.Close()
	if f.opts.Audit != nil {
		if err := f.opts.Audit.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *Flow) recordCacheHit() {
	if f.opts.Metrics != nil {
		f.opts.Metrics.RecordCacheHit()
	}
}

func (f *Flow) recordCacheMiss() {
	if f.opts.Metrics != nil {
		f.opts.Metrics.RecordCacheMiss()
	}
}

func (f *Flow) recordCoalesced() {
	if f.opts.Metrics != nil {
		f.opts.Metrics.RecordCoalesced()
	}
}

func (f *Flow) recordSubmission(contentType string, risk types.RiskLevel) {
	if f.opts.Metrics != nil {
		f.opts.Metrics.RecordSubmission(contentType, risk.String())
	}
}

func (f *Flow) recordProviderCall(d censor.Detector, duration time.Duration, err error) {
	if f.opts.Metrics == nil {
		return
	}
	code := ""
	if err != nil {
		code = string(types.GetErrorCode(err))
		if code == "" {
			code = "UNKNOWN"
		}
	}
	f.opts.Metrics.RecordProviderCall(d.Name(), duration, code)
	if limited, ok := d.(interface{ Limiter() *ratelimit.AdaptiveLimiter }); ok {
		f.opts.Metrics.SetProviderInterval(d.Name(), limited.Limiter().MinInterval())
	}
}
