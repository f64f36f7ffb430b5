// Package observability provides OpenTelemetry tracing, Prometheus metrics,
// and audit logging for Mixdown.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name used for the Mixdown tracer.
	TracerName = "github.com/efebarandurmaz/mixdown"
)

// TracingConfig configures the OpenTelemetry tracing.
type TracingConfig struct {
	// ServiceName is the name of the service (default: "mixdown")
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Environment is the deployment environment (dev, staging, prod)
	Environment string

	// OTLPEndpoint is the OTLP gRPC endpoint (e.g., "localhost:4317")
	// If empty, tracing is disabled.
	OTLPEndpoint string

	// SampleRate is the trace sampling rate (0.0 to 1.0, default: 1.0)
	SampleRate float64
}

// DefaultTracingConfig returns a default tracing configuration.
func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		ServiceName:    "mixdown",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		SampleRate:     1.0,
	}
}

// TracerProvider wraps the OpenTelemetry tracer provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing initializes OpenTelemetry tracing.
// Returns a no-op tracer if OTLPEndpoint is empty.
func InitTracing(ctx context.Context, cfg *TracingConfig) (*TracerProvider, error) {
	if cfg == nil {
		cfg = DefaultTracingConfig()
	}

	// If no endpoint, return no-op tracer
	if cfg.OTLPEndpoint == "" {
		return &TracerProvider{
			tracer: otel.Tracer(TracerName),
		}, nil
	}

	// Create OTLP exporter
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(), // Use TLS in production
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	// Create resource with service info
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	// Create sampler
	var sampler sdktrace.Sampler
	if cfg.SampleRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if cfg.SampleRate <= 0 {
		sampler = sdktrace.NeverSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	// Create trace provider
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	// Set global provider and propagator
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer(TracerName),
	}, nil
}

// Shutdown gracefully shuts down the tracer provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the underlying tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// SpanKind constants for Mixdown operations.
const (
	SpanKindBuild     = "build"
	SpanKindLinearize = "linearize"
	SpanKindRun       = "run"
	SpanKindResolve   = "resolve"
	SpanKindFixture   = "fixture"
	SpanKindVerify    = "verify"
	SpanKindSnapshot  = "snapshot"
)

// StartBuildSpan starts a span for a composition graph build.
func StartBuildSpan(ctx context.Context, scenario string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("build.%s", scenario),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("mixdown.scenario", scenario),
			attribute.String("mixdown.span.kind", SpanKindBuild),
		),
	)
	return ctx, span
}

// RecordBuildResult records graph shape on a build span.
func RecordBuildResult(span trace.Span, typeCount, traitCount int) {
	span.SetAttributes(
		attribute.Int("build.type_count", typeCount),
		attribute.Int("build.trait_count", traitCount),
	)
}

// StartLinearizeSpan starts a span for a linearization computation.
func StartLinearizeSpan(ctx context.Context, root string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("linearize.%s", root),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("mixdown.span.kind", SpanKindLinearize),
			attribute.String("linearize.root", root),
		),
	)
	return ctx, span
}

// RecordLinearizeResult records the computed order on a linearization span.
func RecordLinearizeResult(span trace.Span, order []string) {
	span.SetAttributes(
		attribute.Int("linearize.order_len", len(order)),
		attribute.StringSlice("linearize.order", order),
	)
}

// StartRunSpan starts a span for an instance initialization run.
func StartRunSpan(ctx context.Context, scenario string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("run.%s", scenario),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("mixdown.span.kind", SpanKindRun),
			attribute.String("mixdown.scenario", scenario),
		),
	)
	return ctx, span
}

// RecordRunResult records the observable trace on a run span.
func RecordRunResult(span trace.Span, eventCount int, duration time.Duration) {
	span.SetAttributes(
		attribute.Int("run.event_count", eventCount),
		attribute.Int64("run.duration_ms", duration.Milliseconds()),
	)
}

// StartResolveSpan starts a span for a method resolution.
func StartResolveSpan(ctx context.Context, receiver, method string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("resolve.%s", method),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("mixdown.span.kind", SpanKindResolve),
			attribute.String("resolve.receiver", receiver),
			attribute.String("resolve.method", method),
		),
	)
	return ctx, span
}

// RecordResolveResult records the dispatch target on a resolution span.
func RecordResolveResult(span trace.Span, provider string, depth int) {
	span.SetAttributes(
		attribute.String("resolve.provider", provider),
		attribute.Int("resolve.depth", depth),
	)
}

// StartFixtureSpan starts a span for a single fixture replay.
func StartFixtureSpan(ctx context.Context, fixtureName, scenario string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("fixture.%s", fixtureName),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("mixdown.span.kind", SpanKindFixture),
			attribute.String("fixture.name", fixtureName),
			attribute.String("fixture.scenario", scenario),
		),
	)
	return ctx, span
}

// RecordFixtureResult records a fixture replay result on a span.
func RecordFixtureResult(span trace.Span, passed bool, errorMsg string) {
	span.SetAttributes(
		attribute.Bool("fixture.passed", passed),
	)
	if !passed {
		span.SetStatus(codes.Error, errorMsg)
		span.SetAttributes(attribute.String("fixture.error", errorMsg))
	}
}

// StartVerifySpan starts a span for a fixture verification run.
func StartVerifySpan(ctx context.Context, fixtureCount int) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, "verify.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("mixdown.span.kind", SpanKindVerify),
			attribute.Int("verify.fixture_count", fixtureCount),
		),
	)
	return ctx, span
}

// RecordVerifyResult records verification counters on a span.
func RecordVerifyResult(span trace.Span, passCount, failCount int) {
	span.SetAttributes(
		attribute.Int("verify.pass_count", passCount),
		attribute.Int("verify.fail_count", failCount),
	)
	if failCount > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d fixtures failed", failCount))
	}
}

// StartSnapshotSpan starts a span for snapshot capture.
func StartSnapshotSpan(ctx context.Context) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, "snapshot.capture",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("mixdown.span.kind", SpanKindSnapshot),
		),
	)
	return ctx, span
}

// RecordSnapshotResult records snapshot capture results on a span.
func RecordSnapshotResult(span trace.Span, snapshotID string, docCount, passCount int) {
	span.SetAttributes(
		attribute.String("snapshot.id", snapshotID),
		attribute.Int("snapshot.document_count", docCount),
		attribute.Int("snapshot.pass_count", passCount),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
