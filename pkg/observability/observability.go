// Package observability exports notary traces and metrics over OTLP.
//
// A disabled Provider records into the global no-op tracer and meter, so
// callers never branch on whether telemetry is on.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const scope = "notary"

// Config selects whether and where telemetry is exported.
type Config struct {
	Enabled        bool
	Endpoint       string // OTLP gRPC collector, host:port
	Insecure       bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	SampleRate     float64
	ExportInterval time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Endpoint:       "localhost:4317",
		Insecure:       true,
		ServiceName:    "notary",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		SampleRate:     1.0,
		ExportInterval: 15 * time.Second,
	}
}

// Provider owns the SDK providers (when it built them) and the notary
// instruments.
type Provider struct {
	cfg    *Config
	tracer trace.Tracer
	inst   instruments
	logger *slog.Logger

	// set only when New built them; Shutdown stops these.
	owned []interface{ Shutdown(context.Context) error }
}

// New builds OTLP exporters from cfg. A nil or disabled cfg yields a
// Provider backed by the global no-op implementations.
func New(ctx context.Context, cfg *Config) (*Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	p := &Provider{cfg: cfg, logger: slog.Default().With("component", "observability")}

	if !cfg.Enabled {
		p.logger.InfoContext(ctx, "telemetry disabled")
		return p, p.bind(otel.GetTracerProvider(), otel.GetMeterProvider())
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	tp, err := newTracerProvider(ctx, cfg, res)
	if err != nil {
		return nil, err
	}
	mp, err := newMeterProvider(ctx, cfg, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	p.owned = append(p.owned, tp, mp)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	if err := p.bind(tp, mp); err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	p.logger.InfoContext(ctx, "telemetry exporting",
		"endpoint", cfg.Endpoint, "service", cfg.ServiceName, "sample_rate", cfg.SampleRate)
	return p, nil
}

// NewWithProviders records into caller-owned providers. Shutdown leaves
// them running.
func NewWithProviders(tp trace.TracerProvider, mp metric.MeterProvider) (*Provider, error) {
	p := &Provider{cfg: DefaultConfig(), logger: slog.Default().With("component", "observability")}
	if err := p.bind(tp, mp); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Provider) bind(tp trace.TracerProvider, mp metric.MeterProvider) error {
	p.tracer = tp.Tracer(scope, trace.WithInstrumentationVersion(p.cfg.ServiceVersion))
	inst, err := newInstruments(mp.Meter(scope, metric.WithInstrumentationVersion(p.cfg.ServiceVersion)))
	if err != nil {
		return fmt.Errorf("telemetry instruments: %w", err)
	}
	p.inst = inst
	return nil
}

func newTracerProvider(ctx context.Context, cfg *Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.SampleRate))),
	), nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

func newMeterProvider(ctx context.Context, cfg *Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}
	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
	), nil
}

// Shutdown flushes and stops every provider New created.
func (p *Provider) Shutdown(ctx context.Context) error {
	var result *multierror.Error
	for _, s := range p.owned {
		if err := s.Shutdown(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	p.owned = nil
	return result.ErrorOrNil()
}

func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}
