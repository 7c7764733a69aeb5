package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/IsaacBoateng/Private-blockchain/pkg/block"
)

// instruments are the notary metrics: RED for operations, plus chain growth.
type instruments struct {
	operations metric.Int64Counter
	failures   metric.Int64Counter
	latency    metric.Float64Histogram
	inFlight   metric.Int64UpDownCounter

	blocks metric.Int64Counter
	height metric.Int64Gauge
}

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

func newInstruments(m metric.Meter) (instruments, error) {
	var (
		in   instruments
		errs [6]error
	)
	in.operations, errs[0] = m.Int64Counter("notary.requests.total",
		metric.WithDescription("Operations started"), metric.WithUnit("{request}"))
	in.failures, errs[1] = m.Int64Counter("notary.errors.total",
		metric.WithDescription("Operations that ended in error"), metric.WithUnit("{error}"))
	in.latency, errs[2] = m.Float64Histogram("notary.request.duration",
		metric.WithDescription("Operation latency"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...))
	in.inFlight, errs[3] = m.Int64UpDownCounter("notary.operations.active",
		metric.WithDescription("Operations in flight"), metric.WithUnit("{operation}"))
	in.blocks, errs[4] = m.Int64Counter("notary.blocks.appended",
		metric.WithDescription("Blocks accepted onto the chain"), metric.WithUnit("{block}"))
	in.height, errs[5] = m.Int64Gauge("notary.chain.height",
		metric.WithDescription("Height of the chain tip"), metric.WithUnit("{block}"))

	for _, err := range errs {
		if err != nil {
			return instruments{}, err
		}
	}
	return in, nil
}

// RecordBlock counts an accepted block and moves the height gauge.
func (p *Provider) RecordBlock(ctx context.Context, b *block.Block) {
	p.inst.blocks.Add(ctx, 1)
	p.inst.height.Record(ctx, int64(b.Height))
}

// BlockHandler adapts RecordBlock to a chain append hook.
func (p *Provider) BlockHandler() func(*block.Block) {
	return func(b *block.Block) { p.RecordBlock(context.Background(), b) }
}

// TrackOperation opens a span named name and counts the operation. The
// returned func ends both; pass it the operation's error.
func (p *Provider) TrackOperation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	set := metric.WithAttributes(attrs...)

	ctx, span := p.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	p.inst.inFlight.Add(ctx, 1, set)
	p.inst.operations.Add(ctx, 1, set)

	return ctx, func(err error) {
		p.inst.inFlight.Add(ctx, -1, set)
		p.inst.latency.Record(ctx, time.Since(start).Seconds(), set)
		if err != nil {
			span.RecordError(err)
			failed := append(attrs[:len(attrs):len(attrs)], attribute.String("error.type", fmt.Sprintf("%T", err)))
			p.inst.failures.Add(ctx, 1, metric.WithAttributes(failed...))
		}
		span.End()
	}
}
