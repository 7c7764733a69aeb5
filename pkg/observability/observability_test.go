package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/IsaacBoateng/Private-blockchain/pkg/block"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.Equal(t, "notary", config.ServiceName)
	require.Equal(t, "localhost:4317", config.Endpoint)
	require.Equal(t, 1.0, config.SampleRate)
	require.False(t, config.Enabled)
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, p.Tracer())

	// Recording on a disabled provider is a no-op.
	_, done := p.TrackOperation(context.Background(), "noop")
	done(errors.New("ignored"))
	p.RecordBlock(context.Background(), &block.Block{Height: 3})
	require.NoError(t, p.Shutdown(context.Background()))
}

func newTestProvider(t *testing.T) (*Provider, *sdkmetric.ManualReader, *tracetest.SpanRecorder) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
		_ = tp.Shutdown(context.Background())
	})

	p, err := NewWithProviders(tp, mp)
	require.NoError(t, err)
	return p, reader, recorder
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestRecordBlock(t *testing.T) {
	p, reader, _ := newTestProvider(t)
	handler := p.BlockHandler()
	handler(&block.Block{Height: 0})
	handler(&block.Block{Height: 1})
	handler(&block.Block{Height: 2})

	metrics := collect(t, reader)

	appended, ok := metrics["notary.blocks.appended"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, appended.DataPoints, 1)
	require.Equal(t, int64(3), appended.DataPoints[0].Value)

	height, ok := metrics["notary.chain.height"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, height.DataPoints, 1)
	require.Equal(t, int64(2), height.DataPoints[0].Value)
}

func TestTrackOperation(t *testing.T) {
	p, reader, recorder := newTestProvider(t)
	attrs := []attribute.KeyValue{attribute.String("route", "/submitstar")}

	_, done := p.TrackOperation(context.Background(), "submit", attrs...)
	done(nil)
	_, done = p.TrackOperation(context.Background(), "submit", attrs...)
	done(errors.New("boom"))

	metrics := collect(t, reader)
	requests := metrics["notary.requests.total"].(metricdata.Sum[int64])
	require.Equal(t, int64(2), requests.DataPoints[0].Value)
	errs := metrics["notary.errors.total"].(metricdata.Sum[int64])
	require.Equal(t, int64(1), errs.DataPoints[0].Value)
	active := metrics["notary.operations.active"].(metricdata.Sum[int64])
	require.Equal(t, int64(0), active.DataPoints[0].Value)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	require.Equal(t, "submit", spans[0].Name())
	require.Len(t, spans[1].Events(), 1, "error recorded on span")
}

func TestShutdownLeavesBorrowedProvidersRunning(t *testing.T) {
	p, reader, _ := newTestProvider(t)
	require.NoError(t, p.Shutdown(context.Background()))

	p.RecordBlock(context.Background(), &block.Block{Height: 7})
	height := collect(t, reader)["notary.chain.height"].(metricdata.Gauge[int64])
	require.Equal(t, int64(7), height.DataPoints[0].Value)
}
