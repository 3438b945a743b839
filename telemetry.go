package cache

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/mxcd/go-ttlcache"

func (e *Engine) registerMetrics(provider metric.MeterProvider) (metric.Registration, error) {
	meter := provider.Meter(instrumentationName)
	attrs := metric.WithAttributes(attribute.String("cache.name", e.name))

	items, err1 := meter.Int64ObservableGauge("cache.items",
		metric.WithDescription("Number of entries currently stored"))
	hits, err2 := meter.Int64ObservableGauge("cache.hits",
		metric.WithDescription("Hits since creation or last reset"))
	misses, err3 := meter.Int64ObservableGauge("cache.misses",
		metric.WithDescription("Misses since creation or last reset"))
	rate, err4 := meter.Float64ObservableGauge("cache.hit_rate",
		metric.WithDescription("Hit rate in percent"),
		metric.WithUnit("%"))
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		e.mu.Lock()
		n, h, m := len(e.items), e.hits, e.misses
		e.mu.Unlock()

		o.ObserveInt64(items, int64(n), attrs)
		o.ObserveInt64(hits, int64(h), attrs)
		o.ObserveInt64(misses, int64(m), attrs)
		o.ObserveFloat64(rate, hitRate(h, m), attrs)
		return nil
	}, items, hits, misses, rate)
}

func (e *Engine) startLoadSpan(ctx context.Context, key string) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "cache.load", trace.WithAttributes(
		attribute.String("cache.key", key),
		attribute.String("cache.name", e.name),
	))
}

func endLoadSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
