package cache

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultName             = "default"
	defaultPatternCacheSize = 64
)

// Options passed to New
//
// Debug: Emit set/hit/miss diagnostics to Logger. Nothing is logged when false
// Logger: Diagnostics sink. Defaults to a zap development logger when Debug is set
// Codec: Serializer used for size estimation. Defaults to JSONCodec
// PatternCacheSize: Number of compiled RemoveMatching expressions to keep
// Name: Identifies the engine in metrics and spans
// MeterProvider, TracerProvider: Default to the otel globals
type Options struct {
	Debug            bool
	Logger           Logger
	Codec            Codec
	PatternCacheSize int
	Name             string
	MeterProvider    metric.MeterProvider
	TracerProvider   trace.TracerProvider
}

func (o *Options) GetLogger() Logger {
	if !o.Debug {
		return nopLogger{}
	}
	if o.Logger == nil {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nopLogger{}
		}
		return NewZapLogger(l)
	}
	return o.Logger
}

func (o *Options) GetCodec() Codec {
	if o.Codec == nil {
		return JSONCodec{}
	}
	return o.Codec
}

func (o *Options) GetPatternCacheSize() int {
	if o.PatternCacheSize <= 0 {
		return defaultPatternCacheSize
	}
	return o.PatternCacheSize
}

func (o *Options) GetName() string {
	if o.Name == "" {
		return defaultName
	}
	return o.Name
}

func (o *Options) GetMeterProvider() metric.MeterProvider {
	if o.MeterProvider == nil {
		return otel.GetMeterProvider()
	}
	return o.MeterProvider
}

func (o *Options) GetTracerProvider() trace.TracerProvider {
	if o.TracerProvider == nil {
		return otel.GetTracerProvider()
	}
	return o.TracerProvider
}
