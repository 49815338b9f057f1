package observability

import (
	"context"
	"errors"
	"log/slog"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type Runtime struct {
	MeterProvider  *sdkmetric.MeterProvider
	TracerProvider *sdktrace.TracerProvider
	LoggerProvider *sdklog.LoggerProvider

	// Logger is the logger the rest of the service should use: the OTLP
	// bridge when log export is enabled, otherwise the one passed to
	// InitRuntime.
	Logger *slog.Logger
}

func InitRuntime(ctx context.Context, metricsCfg MetricsConfig, tracingCfg TracingConfig, loggingCfg LoggingConfig, logger *slog.Logger) (*Runtime, error) {
	mp, err := InitMetrics(ctx, metricsCfg, logger)
	if err != nil {
		return nil, err
	}
	tp, err := InitTracing(ctx, tracingCfg, logger)
	if err != nil {
		return nil, err
	}
	lp, bridged, err := InitLogging(ctx, loggingCfg, logger)
	if err != nil {
		return nil, err
	}
	return &Runtime{MeterProvider: mp, TracerProvider: tp, LoggerProvider: lp, Logger: bridged}, nil
}

func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.MeterProvider != nil {
		if err := r.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if r.TracerProvider != nil {
		if err := r.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if r.LoggerProvider != nil {
		if err := r.LoggerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
