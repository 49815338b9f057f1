package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
)

type LoggingConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
	Environment string
}

// InitLogging bridges slog output into an OTLP log exporter. The returned
// logger replaces the caller's one when the bridge is on; with logs disabled
// the caller's stdout handler is handed back unchanged.
func InitLogging(ctx context.Context, cfg LoggingConfig, logger *slog.Logger) (*sdklog.LoggerProvider, *slog.Logger, error) {
	if !cfg.Enabled {
		logger.Info("otel logs disabled")
		return nil, logger, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create otlp log exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create log resource: %w", err)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	)
	bridged := slog.New(otelslog.NewHandler(meterName, otelslog.WithLoggerProvider(provider)))

	logger.Info("otel logs initialized", "endpoint", cfg.Endpoint)
	return provider, bridged, nil
}
