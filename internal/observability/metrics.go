package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const meterName = "freight-auth-service"

type appMetrics struct {
	authAttempts   metric.Int64Counter
	lockoutEvents  metric.Int64Counter
	repoOperations metric.Int64Counter
	reaperDeleted  metric.Int64Counter
}

var (
	metricsMu sync.RWMutex
	metrics   *appMetrics
)

type MetricsConfig struct {
	Enabled        bool
	Endpoint       string
	Insecure       bool
	ServiceName    string
	Environment    string
	ExportInterval time.Duration
}

// InitMetrics wires the OTLP metric exporter and registers the service
// counters. With metrics disabled it installs a no-op provider so the
// Record* helpers stay callable.
func InitMetrics(ctx context.Context, cfg MetricsConfig, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.Enabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.ExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter(meterName)
	authAttempts, err := meter.Int64Counter("auth.operation.attempts")
	if err != nil {
		return nil, err
	}
	lockoutEvents, err := meter.Int64Counter("auth.lockout.events")
	if err != nil {
		return nil, err
	}
	repoOperations, err := meter.Int64Counter("repository.operations")
	if err != nil {
		return nil, err
	}
	reaperDeleted, err := meter.Int64Counter("session.reaper.deleted")
	if err != nil {
		return nil, err
	}

	metricsMu.Lock()
	metrics = &appMetrics{
		authAttempts:   authAttempts,
		lockoutEvents:  lockoutEvents,
		repoOperations: repoOperations,
		reaperDeleted:  reaperDeleted,
	}
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.Endpoint)
	return mp, nil
}

// RecordAuthAttempt counts login/refresh/logout/reset outcomes.
func RecordAuthAttempt(ctx context.Context, operation, status string) {
	m := current()
	if m == nil {
		return
	}
	m.authAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

// RecordLockoutEvent counts account and IP lock transitions.
func RecordLockoutEvent(ctx context.Context, scope, event string) {
	m := current()
	if m == nil {
		return
	}
	m.lockoutEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("event", event),
	))
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, status string) {
	m := current()
	if m == nil {
		return
	}
	m.repoOperations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

func RecordReaperSweep(ctx context.Context, deleted int64, status string) {
	m := current()
	if m == nil {
		return
	}
	m.reaperDeleted.Add(ctx, deleted, metric.WithAttributes(attribute.String("status", status)))
}

func current() *appMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return metrics
}
