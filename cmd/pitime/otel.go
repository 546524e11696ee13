package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"golang.org/x/net/context"
)

const metricReportingPeriod = 30 * time.Second

// Create a new OpenTelemetry resource to describe the source of metrics and
// traces.
func newTelemetryResource(ctx context.Context, name string) (*resource.Resource, error) {
	logger := logger.V(1).WithValues("name", name)
	logger.Info("Creating new OpenTelemetry resource descriptor")
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(
			semconv.ServiceNamespace(AppName),
			semconv.ServiceName(name),
			semconv.ServiceVersion(version),
			semconv.ServiceInstanceID(id.String()),
		),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithOS(),
	)
	if err != nil {
		return nil, err
	}
	logger.V(1).Info("OpenTelemetry resource created", "resource", res)
	return res, nil
}

// Initializes OpenTelemetry metric and trace export to the configured OTLP
// target, returning a function that flushes and shuts the providers down. If
// no target is configured the global no-op providers are left in place and
// the returned function does nothing.
func initTelemetry(ctx context.Context, name string, sampler sdktrace.Sampler) func(context.Context) {
	target := viper.GetString("otlp-target")
	logger := logger.V(1).WithValues("otlp-target", target, "name", name)
	if target == "" {
		logger.V(0).Info("No OpenTelemetry target; telemetry export is disabled")
		return func(_ context.Context) {}
	}
	res, err := newTelemetryResource(ctx, name)
	if err != nil {
		logger.Error(err, "Failed to create telemetry resource; telemetry export is disabled")
		return func(_ context.Context) {}
	}
	traceOptions := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(target)}
	metricOptions := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(target)}
	if viper.GetBool("otlp-insecure") {
		traceOptions = append(traceOptions, otlptracegrpc.WithInsecure())
		metricOptions = append(metricOptions, otlpmetricgrpc.WithInsecure())
	}
	traceExporter, err := otlptracegrpc.New(ctx, traceOptions...)
	if err != nil {
		logger.Error(err, "Failed to create trace exporter; telemetry export is disabled")
		return func(_ context.Context) {}
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	metricExporter, err := otlpmetricgrpc.New(ctx, metricOptions...)
	if err != nil {
		logger.Error(err, "Failed to create metric exporter; metric export is disabled")
		return func(shutdownCtx context.Context) {
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.Error(err, "Failed to shutdown tracer provider cleanly")
			}
		}
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(metricReportingPeriod))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)
	logger.V(0).Info("Telemetry export is enabled")
	return func(shutdownCtx context.Context) {
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			logger.Error(err, "Failed to shutdown meter provider cleanly")
		}
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Error(err, "Failed to shutdown tracer provider cleanly")
		}
	}
}
