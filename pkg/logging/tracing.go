package logging

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// SetupTracing installs a global tracer provider exporting over OTLP/HTTP to
// endpoint (host:port). Exporter errors, including those the SDK reports
// asynchronously, go to logger. The returned func flushes and shuts it down.
func SetupTracing(ctx context.Context, serviceName, endpoint string, logger logrus.FieldLogger) func() {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("otel_endpoint", endpoint)

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.WithError(err).Warn("tracing disabled: create exporter")
		return func() {}
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		res = resource.NewSchemaless(attribute.String("service.name", serviceName))
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		logger.WithError(err).Warn("tracing export")
	}))
	logger.WithField("service", serviceName).Info("tracing enabled")

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("tracing shutdown")
		}
	}
}
