// Package otel wires opt-in OpenTelemetry tracing for storydeck processes.
package otel

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/louisbranch/storydeck/internal/platform/config"
)

// Settings controls tracing. Environment names carry the STORYDECK_ prefix.
type Settings struct {
	Endpoint    string  `env:"OTEL_ENDPOINT"`
	Enabled     bool    `env:"OTEL_ENABLED"      envDefault:"true"`
	SampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// Active reports whether spans should be exported.
func (s Settings) Active() bool {
	return s.Enabled && strings.TrimSpace(s.Endpoint) != ""
}

// LoadSettings reads Settings from the environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := config.ParseEnv(&s); err != nil {
		return Settings{}, fmt.Errorf("otel settings: %w", err)
	}
	return s, nil
}

// Setup installs a global tracer provider for service when the environment
// enables tracing. Otherwise it leaves the globals alone and returns a
// shutdown that does nothing.
func Setup(ctx context.Context, service string) (func(context.Context) error, error) {
	settings, err := LoadSettings()
	if err != nil {
		return nil, err
	}
	return SetupWith(ctx, service, settings)
}

// SetupWith is Setup with explicit settings.
func SetupWith(ctx context.Context, service string, s Settings) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !s.Active() {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(strings.TrimSpace(s.Endpoint)))
	if err != nil {
		return noop, fmt.Errorf("otlp exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName("storydeck-"+service)))
	if err != nil {
		return noop, fmt.Errorf("otel resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(s.SampleRatio))),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return provider.Shutdown, nil
}
