package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"todoList/internal/config"
	"todoList/internal/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var ErrUnknownExporter = errors.New("неизвестный экспортёр трейсов")

// Shutdown сбрасывает накопленные спаны и останавливает экспортёр
type Shutdown func(context.Context) error

// Init ставит глобальный TracerProvider, в который пишет otelhttp.
// Для "none" провайдер не трогается и спаны никуда не уходят.
func Init(ctx context.Context, cfg config.TracingConfig) (Shutdown, error) {
	return initWith(ctx, cfg, os.Stdout)
}

func initWith(ctx context.Context, cfg config.TracingConfig, out io.Writer) (Shutdown, error) {
	if cfg.Exporter == config.TraceExporterNone {
		logger.Info("Telemetry: Трейсинг выключен")
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newExporter(ctx, cfg, out)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes("",
			attribute.String("service.name", cfg.ServiceName),
		)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	logger.Info("Telemetry: Трейсинг включён",
		zap.String("exporter", cfg.Exporter),
		zap.Float64("sample_ratio", cfg.SampleRatio))
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, cfg config.TracingConfig, out io.Writer) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case config.TraceExporterStdout:
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
		if err != nil {
			return nil, fmt.Errorf("stdout экспортёр: %w", err)
		}
		return exporter, nil

	case config.TraceExporterOTLP:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otlp экспортёр: %w", err)
		}
		return exporter, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.Exporter)
}
