package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/theblitlabs/tinyml-runner/internal/config"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

const instrumentationName = "github.com/theblitlabs/tinyml-runner"

func noop(context.Context) error { return nil }

// InitTelemetry initializes OpenTelemetry with the OTLP exporter. When the
// collector is unreachable the process continues without telemetry.
func InitTelemetry(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.Telemetry.Enabled {
		return noop, nil
	}
	log := logger.WithComponent("telemetry")

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.Telemetry.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collectorAddr := fmt.Sprintf("%s:%d", cfg.Telemetry.OTELCollector.Host, cfg.Telemetry.OTELCollector.Port)
	conn, err := grpc.DialContext(dialCtx, collectorAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		log.Warn().Err(err).Str("collector", collectorAddr).Msg("Failed to connect to OpenTelemetry collector, continuing without telemetry")
		return noop, nil
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create trace exporter, continuing without telemetry")
		conn.Close()
		return noop, nil
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	metricExporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create metric exporter, continuing without metrics export")
		return func(ctx context.Context) error {
			err := tracerProvider.Shutdown(ctx)
			conn.Close()
			return err
		}, nil
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
			metricExporter,
			sdkmetric.WithInterval(cfg.Telemetry.Metrics.Interval),
		)),
	)
	otel.SetMeterProvider(meterProvider)

	log.Info().Str("collector", collectorAddr).Msg("Telemetry initialized")

	return func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()

		var errs []error
		if err := tracerProvider.Shutdown(cctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
		if err := meterProvider.Shutdown(cctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close gRPC connection: %w", err))
		}

		if len(errs) > 0 {
			return fmt.Errorf("shutdown errors: %v", errs)
		}
		return nil
	}, nil
}

// Tracer returns the tracer used for job spans. It is a no-op until
// InitTelemetry installs a provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

type instruments struct {
	jobs       metric.Int64Counter
	jobSeconds metric.Float64Histogram
}

var (
	instrumentsOnce sync.Once
	otelInstruments instruments
)

// Instruments are created against whichever provider is global at first use,
// so InitTelemetry must run before the first job.
func getInstruments() instruments {
	instrumentsOnce.Do(func() {
		meter := otel.Meter(instrumentationName)
		otelInstruments.jobs, _ = meter.Int64Counter("training.jobs",
			metric.WithDescription("Training jobs by algorithm and outcome"))
		otelInstruments.jobSeconds, _ = meter.Float64Histogram("training.job.duration",
			metric.WithDescription("Training job duration"),
			metric.WithUnit("s"))
	})
	return otelInstruments
}

func recordOTelJob(ctx context.Context, algorithm, status string, duration time.Duration) {
	inst := getInstruments()
	attrs := metric.WithAttributes(
		attribute.String("algorithm", algorithm),
		attribute.String("status", status),
	)
	if inst.jobs != nil {
		inst.jobs.Add(ctx, 1, attrs)
	}
	if inst.jobSeconds != nil && duration > 0 {
		inst.jobSeconds.Record(ctx, duration.Seconds(), attrs)
	}
}
