// Package logging configures the default slog logger and, when enabled, the OpenTelemetry
// trace and log exporters.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"loot-tracker/pkg/config"
	"loot-tracker/pkg/version"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// TelemetryConfig is read from the environment by NewTelemetryManager
type TelemetryConfig struct {
	Enabled     bool
	ServiceName string
	// Guild tags every log line and span so several guild deployments can share a collector
	Guild       string
	Endpoint    string
	Level       slog.Level
	Pretty      bool
	Quiet       bool
	Environment string
	SampleRatio float64
}

func loadTelemetryConfig(serviceName string) TelemetryConfig {
	return TelemetryConfig{
		Enabled:     config.GetBoolEnv("ENABLE_TELEMETRY", false),
		ServiceName: config.GetEnv("SERVICE_NAME", serviceName),
		Guild:       config.GetEnv("GUILD_NAME", ""),
		Endpoint:    config.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		Level:       parseLogLevel(config.GetEnv("LOG_LEVEL", "info")),
		Pretty:      config.GetBoolEnv("ENABLE_PRETTY_LOGS", false),
		Quiet:       config.GetBoolEnv("DISABLE_CONSOLE_LOG", false),
		Environment: config.GetEnv("APP_ENV", "development"),
		SampleRatio: parseRatio(config.GetEnv("OTEL_TRACES_SAMPLER_ARG", "1")),
	}
}

// TelemetryManager owns the logger setup and the exporter shutdown hooks
type TelemetryManager struct {
	config   TelemetryConfig
	shutdown []func(context.Context) error
}

// NewTelemetryManager reads telemetry settings from the environment. serviceName is used
// when SERVICE_NAME is unset.
func NewTelemetryManager(serviceName string) *TelemetryManager {
	return &TelemetryManager{config: loadTelemetryConfig(serviceName)}
}

// Initialize installs the default logger and, when telemetry is enabled, the exporters.
// Exporter failures are logged and do not stop the service.
func (tm *TelemetryManager) Initialize(ctx context.Context) error {
	tm.setupLogger(os.Stdout)

	if !tm.config.Enabled {
		slog.Info("Telemetry disabled", "service", tm.config.ServiceName)
		return nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(tm.resourceAttributes()...))
	if err != nil {
		return err
	}

	if err := tm.initTracing(ctx, res); err != nil {
		slog.Warn("Failed to initialize tracing", "error", err)
	}
	if err := tm.initLogExport(ctx, res); err != nil {
		slog.Warn("Failed to initialize OpenTelemetry logging", "error", err)
	}

	slog.Info("Telemetry initialized",
		"endpoint", tm.config.Endpoint,
		"sample_ratio", tm.config.SampleRatio,
		"log_level", tm.config.Level.String())
	return nil
}

func (tm *TelemetryManager) resourceAttributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(tm.config.ServiceName),
		semconv.ServiceVersionKey.String(version.Version),
		semconv.DeploymentEnvironmentKey.String(tm.config.Environment),
		attribute.String("vcs.commit", version.GitCommit),
	}
	if tm.config.Guild != "" {
		attrs = append(attrs, attribute.String("loot.guild", tm.config.Guild))
	}
	return attrs
}

func (tm *TelemetryManager) sampler() sdktrace.Sampler {
	switch {
	case tm.config.SampleRatio >= 1:
		return sdktrace.AlwaysSample()
	case tm.config.SampleRatio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(tm.config.SampleRatio))
	}
}

func (tm *TelemetryManager) initTracing(ctx context.Context, res *resource.Resource) error {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(tm.config.Endpoint+"/v1/traces"),
	)
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(tm.sampler()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	tm.shutdown = append(tm.shutdown, tp.Shutdown)
	return nil
}

func (tm *TelemetryManager) initLogExport(ctx context.Context, res *resource.Resource) error {
	exporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpointURL(tm.config.Endpoint+"/v1/logs"),
	)
	if err != nil {
		return err
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)
	tm.shutdown = append(tm.shutdown, lp.Shutdown)
	return nil
}

// setupLogger installs the default logger writing to w
func (tm *TelemetryManager) setupLogger(w io.Writer) *slog.Logger {
	if tm.config.Quiet {
		w = io.Discard
	}

	opts := &slog.HandlerOptions{Level: tm.config.Level}
	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if tm.config.Pretty {
		handler = slog.NewTextHandler(w, opts)
	}
	if tm.config.Enabled {
		handler = NewOTelHandler(handler, tm.config.ServiceName)
	}

	logger := slog.New(handler).With("service", tm.config.ServiceName)
	if tm.config.Guild != "" {
		logger = logger.With("guild", tm.config.Guild)
	}
	slog.SetDefault(logger)
	return logger
}

// Shutdown flushes the exporters
func (tm *TelemetryManager) Shutdown(ctx context.Context) error {
	var errs []error
	for _, shutdown := range tm.shutdown {
		if err := shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// parseRatio reads a sampling ratio, treating garbage as "sample everything"
func parseRatio(raw string) float64 {
	ratio, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 1
	}
	return ratio
}
