// Package otel sets up [OpenTelemetry] tracing for the adcmigrate command.
// A run produces one trace, with a span for each of its stages.
//
// [OpenTelemetry]: https://opentelemetry.io/
package otel

import (
	"context"
	"errors"
	"os"

	"go.opentelemetry.io/contrib/exporters/autoexport"
	"go.opentelemetry.io/contrib/propagators/autoprop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/bombsimon/logrusr/v4"
	"github.com/sirupsen/logrus"
)

// DebugExporter is the name of the span exporter writing the spans into the
// debug log. Select it with OTEL_TRACES_EXPORTER.
const DebugExporter = "adcmigrate-debug"

// DefaultServiceName is the service name of the traces when neither the
// options nor OTEL_RESOURCE_ATTRIBUTES set one.
const DefaultServiceName = "adcmigrate"

var log = logrus.WithField("package", "otel")

// logged at debug level on Init, OTEL_EXPORTER_OTLP_HEADERS may carry
// credentials and is left out
var loggedEnv = []string{
	"OTEL_TRACES_EXPORTER",
	"OTEL_EXPORTER_OTLP_PROTOCOL",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
	"OTEL_RESOURCE_ATTRIBUTES",
	"OTEL_PROPAGATORS",
	"OTEL_BSP_SCHEDULE_DELAY",
	"OTEL_BSP_EXPORT_TIMEOUT",
}

func init() {
	autoexport.RegisterSpanExporter(DebugExporter, func(context.Context) (trace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithWriter(writerFunc(func(p []byte) (int, error) {
			log.Debugf("Span: %s", p)
			return len(p), nil
		})))
	})
}

// Options of the tracing setup.
type Options struct {
	// ServiceName of the traces. Defaults to DefaultServiceName.
	ServiceName string

	// ServiceVersion, when set, is recorded as the service.version
	// resource attribute.
	ServiceVersion string
}

func newResource(ctx context.Context, o *Options) (*resource.Resource, error) {
	name := o.ServiceName
	if name == "" {
		name = DefaultServiceName
	}

	attrs := []attribute.KeyValue{attribute.String("service.name", name)}
	if o.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", o.ServiceVersion))
	}

	// the environment overrides the options
	return resource.New(ctx, resource.WithAttributes(attrs...), resource.WithFromEnv())
}

// Init sets up the global tracer provider and propagator from the
// OTEL_* environment variables and the options. The exporter is selected
// by OTEL_TRACES_EXPORTER, the default is OTLP. When err is nil, shutdown
// must be called before the process exits, to flush the pending spans of
// the run.
//
// See:
//   - [go.opentelemetry.io/contrib/exporters/autoexport]
//   - [go.opentelemetry.io/contrib/propagators/autoprop]
//   - https://opentelemetry.io/docs/languages/sdk-configuration/general/
func Init(ctx context.Context, o *Options) (shutdown func(context.Context) error, err error) {
	for _, name := range loggedEnv {
		log.Debugf("%s: %s", name, os.Getenv(name))
	}

	var shutdownFuncs []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}

		shutdownFuncs = nil
		return err
	}

	res, err := newResource(ctx, o)
	if err != nil {
		return nil, err
	}

	spanExporter, err := autoexport.NewSpanExporter(ctx)
	if err != nil {
		return nil, err
	}

	// the batcher is flushed on shutdown
	tracerProvider := trace.NewTracerProvider(trace.WithBatcher(spanExporter), trace.WithResource(res))
	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(autoprop.NewTextMapPropagator())
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) { log.Error(err) }))
	otel.SetLogger(logrusr.New(log))

	return shutdown, nil
}

type writerFunc func([]byte) (int, error)

func (wf writerFunc) Write(p []byte) (n int, err error) {
	return wf(p)
}
