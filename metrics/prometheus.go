package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	promNamespace       = "adcmigrate"
	promModelSubsystem  = "model"
	promRunSubsystem    = "run"
	promDiagSubsystem   = "diagnostics"
	promSourceSubsystem = "source"
)

// Options for initializing metrics collection.
type Options struct {
	// Common prefix for the keys of the different collected metrics.
	Prefix string

	// Buckets of the stage duration histogram. When not set, the
	// Prometheus default buckets are used.
	HistogramBuckets []float64

	// If set, Go runtime and process metrics are collected in addition.
	EnableRuntimeMetrics bool

	// When set, the metrics are registered in this registry instead of a
	// new one.
	PrometheusRegistry *prometheus.Registry
}

// Prometheus implements the prometheus metrics backend.
type Prometheus struct {
	objectsM     *prometheus.GaugeVec
	appsM        *prometheus.GaugeVec
	stageM       *prometheus.HistogramVec
	diagnosticsM *prometheus.CounterVec
	linesM       *prometheus.CounterVec
	runsM        *prometheus.CounterVec

	opts     Options
	registry *prometheus.Registry
}

// NewPrometheus returns a new Prometheus metric backend.
func NewPrometheus(opts Options) *Prometheus {
	namespace := promNamespace
	if opts.Prefix != "" {
		namespace = strings.TrimSuffix(opts.Prefix, ".")
	}

	buckets := opts.HistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	objects := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: promModelSubsystem,
		Name:      "objects",
		Help:      "Number of configuration objects found, per kind.",
	}, []string{"kind"})

	apps := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: promModelSubsystem,
		Name:      "applications",
		Help:      "Number of resolved applications, per virtual server type.",
	}, []string{"type"})

	stage := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: promRunSubsystem,
		Name:      "stage_duration_seconds",
		Help:      "Duration in seconds of a processing stage.",
		Buckets:   buckets,
	}, []string{"stage"})

	diagnostics := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: promDiagSubsystem,
		Name:      "total",
		Help:      "The total of diagnostics entries, per kind.",
	}, []string{"kind"})

	lines := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: promSourceSubsystem,
		Name:      "lines_total",
		Help:      "The total of processed configuration lines, per outcome.",
	}, []string{"result"})

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: promRunSubsystem,
		Name:      "total",
		Help:      "The total of runs, per result.",
	}, []string{"result"})

	p := &Prometheus{
		objectsM:     objects,
		appsM:        apps,
		stageM:       stage,
		diagnosticsM: diagnostics,
		linesM:       lines,
		runsM:        runs,

		registry: opts.PrometheusRegistry,
		opts:     opts,
	}

	if p.registry == nil {
		p.registry = prometheus.NewRegistry()
	}

	p.registerMetrics()
	return p
}

func (p *Prometheus) registerMetrics() {
	p.registry.MustRegister(p.objectsM)
	p.registry.MustRegister(p.appsM)
	p.registry.MustRegister(p.stageM)
	p.registry.MustRegister(p.diagnosticsM)
	p.registry.MustRegister(p.linesM)
	p.registry.MustRegister(p.runsM)

	if p.opts.EnableRuntimeMetrics {
		p.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		p.registry.MustRegister(collectors.NewGoCollector())
	}
}

// Registry returns the registry holding the metrics.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// WriteToTextfile writes the current values in the text exposition format,
// for the textfile collector of the node exporter.
func (p *Prometheus) WriteToTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, p.registry)
}

// SetObjects satisfies Metrics interface.
func (p *Prometheus) SetObjects(kind string, n int) {
	p.objectsM.WithLabelValues(kind).Set(float64(n))
}

// SetApps satisfies Metrics interface.
func (p *Prometheus) SetApps(appType string, n int) {
	p.appsM.WithLabelValues(appType).Set(float64(n))
}

// MeasureStage satisfies Metrics interface.
func (p *Prometheus) MeasureStage(stage string, start time.Time) {
	p.stageM.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// IncDiagnostics satisfies Metrics interface.
func (p *Prometheus) IncDiagnostics(kind string, n int) {
	p.diagnosticsM.WithLabelValues(kind).Add(float64(n))
}

// AddLines satisfies Metrics interface.
func (p *Prometheus) AddLines(result string, n int) {
	p.linesM.WithLabelValues(result).Add(float64(n))
}

// IncRuns satisfies Metrics interface.
func (p *Prometheus) IncRuns(result string) {
	p.runsM.WithLabelValues(result).Inc()
}
