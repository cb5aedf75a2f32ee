package adcmigrate

import (
	"context"
	"errors"
	"slices"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/zalando/adcmigrate/adc"
	"github.com/zalando/adcmigrate/diag"
	"github.com/zalando/adcmigrate/digest"
	"github.com/zalando/adcmigrate/grammar"
	"github.com/zalando/adcmigrate/link"
	"github.com/zalando/adcmigrate/metrics"
	"github.com/zalando/adcmigrate/objects"
)

const tracerName = "github.com/zalando/adcmigrate"

// Stage names, used in spans and in the stage duration metrics.
const (
	StageIngest = "ingest"
	StageDigest = "digest"
	StageLink   = "link"
)

// Run results, used in the run metrics.
const (
	ResultOK    = "ok"
	ResultEmpty = "empty"
)

// ErrNoApplications is returned when the configuration has no virtual
// servers of any type.
var ErrNoApplications = errors.New("no applications found: the configuration has no cs, lb or gslb virtual servers")

// Options of a run.
type Options struct {

	// Version of the appliance software that saved the configuration,
	// e.g. "NS13.1: Build 37.38.nc". When empty, Run takes it from the
	// header comment of the configuration. When still empty or unknown,
	// the grammar of grammar.DefaultVersion is used, and the fallback is
	// reported.
	Version string

	// Types, when set, restricts the returned applications to these
	// types. All types are resolved and linked regardless, so that the
	// references across the types are kept.
	Types []adc.Type

	// Log receives the diagnostics as they are recorded. Defaults to the
	// standard logrus logger.
	Log log.FieldLogger

	// Metrics receives the statistics of the run. Defaults to
	// metrics.Void.
	Metrics metrics.Metrics

	// Tracer is used to trace the stages of the run. Defaults to the
	// tracer of the global OpenTelemetry provider.
	Tracer trace.Tracer
}

// Result of a run.
type Result struct {
	Apps        []*adc.App     `json:"apps"`
	Model       *objects.Model `json:"model,omitempty"`
	Stats       Stats          `json:"stats"`
	Diagnostics []diag.Entry   `json:"diagnostics,omitempty"`
}

type runner struct {
	options Options
	diag    *diag.Collector
	stats   Stats
}

func (o Options) withDefaults() Options {
	if o.Log == nil {
		o.Log = log.StandardLogger()
	}

	if o.Metrics == nil {
		o.Metrics = metrics.Void
	}

	if o.Tracer == nil {
		o.Tracer = otel.Tracer(tracerName)
	}

	return o
}

func (r *runner) startStage(ctx context.Context, stage string) (context.Context, trace.Span, time.Time) {
	ctx, span := r.options.Tracer.Start(ctx, stage)
	return ctx, span, time.Now()
}

func (r *runner) endStage(span trace.Span, stage string, start time.Time) time.Duration {
	r.options.Metrics.MeasureStage(stage, start)
	span.End()
	return time.Since(start)
}

func (r *runner) grammar() *grammar.Table {
	t, known := grammar.New(r.options.Version)
	if !known {
		r.diag.VersionFallback(r.options.Version, t.Version())
	}

	for _, a := range t.Ambiguous() {
		r.diag.AmbiguousGrammar(a[0], a[1])
	}

	return t
}

func (r *runner) ingest(ctx context.Context, lines []string) *objects.Model {
	_, span, start := r.startStage(ctx, StageIngest)
	t := r.grammar()
	m, counts := objects.Ingest(lines, t, r.diag)

	span.SetAttributes(
		attribute.String("grammar.version", t.Version()),
		attribute.Int("source.lines", counts.Lines),
		attribute.Int("source.misses", counts.Misses),
	)

	r.stats.Version = t.Version()
	r.stats.Counts = counts
	r.stats.IngestTime = r.endStage(span, StageIngest, start)

	return m
}

// digest runs the three digesters concurrently, each with its own
// collector. The results and the diagnostics are joined in the order of
// content switching, load balancing and GSLB.
func (r *runner) digest(ctx context.Context, m *objects.Model) ([]*adc.App, error) {
	ctx, span, start := r.startStage(ctx, StageDigest)
	defer func() { r.stats.DigestTime = r.endStage(span, StageDigest, start) }()

	digesters := []func(*objects.Model, *diag.Collector) []*adc.App{
		digest.CS,
		digest.LB,
		digest.GSLB,
	}

	var (
		results    = make([][]*adc.App, len(digesters))
		collectors = make([]*diag.Collector, len(digesters))
	)

	g, ctx := errgroup.WithContext(ctx)
	for i, d := range digesters {
		collectors[i] = r.diag.Fork()
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			results[i] = d(m, collectors[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var apps []*adc.App
	for i := range digesters {
		r.diag.Merge(collectors[i])
		apps = append(apps, results[i]...)
	}

	span.SetAttributes(attribute.Int("apps", len(apps)))
	return apps, nil
}

func (r *runner) link(ctx context.Context, apps []*adc.App) {
	_, span, start := r.startStage(ctx, StageLink)
	link.Apps(apps, r.diag)
	r.stats.LinkTime = r.endStage(span, StageLink, start)
}

func (r *runner) filter(apps []*adc.App) []*adc.App {
	if len(r.options.Types) == 0 {
		return apps
	}

	var filtered []*adc.App
	for _, a := range apps {
		if slices.Contains(r.options.Types, a.Type) {
			filtered = append(filtered, a)
		}
	}

	return filtered
}

func (r *runner) report(res *Result) {
	mx := r.options.Metrics
	for kind, n := range res.Stats.Objects {
		mx.SetObjects(kind, n)
	}

	for _, t := range []adc.Type{adc.CS, adc.LB, adc.GSLB} {
		mx.SetApps(string(t), res.Stats.Apps[t])
	}

	for _, k := range diag.Kinds() {
		if n := r.diag.Count(k); n > 0 {
			mx.IncDiagnostics(string(k), n)
		}
	}

	mx.AddLines("parsed", res.Stats.Parsed)
	mx.AddLines("miss", res.Stats.Misses)
	mx.AddLines("skipped", res.Stats.Skipped)
}

// RunLines resolves the applications of a configuration already split into
// lines. Recoverable problems, like lines not matching the grammar or
// references to missing objects, are reported in the diagnostics of the
// result. The only error, besides the cancellation of the context, is
// ErrNoApplications, returned together with the result.
func RunLines(ctx context.Context, lines []string, o Options) (*Result, error) {
	o = o.withDefaults()
	ctx, span := o.Tracer.Start(ctx, "run")
	defer span.End()

	r := &runner{options: o, diag: diag.New(o.Log)}
	m := r.ingest(ctx, lines)

	apps, err := r.digest(ctx, m)
	if err != nil {
		return nil, err
	}

	r.link(ctx, apps)

	res := &Result{
		Apps:  r.filter(apps),
		Model: m,
		Stats: r.stats,
	}

	res.Stats.Objects = CountObjects(m)
	res.Stats.Apps = CountApps(apps)
	res.Diagnostics = r.diag.Entries()
	r.report(res)

	if len(apps) == 0 {
		span.SetStatus(codes.Error, ErrNoApplications.Error())
		o.Metrics.IncRuns(ResultEmpty)
		return res, ErrNoApplications
	}

	o.Metrics.IncRuns(ResultOK)
	return res, nil
}

// Run resolves the applications of a configuration text. See RunLines.
func Run(ctx context.Context, text string, o Options) (*Result, error) {
	if o.Version == "" {
		o.Version = objects.SourceVersion(text)
	}

	res, err := RunLines(ctx, objects.SplitLines(text), o)
	if res != nil {
		res.Stats.SourceDigest = SourceDigest(text)
	}

	return res, err
}
