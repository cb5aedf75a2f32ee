package adcmigrate_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zalando/adcmigrate"
	"github.com/zalando/adcmigrate/adc"
	"github.com/zalando/adcmigrate/diag"
	"github.com/zalando/adcmigrate/grammar"
)

const scenario = `
add lb vserver web_vs HTTP 10.1.1.100 80 -persistenceType SOURCEIP
add service web_svc 10.1.1.10 HTTP 80
bind lb vserver web_vs web_svc
`

const switching = `
#NS13.1 Build 37.38
add server srv1 10.0.0.1
add service svc_api srv1 HTTP 8080
add service svc_static srv1 HTTP 8081
add lb vserver lb_api HTTP 0.0.0.0 0
add lb vserver lb_static HTTP 0.0.0.0 0
bind lb vserver lb_api svc_api
bind lb vserver lb_static svc_static
add cs vserver cs1 HTTP 10.0.0.100 80
add cs action act_api -targetLBVserver lb_api
add cs policy pol_api -rule "HTTP.REQ.URL.STARTSWITH(\"/api\")" -action act_api
bind cs vserver cs1 -policyName pol_api -priority 100
bind cs vserver cs1 -lbvserver lb_static
add gslb vserver gv1 HTTP
add gslb service gs1 srv1 HTTP 80
bind gslb vserver gv1 -serviceName gs1
`

func options() adcmigrate.Options {
	logger, _ := logtest.NewNullLogger()
	return adcmigrate.Options{Version: grammar.DefaultVersion, Log: logger}
}

func TestRunScenario(t *testing.T) {
	res, err := adcmigrate.Run(context.Background(), scenario, options())
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)

	want := []*adc.App{{
		Name:     "web_vs",
		Type:     adc.LB,
		Protocol: "HTTP",
		Address:  "10.1.1.100",
		Port:     "80",
		Options:  map[string]string{"-persistenceType": "SOURCEIP"},
		Bindings: &adc.Bindings{
			Services: []*adc.Service{{
				Name:     "web_svc",
				Protocol: "HTTP",
				Port:     "80",
				Server:   &adc.Server{Name: "10.1.1.10", Address: "10.1.1.10"},
			}},
		},
		Lines: []string{
			"add lb vserver web_vs HTTP 10.1.1.100 80 -persistenceType SOURCEIP",
			"bind lb vserver web_vs web_svc",
			"add service web_svc 10.1.1.10 HTTP 80",
		},
	}}

	if d := cmp.Diff(want, res.Apps); d != "" {
		t.Errorf("unexpected applications:\n%s", d)
	}

	assert.Equal(t, grammar.DefaultVersion, res.Stats.Version)
	assert.Equal(t, 3, res.Stats.Lines)
	assert.Equal(t, 3, res.Stats.Parsed)
	assert.Equal(t, 1, res.Stats.Objects["lbVserver"])
	assert.Equal(t, 1, res.Stats.Objects["service"])
	assert.Equal(t, 0, res.Stats.Objects["csVserver"])
	assert.Len(t, res.Stats.Objects, len(adcmigrate.ObjectKinds()))
	assert.Equal(t, map[adc.Type]int{adc.CS: 0, adc.LB: 1, adc.GSLB: 0}, res.Stats.Apps)
	assert.Equal(t, adcmigrate.SourceDigest(scenario), res.Stats.SourceDigest)
	assert.NotNil(t, res.Model)
}

func TestRunLinksApplications(t *testing.T) {
	res, err := adcmigrate.Run(context.Background(), switching, options())
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)

	require.Len(t, res.Apps, 4)
	cs := res.Apps[0]
	assert.Equal(t, "cs1", cs.Name)
	assert.Equal(t, adc.CS, cs.Type)

	require.Len(t, cs.Apps, 2)
	assert.Equal(t, "lb_static", cs.Apps[0].Name)
	assert.Equal(t, "lb_api", cs.Apps[1].Name)
	for _, linked := range cs.Apps {
		assert.Nil(t, linked.Lines)
	}

	assert.Contains(t, cs.Lines, "add lb vserver lb_api HTTP 0.0.0.0 0")
	assert.Contains(t, cs.Lines, "add service svc_static srv1 HTTP 8081")

	// the shared server line is pulled in through both load balancers
	seen := make(map[string]bool)
	for _, a := range res.Apps {
		for _, l := range a.Lines {
			assert.False(t, seen[a.Name+"\x00"+l], "duplicate line in %s: %s", a.Name, l)
			seen[a.Name+"\x00"+l] = true
		}
	}

	assert.Equal(t, "lb_api", res.Apps[1].Name)
	assert.Equal(t, "lb_static", res.Apps[2].Name)
	assert.Equal(t, "gv1", res.Apps[3].Name)
	assert.Empty(t, res.Apps[1].Apps)

	cs.Apps[1].Bindings.Services[0].Name = "changed"
	assert.Equal(t, "svc_api", res.Apps[1].Bindings.Services[0].Name, "linked application is a copy")
}

func TestRunDanglingReference(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	res, err := adcmigrate.Run(context.Background(), `
add cs vserver cs1 HTTP 10.0.0.100 80
add cs action act1 -targetLBVserver lb_missing
add cs policy pol1 -rule true -action act1
bind cs vserver cs1 -policyName pol1 -priority 100
`, adcmigrate.Options{Version: grammar.DefaultVersion, Log: logger})
	require.NoError(t, err)

	require.Len(t, res.Apps, 1)
	assert.Equal(t, "cs1", res.Apps[0].Name)
	assert.Empty(t, res.Apps[0].Apps)
	assert.Equal(t, "lb_missing", res.Apps[0].Bindings.Policies[0].Action.Options["-targetLBVserver"])

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diag.DanglingReference, res.Diagnostics[0].Kind)
	assert.Equal(t, "cs1", res.Diagnostics[0].App)
	assert.Equal(t, "lb_missing", res.Diagnostics[0].Target)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "lb_missing", entry.Data["target"])
}

func TestRunQuotedName(t *testing.T) {
	res, err := adcmigrate.Run(context.Background(), `
add lb vserver "Web App Server" HTTP 10.1.1.100 80
add service web_svc 10.1.1.10 HTTP 80
bind lb vserver "Web App Server" web_svc
`, options())
	require.NoError(t, err)

	require.Len(t, res.Apps, 1)
	assert.Equal(t, `"Web App Server"`, res.Apps[0].Name)
	require.Len(t, res.Apps[0].Bindings.Services, 1)
	assert.Equal(t, "web_svc", res.Apps[0].Bindings.Services[0].Name)
}

func TestRunMultipleBindings(t *testing.T) {
	res, err := adcmigrate.Run(context.Background(), `
add serviceGroup sg_a HTTP
add serviceGroup sg_b HTTP
add lb vserver lb1 HTTP 10.0.0.100 80
bind lb vserver lb1 sg_a
bind lb vserver lb1 sg_b
`, options())
	require.NoError(t, err)

	require.Len(t, res.Apps, 1)
	groups := res.Apps[0].Bindings.ServiceGroups
	require.Len(t, groups, 2)
	assert.Equal(t, "sg_a", groups[0].Name)
	assert.Equal(t, "sg_b", groups[1].Name)
}

func TestRunNoApplications(t *testing.T) {
	res, err := adcmigrate.Run(context.Background(), `
add server srv1 10.0.0.1
add service svc1 srv1 HTTP 80
`, options())
	assert.ErrorIs(t, err, adcmigrate.ErrNoApplications)
	assert.ErrorContains(t, err, "cs, lb or gslb")

	require.NotNil(t, res)
	assert.Empty(t, res.Apps)
	assert.Equal(t, 1, res.Stats.Objects["server"])
}

func TestRunIdempotent(t *testing.T) {
	first, err := adcmigrate.Run(context.Background(), switching, options())
	require.NoError(t, err)

	second, err := adcmigrate.Run(context.Background(), switching, options())
	require.NoError(t, err)

	if d := cmp.Diff(first.Apps, second.Apps); d != "" {
		t.Errorf("results differ:\n%s", d)
	}

	assert.Equal(t, first.Diagnostics, second.Diagnostics)
	assert.Equal(t, first.Stats.SourceDigest, second.Stats.SourceDigest)
}

func TestRunFilterTypes(t *testing.T) {
	o := options()
	o.Types = []adc.Type{adc.LB}

	res, err := adcmigrate.Run(context.Background(), switching, o)
	require.NoError(t, err)

	require.Len(t, res.Apps, 2)
	for _, a := range res.Apps {
		assert.Equal(t, adc.LB, a.Type)
	}

	assert.Equal(t, map[adc.Type]int{adc.CS: 1, adc.LB: 2, adc.GSLB: 1}, res.Stats.Apps)
}

func TestRunVersionFallback(t *testing.T) {
	o := options()
	o.Version = "NS99.9: Build 1.1"

	res, err := adcmigrate.Run(context.Background(), scenario, o)
	require.NoError(t, err)

	assert.Equal(t, grammar.DefaultVersion, res.Stats.Version)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diag.VersionFallback, res.Diagnostics[0].Kind)
}

func TestRunSourceVersion(t *testing.T) {
	t.Run("from header", func(t *testing.T) {
		o := options()
		o.Version = ""

		res, err := adcmigrate.Run(context.Background(), "#NS12.1 Build 55.1\n"+scenario, o)
		require.NoError(t, err)

		assert.Equal(t, "12.1", res.Stats.Version)
		assert.Empty(t, res.Diagnostics)
	})

	t.Run("option wins over header", func(t *testing.T) {
		o := options()
		o.Version = "NS13.0: Build 90.7"

		res, err := adcmigrate.Run(context.Background(), "#NS12.1 Build 55.1\n"+scenario, o)
		require.NoError(t, err)
		assert.Equal(t, "13.0", res.Stats.Version)
	})

	t.Run("no header", func(t *testing.T) {
		o := options()
		o.Version = ""

		res, err := adcmigrate.Run(context.Background(), scenario, o)
		require.NoError(t, err)

		assert.Equal(t, grammar.DefaultVersion, res.Stats.Version)
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, diag.VersionFallback, res.Diagnostics[0].Kind)
	})
}

func TestRunGrammarMiss(t *testing.T) {
	res, err := adcmigrate.Run(context.Background(), scenario+"add service broken_svc\nadd ns ip 10.0.0.1\n", options())
	require.NoError(t, err)

	assert.Equal(t, 5, res.Stats.Lines)
	assert.Equal(t, 1, res.Stats.Misses)
	assert.Equal(t, 1, res.Stats.Skipped)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diag.GrammarMiss, res.Diagnostics[0].Kind)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := adcmigrate.Run(ctx, scenario, options())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunTracesStages(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer tp.Shutdown(context.Background())

	o := options()
	o.Tracer = tp.Tracer("test")

	_, err := adcmigrate.Run(context.Background(), scenario, o)
	require.NoError(t, err)

	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}

	assert.Equal(t, []string{adcmigrate.StageIngest, adcmigrate.StageDigest, adcmigrate.StageLink, "run"}, names)
}

type recorder struct {
	mu          sync.Mutex
	objects     map[string]int
	apps        map[string]int
	stages      []string
	diagnostics map[string]int
	lines       map[string]int
	runs        map[string]int
}

func newRecorder() *recorder {
	return &recorder{
		objects:     make(map[string]int),
		apps:        make(map[string]int),
		diagnostics: make(map[string]int),
		lines:       make(map[string]int),
		runs:        make(map[string]int),
	}
}

func (r *recorder) SetObjects(kind string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[kind] = n
}

func (r *recorder) SetApps(appType string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[appType] = n
}

func (r *recorder) MeasureStage(stage string, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *recorder) IncDiagnostics(kind string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diagnostics[kind] += n
}

func (r *recorder) AddLines(result string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[result] += n
}

func (r *recorder) IncRuns(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[result]++
}

func TestRunMetrics(t *testing.T) {
	rec := newRecorder()
	o := options()
	o.Metrics = rec

	_, err := adcmigrate.Run(context.Background(), scenario+"add service broken_svc\n", o)
	require.NoError(t, err)

	_, err = adcmigrate.Run(context.Background(), "add server srv1 10.0.0.1\n", o)
	require.ErrorIs(t, err, adcmigrate.ErrNoApplications)

	assert.Equal(t, map[string]int{adcmigrate.ResultOK: 1, adcmigrate.ResultEmpty: 1}, rec.runs)
	assert.Equal(t, []string{
		adcmigrate.StageIngest, adcmigrate.StageDigest, adcmigrate.StageLink,
		adcmigrate.StageIngest, adcmigrate.StageDigest, adcmigrate.StageLink,
	}, rec.stages)
	assert.Equal(t, 1, rec.objects["server"])
	assert.Equal(t, 0, rec.apps["lb"])
	assert.Equal(t, map[string]int{"parsed": 4, "miss": 1, "skipped": 0}, rec.lines)
	assert.Equal(t, map[string]int{string(diag.GrammarMiss): 1}, rec.diagnostics)
}
