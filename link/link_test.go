package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando/adcmigrate/adc"
	"github.com/zalando/adcmigrate/diag"
)

func lbApp(name string, lines ...string) *adc.App {
	return &adc.App{
		Name:     name,
		Type:     adc.LB,
		Bindings: &adc.Bindings{Services: []*adc.Service{{Name: name + "_svc"}}},
		Lines:    lines,
	}
}

func TestLinkDirectBinding(t *testing.T) {
	lb := lbApp("lb1", "add lb vserver lb1 HTTP", "add service lb1_svc")
	cs := &adc.App{
		Name:     "cs1",
		Type:     adc.CS,
		Bindings: &adc.Bindings{LBVservers: []string{"lb1"}},
		Lines:    []string{"add cs vserver cs1 HTTP", "bind cs vserver cs1 -lbvserver lb1"},
	}

	c := diag.New(nil)
	Apps([]*adc.App{cs, lb}, c)
	assert.Empty(t, c.Entries())

	require.Len(t, cs.Apps, 1)
	linked := cs.Apps[0]
	assert.Equal(t, "lb1", linked.Name)
	assert.Nil(t, linked.Lines, "lines of the copy are moved to the referencing app")
	assert.Equal(t, []string{
		"add cs vserver cs1 HTTP",
		"bind cs vserver cs1 -lbvserver lb1",
		"add lb vserver lb1 HTTP",
		"add service lb1_svc",
	}, cs.Lines)

	linked.Bindings.Services[0].Name = "changed"
	assert.Equal(t, "lb1_svc", lb.Bindings.Services[0].Name, "linked app is a copy")
	assert.Empty(t, lb.Apps)
}

func TestLinkPolicyReferences(t *testing.T) {
	lbA := lbApp("lb_a", "add lb vserver lb_a HTTP")
	lbB := lbApp("lb_b", "add lb vserver lb_b HTTP")
	cs := &adc.App{
		Name: "cs1",
		Type: adc.CS,
		Bindings: &adc.Bindings{
			Policies: []*adc.PolicyBinding{{
				PolicyName:      "p1",
				TargetLBVserver: "lb_a",
			}, {
				PolicyName: "p2",
				Action:     &adc.Action{Name: "a2", Options: map[string]string{"-targetLBVserver": "lb_b"}},
			}, {
				PolicyName: "p3",
				Action:     &adc.Action{Name: "a3", Options: map[string]string{"-targetLBVserver": "lb_a"}},
			}},
		},
	}

	c := diag.New(nil)
	Apps([]*adc.App{cs, lbA, lbB}, c)
	assert.Empty(t, c.Entries())

	require.Len(t, cs.Apps, 2, "each target is attached once")
	assert.Equal(t, "lb_a", cs.Apps[0].Name)
	assert.Equal(t, "lb_b", cs.Apps[1].Name)
	assert.Equal(t, []string{"add lb vserver lb_a HTTP", "add lb vserver lb_b HTTP"}, cs.Lines)
}

func TestLinkDangling(t *testing.T) {
	cs := &adc.App{
		Name: "cs1",
		Type: adc.CS,
		Bindings: &adc.Bindings{
			Policies: []*adc.PolicyBinding{{
				PolicyName: "p1",
				Action:     &adc.Action{Name: "a1", Options: map[string]string{"-targetLBVserver": "lb_missing"}},
			}},
		},
		Lines: []string{"add cs vserver cs1 HTTP"},
	}

	c := diag.New(nil)
	Apps([]*adc.App{cs}, c)

	assert.Empty(t, cs.Apps)
	require.Len(t, c.Entries(), 1)
	e := c.Entries()[0]
	assert.Equal(t, diag.DanglingReference, e.Kind)
	assert.Equal(t, "cs1", e.App)
	assert.Equal(t, "lb_missing", e.Target)
	assert.Equal(t, adc.RefAction.String(), e.Reference)
}

func TestLinkCycle(t *testing.T) {
	a := &adc.App{Name: "cs_a", Type: adc.CS, Bindings: &adc.Bindings{LBVservers: []string{"cs_b"}}, Lines: []string{"a"}}
	b := &adc.App{Name: "cs_b", Type: adc.CS, Options: map[string]string{"-backupVServer": "cs_a"}, Lines: []string{"b"}}

	Apps([]*adc.App{a, b}, nil)

	require.Len(t, a.Apps, 1)
	require.Len(t, b.Apps, 1)
	assert.Empty(t, a.Apps[0].Apps, "copies are taken before linking")
	assert.Empty(t, b.Apps[0].Apps)
	assert.Equal(t, []string{"a", "b"}, a.Lines)
	assert.Equal(t, []string{"b", "a"}, b.Lines)
}

func TestLinkSelfReference(t *testing.T) {
	a := &adc.App{Name: "lb1", Options: map[string]string{"-backupVServer": "lb1"}}
	c := diag.New(nil)
	Apps([]*adc.App{a}, c)
	assert.Empty(t, a.Apps)
	assert.Empty(t, c.Entries())
}

func TestLinkQuotedNames(t *testing.T) {
	lb := lbApp(`"Web App Server"`, "add lb vserver \"Web App Server\" HTTP")
	cs := &adc.App{Name: "cs1", Bindings: &adc.Bindings{LBVservers: []string{"Web App Server"}}}

	c := diag.New(nil)
	Apps([]*adc.App{cs, lb}, c)
	assert.Empty(t, c.Entries())
	require.Len(t, cs.Apps, 1)
	assert.Equal(t, `"Web App Server"`, cs.Apps[0].Name)
}

func TestLinkDuplicateNames(t *testing.T) {
	first := lbApp("lb1", "first")
	second := lbApp("lb1", "second")
	cs := &adc.App{Name: "cs1", Bindings: &adc.Bindings{LBVservers: []string{"lb1"}}}

	c := diag.New(nil)
	Apps([]*adc.App{cs, first, second}, c)

	assert.Equal(t, 1, c.Count(diag.DuplicateName))
	assert.Equal(t, []string{"first"}, cs.Lines)
}

func TestLinkDedupesLines(t *testing.T) {
	lb := lbApp("lb1", "shared", "lb line")
	cs := &adc.App{
		Name:     "cs1",
		Bindings: &adc.Bindings{LBVservers: []string{"lb1"}},
		Lines:    []string{"cs line", "shared", "cs line"},
	}

	Apps([]*adc.App{cs, lb}, nil)
	assert.Equal(t, []string{"cs line", "shared", "lb line"}, cs.Lines)
}
