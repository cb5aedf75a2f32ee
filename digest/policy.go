package digest

import (
	"strings"

	"github.com/zalando/adcmigrate/adc"
	"github.com/zalando/adcmigrate/objects"
)

const (
	policyNameFlag = "-policyName"
	actionFlag     = "-action"
	ruleFlag       = "-rule"
	collectorsFlag = "-collectors"
)

// policy kinds in lookup order
var policyKinds = []string{
	adc.PolicyCS,
	adc.PolicyRewrite,
	adc.PolicyResponder,
	adc.PolicyAuthentication,
	adc.PolicyAppflow,
}

// subtypes of the actions of authentication policies
var authenticationActions = []string{
	"ldapAction",
	"radiusAction",
	"samlAction",
	"OAuthAction",
	"certAction",
}

// actions that exist without being declared
var builtinActions = map[string]bool{
	"NOOP":        true,
	"RESET":       true,
	"DROP":        true,
	"NOREWRITE":   true,
	"NORESPONDER": true,
}

var addAppflowCollector = objects.Path{Verb: "add", Category: "appflow", Subtype: "collector"}

// flags consumed into the typed fields of a policy binding
var policyBindingFlags = []string{
	policyNameFlag,
	"-priority",
	"-gotoPriorityExpression",
	"-type",
	"-targetLBVserver",
}

func policyPath(kind string) objects.Path {
	return objects.Path{Verb: "add", Category: kind, Subtype: "policy"}
}

func actionPaths(kind string) []objects.Path {
	if kind == adc.PolicyAuthentication {
		p := make([]objects.Path, len(authenticationActions))
		for i, s := range authenticationActions {
			p[i] = objects.Path{Verb: "add", Category: kind, Subtype: s}
		}

		return p
	}

	return []objects.Path{{Verb: "add", Category: kind, Subtype: "action"}}
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

func (d *digester) resolveAction(a *adc.App, kind, name string) *adc.Action {
	for _, p := range actionPaths(kind) {
		o, ok := d.model.Get(p, name)
		if !ok {
			continue
		}

		a.AddLines(o.Lines()...)
		return &adc.Action{
			Name:       o.Name,
			Kind:       kind,
			Type:       o.Field("type"),
			Target:     o.Field("target"),
			Expression: o.Field("expr"),
			Options:    copyOptions(o.Options),
		}
	}

	if builtinActions[strings.ToUpper(name)] {
		return &adc.Action{Name: name, Kind: kind, Builtin: true}
	}

	d.dangling(a, kind+" policy action", name)
	return &adc.Action{Name: name, Kind: kind}
}

// resolvePolicy finds a policy by name, looking through the policy kinds in
// order, and resolves its action. It returns nil when the policy doesn't
// exist.
func (d *digester) resolvePolicy(a *adc.App, name string) (*adc.Policy, *adc.Action) {
	for _, kind := range policyKinds {
		o, ok := d.model.Get(policyPath(kind), name)
		if !ok {
			continue
		}

		a.AddLines(o.Lines()...)
		p := &adc.Policy{
			Name:       o.Name,
			Kind:       kind,
			Rule:       firstOf(o.Field("rule"), o.Opt(ruleFlag)),
			ActionName: firstOf(o.Field("action"), o.Opt(actionFlag)),
			Options:    copyOptions(o.Options),
		}

		if p.ActionName == "" {
			return p, nil
		}

		return p, d.resolveAction(a, kind, p.ActionName)
	}

	d.dangling(a, policyNameFlag, name)
	return nil, nil
}

// policyBinding creates the structured form of a binding from a bind
// statement carrying -policyName.
func (d *digester) policyBinding(a *adc.App, b *objects.Object) *adc.PolicyBinding {
	pb := &adc.PolicyBinding{
		PolicyName:             b.Opt(policyNameFlag),
		Priority:               b.Opt("-priority"),
		GotoPriorityExpression: b.Opt("-gotoPriorityExpression"),
		Type:                   b.Opt("-type"),
		TargetLBVserver:        b.Opt("-targetLBVserver"),
		Options:                without(b.Options, policyBindingFlags...),
	}

	pb.Policy, pb.Action = d.resolvePolicy(a, pb.PolicyName)
	return pb
}

func splitList(s string) []string {
	var l []string
	for _, si := range strings.Split(s, ",") {
		if si = strings.TrimSpace(si); si != "" {
			l = append(l, si)
		}
	}

	return l
}

// appflow turns the binding of an appflow policy into an appflow chain,
// resolving the collectors of its action.
func (d *digester) appflow(a *adc.App, pb *adc.PolicyBinding) *adc.Appflow {
	f := &adc.Appflow{Policy: pb.Policy, Action: pb.Action}
	if pb.Action == nil {
		return f
	}

	for _, n := range splitList(pb.Action.Options[collectorsFlag]) {
		o, ok := d.model.Get(addAppflowCollector, n)
		if !ok {
			d.dangling(a, collectorsFlag, n)
			f.Collectors = append(f.Collectors, &adc.Collector{Name: n})
			continue
		}

		a.AddLines(o.Lines()...)
		f.Collectors = append(f.Collectors, &adc.Collector{Name: o.Name, Options: copyOptions(o.Options)})
	}

	return f
}
