/*
Package digest resolves the applications of a configuration from its object
model. There is one digester per virtual server type: content switching,
load balancing and GSLB. Each of them walks the add, set and bind commands
of its virtual servers, and follows the references from the bindings to
services, service groups, servers, monitors, policies, actions and
certificates. The SSL bindings and settings of virtual servers, services and
service groups are merged into certificate records.

References to missing objects are reported to the diagnostics collector and
kept in the result with the name only. Every source line contributing to an
application is appended to its line list, repeated lines are removed later,
after the applications are linked.

The digesters only read the model, and they can run concurrently, as long as
each of them uses its own collector.
*/
package digest

import (
	"github.com/zalando/adcmigrate/adc"
	"github.com/zalando/adcmigrate/diag"
	"github.com/zalando/adcmigrate/objects"
)

type vserverPaths struct {
	add, set, bind objects.Path
}

func pathsOf(category string) vserverPaths {
	return vserverPaths{
		add:  objects.Path{Verb: "add", Category: category, Subtype: "vserver"},
		set:  objects.Path{Verb: "set", Category: category, Subtype: "vserver"},
		bind: objects.Path{Verb: "bind", Category: category, Subtype: "vserver"},
	}
}

var (
	csPaths   = pathsOf("cs")
	lbPaths   = pathsOf("lb")
	gslbPaths = pathsOf("gslb")
)

type digester struct {
	model *objects.Model
	diag  *diag.Collector
}

func copyOptions(o map[string]string) map[string]string {
	if len(o) == 0 {
		return nil
	}

	c := make(map[string]string, len(o))
	for k, v := range o {
		c[k] = v
	}

	return c
}

// returns a copy of o without the keys in drop
func without(o map[string]string, drop ...string) map[string]string {
	c := copyOptions(o)
	for _, k := range drop {
		delete(c, k)
	}

	if len(c) == 0 {
		return nil
	}

	return c
}

func mergeOptions(to map[string]string, from map[string]string) map[string]string {
	if len(from) == 0 {
		return to
	}

	if to == nil {
		to = make(map[string]string, len(from))
	}

	for k, v := range from {
		to[k] = v
	}

	return to
}

func (d *digester) dangling(a *adc.App, reference, target string) {
	d.diag.Dangling(a.Name, reference, target)
}

// newApp creates the application of a virtual server, merging the set
// commands of the same name.
func (d *digester) newApp(t adc.Type, p vserverPaths, o *objects.Object) *adc.App {
	a := &adc.App{
		Name:     o.Name,
		Type:     t,
		Protocol: o.Protocol,
		Address:  o.Address,
		Port:     o.Port,
		Options:  copyOptions(o.Options),
		Bindings: &adc.Bindings{},
		Lines:    o.Lines(),
	}

	if set, ok := d.model.Get(p.set, o.Name); ok {
		a.Options = mergeOptions(a.Options, set.Options)
		a.AddLines(set.Lines()...)
	}

	return a
}

func (d *digester) digest(t adc.Type, p vserverPaths, bind func(*adc.App, *objects.Object)) []*adc.App {
	var apps []*adc.App
	for _, o := range d.model.Bucket(p.add).Objects() {
		a := d.newApp(t, p, o)
		for _, b := range d.model.Bindings(p.bind, o.Name) {
			a.AddLines(b.Lines()...)
			bind(a, b)
		}

		apps = append(apps, a)
	}

	return apps
}

// CS resolves the content switching applications.
func CS(m *objects.Model, c *diag.Collector) []*adc.App {
	d := &digester{model: m, diag: c}
	apps := d.digest(adc.CS, csPaths, d.bindCS)
	for _, a := range apps {
		d.resolveCert(a)
	}

	return apps
}

// LB resolves the load balancing applications.
func LB(m *objects.Model, c *diag.Collector) []*adc.App {
	d := &digester{model: m, diag: c}
	apps := d.digest(adc.LB, lbPaths, d.bindLB)
	for _, a := range apps {
		d.resolveCert(a)
	}

	return apps
}

// GSLB resolves the global server load balancing applications.
func GSLB(m *objects.Model, c *diag.Collector) []*adc.App {
	d := &digester{model: m, diag: c}
	apps := d.digest(adc.GSLB, gslbPaths, d.bindGSLB)
	for _, a := range apps {
		d.resolveCert(a)
	}

	return apps
}

func (d *digester) bindCS(a *adc.App, b *objects.Object) {
	if _, ok := b.Option(policyNameFlag); ok {
		pb := d.policyBinding(a, b)
		if pb.Policy != nil && pb.Policy.Kind == adc.PolicyAppflow {
			a.Appflows = append(a.Appflows, d.appflow(a, pb))
			return
		}

		a.Bindings.Policies = append(a.Bindings.Policies, pb)
		return
	}

	if lb := b.Opt("-lbvserver"); lb != "" {
		a.Bindings.LBVservers = append(a.Bindings.LBVservers, lb)
	}
}

func (d *digester) bindLB(a *adc.App, b *objects.Object) {
	if s := b.Field("service"); s != "" {
		d.resolveBackend(a, s)
		return
	}

	if s := b.Opt("-serviceGroupName"); s != "" {
		d.resolveBackend(a, s)
		return
	}

	if _, ok := b.Option(policyNameFlag); ok {
		a.Bindings.Policies = append(a.Bindings.Policies, d.policyBinding(a, b))
	}
}

func (d *digester) bindGSLB(a *adc.App, b *objects.Object) {
	if s := b.Opt("-serviceName"); s != "" {
		a.Bindings.GSLBServices = append(a.Bindings.GSLBServices, d.resolveGSLBService(a, s))
		return
	}

	if n := b.Opt("-domainName"); n != "" {
		a.Bindings.Domains = append(a.Bindings.Domains, &adc.Domain{
			Name:    n,
			Options: without(b.Options, "-domainName"),
		})

		return
	}

	if _, ok := b.Option(policyNameFlag); ok {
		a.Bindings.Policies = append(a.Bindings.Policies, d.policyBinding(a, b))
	}
}
