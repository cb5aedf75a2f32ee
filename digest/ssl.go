package digest

import (
	"slices"

	"github.com/zalando/adcmigrate/adc"
	"github.com/zalando/adcmigrate/objects"
)

var (
	addCertKey = objects.Path{Verb: "add", Category: "ssl", Subtype: "certKey"}

	sslVserver      = sslPaths("vserver")
	sslService      = sslPaths("service")
	sslServiceGroup = sslPaths("serviceGroup")
)

type sslPath struct {
	bind, set objects.Path
}

func sslPaths(subtype string) sslPath {
	return sslPath{
		bind: objects.Path{Verb: "bind", Category: "ssl", Subtype: subtype},
		set:  objects.Path{Verb: "set", Category: "ssl", Subtype: subtype},
	}
}

const (
	certKeyNameFlag  = "-certkeyName"
	eccCurveNameFlag = "-eccCurveName"
)

func appendUnique(l []string, v string) []string {
	if slices.Contains(l, v) {
		return l
	}

	return append(l, v)
}

func (d *digester) bindCertKey(a *adc.App, c *adc.Cert, name string) {
	c.CertKeyNames = appendUnique(c.CertKeyNames, name)
	o, ok := d.model.Get(addCertKey, name)
	if !ok {
		d.dangling(a, certKeyNameFlag, name)
		return
	}

	a.AddLines(o.Lines()...)
	c.Options = mergeOptions(c.Options, o.Options)
}

// resolveSSL merges the SSL bindings and the SSL settings of a named
// entity into a single certificate record. Curve names are collected
// instead of overwritten. Returns c unchanged when there are none.
func (d *digester) resolveSSL(a *adc.App, p sslPath, name string, c *adc.Cert) *adc.Cert {
	bindings := d.model.Bindings(p.bind, name)
	set, hasSet := d.model.Get(p.set, name)
	if len(bindings) == 0 && !hasSet {
		return c
	}

	if c == nil {
		c = &adc.Cert{}
	}

	for _, b := range bindings {
		a.AddLines(b.Lines()...)
		c.Options = mergeOptions(c.Options, without(b.Options, certKeyNameFlag, eccCurveNameFlag))
		if n := b.Opt(certKeyNameFlag); n != "" {
			d.bindCertKey(a, c, n)
		}

		if curve := b.Opt(eccCurveNameFlag); curve != "" {
			c.ECCCurves = appendUnique(c.ECCCurves, curve)
		}
	}

	if hasSet {
		a.AddLines(set.Lines()...)
		c.Options = mergeOptions(c.Options, set.Options)
	}

	return c
}

// resolveCert attaches the certificate of the application's virtual server.
func (d *digester) resolveCert(a *adc.App) {
	a.Bindings.Cert = d.resolveSSL(a, sslVserver, a.Name, a.Bindings.Cert)
}
