package digest

import (
	"net/netip"
	"strings"

	"github.com/zalando/adcmigrate/adc"
	"github.com/zalando/adcmigrate/objects"
	"github.com/zalando/adcmigrate/optstring"
)

var (
	addServer        = objects.Path{Verb: "add", Category: "server"}
	addService       = objects.Path{Verb: "add", Category: "service"}
	bindService      = objects.Path{Verb: "bind", Category: "service"}
	addServiceGroup  = objects.Path{Verb: "add", Category: "serviceGroup"}
	bindServiceGroup = objects.Path{Verb: "bind", Category: "serviceGroup"}
	addMonitor       = objects.Path{Verb: "add", Category: "lb", Subtype: "monitor"}
	addGSLBService   = objects.Path{Verb: "add", Category: "gslb", Subtype: "service"}
	bindGSLBService  = objects.Path{Verb: "bind", Category: "gslb", Subtype: "service"}
	addGSLBSite      = objects.Path{Verb: "add", Category: "gslb", Subtype: "site"}
)

const (
	monitorNameFlag    = "-monitorName"
	gslbServiceFlag    = "-serviceName"
	siteNameFlag       = "-siteName"
	serverReference    = "server"
	serviceReference   = "service"
	sslServiceProtocol = "SSL"
)

// monitors that exist on every appliance without being declared
var builtinMonitors = map[string]bool{
	"ping":         true,
	"ping-default": true,
	"tcp":          true,
	"tcp-default":  true,
	"tcp-ecv":      true,
	"tcps":         true,
	"http":         true,
	"http-ecv":     true,
	"https":        true,
	"https-ecv":    true,
	"udp-ecv":      true,
	"dns":          true,
	"dns-tcp":      true,
	"ftp":          true,
	"arp":          true,
	"nd6":          true,
	"ldns-ping":    true,
	"ldns-tcp":     true,
	"ldns-dns":     true,
	"sta":          true,
	"stasecure":    true,
}

// IsBuiltinMonitor tells whether a monitor name refers to one of the
// monitors predefined on the appliance.
func IsBuiltinMonitor(name string) bool {
	return builtinMonitors[strings.ToLower(optstring.Unquote(name))]
}

func isIP(s string) bool {
	_, err := netip.ParseAddr(optstring.Unquote(s))
	return err == nil
}

func destination(s *adc.Server, address string) {
	if isIP(address) {
		s.Address = address
	} else {
		s.Hostname = address
	}
}

// resolveServer resolves a server reference of a service. Services can
// name an IP address directly, without a declared server.
func (d *digester) resolveServer(a *adc.App, ref string) *adc.Server {
	if ref == "" {
		return nil
	}

	o, ok := d.model.Get(addServer, ref)
	if !ok {
		if isIP(ref) {
			return &adc.Server{Name: ref, Address: ref}
		}

		d.dangling(a, serverReference, ref)
		return &adc.Server{Name: ref}
	}

	a.AddLines(o.Lines()...)
	s := &adc.Server{Name: o.Name, Options: copyOptions(o.Options)}
	destination(s, o.Address)
	return s
}

func (d *digester) resolveMonitor(a *adc.App, name string) *adc.Monitor {
	if o, ok := d.model.Get(addMonitor, name); ok {
		a.AddLines(o.Lines()...)
		return &adc.Monitor{Name: o.Name, Type: o.Protocol, Options: copyOptions(o.Options)}
	}

	if IsBuiltinMonitor(name) {
		return &adc.Monitor{Name: name, Builtin: true}
	}

	d.dangling(a, monitorNameFlag, name)
	return &adc.Monitor{Name: name}
}

// monitors of a service, service group or gslb service, from its bind
// statements
func (d *digester) monitors(a *adc.App, bindings []*objects.Object) []*adc.Monitor {
	var m []*adc.Monitor
	for _, b := range bindings {
		if n := b.Opt(monitorNameFlag); n != "" {
			a.AddLines(b.Lines()...)
			m = append(m, d.resolveMonitor(a, n))
		}
	}

	return m
}

func (d *digester) resolveService(a *adc.App, o *objects.Object) *adc.Service {
	a.AddLines(o.Lines()...)
	return &adc.Service{
		Name:     o.Name,
		Protocol: o.Protocol,
		Port:     o.Port,
		Server:   d.resolveServer(a, o.Server),
		Options:  copyOptions(o.Options),
		Monitors: d.monitors(a, d.model.Bindings(bindService, o.Name)),
		Cert:     d.resolveSSL(a, sslService, o.Name, nil),
	}
}

func (d *digester) resolveServiceGroup(a *adc.App, o *objects.Object) *adc.ServiceGroup {
	a.AddLines(o.Lines()...)
	g := &adc.ServiceGroup{
		Name:     o.Name,
		Protocol: o.Protocol,
		Options:  copyOptions(o.Options),
	}

	bindings := d.model.Bindings(bindServiceGroup, o.Name)
	for _, b := range bindings {
		if b.Server == "" {
			continue
		}

		a.AddLines(b.Lines()...)
		g.Members = append(g.Members, &adc.Member{
			Server:  d.resolveServer(a, b.Server),
			Port:    b.Port,
			Options: copyOptions(b.Options),
		})
	}

	g.Monitors = d.monitors(a, bindings)
	g.Cert = d.resolveSSL(a, sslServiceGroup, o.Name, nil)
	return g
}

// resolveBackend resolves the target of a bind lb vserver statement, which
// can be either a service or a service group.
func (d *digester) resolveBackend(a *adc.App, name string) {
	if o, ok := d.model.Get(addService, name); ok {
		a.Bindings.Services = append(a.Bindings.Services, d.resolveService(a, o))
		return
	}

	if o, ok := d.model.Get(addServiceGroup, name); ok {
		a.Bindings.ServiceGroups = append(a.Bindings.ServiceGroups, d.resolveServiceGroup(a, o))
		return
	}

	d.dangling(a, serviceReference, name)
	a.Bindings.Services = append(a.Bindings.Services, &adc.Service{Name: name})
}

func (d *digester) resolveSite(a *adc.App, name string) *adc.Site {
	o, ok := d.model.Get(addGSLBSite, name)
	if !ok {
		d.dangling(a, siteNameFlag, name)
		return &adc.Site{Name: name}
	}

	a.AddLines(o.Lines()...)
	return &adc.Site{Name: o.Name, Address: o.Address, Options: copyOptions(o.Options)}
}

func (d *digester) resolveGSLBService(a *adc.App, name string) *adc.GSLBService {
	o, ok := d.model.Get(addGSLBService, name)
	if !ok {
		d.dangling(a, gslbServiceFlag, name)
		return &adc.GSLBService{Name: name}
	}

	a.AddLines(o.Lines()...)
	s := &adc.GSLBService{
		Name:     o.Name,
		Protocol: o.Protocol,
		Port:     o.Port,
		Server:   d.resolveServer(a, o.Server),
		Options:  copyOptions(o.Options),
		Monitors: d.monitors(a, d.model.Bindings(bindGSLBService, o.Name)),
	}

	if site := o.Opt(siteNameFlag); site != "" {
		s.Site = d.resolveSite(a, site)
	}

	if strings.EqualFold(o.Protocol, sslServiceProtocol) {
		if set, ok := d.model.Get(sslService.set, o.Name); ok {
			a.AddLines(set.Lines()...)
			s.SSLOptions = copyOptions(set.Options)
		}
	}

	return s
}
