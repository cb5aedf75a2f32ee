package adc

func copyOptions(o map[string]string) map[string]string {
	if o == nil {
		return nil
	}

	c := make(map[string]string, len(o))
	for k, v := range o {
		c[k] = v
	}

	return c
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}

	c := make([]string, len(s))
	copy(c, s)
	return c
}

func copyAll[T any](s []*T, copyOne func(*T) *T) []*T {
	if s == nil {
		return nil
	}

	c := make([]*T, len(s))
	for i, si := range s {
		c[i] = copyOne(si)
	}

	return c
}

func CopyServer(s *Server) *Server {
	if s == nil {
		return nil
	}

	c := *s
	c.Options = copyOptions(s.Options)
	return &c
}

func CopyMonitor(m *Monitor) *Monitor {
	if m == nil {
		return nil
	}

	c := *m
	c.Options = copyOptions(m.Options)
	return &c
}

func CopyService(s *Service) *Service {
	if s == nil {
		return nil
	}

	c := *s
	c.Server = CopyServer(s.Server)
	c.Options = copyOptions(s.Options)
	c.Monitors = copyAll(s.Monitors, CopyMonitor)
	c.Cert = CopyCert(s.Cert)
	return &c
}

func copyMember(m *Member) *Member {
	if m == nil {
		return nil
	}

	c := *m
	c.Server = CopyServer(m.Server)
	c.Options = copyOptions(m.Options)
	return &c
}

func CopyServiceGroup(g *ServiceGroup) *ServiceGroup {
	if g == nil {
		return nil
	}

	c := *g
	c.Options = copyOptions(g.Options)
	c.Members = copyAll(g.Members, copyMember)
	c.Monitors = copyAll(g.Monitors, CopyMonitor)
	c.Cert = CopyCert(g.Cert)
	return &c
}

func copySite(s *Site) *Site {
	if s == nil {
		return nil
	}

	c := *s
	c.Options = copyOptions(s.Options)
	return &c
}

func CopyGSLBService(s *GSLBService) *GSLBService {
	if s == nil {
		return nil
	}

	c := *s
	c.Server = CopyServer(s.Server)
	c.Site = copySite(s.Site)
	c.Options = copyOptions(s.Options)
	c.SSLOptions = copyOptions(s.SSLOptions)
	c.Monitors = copyAll(s.Monitors, CopyMonitor)
	return &c
}

func copyDomain(d *Domain) *Domain {
	if d == nil {
		return nil
	}

	c := *d
	c.Options = copyOptions(d.Options)
	return &c
}

func CopyPolicy(p *Policy) *Policy {
	if p == nil {
		return nil
	}

	c := *p
	c.Options = copyOptions(p.Options)
	return &c
}

func CopyAction(a *Action) *Action {
	if a == nil {
		return nil
	}

	c := *a
	c.Options = copyOptions(a.Options)
	return &c
}

func CopyPolicyBinding(b *PolicyBinding) *PolicyBinding {
	if b == nil {
		return nil
	}

	c := *b
	c.Options = copyOptions(b.Options)
	c.Policy = CopyPolicy(b.Policy)
	c.Action = CopyAction(b.Action)
	return &c
}

func copyCollector(col *Collector) *Collector {
	if col == nil {
		return nil
	}

	c := *col
	c.Options = copyOptions(col.Options)
	return &c
}

func copyAppflow(f *Appflow) *Appflow {
	if f == nil {
		return nil
	}

	return &Appflow{
		Policy:     CopyPolicy(f.Policy),
		Action:     CopyAction(f.Action),
		Collectors: copyAll(f.Collectors, copyCollector),
	}
}

func CopyCert(cert *Cert) *Cert {
	if cert == nil {
		return nil
	}

	return &Cert{
		CertKeyNames: copyStrings(cert.CertKeyNames),
		ECCCurves:    copyStrings(cert.ECCCurves),
		Options:      copyOptions(cert.Options),
	}
}

func CopyBindings(b *Bindings) *Bindings {
	if b == nil {
		return nil
	}

	return &Bindings{
		Services:      copyAll(b.Services, CopyService),
		ServiceGroups: copyAll(b.ServiceGroups, CopyServiceGroup),
		GSLBServices:  copyAll(b.GSLBServices, CopyGSLBService),
		Domains:       copyAll(b.Domains, copyDomain),
		Policies:      copyAll(b.Policies, CopyPolicyBinding),
		LBVservers:    copyStrings(b.LBVservers),
		Cert:          CopyCert(b.Cert),
	}
}

// Copy returns a deep copy of an application, including its nested
// applications. The copy shares no maps, slices or pointers with the
// original.
func Copy(a *App) *App {
	if a == nil {
		return nil
	}

	c := &App{}
	c.Name = a.Name
	c.Type = a.Type
	c.Protocol = a.Protocol
	c.Address = a.Address
	c.Port = a.Port
	c.Options = copyOptions(a.Options)
	c.Bindings = CopyBindings(a.Bindings)
	c.Appflows = copyAll(a.Appflows, copyAppflow)
	c.Lines = copyStrings(a.Lines)
	c.Apps = CopyApps(a.Apps)
	return c
}

func CopyApps(a []*App) []*App {
	return copyAll(a, Copy)
}
