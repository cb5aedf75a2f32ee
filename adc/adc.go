/*
Package adc contains the application aggregates resolved from a
configuration: one App per virtual server, with its backends, policies,
certificate and the applications it forwards traffic to.
*/
package adc

// Type is the virtual server category of an application.
type Type string

const (
	CS   Type = "cs"
	LB   Type = "lb"
	GSLB Type = "gslb"
)

// App is the resolved representation of a single virtual server.
type App struct {
	Name     string            `json:"name"`
	Type     Type              `json:"type"`
	Protocol string            `json:"protocol,omitempty"`
	Address  string            `json:"ipAddress,omitempty"`
	Port     string            `json:"port,omitempty"`
	Options  map[string]string `json:"opts,omitempty"`
	Bindings *Bindings         `json:"bindings,omitempty"`

	// Appflows contains the observability policy chains of content
	// switching servers.
	Appflows []*Appflow `json:"appflows,omitempty"`

	// Lines contains every source line contributing to the application.
	Lines []string `json:"lines,omitempty"`

	// Apps contains copies of the applications referenced by this one.
	Apps []*App `json:"apps,omitempty"`
}

// Bindings of an application. Which fields are used depends on the type.
type Bindings struct {
	Services      []*Service       `json:"service,omitempty"`
	ServiceGroups []*ServiceGroup  `json:"serviceGroup,omitempty"`
	GSLBServices  []*GSLBService   `json:"gslbService,omitempty"`
	Domains       []*Domain        `json:"domain,omitempty"`
	Policies      []*PolicyBinding `json:"policies,omitempty"`

	// LBVservers contains the bare name bindings to other virtual
	// servers, e.g. the default target of a content switching server.
	LBVservers []string `json:"lbvserver,omitempty"`

	Cert *Cert `json:"cert,omitempty"`
}

// Server is a backend endpoint. Exactly one of Address and Hostname is
// set, unless the server is missing from the configuration.
type Server struct {
	Name     string            `json:"name"`
	Address  string            `json:"address,omitempty"`
	Hostname string            `json:"hostname,omitempty"`
	Options  map[string]string `json:"opts,omitempty"`
}

// Monitor is a health check.
type Monitor struct {
	Name    string            `json:"name"`
	Type    string            `json:"type,omitempty"`
	Builtin bool              `json:"builtin,omitempty"`
	Options map[string]string `json:"opts,omitempty"`
}

// Service is a single backend service bound to a virtual server.
type Service struct {
	Name     string            `json:"name"`
	Protocol string            `json:"protocol,omitempty"`
	Port     string            `json:"port,omitempty"`
	Server   *Server           `json:"server,omitempty"`
	Options  map[string]string `json:"opts,omitempty"`
	Monitors []*Monitor        `json:"monitors,omitempty"`

	// Cert holds the SSL bindings and settings of the service, used
	// towards the backend.
	Cert *Cert `json:"cert,omitempty"`
}

// Member is a server bound to a service group.
type Member struct {
	Server  *Server           `json:"server"`
	Port    string            `json:"port,omitempty"`
	Options map[string]string `json:"opts,omitempty"`
}

// ServiceGroup is a pool of backend servers bound to a virtual server.
type ServiceGroup struct {
	Name     string            `json:"name"`
	Protocol string            `json:"protocol,omitempty"`
	Options  map[string]string `json:"opts,omitempty"`
	Members  []*Member         `json:"members,omitempty"`
	Monitors []*Monitor        `json:"monitors,omitempty"`
	Cert     *Cert             `json:"cert,omitempty"`
}

// Site is a GSLB site.
type Site struct {
	Name    string            `json:"name"`
	Address string            `json:"address,omitempty"`
	Options map[string]string `json:"opts,omitempty"`
}

// GSLBService is a service bound to a GSLB virtual server.
type GSLBService struct {
	Name       string            `json:"name"`
	Protocol   string            `json:"protocol,omitempty"`
	Port       string            `json:"port,omitempty"`
	Server     *Server           `json:"server,omitempty"`
	Site       *Site             `json:"site,omitempty"`
	Options    map[string]string `json:"opts,omitempty"`
	SSLOptions map[string]string `json:"sslOpts,omitempty"`
	Monitors   []*Monitor        `json:"monitors,omitempty"`
}

// Domain is a domain name bound to a GSLB virtual server.
type Domain struct {
	Name    string            `json:"name"`
	Options map[string]string `json:"opts,omitempty"`
}

// Policy kinds.
const (
	PolicyCS             = "cs"
	PolicyRewrite        = "rewrite"
	PolicyResponder      = "responder"
	PolicyAuthentication = "authentication"
	PolicyAppflow        = "appflow"
)

// Policy is a named rule triggering an action.
type Policy struct {
	Name       string            `json:"name"`
	Kind       string            `json:"kind"`
	Rule       string            `json:"rule,omitempty"`
	ActionName string            `json:"action,omitempty"`
	Options    map[string]string `json:"opts,omitempty"`
}

// Action is the behavior triggered by a policy.
type Action struct {
	Name       string            `json:"name"`
	Kind       string            `json:"kind"`
	Type       string            `json:"type,omitempty"`
	Target     string            `json:"target,omitempty"`
	Expression string            `json:"expression,omitempty"`
	Builtin    bool              `json:"builtin,omitempty"`
	Options    map[string]string `json:"opts,omitempty"`
}

// PolicyBinding is the structured form of a binding: a policy bound to a
// virtual server with a priority, and optionally with a target virtual
// server.
type PolicyBinding struct {
	PolicyName             string            `json:"policyName"`
	Priority               string            `json:"priority,omitempty"`
	GotoPriorityExpression string            `json:"gotoPriorityExpression,omitempty"`
	Type                   string            `json:"type,omitempty"`
	TargetLBVserver        string            `json:"targetLBVserver,omitempty"`
	Options                map[string]string `json:"opts,omitempty"`
	Policy                 *Policy           `json:"policy,omitempty"`
	Action                 *Action           `json:"action,omitempty"`
}

// Collector receives appflow records.
type Collector struct {
	Name    string            `json:"name"`
	Options map[string]string `json:"opts,omitempty"`
}

// Appflow is an observability policy chain.
type Appflow struct {
	Policy     *Policy      `json:"policy"`
	Action     *Action      `json:"action,omitempty"`
	Collectors []*Collector `json:"collectors,omitempty"`
}

// Cert is the merged TLS configuration of a virtual server, a service or
// a service group. The options of
// every SSL binding and of the bound certificate-key pairs are merged into
// it, except for the elliptic curve names, which are collected.
type Cert struct {
	CertKeyNames []string          `json:"certkeyNames,omitempty"`
	ECCCurves    []string          `json:"eccCurveName,omitempty"`
	Options      map[string]string `json:"opts,omitempty"`
}

// AddLines appends source lines to the application.
func (a *App) AddLines(lines ...string) {
	a.Lines = append(a.Lines, lines...)
}

// DedupeLines removes repeated lines, keeping the first occurrence.
func DedupeLines(lines []string) []string {
	if lines == nil {
		return nil
	}

	seen := make(map[string]bool, len(lines))
	d := make([]string, 0, len(lines))
	for _, l := range lines {
		if seen[l] {
			continue
		}

		seen[l] = true
		d = append(d, l)
	}

	return d
}

// Dedupe removes repeated lines of an application and its nested
// applications.
func Dedupe(a *App) {
	if a == nil {
		return
	}

	a.Lines = DedupeLines(a.Lines)
	for _, ai := range a.Apps {
		Dedupe(ai)
	}
}
