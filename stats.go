package adcmigrate

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/zalando/adcmigrate/adc"
	"github.com/zalando/adcmigrate/objects"
)

// Stats of a run.
type Stats struct {
	// Version of the grammar used.
	Version string `json:"version"`

	// Objects holds the number of named objects per kind, e.g. lbVserver
	// or certKey. Every kind is present, also when zero.
	Objects map[string]int `json:"objects"`

	// Apps holds the number of resolved applications per type, before
	// filtering by type.
	Apps map[adc.Type]int `json:"apps"`

	objects.Counts

	IngestTime time.Duration `json:"ingestTime"`
	DigestTime time.Duration `json:"digestTime"`
	LinkTime   time.Duration `json:"linkTime"`

	// SourceDigest is the xxhash of the configuration text, in hex. It
	// allows telling whether two results came from the same source. Set
	// only by Run.
	SourceDigest string `json:"sourceDigest,omitempty"`
}

type objectKind struct {
	name   string
	prefix string
}

var objectKinds = []objectKind{
	{"csVserver", "add cs vserver"},
	{"lbVserver", "add lb vserver"},
	{"gslbVserver", "add gslb vserver"},
	{"server", "add server"},
	{"service", "add service"},
	{"serviceGroup", "add serviceGroup"},
	{"gslbService", "add gslb service"},
	{"gslbSite", "add gslb site"},
	{"monitor", "add lb monitor"},
	{"certKey", "add ssl certKey"},
	{"csPolicy", "add cs policy"},
	{"csAction", "add cs action"},
	{"rewritePolicy", "add rewrite policy"},
	{"rewriteAction", "add rewrite action"},
	{"responderPolicy", "add responder policy"},
	{"responderAction", "add responder action"},
	{"authenticationPolicy", "add authentication policy"},
	{"appflowPolicy", "add appflow policy"},
	{"appflowAction", "add appflow action"},
	{"appflowCollector", "add appflow collector"},
}

// ObjectKinds returns the names of the counted object kinds.
func ObjectKinds() []string {
	names := make([]string, len(objectKinds))
	for i, k := range objectKinds {
		names[i] = k.name
	}

	return names
}

// CountObjects counts the named objects of the model at fixed paths.
func CountObjects(m *objects.Model) map[string]int {
	counts := make(map[string]int, len(objectKinds))
	for _, k := range objectKinds {
		counts[k.name] = m.Count(objects.NewPath(k.prefix))
	}

	return counts
}

// CountApps counts the applications per type. The nested copies attached
// by the linker are not counted.
func CountApps(apps []*adc.App) map[adc.Type]int {
	counts := map[adc.Type]int{adc.CS: 0, adc.LB: 0, adc.GSLB: 0}
	for _, a := range apps {
		counts[a.Type]++
	}

	return counts
}

// SourceDigest returns the xxhash of a configuration text, in hex.
func SourceDigest(text string) string {
	return strconv.FormatUint(xxhash.Sum64String(text), 16)
}
