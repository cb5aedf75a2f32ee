/*
Package grammar contains the table of recognized configuration commands.

Every entry maps a command prefix, e.g. "add lb vserver", to a regular
expression that is applied to the rest of the line. The expressions use named
capture groups for the fields of the command:

	name      identity of the object, optionally "quoted with spaces"
	protocol  service type, an open set of tokens
	address   IP address or host name
	port      numeric port or the * wildcard
	server    referenced server name or address
	opts      the trailing option string, see package optstring

Other named groups (rule, action, service, type, target, expr) capture
positional arguments of individual commands.

The table is selected by appliance software version. Currently all known
versions share the canonical table, version specific differences can be
registered as variants.
*/
package grammar

import (
	"regexp"
	"strings"
)

const (
	// DefaultVersion is used when the version of the source configuration
	// is unknown.
	DefaultVersion = "13.1"

	nameExp   = `(?P<name>"[^"]*"|\S+)`
	refExp    = `"[^"]*"|[^-\s"]\S*`
	quotedExp = `"(?:[^"\\]|\\.)*"`
	portExp   = `(?P<port>\d+|\*)`
	optsExp   = `(?:\s+(?P<opts>-.*))?`
)

// Known group names.
const (
	Name     = "name"
	Protocol = "protocol"
	Address  = "address"
	Port     = "port"
	Server   = "server"
	Opts     = "opts"
)

// Entry is a single command of the grammar.
type Entry struct {
	// Prefix is the command without arguments, e.g. "bind ssl vserver".
	Prefix string

	// Verb, Category and Subtype are the words of the prefix. Subtype is
	// empty for two word commands like "add server".
	Verb, Category, Subtype string

	// Pattern is matched against the line after the prefix.
	Pattern *regexp.Regexp
}

// Table is an ordered list of grammar entries for one software version.
type Table struct {
	version string
	entries []*Entry
}

var knownVersions = []string{
	"10.1", "10.5", "11.0", "11.1", "12.0", "12.1", "13.0", "13.1", "14.1",
}

// variants holds the entries that differ from the canonical table, per
// version. An entry with a prefix already in the table replaces it, others
// are appended.
var variants = map[string][]*Entry{}

var versionExp = regexp.MustCompile(`(\d+)\.(\d+)`)

func entry(prefix, pattern string) *Entry {
	e := &Entry{Prefix: prefix, Pattern: regexp.MustCompile(`^` + pattern + `$`)}
	words := strings.Fields(prefix)
	switch len(words) {
	case 3:
		e.Subtype = words[2]
		fallthrough
	case 2:
		e.Category = words[1]
		e.Verb = words[0]
	}

	return e
}

func nameOnly(prefix string) *Entry {
	return entry(prefix, nameExp+optsExp)
}

func vserver(prefix string) *Entry {
	return entry(prefix, nameExp+`\s+(?P<protocol>\S+)(?:\s+(?P<address>[^-\s]\S*)\s+`+portExp+`)?`+optsExp)
}

func service(prefix string) *Entry {
	return entry(prefix, nameExp+`\s+(?P<server>`+refExp+`)\s+(?P<protocol>\S+)\s+`+portExp+optsExp)
}

func withProtocol(prefix string) *Entry {
	return entry(prefix, nameExp+`\s+(?P<protocol>\S+)`+optsExp)
}

// policy commands with a positional rule and action, e.g. rewrite and
// responder policies
func positionalPolicy(prefix string) *Entry {
	return entry(prefix, nameExp+
		`\s+(?P<rule>`+quotedExp+`|\S+)`+
		`\s+(?P<action>`+refExp+`)`+
		`(?:\s+(?P<undefAction>`+refExp+`))?`+
		optsExp)
}

// action commands with a type keyword and up to two positional arguments
func positionalAction(prefix string) *Entry {
	return entry(prefix, nameExp+
		`\s+(?P<type>[^-\s]\S*)`+
		`(?:\s+(?P<target>`+quotedExp+`|[^-\s"]\S*))?`+
		`(?:\s+(?P<expr>`+quotedExp+`|[^-\s"]\S*))?`+
		optsExp)
}

func canonical() []*Entry {
	return []*Entry{
		// virtual servers
		vserver("add lb vserver"),
		vserver("add cs vserver"),
		withProtocol("add gslb vserver"),
		nameOnly("set lb vserver"),
		nameOnly("set cs vserver"),
		nameOnly("set gslb vserver"),
		entry("bind lb vserver", nameExp+`(?:\s+(?P<service>`+refExp+`))?`+optsExp),
		nameOnly("bind cs vserver"),
		nameOnly("bind gslb vserver"),

		// backends
		entry("add server", nameExp+`\s+(?P<address>`+refExp+`)`+optsExp),
		service("add service"),
		withProtocol("add serviceGroup"),
		nameOnly("bind service"),
		entry("bind serviceGroup", nameExp+`(?:\s+(?P<server>`+refExp+`)\s+`+portExp+`)?`+optsExp),
		withProtocol("add lb monitor"),

		// gslb
		service("add gslb service"),
		entry("add gslb site", nameExp+`(?:\s+(?:LOCAL|REMOTE))?\s+(?P<address>[^-\s]\S*)`+optsExp),
		nameOnly("bind gslb service"),

		// ssl
		nameOnly("add ssl certKey"),
		nameOnly("bind ssl vserver"),
		nameOnly("bind ssl service"),
		nameOnly("bind ssl serviceGroup"),
		nameOnly("set ssl vserver"),
		nameOnly("set ssl service"),
		nameOnly("set ssl serviceGroup"),

		// content switching policies
		nameOnly("add cs policy"),
		nameOnly("add cs action"),

		// rewrite and responder
		positionalPolicy("add rewrite policy"),
		positionalAction("add rewrite action"),
		positionalPolicy("add responder policy"),
		positionalAction("add responder action"),

		// authentication
		nameOnly("add authentication policy"),
		nameOnly("add authentication ldapAction"),
		nameOnly("add authentication radiusAction"),
		nameOnly("add authentication samlAction"),
		nameOnly("add authentication OAuthAction"),
		nameOnly("add authentication certAction"),

		// appflow
		positionalPolicy("add appflow policy"),
		nameOnly("add appflow action"),
		nameOnly("add appflow collector"),
	}
}

// NormalizeVersion extracts the major.minor part of a version string, like
// "NS13.1: Build 37.38.nc". It returns an empty string when s contains no
// version.
func NormalizeVersion(s string) string {
	m := versionExp.FindStringSubmatch(s)
	if len(m) == 0 {
		return ""
	}

	return m[1] + "." + m[2]
}

func isKnown(version string) bool {
	for _, v := range knownVersions {
		if v == version {
			return true
		}
	}

	return false
}

// New returns the grammar table for a software version. When the version is
// empty or not known, the table for DefaultVersion is returned and the
// second return value is false. Reporting the fallback is left to the
// caller.
func New(version string) (*Table, bool) {
	v := NormalizeVersion(version)
	known := isKnown(v)
	if !known {
		v = DefaultVersion
	}

	t := &Table{version: v, entries: canonical()}
	for _, e := range variants[v] {
		t.set(e)
	}

	return t, known
}

// WithEntries returns a table with the provided entries, in order. Used
// mainly for testing.
func WithEntries(version string, entries ...*Entry) *Table {
	return &Table{version: version, entries: entries}
}

// NewEntry creates a grammar entry from a prefix and a pattern. The pattern
// is anchored at both ends.
func NewEntry(prefix, pattern string) *Entry {
	return entry(prefix, pattern)
}

func (t *Table) set(e *Entry) {
	for i, ei := range t.entries {
		if ei.Prefix == e.Prefix {
			t.entries[i] = e
			return
		}
	}

	t.entries = append(t.entries, e)
}

// Version returns the software version of the table.
func (t *Table) Version() string { return t.version }

// Entries returns the entries of the table in order.
func (t *Table) Entries() []*Entry { return t.entries }

// Lookup returns the pattern for a command prefix.
func (t *Table) Lookup(prefix string) (*regexp.Regexp, bool) {
	for _, e := range t.entries {
		if e.Prefix == prefix {
			return e.Pattern, true
		}
	}

	return nil, false
}

func hasPrefix(line, prefix string) bool {
	if !strings.HasPrefix(line, prefix) {
		return false
	}

	if len(line) == len(prefix) {
		return true
	}

	c := line[len(prefix)]
	return c == ' ' || c == '\t'
}

// Match finds the entry for a line. The longest matching prefix wins, from
// prefixes of the same length the one earlier in the table. It returns the
// rest of the line after the prefix, trimmed.
func (t *Table) Match(line string) (*Entry, string, bool) {
	var found *Entry
	for _, e := range t.entries {
		if !hasPrefix(line, e.Prefix) {
			continue
		}

		if found == nil || len(e.Prefix) > len(found.Prefix) {
			found = e
		}
	}

	if found == nil {
		return nil, "", false
	}

	return found, strings.TrimSpace(line[len(found.Prefix):]), true
}

// Ambiguous returns the pairs of entries whose prefixes would compete for
// the same lines. Match resolves these by table order.
func (t *Table) Ambiguous() [][2]string {
	var pairs [][2]string
	for i, ei := range t.entries {
		for _, ej := range t.entries[i+1:] {
			if ei.Prefix == ej.Prefix {
				pairs = append(pairs, [2]string{ei.Prefix, ej.Prefix})
			}
		}
	}

	return pairs
}

// Extract applies the entry's pattern to the body of a line. It returns the
// non-empty named captures.
func (e *Entry) Extract(body string) (map[string]string, bool) {
	m := e.Pattern.FindStringSubmatch(body)
	if m == nil {
		return nil, false
	}

	fields := make(map[string]string)
	for i, n := range e.Pattern.SubexpNames() {
		if n == "" || m[i] == "" {
			continue
		}

		fields[n] = m[i]
	}

	return fields, true
}
