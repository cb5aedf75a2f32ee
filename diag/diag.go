/*
Package diag collects the recoverable conditions found while processing a
configuration: lines that match a command prefix but not its pattern,
references to objects that do not exist, and similar. Every entry is logged
when recorded and kept, so that callers can inspect them after a run without
depending on global logger state.

A nil *Collector is valid and discards everything.
*/
package diag

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Kind classifies a diagnostics entry.
type Kind string

const (
	// GrammarMiss is recorded when a line starts with a known command
	// prefix, but the rest of it doesn't match the expected pattern.
	GrammarMiss Kind = "grammar-miss"

	// DanglingReference is recorded when a binding, policy or action
	// names an object that doesn't exist.
	DanglingReference Kind = "dangling-reference"

	// VersionFallback is recorded when the grammar table for the default
	// version is used instead of the requested one.
	VersionFallback Kind = "version-fallback"

	// AmbiguousGrammar is recorded for grammar entries that compete for
	// the same lines.
	AmbiguousGrammar Kind = "ambiguous-grammar"

	// DuplicateName is recorded when more than one application has the
	// same name, and references to it can't be resolved unambiguously.
	DuplicateName Kind = "duplicate-name"
)

// Kinds returns every kind of diagnostics entries.
func Kinds() []Kind {
	return []Kind{GrammarMiss, DanglingReference, VersionFallback, AmbiguousGrammar, DuplicateName}
}

// Entry is a single diagnostics record.
type Entry struct {
	Kind Kind `json:"kind"`

	// App is the name of the application being resolved, if any.
	App string `json:"app,omitempty"`

	// Reference tells which field or binding held the failing reference,
	// e.g. -lbvserver or -monitorName.
	Reference string `json:"reference,omitempty"`

	// Target is the missing or ambiguous name.
	Target string `json:"target,omitempty"`

	// Line is the source line, for grammar misses.
	Line string `json:"line,omitempty"`

	Message string `json:"message"`
}

// Collector records diagnostics entries. It is not safe for concurrent
// use: concurrent workers should use their own collectors, created with
// Fork and joined with Merge.
type Collector struct {
	log     log.FieldLogger
	entries []Entry
}

// New creates a collector that logs to l. When l is nil, the standard
// logrus logger is used.
func New(l log.FieldLogger) *Collector {
	if l == nil {
		l = log.StandardLogger()
	}

	return &Collector{log: l}
}

// Fork returns an empty collector logging to the same logger.
func (c *Collector) Fork() *Collector {
	if c == nil {
		return nil
	}

	return &Collector{log: c.log}
}

// Merge appends the entries of other, without logging them again.
func (c *Collector) Merge(other *Collector) {
	if c == nil || other == nil {
		return
	}

	c.entries = append(c.entries, other.entries...)
}

func (c *Collector) fields(e Entry) log.Fields {
	f := log.Fields{"kind": string(e.Kind)}
	if e.App != "" {
		f["app"] = e.App
	}

	if e.Reference != "" {
		f["reference"] = e.Reference
	}

	if e.Target != "" {
		f["target"] = e.Target
	}

	return f
}

func (c *Collector) add(e Entry) {
	if c == nil {
		return
	}

	c.entries = append(c.entries, e)
	l := c.log.WithFields(c.fields(e))
	switch e.Kind {
	case DanglingReference, DuplicateName:
		l.Error(e.Message)
	case GrammarMiss, VersionFallback, AmbiguousGrammar:
		l.Warn(e.Message)
	default:
		l.Info(e.Message)
	}
}

// GrammarMiss records a line that could not be parsed with the pattern of
// its command prefix.
func (c *Collector) GrammarMiss(prefix, line string) {
	c.add(Entry{
		Kind:    GrammarMiss,
		Line:    line,
		Message: fmt.Sprintf("failed to parse %q line, only the object name is kept: %s", prefix, line),
	})
}

// Dangling records a reference from app to a missing target.
func (c *Collector) Dangling(app, reference, target string) {
	c.add(Entry{
		Kind:      DanglingReference,
		App:       app,
		Reference: reference,
		Target:    target,
		Message:   fmt.Sprintf("%s: %s references missing object %s", app, reference, target),
	})
}

// VersionFallback records that the default grammar version was used.
func (c *Collector) VersionFallback(requested, used string) {
	msg := fmt.Sprintf("unknown software version %q, using grammar for %s", requested, used)
	if requested == "" {
		msg = fmt.Sprintf("software version not detected, using grammar for %s", used)
	}

	c.add(Entry{Kind: VersionFallback, Target: requested, Message: msg})
}

// AmbiguousGrammar records two grammar prefixes that compete for the same
// lines.
func (c *Collector) AmbiguousGrammar(first, second string) {
	c.add(Entry{
		Kind:    AmbiguousGrammar,
		Target:  first,
		Message: fmt.Sprintf("grammar prefixes %q and %q are ambiguous, the earlier entry wins", first, second),
	})
}

// DuplicateName records that more than one application uses the same name.
func (c *Collector) DuplicateName(name string, count int) {
	c.add(Entry{
		Kind:    DuplicateName,
		Target:  name,
		Message: fmt.Sprintf("%d applications are named %s, references resolve to the first one", count, name),
	})
}

// Entries returns the recorded entries in order.
func (c *Collector) Entries() []Entry {
	if c == nil {
		return nil
	}

	return c.entries
}

// Count returns the number of entries of a kind.
func (c *Collector) Count(k Kind) int {
	var n int
	for _, e := range c.Entries() {
		if e.Kind == k {
			n++
		}
	}

	return n
}
