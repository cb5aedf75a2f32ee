/*
Package link connects the applications that reference each other by name,
e.g. a content switching server forwarding to load balancing servers.

Every referenced application is attached to the referencing one as a copy,
taken before any linking happens, so the resulting tree of applications is
acyclic even when the references form cycles. The source lines of the copy
are moved to the referencing application.
*/
package link

import (
	"github.com/zalando/adcmigrate/adc"
	"github.com/zalando/adcmigrate/diag"
	"github.com/zalando/adcmigrate/optstring"
)

// names in bindings and options may come with or without quotes
func key(name string) string {
	return optstring.Unquote(name)
}

type index struct {
	apps map[string]*adc.App
}

// newIndex indexes the applications by name. When more than one
// application has the same name, the first one is used, and the condition
// is reported.
func newIndex(apps []*adc.App, c *diag.Collector) index {
	var (
		idx    = index{apps: make(map[string]*adc.App)}
		counts = make(map[string]int)
		order  []string
	)

	for _, a := range apps {
		k := key(a.Name)
		counts[k]++
		if counts[k] > 1 {
			if counts[k] == 2 {
				order = append(order, a.Name)
			}

			continue
		}

		snapshot := adc.Copy(a)
		snapshot.Lines = nil
		idx.apps[k] = snapshot
	}

	for _, n := range order {
		c.DuplicateName(n, counts[key(n)])
	}

	return idx
}

func (idx index) lookup(name string) (*adc.App, bool) {
	a, ok := idx.apps[key(name)]
	return a, ok
}

// Apps links the applications in place, and removes the repeated source
// lines of each of them. References to unknown applications are reported
// to the collector.
func Apps(apps []*adc.App, c *diag.Collector) {
	lines := make(map[string][]string, len(apps))
	for _, a := range apps {
		if _, ok := lines[key(a.Name)]; !ok {
			lines[key(a.Name)] = append([]string(nil), a.Lines...)
		}
	}

	idx := newIndex(apps, c)
	for _, a := range apps {
		attached := make(map[string]bool)
		for _, r := range a.Refs() {
			k := key(r.Target)
			if k == key(a.Name) || attached[k] {
				continue
			}

			target, ok := idx.lookup(r.Target)
			if !ok {
				c.Dangling(a.Name, r.Kind.String(), r.Target)
				continue
			}

			attached[k] = true
			a.Apps = append(a.Apps, adc.Copy(target))
			a.AddLines(lines[k]...)
		}

		adc.Dedupe(a)
	}
}
