/*
Package objects builds the object model of a configuration: every recognized
command line is parsed with the grammar table and stored under its verb,
category and subtype, indexed by object name.

Objects declared more than once, e.g. by a repeated add or set command, are
merged field by field. Bind commands are different: every bind statement is
kept as a separate object, even when many of them refer to the same name.
*/
package objects

import (
	"encoding/json"
	"strings"

	"github.com/zalando/adcmigrate/optstring"
)

// Path identifies a bucket of the model, e.g. add/lb/vserver. Subtype is
// empty for two word commands like add server.
type Path struct {
	Verb, Category, Subtype string
}

// NewPath creates a path from a command prefix like "bind lb vserver".
func NewPath(prefix string) Path {
	var p Path
	w := strings.Fields(prefix)
	switch len(w) {
	case 3:
		p.Subtype = w[2]
		fallthrough
	case 2:
		p.Category = w[1]
		p.Verb = w[0]
	}

	return p
}

func (p Path) String() string {
	if p.Subtype == "" {
		return p.Verb + " " + p.Category
	}

	return p.Verb + " " + p.Category + " " + p.Subtype
}

// Object is a parsed configuration line, or several merged ones.
type Object struct {
	// Name is the identity of the object within its bucket, quotes
	// included when the source has them.
	Name string `json:"name"`

	Protocol string `json:"protocol,omitempty"`
	Address  string `json:"address,omitempty"`
	Port     string `json:"port,omitempty"`
	Server   string `json:"server,omitempty"`

	// Fields contains the other positional arguments captured by the
	// grammar, e.g. rule and action of a rewrite policy.
	Fields map[string]string `json:"fields,omitempty"`

	// Options contains the -flag arguments.
	Options map[string]string `json:"opts,omitempty"`

	// Source is the verbatim line the object was created from.
	Source string `json:"_source"`

	// Merged contains the lines of later statements merged into this
	// object.
	Merged []string `json:"_merged,omitempty"`
}

// Lines returns all source lines of the object.
func (o *Object) Lines() []string {
	if o == nil {
		return nil
	}

	return append([]string{o.Source}, o.Merged...)
}

// Field returns a positional field.
func (o *Object) Field(name string) string {
	if o == nil {
		return ""
	}

	return o.Fields[name]
}

// Option returns the value of a flag, and whether it is set.
func (o *Object) Option(flag string) (string, bool) {
	if o == nil {
		return "", false
	}

	v, ok := o.Options[flag]
	return v, ok
}

// Opt returns the value of a flag, or empty string.
func (o *Object) Opt(flag string) string {
	v, _ := o.Option(flag)
	return v
}

func setIf(to *string, from string) {
	if from != "" {
		*to = from
	}
}

// merge applies the non-empty fields of other to o. Options and positional
// fields are merged per key, the latest value wins.
func (o *Object) merge(other *Object) {
	setIf(&o.Protocol, other.Protocol)
	setIf(&o.Address, other.Address)
	setIf(&o.Port, other.Port)
	setIf(&o.Server, other.Server)

	if len(other.Fields) > 0 && o.Fields == nil {
		o.Fields = make(map[string]string)
	}

	for k, v := range other.Fields {
		o.Fields[k] = v
	}

	if len(other.Options) > 0 && o.Options == nil {
		o.Options = make(map[string]string)
	}

	for k, v := range other.Options {
		o.Options[k] = v
	}

	o.Merged = append(o.Merged, other.Lines()...)
}

// Bucket holds the objects of one path, in the order of their first
// appearance.
type Bucket struct {
	keys    []string
	objects map[string]*Object
	byName  map[string][]string
}

func newBucket() *Bucket {
	return &Bucket{
		objects: make(map[string]*Object),
		byName:  make(map[string][]string),
	}
}

func (b *Bucket) put(key string, o *Object) {
	if existing, ok := b.objects[key]; ok {
		existing.merge(o)
		return
	}

	b.keys = append(b.keys, key)
	b.objects[key] = o
	b.byName[o.Name] = append(b.byName[o.Name], key)
}

// Len returns the number of keys in the bucket.
func (b *Bucket) Len() int {
	if b == nil {
		return 0
	}

	return len(b.keys)
}

// Keys returns the storage keys in order. For bind buckets these are
// synthetic, unique per statement.
func (b *Bucket) Keys() []string {
	if b == nil {
		return nil
	}

	return b.keys
}

// Objects returns the objects in order.
func (b *Bucket) Objects() []*Object {
	if b == nil {
		return nil
	}

	o := make([]*Object, len(b.keys))
	for i, k := range b.keys {
		o[i] = b.objects[k]
	}

	return o
}

// Key returns the object stored under a key.
func (b *Bucket) Key(key string) (*Object, bool) {
	if b == nil {
		return nil, false
	}

	o, ok := b.objects[key]
	return o, ok
}

// candidate names for a lookup: option values come unquoted, while names
// captured from positional arguments keep their quotes
func alternatives(name string) []string {
	if name == "" {
		return nil
	}

	u := optstring.Unquote(name)
	if u != name {
		return []string{name, u}
	}

	return []string{name, `"` + name + `"`}
}

// Named returns the objects with a name, in order. The lookup accepts the
// name with or without surrounding quotes.
func (b *Bucket) Named(name string) []*Object {
	if b == nil {
		return nil
	}

	for _, n := range alternatives(name) {
		keys := b.byName[n]
		if len(keys) == 0 {
			continue
		}

		o := make([]*Object, len(keys))
		for i, k := range keys {
			o[i] = b.objects[k]
		}

		return o
	}

	return nil
}

// Model is the parsed configuration.
type Model struct {
	paths   []Path
	buckets map[Path]*Bucket
}

// New creates an empty model.
func New() *Model {
	return &Model{buckets: make(map[Path]*Bucket)}
}

func (m *Model) bucket(p Path) *Bucket {
	b, ok := m.buckets[p]
	if !ok {
		b = newBucket()
		m.buckets[p] = b
		m.paths = append(m.paths, p)
	}

	return b
}

// Paths returns the paths having objects, in order of first appearance.
func (m *Model) Paths() []Path {
	if m == nil {
		return nil
	}

	return m.paths
}

// Bucket returns the bucket of a path, or nil.
func (m *Model) Bucket(p Path) *Bucket {
	if m == nil {
		return nil
	}

	return m.buckets[p]
}

// Get returns the object of a name from a non-bind bucket.
func (m *Model) Get(p Path, name string) (*Object, bool) {
	o := m.Bucket(p).Named(name)
	if len(o) == 0 {
		return nil, false
	}

	return o[0], true
}

// Bindings returns all bind statements of a name.
func (m *Model) Bindings(p Path, name string) []*Object {
	return m.Bucket(p).Named(name)
}

// Count returns the number of keys stored under a path.
func (m *Model) Count(p Path) int {
	return m.Bucket(p).Len()
}

// Add stores an object under a path and key. When an object exists with
// the same key, the new one is merged into it.
func (m *Model) Add(p Path, key string, o *Object) {
	m.bucket(p).put(key, o)
}

type bucketJSON struct {
	b *Bucket
}

func (bj bucketJSON) MarshalJSON() ([]byte, error) {
	m := make(map[string]*Object, bj.b.Len())
	for _, k := range bj.b.keys {
		m[k] = bj.b.objects[k]
	}

	return json.Marshal(m)
}

// MarshalJSON renders the model as nested objects, keyed by verb,
// category, subtype and object key.
func (m *Model) MarshalJSON() ([]byte, error) {
	root := make(map[string]map[string]any)
	for _, p := range m.Paths() {
		verb, ok := root[p.Verb]
		if !ok {
			verb = make(map[string]any)
			root[p.Verb] = verb
		}

		objects := bucketJSON{m.buckets[p]}
		if p.Subtype == "" {
			verb[p.Category] = objects
			continue
		}

		category, ok := verb[p.Category].(map[string]any)
		if !ok {
			category = make(map[string]any)
			verb[p.Category] = category
		}

		category[p.Subtype] = objects
	}

	return json.Marshal(root)
}
