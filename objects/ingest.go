package objects

import (
	"strconv"
	"strings"

	"github.com/zalando/adcmigrate/diag"
	"github.com/zalando/adcmigrate/grammar"
	"github.com/zalando/adcmigrate/optstring"
)

const bindVerb = "bind"

// Counts tells how the lines of a configuration were processed.
type Counts struct {
	// Lines is the number of non-empty, non-comment lines.
	Lines int `json:"lines"`

	// Parsed is the number of lines fully matched by the grammar.
	Parsed int `json:"parsed"`

	// Misses is the number of lines with a known command prefix that
	// didn't match its pattern.
	Misses int `json:"misses"`

	// Skipped is the number of lines without a known command prefix.
	Skipped int `json:"skipped"`
}

// SplitLines splits configuration text into lines, dropping empty lines and
// comments, and trimming surrounding whitespace.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}

		lines = append(lines, l)
	}

	return lines
}

// SourceVersion returns the software version recorded in the header comment
// of a saved configuration, e.g. "NS13.1 Build 37.38", or "" when the text
// has no such header.
func SourceVersion(text string) string {
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}

		if !strings.HasPrefix(l, "#") {
			return ""
		}

		if v := strings.TrimSpace(strings.TrimPrefix(l, "#")); strings.HasPrefix(v, "NS") {
			return v
		}
	}

	return ""
}

func firstToken(body string) string {
	if f := strings.Fields(body); len(f) > 0 {
		return f[0]
	}

	return ""
}

func objectFromFields(fields map[string]string, source string) *Object {
	o := &Object{Source: source}
	for k, v := range fields {
		switch k {
		case grammar.Name:
			o.Name = v
		case grammar.Protocol:
			o.Protocol = v
		case grammar.Address:
			o.Address = v
		case grammar.Port:
			o.Port = v
		case grammar.Server:
			o.Server = v
		case grammar.Opts:
			if opts := optstring.Tokenize(v); len(opts) > 0 {
				o.Options = opts
			}
		default:
			if o.Fields == nil {
				o.Fields = make(map[string]string)
			}

			o.Fields[k] = v
		}
	}

	return o
}

// Parse classifies a single line. It returns the matching grammar entry and
// the parsed object. When the line has a known prefix but doesn't match
// the pattern of the entry, the object contains only the name, taken from
// the first token after the prefix, and the source line, and the last
// return value is false.
func Parse(t *grammar.Table, line string) (*grammar.Entry, *Object, bool) {
	e, body, ok := t.Match(line)
	if !ok {
		return nil, nil, false
	}

	fields, ok := e.Extract(body)
	if !ok {
		return e, &Object{Name: firstToken(body), Source: line}, false
	}

	return e, objectFromFields(fields, line), true
}

// Ingest builds the object model from configuration lines. Lines without a
// known command prefix are skipped. Lines that don't match the pattern of
// their prefix are reported to the collector and stored with their name
// only.
func Ingest(lines []string, t *grammar.Table, c *diag.Collector) (*Model, Counts) {
	var (
		counts  Counts
		bindSeq int
	)

	m := New()
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}

		counts.Lines++
		e, o, ok := Parse(t, l)
		if e == nil {
			counts.Skipped++
			continue
		}

		if ok {
			counts.Parsed++
		} else {
			counts.Misses++
			c.GrammarMiss(e.Prefix, l)
			if o.Name == "" {
				continue
			}
		}

		key := o.Name
		if e.Verb == bindVerb {
			key = o.Name + "#" + strconv.Itoa(bindSeq)
			bindSeq++
		}

		m.Add(NewPath(e.Prefix), key, o)
	}

	return m, counts
}
