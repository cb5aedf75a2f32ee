/*
Package optstring tokenizes the trailing option string of a configuration
command line, e.g.:

	-persistenceType SOURCEIP -cip ENABLED client-ip -rule "HTTP.REQ.IS_VALID"

into a flat map keyed by flag, including the leading dash.

A value is either a single double-quoted token, in which case the quotes are
removed and the content is kept verbatim, including escape sequences, or the
run of tokens up to the next token that looks like a flag. The second form
exists because a few flags take two values, a mode keyword and a free-form
string. As a consequence, an unquoted value token that itself starts with a
dash followed by a word is read as the next flag.
*/
package optstring

import (
	"regexp"
	"strings"
)

var flagToken = regexp.MustCompile(`^-\S+$`)

// flags dropped from every option map
var denied = map[string]bool{
	"-devno": true,
}

type token struct {
	val    string
	quoted bool
}

// split breaks s into whitespace separated tokens. A token starting with a
// double quote extends to the matching unescaped closing quote, spaces
// included.
func split(s string) []token {
	var (
		tokens []token
		b      strings.Builder
	)

	i := 0
	for i < len(s) {
		if s[i] == ' ' || s[i] == '\t' {
			i++
			continue
		}

		b.Reset()
		if s[i] == '"' {
			j := i + 1
			for j < len(s) && s[j] != '"' {
				if s[j] == '\\' && j+1 < len(s) {
					j++
				}

				j++
			}

			if j < len(s) {
				// closing quote
				j++
			}

			b.WriteString(s[i:j])
			i = j

			// trailing characters glued to the closing quote belong to the
			// same token
			for i < len(s) && s[i] != ' ' && s[i] != '\t' {
				b.WriteByte(s[i])
				i++
			}

			tokens = append(tokens, token{val: b.String(), quoted: isQuoted(b.String())})
			continue
		}

		j := i
		for j < len(s) && s[j] != ' ' && s[j] != '\t' {
			j++
		}

		tokens = append(tokens, token{val: s[i:j]})
		i = j
	}

	return tokens
}

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

// IsFlag tells whether a token starts a new option.
func IsFlag(s string) bool {
	return flagToken.MatchString(s)
}

// Unquote removes one pair of surrounding double quotes, when present.
// Escape sequences inside are not interpreted.
func Unquote(s string) string {
	if isQuoted(s) {
		return s[1 : len(s)-1]
	}

	return s
}

func value(tokens []token) string {
	switch len(tokens) {
	case 0:
		return ""
	case 1:
		if tokens[0].quoted {
			return Unquote(tokens[0].val)
		}

		return tokens[0].val
	default:
		vals := make([]string, len(tokens))
		for i, t := range tokens {
			vals[i] = t.val
		}

		return strings.Join(vals, " ")
	}
}

// Tokenize parses an option string into a map of flag to value. Tokens before
// the first flag are ignored. When a flag repeats, the last value wins. It
// never fails: input without any recognizable flag results in an empty map.
func Tokenize(s string) map[string]string {
	opts := make(map[string]string)
	tokens := split(strings.TrimSpace(s))

	i := 0
	for i < len(tokens) && (tokens[i].quoted || !IsFlag(tokens[i].val)) {
		i++
	}

	for i < len(tokens) {
		key := tokens[i].val
		i++

		start := i
		for i < len(tokens) && (tokens[i].quoted || !IsFlag(tokens[i].val)) {
			i++
		}

		if denied[key] {
			continue
		}

		opts[key] = value(tokens[start:i])
	}

	return opts
}
