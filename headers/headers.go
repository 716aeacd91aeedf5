// Package headers decides which request headers take part in picking a mock file.
package headers

import (
	"net/http"
	"net/textproto"
	"strings"
)

// Pair is a watched header found on a request
type Pair struct {
	Name  string
	Value string
}

// Token is the filename fragment for the pair
func (p Pair) Token() string {
	return "_" + p.Name + "=" + p.Value
}

// Watched parses a comma separated list of header names, dropping blanks and repeats
func Watched(list string) []string {
	var watched []string
	seen := map[string]bool{}

	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		watched = append(watched, name)
	}

	return watched
}

// Canonical is the display form used in filenames, e.g. "header-a" becomes "Header-A"
func Canonical(name string) string {
	return textproto.CanonicalMIMEHeaderKey(strings.ToLower(name))
}

// Match returns the watched headers present on the request with a non-empty value, in watched order
func Match(h http.Header, watched []string) []Pair {
	var pairs []Pair

	for _, name := range watched {
		key := Canonical(name)
		for actual, values := range h {
			if Canonical(actual) != key {
				continue
			}
			if len(values) > 0 && values[0] != "" {
				pairs = append(pairs, Pair{Name: key, Value: values[0]})
			}
			break
		}
	}

	return pairs
}
