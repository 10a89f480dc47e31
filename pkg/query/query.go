// Package query assembles request query strings.
//
// [Build] concatenates parameters as name=value pairs joined by '&' in the
// order they were added. Values are NOT percent-encoded; callers that pass
// values with reserved characters must encode them first, e.g. with [Escape].
//
//	p := query.Params{}.
//	    Add("location", "-33.8670522,151.1957362").
//	    Add("radius", "500").
//	    Add("key", secret)
//	u := query.URL("https://maps.googleapis.com/maps/api/place/nearbysearch/json", p)
package query

import (
	"net/url"
	"strings"
)

// Param is a single query parameter.
type Param struct {
	Name  string
	Value string
}

// Params is an ordered list of query parameters.
type Params []Param

// Add appends a parameter and returns the extended list.
func (p Params) Add(name, value string) Params {
	return append(p, Param{Name: name, Value: value})
}

// Set replaces the value of the first parameter called name, or appends it.
func (p Params) Set(name, value string) Params {
	for i := range p {
		if p[i].Name == name {
			p[i].Value = value
			return p
		}
	}
	return p.Add(name, value)
}

// Get returns the value of the first parameter called name.
func (p Params) Get(name string) (string, bool) {
	for _, kv := range p {
		if kv.Name == name {
			return kv.Value, true
		}
	}
	return "", false
}

// Build joins params into "n1=v1&n2=v2...". An empty list yields "".
func Build(params Params) string {
	var b strings.Builder
	for i, kv := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(kv.Name)
		b.WriteByte('=')
		b.WriteString(kv.Value)
	}
	return b.String()
}

// URL appends the built query string to base, using '&' when base already
// carries a query.
func URL(base string, params Params) string {
	q := Build(params)
	if q == "" {
		return base
	}
	if strings.Contains(base, "?") {
		if strings.HasSuffix(base, "?") || strings.HasSuffix(base, "&") {
			return base + q
		}
		return base + "&" + q
	}
	return base + "?" + q
}

// Escape percent-encodes s for use as a query value.
// This is a convenience wrapper around [url.QueryEscape].
func Escape(s string) string { return url.QueryEscape(s) }
