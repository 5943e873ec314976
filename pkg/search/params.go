// Package search narrows build history candidates with a free-text query of
// "term: value" tokens before they are paged.
package search

import (
	"strings"
)

// Param is a single "term: value" pair from a query
type Param struct {
	Term  string
	Value string
}

// Params is a parsed search query
type Params struct {
	query  string
	params []Param
}

// ParseParams splits a query into term/value pairs. Both "name: foo" and
// "name:foo" are accepted. Words not attached to a term are searched as
// names.
func ParseParams(query string) *Params {
	p := &Params{query: strings.TrimSpace(query)}

	tokens := strings.Fields(p.query)
	for i := 0; i < len(tokens); i++ {
		token := tokens[i]

		term, value, found := strings.Cut(token, ":")
		if !found || term == "" {
			p.params = append(p.params, Param{Term: TermName, Value: token})
			continue
		}

		if value == "" {
			// "term:" with the value in the next token
			if i+1 >= len(tokens) {
				continue
			}
			i++
			value = tokens[i]
		}

		p.params = append(p.params, Param{Term: strings.ToLower(term), Value: value})
	}

	return p
}

// Query returns the trimmed query string
func (p *Params) Query() string {
	return p.query
}

// IsEmpty reports whether the query has no params
func (p *Params) IsEmpty() bool {
	return len(p.params) == 0
}

// Get returns every param for term, in query order
func (p *Params) Get(term string) []Param {
	var out []Param
	for _, param := range p.params {
		if param.Term == term {
			out = append(out, param)
		}
	}

	return out
}

// Values returns the values of every param for term
func (p *Params) Values(term string) []string {
	params := p.Get(term)
	values := make([]string, 0, len(params))
	for _, param := range params {
		values = append(values, param.Value)
	}

	return values
}
