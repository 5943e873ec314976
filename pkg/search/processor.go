package search

import (
	"sort"
	"sync"

	"github.com/ethpandaops/buildhistory/pkg/history"
)

// Predicate decides whether an entry stays a pagination candidate
type Predicate interface {
	Matches(entry history.Entry) bool
}

// PredicateFunc adapts a function to Predicate
type PredicateFunc func(entry history.Entry) bool

// Matches implements Predicate
func (f PredicateFunc) Matches(entry history.Entry) bool {
	return f(entry)
}

// Factory creates the predicate for the terms it understands. It returns nil
// when none of its terms appear in params.
type Factory interface {
	Terms() []string
	Create(params *Params) Predicate
}

// registry holds the factories consulted by BuildPredicates
type registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

//nolint:gochecknoglobals // Required for the factory registration pattern
var globalRegistry = &registry{
	factories: make(map[string]Factory),
}

// RegisterFactory adds a factory under name, replacing any previous one
func RegisterFactory(name string, factory Factory) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.factories[name] = factory
}

// sorted returns registered factories ordered by name so predicate order is
// stable between calls
func (r *registry) sorted() []Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Factory, 0, len(names))
	for _, name := range names {
		out = append(out, r.factories[name])
	}

	return out
}

// KnownTerms lists every term understood by the registered factories
func KnownTerms() []string {
	var terms []string
	for _, factory := range globalRegistry.sorted() {
		terms = append(terms, factory.Terms()...)
	}

	return terms
}

// BuildPredicates parses query and returns one predicate per factory that
// recognised a term in it. An empty result matches everything.
func BuildPredicates(query string) []Predicate {
	params := ParseParams(query)
	if params.IsEmpty() {
		return nil
	}

	var predicates []Predicate
	for _, factory := range globalRegistry.sorted() {
		if predicate := factory.Create(params); predicate != nil {
			predicates = append(predicates, predicate)
		}
	}

	return predicates
}

// MatchesAll reports whether entry satisfies every predicate
func MatchesAll(entry history.Entry, predicates []Predicate) bool {
	for _, predicate := range predicates {
		if !predicate.Matches(entry) {
			return false
		}
	}

	return true
}

// Filter keeps the entries that satisfy every predicate, preserving order
func Filter(entries []history.Entry, predicates []Predicate) []history.Entry {
	if len(predicates) == 0 {
		return entries
	}

	filtered := make([]history.Entry, 0, len(entries))
	for _, entry := range entries {
		if MatchesAll(entry, predicates) {
			filtered = append(filtered, entry)
		}
	}

	return filtered
}
