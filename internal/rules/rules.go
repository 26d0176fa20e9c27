// Package rules layers derived relations over the fact store. A rule is an
// ordered list of alternatives, each a guard predicate plus a compute
// function. Two evaluation policies exist: first-success commits to the first
// alternative whose guard holds (ordered fallbacks), exhaustive collects the
// derivations of every alternative that succeeds.
package rules

import "github.com/talgya/biosim/internal/facts"

// Result is one derivation produced by a rule alternative.
type Result = facts.Binding

// Alternative pairs a guard with a compute function. Derive runs only when
// the guard holds and may produce several derivations.
type Alternative struct {
	Name   string
	When   func(s *facts.Store) bool
	Derive func(s *facts.Store) []Result
}

// Rule is a derived relation: alternatives in declaration order.
type Rule struct {
	Name string
	Alts []Alternative
}

// First evaluates alternatives in declaration order and commits to the first
// one whose guard holds; later alternatives are not tried even when the
// committed derivation is empty. Returns ok=false when no guard holds.
func (r Rule) First(s *facts.Store) (Result, bool) {
	for _, alt := range r.Alts {
		if alt.When != nil && !alt.When(s) {
			continue
		}
		results := alt.Derive(s)
		if len(results) == 0 {
			return nil, false
		}
		return results[0], true
	}
	return nil, false
}

// All evaluates every alternative whose guard holds and concatenates their
// derivations in declaration order. An empty slice is a valid outcome.
func (r Rule) All(s *facts.Store) []Result {
	var out []Result
	for _, alt := range r.Alts {
		if alt.When != nil && !alt.When(s) {
			continue
		}
		out = append(out, alt.Derive(s)...)
	}
	return out
}
