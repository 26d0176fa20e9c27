// Package facts provides the transactional in-memory fact store that backs
// the simulation knowledge base. Facts are typed tuples addressed by relation
// name; single-valued relations replace on key collision, multi-valued
// relations accumulate.
package facts

import (
	"fmt"
	"strings"
)

// Schema declares a relation: its arity, how many leading arguments form the
// key, whether multiple facts may share a key, and whether the relation holds
// loaded parameters (retained across Reset).
type Schema struct {
	Name  string
	Arity int
	Keys  int
	Multi bool
	Param bool
}

// Fact is an immutable tuple: a relation name plus typed arguments.
// Argument values are string, int, float64, or bool.
type Fact struct {
	Relation string
	Args     []any
}

// Store is an in-memory indexed fact database. One Store per simulation run;
// it is not safe for concurrent use and holds no shared state across
// instances.
type Store struct {
	schemas map[string]Schema
	rels    map[string][]Fact
	keyIdx  map[string]map[string]int
}

// NewStore creates an empty store with no declared relations.
func NewStore() *Store {
	return &Store{
		schemas: make(map[string]Schema),
		rels:    make(map[string][]Fact),
		keyIdx:  make(map[string]map[string]int),
	}
}

// Declare registers a relation schema. Re-declaring an existing relation is
// an error.
func (s *Store) Declare(sc Schema) error {
	if sc.Arity <= 0 || sc.Keys < 0 || sc.Keys > sc.Arity {
		return fmt.Errorf("declare %s: invalid arity %d / keys %d", sc.Name, sc.Arity, sc.Keys)
	}
	if _, ok := s.schemas[sc.Name]; ok {
		return fmt.Errorf("declare %s: already declared", sc.Name)
	}
	s.schemas[sc.Name] = sc
	return nil
}

// MustDeclare is Declare for statically known schemas.
func (s *Store) MustDeclare(sc Schema) {
	if err := s.Declare(sc); err != nil {
		panic(err)
	}
}

// Insert adds a fact. For single-valued relations any existing fact with the
// same key is replaced in place, preserving its position in insertion order.
func (s *Store) Insert(relation string, args ...any) error {
	sc, ok := s.schemas[relation]
	if !ok {
		return fmt.Errorf("insert: unknown relation %q", relation)
	}
	if len(args) != sc.Arity {
		return fmt.Errorf("insert %s: got %d args, want %d", relation, len(args), sc.Arity)
	}
	for i, a := range args {
		if !validTerm(a) {
			return fmt.Errorf("insert %s: arg %d has unsupported type %T", relation, i, a)
		}
	}
	f := Fact{Relation: relation, Args: args}

	if !sc.Multi {
		key := encodeKey(args[:sc.Keys])
		idx, ok := s.keyIdx[relation]
		if !ok {
			idx = make(map[string]int)
			s.keyIdx[relation] = idx
		}
		if pos, ok := idx[key]; ok {
			s.rels[relation][pos] = f
			return nil
		}
		idx[key] = len(s.rels[relation])
	}
	s.rels[relation] = append(s.rels[relation], f)
	return nil
}

// RemoveMatching deletes every fact of the relation whose arguments match the
// pattern. Unknown relations and empty matches are a no-op, never an error.
func (s *Store) RemoveMatching(relation string, pattern ...any) {
	stored, ok := s.rels[relation]
	if !ok {
		return
	}
	kept := stored[:0]
	for _, f := range stored {
		if _, ok := match(pattern, f.Args); !ok {
			kept = append(kept, f)
		}
	}
	s.rels[relation] = kept
	s.reindex(relation)
}

// QueryAll returns a binding for every fact matching the pattern, in
// insertion order. Pattern arguments are literals, Var("X") to bind, or Any.
// An empty result is valid.
func (s *Store) QueryAll(relation string, pattern ...any) []Binding {
	var out []Binding
	for _, f := range s.rels[relation] {
		if b, ok := match(pattern, f.Args); ok {
			out = append(out, b)
		}
	}
	return out
}

// QueryOne returns the first matching binding, or ok=false when nothing
// matches. A missing match is a configuration gap, not an error.
func (s *Store) QueryOne(relation string, pattern ...any) (Binding, bool) {
	for _, f := range s.rels[relation] {
		if b, ok := match(pattern, f.Args); ok {
			return b, true
		}
	}
	return nil, false
}

// Count returns the number of facts matching the pattern.
func (s *Store) Count(relation string, pattern ...any) int {
	n := 0
	for _, f := range s.rels[relation] {
		if _, ok := match(pattern, f.Args); ok {
			n++
		}
	}
	return n
}

// Reset clears every non-parameter relation. Loaded species and environment
// parameters survive; population, environment state, and agent facts do not.
func (s *Store) Reset() {
	for name, sc := range s.schemas {
		if sc.Param {
			continue
		}
		delete(s.rels, name)
		delete(s.keyIdx, name)
	}
}

// ClearParameters removes parameter relations, for reloading from scratch.
func (s *Store) ClearParameters() {
	for name, sc := range s.schemas {
		if !sc.Param {
			continue
		}
		delete(s.rels, name)
		delete(s.keyIdx, name)
	}
}

func (s *Store) reindex(relation string) {
	sc := s.schemas[relation]
	if sc.Multi {
		return
	}
	idx := make(map[string]int)
	for i, f := range s.rels[relation] {
		idx[encodeKey(f.Args[:sc.Keys])] = i
	}
	s.keyIdx[relation] = idx
}

func validTerm(v any) bool {
	switch v.(type) {
	case string, int, float64, bool:
		return true
	}
	return false
}

func encodeKey(args []any) string {
	var b strings.Builder
	for _, a := range args {
		fmt.Fprintf(&b, "%v\x1f", a)
	}
	return b.String()
}
