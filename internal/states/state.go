// Package states holds the search-state representation: one relation per
// predicate plus a bit-vector of nullary atoms.
package states

import (
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"

	"powerlift/internal/database"
	"powerlift/internal/types"
)

// DBState is an immutable world state. Relation p carries predicate p.
// States share unchanged relations with the states they were derived from,
// so nothing reachable from a published state may be mutated.
type DBState struct {
	relations []*database.Relation
	nullary   *bitset.BitSet
}

// New builds a state from per-predicate relations and nullary atoms.
// A nil relation at position p becomes an empty relation for p; a nil nullary
// vector becomes an empty one.
func New(relations []*database.Relation, nullary *bitset.BitSet) *DBState {
	rels := make([]*database.Relation, len(relations))
	for p, r := range relations {
		if r == nil {
			r = database.NewRelation(types.PredicateSymbol(p))
		}
		if int(r.Predicate) != p {
			panic(fmt.Sprintf("states: relation for predicate %d stored at position %d", r.Predicate, p))
		}
		rels[p] = r
	}
	if nullary == nil {
		nullary = bitset.New(uint(len(relations)))
	}
	return &DBState{relations: rels, nullary: nullary}
}

// Empty returns a state with n empty relations and no nullary atoms.
func Empty(n int) *DBState {
	return New(make([]*database.Relation, n), nil)
}

// NumPredicates returns the number of relations in the state.
func (s *DBState) NumPredicates() int { return len(s.relations) }

// Relation returns the relation of predicate p. Callers must not modify it.
func (s *DBState) Relation(p types.PredicateSymbol) *database.Relation {
	if int(p) < 0 || int(p) >= len(s.relations) {
		panic(fmt.Sprintf("states: predicate %d out of range [0, %d)", p, len(s.relations)))
	}
	return s.relations[p]
}

// Tuples returns the atoms of predicate p.
func (s *DBState) Tuples(p types.PredicateSymbol) []types.GroundAtom {
	return s.Relation(p).Tuples()
}

// Relations returns every relation, indexed by predicate. Callers must not modify them.
func (s *DBState) Relations() []*database.Relation { return s.relations }

// NullaryAtoms returns the nullary atom vector. Callers must not modify it.
func (s *DBState) NullaryAtoms() *bitset.BitSet { return s.nullary }

// HasNullary reports whether nullary atom p holds.
func (s *DBState) HasNullary(p types.PredicateSymbol) bool {
	return s.nullary.Test(uint(p))
}

// Equal reports whether both states hold the same atoms.
func (s *DBState) Equal(other *DBState) bool {
	if len(s.relations) != len(other.relations) {
		return false
	}
	if !s.nullary.Equal(other.nullary) {
		// Equal is length sensitive; compare the set bits instead.
		if s.nullary.Count() != other.nullary.Count() || !s.nullary.IsSuperSet(other.nullary) {
			return false
		}
	}
	for p := range s.relations {
		if !s.relations[p].Equal(other.relations[p]) {
			return false
		}
	}
	return true
}

func (s *DBState) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	first := true
	for _, r := range s.relations {
		if r.Empty() {
			continue
		}
		if !first {
			sb.WriteString(" ")
		}
		first = false
		sb.WriteString(r.String())
	}
	for i, ok := s.nullary.NextSet(0); ok; i, ok = s.nullary.NextSet(i + 1) {
		if !first {
			sb.WriteString(" ")
		}
		first = false
		fmt.Fprintf(&sb, "p%d()", i)
	}
	sb.WriteString("}")
	return sb.String()
}

// Edit starts deriving a new state from s. Relations are copied on first write.
func (s *DBState) Edit() *Editor {
	return &Editor{
		relations: append([]*database.Relation(nil), s.relations...),
		owned:     bitset.New(uint(len(s.relations))),
		nullary:   s.nullary.Clone(),
	}
}

// Editor accumulates changes to a state. It is not safe for concurrent use.
type Editor struct {
	relations []*database.Relation
	owned     *bitset.BitSet
	nullary   *bitset.BitSet
}

func (e *Editor) relation(p types.PredicateSymbol) *database.Relation {
	if int(p) < 0 || int(p) >= len(e.relations) {
		panic(fmt.Sprintf("states: predicate %d out of range [0, %d)", p, len(e.relations)))
	}
	return e.relations[p]
}

func (e *Editor) mutable(p types.PredicateSymbol) *database.Relation {
	if !e.owned.Test(uint(p)) {
		e.relations[p] = e.relations[p].Clone()
		e.owned.Set(uint(p))
	}
	return e.relations[p]
}

// Insert adds ground atom g to predicate p. g is copied.
func (e *Editor) Insert(p types.PredicateSymbol, g types.GroundAtom) {
	if e.relation(p).Contains(g) {
		return
	}
	e.mutable(p).Insert(g)
}

// Remove deletes ground atom g from predicate p.
func (e *Editor) Remove(p types.PredicateSymbol, g types.GroundAtom) {
	if !e.relation(p).Contains(g) {
		return
	}
	e.mutable(p).Remove(g)
}

// Nullary returns the editable nullary atom vector.
func (e *Editor) Nullary() *bitset.BitSet { return e.nullary }

// State publishes the edited state. The editor must not be used afterwards.
func (e *Editor) State() *DBState {
	out := &DBState{relations: e.relations, nullary: e.nullary}
	e.relations = nil
	e.nullary = nil
	return out
}
