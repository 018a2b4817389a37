package database

import (
	"fmt"
	"strings"

	"powerlift/internal/types"
)

// Relation is the duplicate-free set of ground atoms of one predicate.
// Iteration follows insertion order, so equal operation sequences give equal
// relations element for element.
type Relation struct {
	Predicate types.PredicateSymbol

	tuples []types.GroundAtom
	index  map[string]int
}

// NewRelation builds a relation from the given atoms, dropping duplicates.
func NewRelation(p types.PredicateSymbol, atoms ...types.GroundAtom) *Relation {
	r := &Relation{Predicate: p}
	for _, a := range atoms {
		r.Insert(a)
	}
	return r
}

// Len returns the number of atoms.
func (r *Relation) Len() int {
	if r == nil {
		return 0
	}
	return len(r.tuples)
}

// Empty reports whether the relation holds no atoms.
func (r *Relation) Empty() bool { return r.Len() == 0 }

// Tuples returns the atoms in insertion order. Callers must not modify them.
func (r *Relation) Tuples() []types.GroundAtom {
	if r == nil {
		return nil
	}
	return r.tuples
}

// Contains reports whether atom g is present.
func (r *Relation) Contains(g types.GroundAtom) bool {
	if r == nil || len(r.tuples) == 0 {
		return false
	}
	var buf [32]byte
	_, ok := r.index[string(appendKey(buf[:0], g))]
	return ok
}

// Insert adds a copy of g. Inserting a present atom is a no-op; the result
// reports whether the relation changed.
func (r *Relation) Insert(g types.GroundAtom) bool {
	var buf [32]byte
	key := appendKey(buf[:0], g)
	if _, ok := r.index[string(key)]; ok {
		return false
	}
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if len(r.tuples) > 0 && len(r.tuples[0]) != len(g) {
		panic(fmt.Sprintf("database: atom %v inserted into relation %d of arity %d", g, r.Predicate, len(r.tuples[0])))
	}
	r.index[string(key)] = len(r.tuples)
	r.tuples = append(r.tuples, g.Clone())
	return true
}

// Remove deletes g. Removing an absent atom is a no-op; the result reports
// whether the relation changed. Remaining atoms keep their relative order.
func (r *Relation) Remove(g types.GroundAtom) bool {
	var buf [32]byte
	key := appendKey(buf[:0], g)
	pos, ok := r.index[string(key)]
	if !ok {
		return false
	}
	delete(r.index, string(key))
	copy(r.tuples[pos:], r.tuples[pos+1:])
	r.tuples[len(r.tuples)-1] = nil
	r.tuples = r.tuples[:len(r.tuples)-1]
	for i := pos; i < len(r.tuples); i++ {
		r.index[string(appendKey(buf[:0], r.tuples[i]))] = i
	}
	return true
}

// Clone returns an independent copy. Stored atoms are never mutated in place,
// so they are shared between the copies.
func (r *Relation) Clone() *Relation {
	out := &Relation{
		Predicate: r.Predicate,
		tuples:    append([]types.GroundAtom(nil), r.tuples...),
		index:     make(map[string]int, len(r.index)),
	}
	for k, v := range r.index {
		out.index[k] = v
	}
	return out
}

// Equal reports set equality; insertion order is ignored.
func (r *Relation) Equal(other *Relation) bool {
	if r.Len() != other.Len() {
		return false
	}
	for _, g := range r.Tuples() {
		if !other.Contains(g) {
			return false
		}
	}
	return true
}

func (r *Relation) String() string {
	parts := make([]string, 0, r.Len())
	for _, g := range r.Tuples() {
		parts = append(parts, g.String())
	}
	return fmt.Sprintf("p%d{%s}", r.Predicate, strings.Join(parts, ", "))
}
