package task

import (
	"github.com/google/mangle/ast"
	"github.com/google/mangle/factstore"

	"powerlift/internal/database"
	"powerlift/internal/types"
)

// StaticInformation holds the extension of every predicate that no action
// changes. It is written once at construction and read-only afterwards.
//
// Tuples are kept twice: as database relations for table construction, and
// mirrored into a Mangle fact store that answers membership checks and seeds
// the Datalog oracle.
type StaticInformation struct {
	relations []*database.Relation
	store     factstore.FactStore
	facts     int
}

// NewStaticInformation copies relations (indexed by predicate) into a new cache.
// A nil entry stands for an empty relation.
func NewStaticInformation(relations []*database.Relation) *StaticInformation {
	si := &StaticInformation{
		relations: make([]*database.Relation, len(relations)),
		store:     factstore.NewSimpleInMemoryStore(),
	}
	for p, r := range relations {
		pred := types.PredicateSymbol(p)
		if r == nil {
			si.relations[p] = database.NewRelation(pred)
			continue
		}
		si.relations[p] = r.Clone()
		si.relations[p].Predicate = pred
		for _, g := range r.Tuples() {
			if si.store.Add(g.ToAtom(pred)) {
				si.facts++
			}
		}
	}
	return si
}

// Len returns the number of predicates covered.
func (si *StaticInformation) Len() int { return len(si.relations) }

// FactCount returns the number of static ground atoms.
func (si *StaticInformation) FactCount() int { return si.facts }

// Tuples returns the static relation of predicate p. Predicates outside the
// cache yield an empty relation. Callers must not modify the result.
func (si *StaticInformation) Tuples(p types.PredicateSymbol) *database.Relation {
	if si == nil || int(p) < 0 || int(p) >= len(si.relations) {
		return database.NewRelation(p)
	}
	return si.relations[p]
}

// IsEmpty reports whether predicate p has no static atoms.
func (si *StaticInformation) IsEmpty(p types.PredicateSymbol) bool {
	return si.Tuples(p).Empty()
}

// Contains reports whether ground atom g of predicate p is static.
func (si *StaticInformation) Contains(p types.PredicateSymbol, g types.GroundAtom) bool {
	if si == nil || si.IsEmpty(p) {
		return false
	}
	return si.store.Contains(g.ToAtom(p))
}

// Facts streams every static atom in Mangle form.
func (si *StaticInformation) Facts(fn func(ast.Atom) error) error {
	for _, sym := range si.store.ListPredicates() {
		if err := si.store.GetFacts(ast.NewQuery(sym), fn); err != nil {
			return err
		}
	}
	return nil
}

// Store exposes the Mangle mirror for read-only use.
func (si *StaticInformation) Store() factstore.ReadOnlyFactStore { return si.store }
