// Package task holds the read-only planning task shared by all successor
// generators: the type and object catalogue, predicates, action schemas,
// initial state, goal and static information.
package task

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"powerlift/internal/database"
	"powerlift/internal/states"
	"powerlift/internal/types"
)

// GoalAtom is a ground goal condition over a relational predicate.
type GoalAtom struct {
	Predicate types.PredicateSymbol
	Args      types.GroundAtom
	Negated   bool
}

// Goal is a conjunction of ground conditions.
type Goal struct {
	Atoms           []GoalAtom
	PositiveNullary *bitset.BitSet
	NegativeNullary *bitset.BitSet
}

// Task is constructed once at start-up and shared read-only afterwards.
type Task struct {
	Name       string
	Types      []types.Type
	Objects    []types.Object
	Predicates []types.Predicate
	Schemas    []types.ActionSchema
	Initial    *states.DBState
	Goal       Goal
	Static     *StaticInformation
}

// ObjectsPerType buckets object ids by declared type, in object order.
func (t *Task) ObjectsPerType() [][]types.ObjectID {
	buckets := make([][]types.ObjectID, len(t.Types))
	for _, obj := range t.Objects {
		for _, ty := range obj.Types {
			buckets[ty] = append(buckets[ty], obj.Index)
		}
	}
	return buckets
}

// Holds reports whether ground atom g of predicate p is true in state, either
// as a dynamic atom or as a static one.
func (t *Task) Holds(state *states.DBState, p types.PredicateSymbol, g types.GroundAtom) bool {
	if state.Relation(p).Contains(g) {
		return true
	}
	return t.Static.Contains(p, g)
}

// UnsatisfiedGoals counts goal conditions that do not hold in state.
func (t *Task) UnsatisfiedGoals(state *states.DBState) int {
	n := 0
	for _, g := range t.Goal.Atoms {
		if t.Holds(state, g.Predicate, g.Args) == g.Negated {
			n++
		}
	}
	nullary := state.NullaryAtoms()
	if t.Goal.PositiveNullary != nil {
		n += int(t.Goal.PositiveNullary.DifferenceCardinality(nullary))
	}
	if t.Goal.NegativeNullary != nil {
		n += int(t.Goal.NegativeNullary.IntersectionCardinality(nullary))
	}
	return n
}

// IsGoal reports whether every goal condition holds in state.
func (t *Task) IsGoal(state *states.DBState) bool {
	return t.UnsatisfiedGoals(state) == 0
}

// Validate checks the guarantees the successor generator relies on: contiguous
// indices, argument arities, and arguments within their ranges.
func (t *Task) Validate() error {
	for i, ty := range t.Types {
		if int(ty.Index) != i {
			return fmt.Errorf("type %q has index %d, want %d", ty.Name, ty.Index, i)
		}
	}
	for i, obj := range t.Objects {
		if int(obj.Index) != i {
			return fmt.Errorf("object %q has index %d, want %d", obj.Name, obj.Index, i)
		}
		for _, ty := range obj.Types {
			if int(ty) < 0 || int(ty) >= len(t.Types) {
				return fmt.Errorf("object %q has unknown type %d", obj.Name, ty)
			}
		}
	}
	for i, p := range t.Predicates {
		if int(p.Index) != i {
			return fmt.Errorf("predicate %q has index %d, want %d", p.Name, p.Index, i)
		}
		if p.Arity < 0 {
			return fmt.Errorf("predicate %q has negative arity", p.Name)
		}
	}
	for i := range t.Schemas {
		if err := t.validateSchema(i); err != nil {
			return err
		}
	}
	if t.Initial == nil {
		return fmt.Errorf("task has no initial state")
	}
	if t.Initial.NumPredicates() != len(t.Predicates) {
		return fmt.Errorf("initial state has %d relations for %d predicates", t.Initial.NumPredicates(), len(t.Predicates))
	}
	if t.Static == nil {
		return fmt.Errorf("task has no static information")
	}
	for _, g := range t.Goal.Atoms {
		if err := t.validateGround(g.Predicate, g.Args); err != nil {
			return fmt.Errorf("goal: %w", err)
		}
	}
	return nil
}

func (t *Task) validateSchema(i int) error {
	s := &t.Schemas[i]
	if s.Index != i {
		return fmt.Errorf("schema %q has index %d, want %d", s.Name, s.Index, i)
	}
	if len(s.ParameterTypes) != s.ParameterCount {
		return fmt.Errorf("schema %q declares %d parameters but %d types", s.Name, s.ParameterCount, len(s.ParameterTypes))
	}
	for _, ty := range s.ParameterTypes {
		if int(ty) < 0 || int(ty) >= len(t.Types) {
			return fmt.Errorf("schema %q has parameter of unknown type %d", s.Name, ty)
		}
	}
	check := func(kind string, atoms []types.Atom) error {
		for _, a := range atoms {
			if err := t.validateAtom(s, a); err != nil {
				return fmt.Errorf("schema %q %s %v: %w", s.Name, kind, a, err)
			}
		}
		return nil
	}
	if err := check("precondition", s.Preconditions); err != nil {
		return err
	}
	return check("effect", s.Effects)
}

func (t *Task) validateAtom(s *types.ActionSchema, a types.Atom) error {
	if int(a.Predicate) < 0 || int(a.Predicate) >= len(t.Predicates) {
		return fmt.Errorf("unknown predicate %d", a.Predicate)
	}
	if want := t.Predicates[a.Predicate].Arity; len(a.Args) != want {
		return fmt.Errorf("arity %d, want %d", len(a.Args), want)
	}
	if len(a.Args) == 0 {
		return fmt.Errorf("nullary atom belongs in the nullary masks")
	}
	for _, arg := range a.Args {
		if arg.IsConstant() {
			if arg.Index() < 0 || arg.Index() >= len(t.Objects) {
				return fmt.Errorf("unknown object %d", arg.Index())
			}
			continue
		}
		if arg.Index() < 0 || arg.Index() >= s.ParameterCount {
			return fmt.Errorf("variable ?%d outside [0, %d)", arg.Index(), s.ParameterCount)
		}
	}
	return nil
}

func (t *Task) validateGround(p types.PredicateSymbol, g types.GroundAtom) error {
	if int(p) < 0 || int(p) >= len(t.Predicates) {
		return fmt.Errorf("unknown predicate %d", p)
	}
	if want := t.Predicates[p].Arity; len(g) != want {
		return fmt.Errorf("%s%v has arity %d, want %d", t.Predicates[p].Name, g, len(g), want)
	}
	for _, o := range g {
		if int(o) < 0 || int(o) >= len(t.Objects) {
			return fmt.Errorf("%s%v names unknown object %d", t.Predicates[p].Name, g, o)
		}
	}
	return nil
}

// StaticPredicates marks every predicate that no schema effect mentions,
// relational or nullary.
func StaticPredicates(numPredicates int, schemas []types.ActionSchema) *bitset.BitSet {
	changed := bitset.New(uint(numPredicates))
	for i := range schemas {
		s := &schemas[i]
		for _, eff := range s.Effects {
			changed.Set(uint(eff.Predicate))
		}
		if s.PositiveNullaryEffects != nil {
			changed.InPlaceUnion(s.PositiveNullaryEffects)
		}
		if s.NegativeNullaryEffects != nil {
			changed.InPlaceUnion(s.NegativeNullaryEffects)
		}
	}
	static := bitset.New(uint(numPredicates))
	for p := 0; p < numPredicates; p++ {
		if !changed.Test(uint(p)) {
			static.Set(uint(p))
		}
	}
	return static
}

// InitialAtom is a ground atom of the initial state.
type InitialAtom struct {
	Predicate types.PredicateSymbol
	Args      types.GroundAtom
}

// Partition splits the initial atoms into the dynamic initial state and the
// static information, using StaticPredicates. Nullary atoms always stay in the
// state's nullary vector.
func Partition(predicates []types.Predicate, schemas []types.ActionSchema, initial []InitialAtom) (*states.DBState, *StaticInformation) {
	n := len(predicates)
	static := StaticPredicates(n, schemas)
	dynamicRels := make([]*database.Relation, n)
	staticRels := make([]*database.Relation, n)
	for p := 0; p < n; p++ {
		dynamicRels[p] = database.NewRelation(types.PredicateSymbol(p))
		staticRels[p] = database.NewRelation(types.PredicateSymbol(p))
	}
	nullary := bitset.New(uint(n))
	for _, a := range initial {
		if predicates[a.Predicate].Arity == 0 {
			nullary.Set(uint(a.Predicate))
			continue
		}
		if static.Test(uint(a.Predicate)) {
			staticRels[a.Predicate].Insert(a.Args)
		} else {
			dynamicRels[a.Predicate].Insert(a.Args)
		}
	}
	return states.New(dynamicRels, nullary), NewStaticInformation(staticRels)
}
