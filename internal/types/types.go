// Package types provides the shared planning data model used across powerlift packages.
// This package exists to break import cycles between database, task and successor.
// Types in this package should be foundational data structures with no complex dependencies.
package types

import (
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/google/mangle/ast"
)

// =============================================================================
// OBJECTS AND PREDICATES
// =============================================================================

// ObjectID indexes the task's object catalogue. Stable for the task lifetime.
type ObjectID int

// PredicateSymbol indexes the task's predicate list.
type PredicateSymbol int

// TypeID indexes the task's declared types.
type TypeID int

// Object is a task object with the types it belongs to (including supertypes).
type Object struct {
	Index ObjectID
	Name  string
	Types []TypeID
}

// Type is a declared object type.
type Type struct {
	Index TypeID
	Name  string
}

// Predicate is a declared predicate.
type Predicate struct {
	Index PredicateSymbol
	Name  string
	Arity int
}

// =============================================================================
// GROUND ATOMS
// =============================================================================

// GroundAtom is an ordered sequence of object ids, one per predicate argument.
type GroundAtom []ObjectID

// Clone returns an independent copy of the atom.
func (g GroundAtom) Clone() GroundAtom {
	if g == nil {
		return nil
	}
	out := make(GroundAtom, len(g))
	copy(out, g)
	return out
}

// Equal reports whether two ground atoms hold the same objects in the same order.
func (g GroundAtom) Equal(other GroundAtom) bool {
	if len(g) != len(other) {
		return false
	}
	for i := range g {
		if g[i] != other[i] {
			return false
		}
	}
	return true
}

// String renders the atom as "(a, b, c)".
func (g GroundAtom) String() string {
	parts := make([]string, len(g))
	for i, o := range g {
		parts[i] = fmt.Sprintf("%d", o)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// PredicateSym returns the Mangle predicate symbol used for predicate p.
func PredicateSym(p PredicateSymbol, arity int) ast.PredicateSym {
	return ast.PredicateSym{Symbol: fmt.Sprintf("pred_%d", p), Arity: arity}
}

// ToAtom converts a ground atom of predicate p to a Mangle AST Atom for direct store insertion.
func (g GroundAtom) ToAtom(p PredicateSymbol) ast.Atom {
	terms := make([]ast.BaseTerm, len(g))
	for i, o := range g {
		terms[i] = ast.Number(int64(o))
	}
	return ast.Atom{Predicate: PredicateSym(p, len(g)), Args: terms}
}

// FromAtom converts a Mangle atom with number arguments back to a ground atom.
func FromAtom(a ast.Atom) (GroundAtom, error) {
	out := make(GroundAtom, len(a.Args))
	for i, arg := range a.Args {
		c, ok := arg.(ast.Constant)
		if !ok || c.Type != ast.NumberType {
			return nil, fmt.Errorf("argument %d of %s is not a number constant", i, a.Predicate.Symbol)
		}
		out[i] = ObjectID(c.NumValue)
	}
	return out, nil
}

// =============================================================================
// LIFTED ATOMS
// =============================================================================

// Argument is either a constant object or a schema parameter (variable index).
type Argument struct {
	constant bool
	index    int
}

// Const returns a constant argument naming object o.
func Const(o ObjectID) Argument {
	return Argument{constant: true, index: int(o)}
}

// Var returns a variable argument naming schema parameter i.
func Var(i int) Argument {
	return Argument{index: i}
}

// IsConstant reports whether the argument is a constant.
func (a Argument) IsConstant() bool { return a.constant }

// Index returns the object id for constants or the parameter index for variables.
func (a Argument) Index() int { return a.index }

// Object returns the constant's object id. Panics on variables.
func (a Argument) Object() ObjectID {
	if !a.constant {
		panic(fmt.Sprintf("argument ?%d is a variable, not a constant", a.index))
	}
	return ObjectID(a.index)
}

func (a Argument) String() string {
	if a.constant {
		return fmt.Sprintf("%d", a.index)
	}
	return fmt.Sprintf("?%d", a.index)
}

// Atom is a (possibly lifted) atom used in preconditions and effects.
type Atom struct {
	Predicate PredicateSymbol
	Args      []Argument
	Negated   bool
}

// IsGround reports whether every argument is a constant.
func (a Atom) IsGround() bool {
	for _, arg := range a.Args {
		if !arg.IsConstant() {
			return false
		}
	}
	return true
}

// Ground returns the atom's ground tuple. Panics if the atom has variables.
func (a Atom) Ground() GroundAtom {
	out := make(GroundAtom, len(a.Args))
	for i, arg := range a.Args {
		out[i] = arg.Object()
	}
	return out
}

func (a Atom) String() string {
	parts := make([]string, len(a.Args))
	for i, arg := range a.Args {
		parts[i] = arg.String()
	}
	prefix := ""
	if a.Negated {
		prefix = "not "
	}
	return fmt.Sprintf("%sp%d(%s)", prefix, a.Predicate, strings.Join(parts, ", "))
}

// =============================================================================
// ACTION SCHEMAS
// =============================================================================

// ActionSchema is a parameterised action template.
// Nullary masks are indexed by predicate symbol.
type ActionSchema struct {
	Index          int
	Name           string
	ParameterCount int
	ParameterTypes []TypeID

	// Preconditions holds relational precondition atoms; Negated marks negative ones.
	Preconditions []Atom
	// Effects holds relational effect atoms; Negated marks deletes.
	Effects []Atom

	PositiveNullaryPrecond *bitset.BitSet
	NegativeNullaryPrecond *bitset.BitSet
	PositiveNullaryEffects *bitset.BitSet
	NegativeNullaryEffects *bitset.BitSet
}

// IsGround reports whether the schema has no free parameters.
func (s *ActionSchema) IsGround() bool {
	return s.ParameterCount == 0
}

// PositivePreconditions returns the non-negated precondition atoms.
func (s *ActionSchema) PositivePreconditions() []Atom {
	var out []Atom
	for _, a := range s.Preconditions {
		if !a.Negated {
			out = append(out, a)
		}
	}
	return out
}

// NegativePreconditions returns the negated precondition atoms.
func (s *ActionSchema) NegativePreconditions() []Atom {
	var out []Atom
	for _, a := range s.Preconditions {
		if a.Negated {
			out = append(out, a)
		}
	}
	return out
}

// EnsureMasks replaces nil nullary masks with empty sets of the given size.
func (s *ActionSchema) EnsureMasks(predicates int) {
	n := uint(predicates)
	if s.PositiveNullaryPrecond == nil {
		s.PositiveNullaryPrecond = bitset.New(n)
	}
	if s.NegativeNullaryPrecond == nil {
		s.NegativeNullaryPrecond = bitset.New(n)
	}
	if s.PositiveNullaryEffects == nil {
		s.PositiveNullaryEffects = bitset.New(n)
	}
	if s.NegativeNullaryEffects == nil {
		s.NegativeNullaryEffects = bitset.New(n)
	}
}

// LiftedOperatorID identifies a ground action: a schema plus one object per parameter.
type LiftedOperatorID struct {
	SchemaIndex   int
	Instantiation []ObjectID
}

func (op LiftedOperatorID) String() string {
	return fmt.Sprintf("%d%s", op.SchemaIndex, GroundAtom(op.Instantiation).String())
}
