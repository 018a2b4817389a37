// Package successor enumerates the ground actions applicable in a state and
// materialises their successor states.
//
// A Generator is a pure function of (task, state): it never blocks, performs
// no I/O and cannot be cancelled. It owns scratch buffers, so one Generator
// must not be shared between goroutines; create one per worker instead (see
// Expander).
package successor

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"go.uber.org/zap"

	"powerlift/internal/database"
	"powerlift/internal/states"
	"powerlift/internal/task"
	"powerlift/internal/types"
)

// Generator drives the join engine over every action schema of a task.
type Generator struct {
	task              *task.Task
	static            *task.StaticInformation
	objectsPerType    [][]types.ObjectID
	isPredicateStatic *bitset.BitSet

	joiner   database.Joiner
	order    JoinOrder
	lookup   StaticLookup
	semiJoin bool
	dedup    bool
	logger   *zap.Logger

	// scratch holds the ground atom under construction during effect
	// application and negative precondition checks. It never escapes a call.
	scratch types.GroundAtom
}

// New captures the task's objects per type and which predicates have a
// non-empty static extension.
func New(t *task.Task, opts ...Option) *Generator {
	g := &Generator{
		task:           t,
		static:         t.Static,
		objectsPerType: t.ObjectsPerType(),
		joiner:         database.NestedLoop{},
		logger:         zap.NewNop(),
	}
	n := len(t.Predicates)
	if t.Static != nil && t.Static.Len() > n {
		n = t.Static.Len()
	}
	g.isPredicateStatic = bitset.New(uint(n))
	for p := 0; p < n; p++ {
		if !t.Static.IsEmpty(types.PredicateSymbol(p)) {
			g.isPredicateStatic.Set(uint(p))
		}
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger.Debug("successor generator ready",
		zap.Int("schemas", len(t.Schemas)),
		zap.Int("objects", len(t.Objects)),
		zap.Uint("static_predicates", g.isPredicateStatic.Count()),
		zap.String("join", g.joiner.Name()),
		zap.Stringer("order", g.order),
		zap.Stringer("static_lookup", g.lookup),
		zap.Bool("semi_join_reduction", g.semiJoin),
		zap.Bool("dedup", g.dedup))
	return g
}

// Task returns the task the generator was built for.
func (g *Generator) Task() *task.Task { return g.task }

// IsPredicateStatic reports whether predicate p has a non-empty static extension.
func (g *Generator) IsPredicateStatic(p types.PredicateSymbol) bool {
	return g.isPredicateStatic.Test(uint(p))
}

// StaticPredicates returns a copy of the static-extension bit-vector.
func (g *Generator) StaticPredicates() *bitset.BitSet {
	return g.isPredicateStatic.Clone()
}

// StaticTuples returns the static ground atoms of predicate p.
func (g *Generator) StaticTuples(p types.PredicateSymbol) *database.Relation {
	return g.static.Tuples(p)
}

// ApplicableActions returns every ground action of schemas applicable in state.
//
// Schemas are visited in order and each schema's bindings follow the row order
// of its instantiation table. Duplicate bindings are kept unless the generator
// was built WithDeduplication.
func (g *Generator) ApplicableActions(schemas []types.ActionSchema, state *states.DBState) []types.LiftedOperatorID {
	var ops []types.LiftedOperatorID
	for i := range schemas {
		schema := &schemas[i]
		if g.IsTriviallyInapplicable(schema, state) {
			continue
		}

		if schema.IsGround() {
			if g.IsGroundActionApplicable(schema, state) {
				ops = append(ops, types.LiftedOperatorID{SchemaIndex: schema.Index, Instantiation: []types.ObjectID{}})
			}
			continue
		}

		instantiations := g.instantiate(schema, state)
		if instantiations.Empty() {
			continue
		}
		ops = g.appendOperators(ops, schema, instantiations)
	}

	if ce := g.logger.Check(zap.DebugLevel, "applicable actions"); ce != nil {
		ce.Write(zap.Int("schemas", len(schemas)), zap.Int("operators", len(ops)))
	}
	return ops
}

// appendOperators reorders every row of table from column order into
// parameter order and emits one operator per row.
func (g *Generator) appendOperators(ops []types.LiftedOperatorID, schema *types.ActionSchema, table database.Table) []types.LiftedOperatorID {
	ids, columns := table.VariableColumns()
	if len(ids) != schema.ParameterCount {
		panic(fmt.Sprintf("successor: schema %q bound %d of %d parameters", schema.Name, len(ids), schema.ParameterCount))
	}

	var seen map[string]struct{}
	var key []byte
	if g.dedup {
		seen = make(map[string]struct{}, len(table.Tuples))
	}
	for _, row := range table.Tuples {
		ordered := make([]types.ObjectID, schema.ParameterCount)
		for i, id := range ids {
			ordered[id] = row[columns[i]]
		}
		if seen != nil {
			key = appendBindingKey(key[:0], ordered)
			if _, dup := seen[string(key)]; dup {
				continue
			}
			seen[string(key)] = struct{}{}
		}
		ops = append(ops, types.LiftedOperatorID{SchemaIndex: schema.Index, Instantiation: ordered})
	}
	return ops
}

// IsTriviallyInapplicable reports whether the schema's nullary preconditions
// fail in state: a required nullary atom is false or a forbidden one is true.
func (g *Generator) IsTriviallyInapplicable(schema *types.ActionSchema, state *states.DBState) bool {
	nullary := state.NullaryAtoms()
	if pos := schema.PositiveNullaryPrecond; pos != nil && !nullary.IsSuperSet(pos) {
		return true
	}
	if neg := schema.NegativeNullaryPrecond; neg != nil && nullary.IntersectionCardinality(neg) > 0 {
		return true
	}
	return false
}

// IsGroundActionApplicable checks a schema whose preconditions are all ground.
// Each precondition is looked up in the state's relation or, if that relation
// is empty, in the static relation. If both are empty the precondition can
// never be satisfied.
func (g *Generator) IsGroundActionApplicable(schema *types.ActionSchema, state *states.DBState) bool {
	for _, pre := range schema.Preconditions {
		tuple := g.groundConstants(pre)
		rel := state.Relation(pre.Predicate)
		if rel.Empty() {
			rel = g.static.Tuples(pre.Predicate)
			if rel.Empty() {
				return false
			}
		}
		if rel.Contains(tuple) == pre.Negated {
			return false
		}
	}
	return true
}

// groundConstants writes a ground atom's constants into the scratch buffer.
func (g *Generator) groundConstants(a types.Atom) types.GroundAtom {
	g.scratch = g.scratch[:0]
	for _, arg := range a.Args {
		if !arg.IsConstant() {
			panic(fmt.Sprintf("successor: ground atom %v has variable argument %v", a, arg))
		}
		g.scratch = append(g.scratch, arg.Object())
	}
	return g.scratch
}

// source returns the relation a lifted precondition over p reads from.
func (g *Generator) source(p types.PredicateSymbol, state *states.DBState) *database.Relation {
	switch g.lookup {
	case StaticFirst:
		if g.IsPredicateStatic(p) {
			return g.static.Tuples(p)
		}
		return state.Relation(p)
	default:
		if rel := state.Relation(p); !rel.Empty() {
			return rel
		}
		return g.static.Tuples(p)
	}
}
