package successor

import (
	"fmt"

	"powerlift/internal/states"
	"powerlift/internal/types"
)

// Successor applies op to state, looking its schema up in the task.
func (g *Generator) Successor(op types.LiftedOperatorID, state *states.DBState) *states.DBState {
	if op.SchemaIndex < 0 || op.SchemaIndex >= len(g.task.Schemas) {
		panic(fmt.Sprintf("successor: operator %v names unknown schema", op))
	}
	return g.GenerateSuccessor(op, &g.task.Schemas[op.SchemaIndex], state)
}

// GenerateSuccessor returns the state reached by applying op, an instance of
// schema, to state. The input state is not modified.
//
// Deletes and adds are both computed against the pre-state. Deletes are
// applied first, so an atom both deleted and added ends up true; the same
// holds for nullary atoms.
func (g *Generator) GenerateSuccessor(op types.LiftedOperatorID, schema *types.ActionSchema, state *states.DBState) *states.DBState {
	if op.SchemaIndex != schema.Index {
		panic(fmt.Sprintf("successor: operator %v applied with schema %d", op, schema.Index))
	}
	if !schema.IsGround() && len(op.Instantiation) != schema.ParameterCount {
		panic(fmt.Sprintf("successor: operator %v binds %d of %d parameters of %q",
			op, len(op.Instantiation), schema.ParameterCount, schema.Name))
	}

	editor := state.Edit()
	applyNullaryEffects(schema, editor)

	for pass := 0; pass < 2; pass++ {
		deletes := pass == 0
		for _, eff := range schema.Effects {
			if eff.Negated != deletes {
				continue
			}
			var atom types.GroundAtom
			if schema.IsGround() {
				atom = g.groundConstants(eff)
			} else {
				atom = g.tupleToAtom(op.Instantiation, eff)
			}
			if eff.Negated {
				editor.Remove(eff.Predicate, atom)
			} else {
				editor.Insert(eff.Predicate, atom)
			}
		}
	}
	return editor.State()
}

// applyNullaryEffects clears the negative nullary effects, then sets the
// positive ones.
func applyNullaryEffects(schema *types.ActionSchema, editor *states.Editor) {
	nullary := editor.Nullary()
	if neg := schema.NegativeNullaryEffects; neg != nil {
		nullary.InPlaceDifference(neg)
	}
	if pos := schema.PositiveNullaryEffects; pos != nil {
		nullary.InPlaceUnion(pos)
	}
}

// tupleToAtom grounds effect eff under instantiation into the scratch buffer.
// Constants keep their value; variables take instantiation[variable].
func (g *Generator) tupleToAtom(instantiation []types.ObjectID, eff types.Atom) types.GroundAtom {
	g.scratch = g.scratch[:0]
	for _, arg := range eff.Args {
		if arg.IsConstant() {
			g.scratch = append(g.scratch, arg.Object())
			continue
		}
		if arg.Index() < 0 || arg.Index() >= len(instantiation) {
			panic(fmt.Sprintf("successor: effect %v refers to parameter outside [0, %d)", eff, len(instantiation)))
		}
		g.scratch = append(g.scratch, instantiation[arg.Index()])
	}
	return g.scratch
}
