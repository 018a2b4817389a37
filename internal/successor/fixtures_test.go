package successor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"powerlift/internal/task"
	"powerlift/internal/types"
)

const (
	predAt types.PredicateSymbol = iota
	predRoad
	predClear
	predBlock
	predOpen
	predBlocked
	predHolding
	numPredicates
)

func predicates() []types.Predicate {
	return []types.Predicate{
		{Index: predAt, Name: "at", Arity: 1},
		{Index: predRoad, Name: "road", Arity: 2},
		{Index: predClear, Name: "clear", Arity: 1},
		{Index: predBlock, Name: "type_block", Arity: 1},
		{Index: predOpen, Name: "open", Arity: 0},
		{Index: predBlocked, Name: "blocked", Arity: 1},
		{Index: predHolding, Name: "holding", Arity: 1},
	}
}

func v(i int) types.Argument            { return types.Var(i) }
func c(o types.ObjectID) types.Argument { return types.Const(o) }

func atom(p types.PredicateSymbol, args ...types.Argument) types.Atom {
	return types.Atom{Predicate: p, Args: args}
}

func not(a types.Atom) types.Atom {
	a.Negated = true
	return a
}

func schema(index int, name string, params int, pre, eff []types.Atom) types.ActionSchema {
	s := types.ActionSchema{
		Index:          index,
		Name:           name,
		ParameterCount: params,
		ParameterTypes: make([]types.TypeID, params),
		Preconditions:  pre,
		Effects:        eff,
	}
	s.EnsureMasks(int(numPredicates))
	return s
}

func ground(p types.PredicateSymbol, objs ...types.ObjectID) task.InitialAtom {
	return task.InitialAtom{Predicate: p, Args: types.GroundAtom(objs)}
}

// buildTask makes a single-type task over objects 0..n-1.
func buildTask(t *testing.T, n int, schemas []types.ActionSchema, init ...task.InitialAtom) *task.Task {
	t.Helper()
	preds := predicates()
	for i := range schemas {
		schemas[i].Index = i
	}
	initial, static := task.Partition(preds, schemas, init)
	objects := make([]types.Object, n)
	for i := range objects {
		objects[i] = types.Object{Index: types.ObjectID(i), Name: string(rune('a' + i)), Types: []types.TypeID{0}}
	}
	tk := &task.Task{
		Name:       t.Name(),
		Types:      []types.Type{{Index: 0, Name: "object"}},
		Objects:    objects,
		Predicates: preds,
		Schemas:    schemas,
		Initial:    initial,
		Static:     static,
	}
	require.NoError(t, tk.Validate())
	return tk
}

// moveSchema is move(x, y): at(x), road(x, y) => not at(x), at(y).
func moveSchema() types.ActionSchema {
	return schema(0, "move", 2,
		[]types.Atom{atom(predAt, v(0)), atom(predRoad, v(0), v(1))},
		[]types.Atom{not(atom(predAt, v(0))), atom(predAt, v(1))})
}
