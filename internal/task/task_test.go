package task

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/google/mangle/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerlift/internal/database"
	"powerlift/internal/states"
	"powerlift/internal/types"
)

// roads builds a two-location task: at/1 (dynamic), road/2 (static), open/0.
func roads(t *testing.T) *Task {
	t.Helper()
	predicates := []types.Predicate{
		{Index: 0, Name: "at", Arity: 1},
		{Index: 1, Name: "road", Arity: 2},
		{Index: 2, Name: "open", Arity: 0},
	}
	move := types.ActionSchema{
		Index:          0,
		Name:           "move",
		ParameterCount: 2,
		ParameterTypes: []types.TypeID{0, 0},
		Preconditions: []types.Atom{
			{Predicate: 0, Args: []types.Argument{types.Var(0)}},
			{Predicate: 1, Args: []types.Argument{types.Var(0), types.Var(1)}},
		},
		Effects: []types.Atom{
			{Predicate: 0, Args: []types.Argument{types.Var(0)}, Negated: true},
			{Predicate: 0, Args: []types.Argument{types.Var(1)}},
		},
	}
	move.EnsureMasks(len(predicates))
	move.PositiveNullaryPrecond.Set(2)
	schemas := []types.ActionSchema{move}

	initial, static := Partition(predicates, schemas, []InitialAtom{
		{Predicate: 0, Args: types.GroundAtom{0}},
		{Predicate: 1, Args: types.GroundAtom{0, 1}},
		{Predicate: 2},
	})
	tk := &Task{
		Name:  "roads",
		Types: []types.Type{{Index: 0, Name: "location"}},
		Objects: []types.Object{
			{Index: 0, Name: "a", Types: []types.TypeID{0}},
			{Index: 1, Name: "b", Types: []types.TypeID{0}},
		},
		Predicates: predicates,
		Schemas:    schemas,
		Initial:    initial,
		Goal:       Goal{Atoms: []GoalAtom{{Predicate: 0, Args: types.GroundAtom{1}}}},
		Static:     static,
	}
	require.NoError(t, tk.Validate())
	return tk
}

func TestPartitionSeparatesStaticPredicates(t *testing.T) {
	tk := roads(t)

	assert.Equal(t, []types.GroundAtom{{0}}, tk.Initial.Tuples(0))
	assert.True(t, tk.Initial.Relation(1).Empty(), "road is static and must not be in the state")
	assert.True(t, tk.Initial.HasNullary(2))
	assert.Equal(t, []types.GroundAtom{{0, 1}}, tk.Static.Tuples(1).Tuples())
	assert.True(t, tk.Static.IsEmpty(0))
	assert.Equal(t, 1, tk.Static.FactCount())
}

func TestStaticPredicatesHonoursNullaryEffects(t *testing.T) {
	s := types.ActionSchema{}
	s.EnsureMasks(3)
	s.NegativeNullaryEffects.Set(1)
	s.Effects = []types.Atom{{Predicate: 0}}
	static := StaticPredicates(3, []types.ActionSchema{s})
	assert.False(t, static.Test(0))
	assert.False(t, static.Test(1))
	assert.True(t, static.Test(2))
}

func TestStaticInformationMirrorsMangleStore(t *testing.T) {
	si := NewStaticInformation([]*database.Relation{
		nil,
		database.NewRelation(1, types.GroundAtom{0, 1}, types.GroundAtom{1, 0}),
	})
	assert.True(t, si.Contains(1, types.GroundAtom{1, 0}))
	assert.False(t, si.Contains(1, types.GroundAtom{1, 1}))
	assert.False(t, si.Contains(0, types.GroundAtom{0}))
	assert.True(t, si.Tuples(7).Empty(), "out-of-range predicate yields an empty relation")

	var seen []ast.Atom
	require.NoError(t, si.Facts(func(a ast.Atom) error {
		seen = append(seen, a)
		return nil
	}))
	assert.Len(t, seen, 2)
	for _, a := range seen {
		assert.Equal(t, "pred_1", a.Predicate.Symbol)
	}
}

func TestStaticInformationIsACopy(t *testing.T) {
	r := database.NewRelation(0, types.GroundAtom{3})
	si := NewStaticInformation([]*database.Relation{r})
	r.Insert(types.GroundAtom{4})
	assert.Equal(t, 1, si.Tuples(0).Len())
}

func TestGoalCounting(t *testing.T) {
	tk := roads(t)
	assert.Equal(t, 1, tk.UnsatisfiedGoals(tk.Initial))
	assert.False(t, tk.IsGoal(tk.Initial))

	e := tk.Initial.Edit()
	e.Remove(0, types.GroundAtom{0})
	e.Insert(0, types.GroundAtom{1})
	assert.True(t, tk.IsGoal(e.State()))

	tk.Goal.NegativeNullary = bitset.New(3).Set(2)
	tk.Goal.Atoms = append(tk.Goal.Atoms, GoalAtom{Predicate: 1, Args: types.GroundAtom{0, 1}, Negated: true})
	assert.Equal(t, 3, tk.UnsatisfiedGoals(tk.Initial))
}

func TestObjectsPerType(t *testing.T) {
	tk := roads(t)
	assert.Equal(t, [][]types.ObjectID{{0, 1}}, tk.ObjectsPerType())
}

func TestValidateRejectsMalformedTasks(t *testing.T) {
	cases := map[string]func(tk *Task){
		"object index": func(tk *Task) { tk.Objects[1].Index = 5 },
		"effect variable": func(tk *Task) {
			tk.Schemas[0].Effects[1].Args[0] = types.Var(4)
		},
		"precondition arity": func(tk *Task) {
			tk.Schemas[0].Preconditions[0].Args = nil
		},
		"unknown predicate": func(tk *Task) {
			tk.Schemas[0].Effects[0].Predicate = 9
		},
		"goal object": func(tk *Task) {
			tk.Goal.Atoms[0].Args = types.GroundAtom{8}
		},
		"initial state size": func(tk *Task) { tk.Initial = states.Empty(1) },
		"schema index":       func(tk *Task) { tk.Schemas[0].Index = 3 },
		"nullary precondition atom": func(tk *Task) {
			tk.Schemas[0].Preconditions = append(tk.Schemas[0].Preconditions, types.Atom{Predicate: 2})
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			tk := roads(t)
			mutate(tk)
			assert.Error(t, tk.Validate())
		})
	}
}
