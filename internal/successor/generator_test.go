package successor

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerlift/internal/database"
	"powerlift/internal/states"
	"powerlift/internal/task"
	"powerlift/internal/types"
)

func TestEmptyStateHasNoApplicableActions(t *testing.T) {
	tk := buildTask(t, 2, []types.ActionSchema{moveSchema()})
	gen := New(tk)
	assert.Empty(t, gen.ApplicableActions(tk.Schemas, tk.Initial))
}

func TestSingleBindingAndSuccessor(t *testing.T) {
	tk := buildTask(t, 2, []types.ActionSchema{moveSchema()},
		ground(predAt, 0), ground(predRoad, 0, 1))
	gen := New(tk)

	ops := gen.ApplicableActions(tk.Schemas, tk.Initial)
	want := []types.LiftedOperatorID{{SchemaIndex: 0, Instantiation: []types.ObjectID{0, 1}}}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Fatalf("applicable actions mismatch (-want +got):\n%s", diff)
	}

	next := gen.GenerateSuccessor(ops[0], &tk.Schemas[0], tk.Initial)
	assert.Equal(t, []types.GroundAtom{{1}}, next.Tuples(predAt))
	assert.Equal(t, []types.GroundAtom{{0, 1}}, gen.StaticTuples(predRoad).Tuples())
	assert.Equal(t, []types.GroundAtom{{0}}, tk.Initial.Tuples(predAt), "pre-state must not change")
	assert.True(t, next.Equal(gen.Successor(ops[0], tk.Initial)))
}

func TestStaticPredicateFiltersBindings(t *testing.T) {
	pick := schema(0, "pick", 1,
		[]types.Atom{atom(predBlock, v(0)), atom(predClear, v(0))},
		[]types.Atom{not(atom(predClear, v(0))), atom(predHolding, v(0))})
	tk := buildTask(t, 3, []types.ActionSchema{pick},
		ground(predBlock, 0), ground(predBlock, 2),
		ground(predClear, 0), ground(predClear, 1), ground(predClear, 2))

	gen := New(tk)
	require.True(t, gen.IsPredicateStatic(predBlock))
	require.False(t, gen.IsPredicateStatic(predClear))

	var got [][]types.ObjectID
	for _, op := range gen.ApplicableActions(tk.Schemas, tk.Initial) {
		got = append(got, op.Instantiation)
	}
	assert.Equal(t, [][]types.ObjectID{{0}, {2}}, got)
}

func TestGroundSchemaEmitsEmptyInstantiation(t *testing.T) {
	noop := schema(0, "poke", 0,
		[]types.Atom{atom(predAt, c(1))},
		[]types.Atom{atom(predHolding, c(1))})
	tk := buildTask(t, 2, []types.ActionSchema{noop}, ground(predAt, 1))
	gen := New(tk)

	ops := gen.ApplicableActions(tk.Schemas, tk.Initial)
	require.Len(t, ops, 1)
	assert.Equal(t, 0, ops[0].SchemaIndex)
	assert.Empty(t, ops[0].Instantiation)

	next := gen.Successor(ops[0], tk.Initial)
	assert.Equal(t, []types.GroundAtom{{1}}, next.Tuples(predHolding))
}

func TestGroundApplicability(t *testing.T) {
	schemas := []types.ActionSchema{
		schema(0, "needs-road", 0, []types.Atom{atom(predRoad, c(0), c(1))}, nil),
		schema(1, "needs-missing-road", 0, []types.Atom{atom(predRoad, c(1), c(0))}, nil),
		schema(2, "unblocked", 0, []types.Atom{not(atom(predBlocked, c(0)))}, []types.Atom{atom(predAt, c(0))}),
		schema(3, "not-at", 0, []types.Atom{not(atom(predAt, c(1)))}, []types.Atom{not(atom(predAt, c(0)))}),
		schema(4, "clear-empty", 0, []types.Atom{atom(predClear, c(0))}, []types.Atom{not(atom(predClear, c(0)))}),
	}
	tk := buildTask(t, 2, schemas, ground(predRoad, 0, 1), ground(predAt, 0), ground(predBlocked, 1))
	gen := New(tk)

	// road only lives in the static information: the empty dynamic relation falls back to it.
	assert.True(t, gen.IsGroundActionApplicable(&tk.Schemas[0], tk.Initial))
	assert.False(t, gen.IsGroundActionApplicable(&tk.Schemas[1], tk.Initial))
	assert.True(t, gen.IsGroundActionApplicable(&tk.Schemas[2], tk.Initial))
	assert.True(t, gen.IsGroundActionApplicable(&tk.Schemas[3], tk.Initial))
	// clear is empty in both the state and the static information.
	assert.False(t, gen.IsGroundActionApplicable(&tk.Schemas[4], tk.Initial))

	var got []int
	for _, op := range gen.ApplicableActions(tk.Schemas, tk.Initial) {
		got = append(got, op.SchemaIndex)
	}
	assert.Equal(t, []int{0, 2, 3}, got)
}

func TestNullaryPreconditionMakesSchemaTriviallyInapplicable(t *testing.T) {
	s := moveSchema()
	s.PositiveNullaryPrecond.Set(uint(predOpen))
	tk := buildTask(t, 2, []types.ActionSchema{s}, ground(predAt, 0), ground(predRoad, 0, 1))
	gen := New(tk)

	assert.True(t, gen.IsTriviallyInapplicable(&tk.Schemas[0], tk.Initial))
	assert.Empty(t, gen.ApplicableActions(tk.Schemas, tk.Initial))

	e := tk.Initial.Edit()
	e.Nullary().Set(uint(predOpen))
	opened := e.State()
	assert.Len(t, gen.ApplicableActions(tk.Schemas, opened), 1)
}

func TestNegativeNullaryPrecondition(t *testing.T) {
	s := moveSchema()
	s.NegativeNullaryPrecond.Set(uint(predOpen))
	tk := buildTask(t, 2, []types.ActionSchema{s}, ground(predAt, 0), ground(predRoad, 0, 1), ground(predOpen))
	gen := New(tk)
	assert.Empty(t, gen.ApplicableActions(tk.Schemas, tk.Initial))
}

func TestNullaryOnlySchemaEnumeratesTypeExtension(t *testing.T) {
	s := schema(0, "spawn", 1, nil, []types.Atom{atom(predHolding, v(0))})
	s.PositiveNullaryPrecond.Set(uint(predOpen))
	s.NegativeNullaryEffects.Set(uint(predOpen))
	tk := buildTask(t, 3, []types.ActionSchema{s}, ground(predOpen))
	gen := New(tk)

	ops := gen.ApplicableActions(tk.Schemas, tk.Initial)
	require.Len(t, ops, 3)
	for i, op := range ops {
		assert.Equal(t, []types.ObjectID{types.ObjectID(i)}, op.Instantiation)
	}

	next := gen.Successor(ops[2], tk.Initial)
	assert.False(t, next.HasNullary(predOpen))
	assert.True(t, tk.Initial.HasNullary(predOpen))
	assert.Equal(t, []types.GroundAtom{{2}}, next.Tuples(predHolding))
}

func TestPositiveNullaryEffectWinsTie(t *testing.T) {
	s := schema(0, "toggle", 0, nil, nil)
	s.NegativeNullaryEffects.Set(uint(predOpen))
	s.PositiveNullaryEffects.Set(uint(predOpen))
	tk := buildTask(t, 1, []types.ActionSchema{s})
	gen := New(tk)
	next := gen.GenerateSuccessor(types.LiftedOperatorID{SchemaIndex: 0}, &tk.Schemas[0], tk.Initial)
	assert.True(t, next.HasNullary(predOpen))
}

func TestEffectOnlyVariableRangesOverType(t *testing.T) {
	// drop(x, y): holding(x) => not holding(x), at(y); y appears only in effects.
	drop := schema(0, "drop", 2,
		[]types.Atom{atom(predHolding, v(0))},
		[]types.Atom{not(atom(predHolding, v(0))), atom(predAt, v(1))})
	tk := buildTask(t, 3, []types.ActionSchema{drop}, ground(predHolding, 1))
	gen := New(tk)

	ops := gen.ApplicableActions(tk.Schemas, tk.Initial)
	want := []types.LiftedOperatorID{
		{SchemaIndex: 0, Instantiation: []types.ObjectID{1, 0}},
		{SchemaIndex: 0, Instantiation: []types.ObjectID{1, 1}},
		{SchemaIndex: 0, Instantiation: []types.ObjectID{1, 2}},
	}
	assert.Equal(t, want, ops)
}

func TestNegativePreconditionsAreAntiJoined(t *testing.T) {
	// move-free(x, y): at(x), road(x, y), not blocked(y)
	s := schema(0, "move-free", 2,
		[]types.Atom{atom(predAt, v(0)), atom(predRoad, v(0), v(1)), not(atom(predBlocked, v(1)))},
		[]types.Atom{not(atom(predAt, v(0))), atom(predAt, v(1))})
	// blocked is made dynamic by a second schema.
	unblock := schema(1, "unblock", 1, []types.Atom{atom(predBlocked, v(0))}, []types.Atom{not(atom(predBlocked, v(0)))})
	tk := buildTask(t, 3, []types.ActionSchema{s, unblock},
		ground(predAt, 0), ground(predRoad, 0, 1), ground(predRoad, 0, 2), ground(predBlocked, 1))
	gen := New(tk)

	ops := gen.ApplicableActions(tk.Schemas[:1], tk.Initial)
	assert.Equal(t, []types.LiftedOperatorID{{SchemaIndex: 0, Instantiation: []types.ObjectID{0, 2}}}, ops)
}

func TestConstantsAndRepeatedVariables(t *testing.T) {
	// loop(x): road(x, x), at(x)   and   from-a(y): road(0, y)
	loop := schema(0, "loop", 1, []types.Atom{atom(predRoad, v(0), v(0)), atom(predAt, v(0))}, nil)
	fromA := schema(1, "from-a", 1, []types.Atom{atom(predRoad, c(0), v(0))}, nil)
	tk := buildTask(t, 3, []types.ActionSchema{loop, fromA},
		ground(predRoad, 0, 0), ground(predRoad, 0, 2), ground(predRoad, 1, 1), ground(predRoad, 2, 1),
		ground(predAt, 1))
	gen := New(tk)

	ops := gen.ApplicableActions(tk.Schemas, tk.Initial)
	want := []types.LiftedOperatorID{
		{SchemaIndex: 0, Instantiation: []types.ObjectID{1}},
		{SchemaIndex: 1, Instantiation: []types.ObjectID{0}},
		{SchemaIndex: 1, Instantiation: []types.ObjectID{2}},
	}
	assert.Equal(t, want, ops)
}

func TestEffectIdempotenceOnFixedPoints(t *testing.T) {
	// touch(x): at(x) => at(x), not blocked(x); blocked(x) is absent.
	touch := schema(0, "touch", 1,
		[]types.Atom{atom(predAt, v(0))},
		[]types.Atom{atom(predAt, v(0)), not(atom(predBlocked, v(0)))})
	tk := buildTask(t, 2, []types.ActionSchema{touch}, ground(predAt, 0))
	gen := New(tk)

	ops := gen.ApplicableActions(tk.Schemas, tk.Initial)
	require.Len(t, ops, 1)
	next := gen.Successor(ops[0], tk.Initial)
	assert.True(t, next.Equal(tk.Initial))
	assert.Same(t, tk.Initial.Relation(predAt), next.Relation(predAt), "no-op effects must not copy relations")
}

func TestDuplicatesAreKeptUnlessDeduplicating(t *testing.T) {
	s := schema(0, "any", 1, nil, nil)
	tk := buildTask(t, 2, []types.ActionSchema{s})
	// An object listed twice under the same type yields a repeated binding.
	tk.Objects[1].Types = []types.TypeID{0, 0}

	assert.Len(t, New(tk).ApplicableActions(tk.Schemas, tk.Initial), 3)
	assert.Len(t, New(tk, WithDeduplication(true)).ApplicableActions(tk.Schemas, tk.Initial), 2)
}

func TestStaticLookupPolicies(t *testing.T) {
	pick := schema(0, "pick", 1,
		[]types.Atom{atom(predBlock, v(0))},
		[]types.Atom{atom(predHolding, v(0))})
	tk := buildTask(t, 3, []types.ActionSchema{pick}, ground(predBlock, 0))

	// A state that, unusually, also carries type_block atoms.
	e := tk.Initial.Edit()
	e.Insert(predBlock, types.GroundAtom{2})
	odd := e.State()

	fallback := New(tk).ApplicableActions(tk.Schemas, odd)
	staticFirst := New(tk, WithStaticLookup(StaticFirst)).ApplicableActions(tk.Schemas, odd)
	assert.Equal(t, []types.ObjectID{2}, fallback[0].Instantiation)
	assert.Equal(t, []types.ObjectID{0}, staticFirst[0].Instantiation)
}

func TestDeterminism(t *testing.T) {
	tk := buildTask(t, 3, []types.ActionSchema{moveSchema()},
		ground(predAt, 0), ground(predAt, 1), ground(predRoad, 0, 1), ground(predRoad, 1, 2), ground(predRoad, 0, 2))
	first := New(tk).ApplicableActions(tk.Schemas, tk.Initial)
	second := New(tk).ApplicableActions(tk.Schemas, tk.Initial)
	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
}

func TestMalformedInputPanics(t *testing.T) {
	tk := buildTask(t, 2, []types.ActionSchema{moveSchema()}, ground(predAt, 0), ground(predRoad, 0, 1))
	gen := New(tk)

	assert.Panics(t, func() {
		gen.Successor(types.LiftedOperatorID{SchemaIndex: 0, Instantiation: []types.ObjectID{0}}, tk.Initial)
	})
	assert.Panics(t, func() {
		gen.Successor(types.LiftedOperatorID{SchemaIndex: 5}, tk.Initial)
	})
	assert.Panics(t, func() {
		gen.GenerateSuccessor(types.LiftedOperatorID{SchemaIndex: 1, Instantiation: []types.ObjectID{0, 1}}, &tk.Schemas[0], tk.Initial)
	})
}

// =============================================================================
// Property tests against brute-force enumeration
// =============================================================================

func randomSchemas() []types.ActionSchema {
	return []types.ActionSchema{
		moveSchema(),
		schema(1, "move-free", 2,
			[]types.Atom{atom(predAt, v(0)), atom(predRoad, v(0), v(1)), not(atom(predBlocked, v(1)))},
			[]types.Atom{not(atom(predAt, v(0))), atom(predAt, v(1)), atom(predBlocked, v(0))}),
		schema(2, "stack", 3,
			[]types.Atom{atom(predHolding, v(0)), atom(predClear, v(1)), atom(predRoad, v(1), v(2)), not(atom(predAt, v(2)))},
			[]types.Atom{not(atom(predHolding, v(0))), atom(predClear, v(0)), not(atom(predClear, v(1)))}),
		schema(3, "self", 1,
			[]types.Atom{atom(predRoad, v(0), v(0)), not(atom(predHolding, v(0)))},
			[]types.Atom{atom(predHolding, v(0)), not(atom(predBlocked, v(0)))}),
		schema(4, "to-c", 2,
			[]types.Atom{atom(predRoad, v(0), c(2)), atom(predClear, v(1))},
			[]types.Atom{atom(predAt, c(2)), not(atom(predClear, v(1)))}),
		schema(5, "free-pair", 2,
			[]types.Atom{not(atom(predBlocked, v(0))), not(atom(predClear, v(1)))},
			[]types.Atom{atom(predBlocked, v(1))}),
	}
}

func randomState(rng *rand.Rand, n int) []task.InitialAtom {
	var init []task.InitialAtom
	for a := 0; a < n; a++ {
		for _, p := range []types.PredicateSymbol{predAt, predClear, predBlocked, predHolding} {
			if rng.Intn(3) == 0 {
				init = append(init, ground(p, types.ObjectID(a)))
			}
		}
		for b := 0; b < n; b++ {
			if rng.Intn(3) == 0 {
				init = append(init, ground(predRoad, types.ObjectID(a), types.ObjectID(b)))
			}
		}
	}
	return init
}

// bruteForce enumerates every binding in objects^params and keeps those whose
// preconditions hold with fallback lookup semantics.
func bruteForce(tk *task.Task, s *types.ActionSchema, state *states.DBState) []string {
	lookup := func(p types.PredicateSymbol) *database.Relation {
		if r := state.Relation(p); !r.Empty() {
			return r
		}
		return tk.Static.Tuples(p)
	}
	var out []string
	binding := make([]types.ObjectID, s.ParameterCount)
	var rec func(i int)
	rec = func(i int) {
		if i == s.ParameterCount {
			for _, pre := range s.Preconditions {
				g := make(types.GroundAtom, len(pre.Args))
				for k, arg := range pre.Args {
					if arg.IsConstant() {
						g[k] = arg.Object()
					} else {
						g[k] = binding[arg.Index()]
					}
				}
				if lookup(pre.Predicate).Contains(g) == pre.Negated {
					return
				}
			}
			out = append(out, fmt.Sprint(binding))
			return
		}
		for o := range tk.Objects {
			binding[i] = types.ObjectID(o)
			rec(i + 1)
		}
	}
	rec(0)
	sort.Strings(out)
	return out
}

func bindingsOf(ops []types.LiftedOperatorID, schema int) []string {
	var out []string
	for _, op := range ops {
		if op.SchemaIndex == schema {
			out = append(out, fmt.Sprint(op.Instantiation))
		}
	}
	sort.Strings(out)
	return out
}

func TestApplicabilityAndCompletenessAgainstBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	configs := map[string][]Option{
		"default":        nil,
		"hash":           {WithJoiner(database.Hash{})},
		"smallest-first": {WithJoinOrder(OrderSmallestFirst)},
		"semi-join":      {WithSemiJoinReduction(true), WithJoiner(database.Hash{})},
	}

	for iter := 0; iter < 40; iter++ {
		n := 3 + rng.Intn(2)
		tk := buildTask(t, n, randomSchemas(), randomState(rng, n)...)
		for name, opts := range configs {
			gen := New(tk, opts...)
			ops := gen.ApplicableActions(tk.Schemas, tk.Initial)
			for i := range tk.Schemas {
				want := bruteForce(tk, &tk.Schemas[i], tk.Initial)
				got := bindingsOf(ops, i)
				require.Equal(t, want, got, "iteration %d, config %s, schema %s", iter, name, tk.Schemas[i].Name)
			}

			// Every successor follows from the pre-state by the schema's effects.
			for _, op := range ops {
				next := gen.Successor(op, tk.Initial)
				s := &tk.Schemas[op.SchemaIndex]
				for _, eff := range s.Effects {
					g := make(types.GroundAtom, len(eff.Args))
					for k, arg := range eff.Args {
						if arg.IsConstant() {
							g[k] = arg.Object()
						} else {
							g[k] = op.Instantiation[arg.Index()]
						}
					}
					if !eff.Negated {
						require.True(t, next.Relation(eff.Predicate).Contains(g), "add effect %v of %v missing", eff, op)
					}
				}
			}
		}
	}
}
