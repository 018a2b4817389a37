package oracle

import (
	"fmt"
	"sort"

	"powerlift/internal/types"
)

// Bindings maps a schema index to its applicable parameter bindings.
type Bindings map[int][][]types.ObjectID

// FromOperators groups lifted operators by schema. Ground operators, which
// carry no binding, are dropped.
func FromOperators(ops []types.LiftedOperatorID) Bindings {
	out := make(Bindings)
	for _, op := range ops {
		if len(op.Instantiation) == 0 {
			continue
		}
		out[op.SchemaIndex] = append(out[op.SchemaIndex], op.Instantiation)
	}
	for i, rows := range out {
		out[i] = sortRows(rows)
	}
	return out
}

// Mismatch is one binding present on only one side of a comparison.
type Mismatch struct {
	Schema  int
	Binding []types.ObjectID
	// Missing is true when the binding was expected but not produced.
	Missing bool
}

func (m Mismatch) String() string {
	kind := "unexpected"
	if m.Missing {
		kind = "missing"
	}
	return fmt.Sprintf("schema %d: %s binding %v", m.Schema, kind, m.Binding)
}

// Compare reports the bindings that differ between want and got as sets.
// Results are ordered by schema, then by binding.
func Compare(want, got Bindings) []Mismatch {
	schemas := make(map[int]struct{})
	for i := range want {
		schemas[i] = struct{}{}
	}
	for i := range got {
		schemas[i] = struct{}{}
	}
	order := make([]int, 0, len(schemas))
	for i := range schemas {
		order = append(order, i)
	}
	sort.Ints(order)

	var out []Mismatch
	for _, i := range order {
		w, g := rowSet(want[i]), rowSet(got[i])
		for _, row := range want[i] {
			if _, ok := g[fmt.Sprint(row)]; !ok {
				out = append(out, Mismatch{Schema: i, Binding: row, Missing: true})
				g[fmt.Sprint(row)] = struct{}{}
			}
		}
		for _, row := range got[i] {
			if _, ok := w[fmt.Sprint(row)]; !ok {
				out = append(out, Mismatch{Schema: i, Binding: row})
				w[fmt.Sprint(row)] = struct{}{}
			}
		}
	}
	return out
}

func rowSet(rows [][]types.ObjectID) map[string]struct{} {
	set := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		set[fmt.Sprint(row)] = struct{}{}
	}
	return set
}
