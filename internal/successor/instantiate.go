package successor

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"

	"powerlift/internal/database"
	"powerlift/internal/states"
	"powerlift/internal/types"
)

// instantiate returns the table of every binding of the schema's parameters
// that satisfies its relational preconditions in state. Nullary preconditions
// are checked by the caller.
func (g *Generator) instantiate(schema *types.ActionSchema, state *states.DBState) database.Table {
	var tables []database.Table
	bound := bitset.New(uint(schema.ParameterCount))

	for _, pre := range schema.Preconditions {
		if pre.Negated || len(pre.Args) == 0 {
			continue
		}
		t := atomTable(pre, g.source(pre.Predicate, state))
		if t.Empty() {
			return database.Table{}
		}
		for _, arg := range pre.Args {
			if !arg.IsConstant() {
				bound.Set(uint(arg.Index()))
			}
		}
		tables = append(tables, t)
	}

	// Parameters no positive precondition binds range over their type.
	for v := 0; v < schema.ParameterCount; v++ {
		if bound.Test(uint(v)) {
			continue
		}
		t := g.typeTable(schema, v)
		if t.Empty() {
			return database.Table{}
		}
		tables = append(tables, t)
	}

	if g.semiJoin {
		tables = g.reduce(tables)
	}
	if g.order == OrderSmallestFirst {
		sort.SliceStable(tables, func(i, j int) bool { return tables[i].Len() < tables[j].Len() })
	}

	result := tables[0]
	for _, t := range tables[1:] {
		result = g.joiner.Join(result, t)
		if result.Empty() {
			return result
		}
	}

	if negatives := schema.NegativePreconditions(); len(negatives) > 0 {
		result = g.antiJoin(result, negatives, state)
	}
	return result
}

// atomTable builds the table of tuples of rel matching atom. Constant
// positions become constant columns and filter tuples; each distinct variable
// gets one column, and repeated variables filter tuples to equal values.
func atomTable(atom types.Atom, rel *database.Relation) database.Table {
	var (
		index   []database.TupleIndex
		keep    []int
		repeats [][2]int
	)
	firstPos := make(map[int]int, len(atom.Args))
	for pos, arg := range atom.Args {
		if arg.IsConstant() {
			index = append(index, database.ConstantColumn(arg.Object()))
			keep = append(keep, pos)
			continue
		}
		if first, seen := firstPos[arg.Index()]; seen {
			repeats = append(repeats, [2]int{first, pos})
			continue
		}
		firstPos[arg.Index()] = pos
		index = append(index, database.VariableColumn(arg.Index()))
		keep = append(keep, pos)
	}

	table := database.NewTable(index...)
	for _, g := range rel.Tuples() {
		if len(g) != len(atom.Args) {
			panic(fmt.Sprintf("successor: atom %v has arity %d but relation holds %v", atom, len(atom.Args), g))
		}
		if !matchesAtom(atom, g, repeats) {
			continue
		}
		row := make(database.Tuple, len(keep))
		for i, pos := range keep {
			row[i] = g[pos]
		}
		table.Tuples = append(table.Tuples, row)
	}
	return table
}

func matchesAtom(atom types.Atom, g types.GroundAtom, repeats [][2]int) bool {
	for pos, arg := range atom.Args {
		if arg.IsConstant() && g[pos] != arg.Object() {
			return false
		}
	}
	for _, r := range repeats {
		if g[r[0]] != g[r[1]] {
			return false
		}
	}
	return true
}

// typeTable is the single-column table of the objects of parameter v's type.
func (g *Generator) typeTable(schema *types.ActionSchema, v int) database.Table {
	ty := schema.ParameterTypes[v]
	if int(ty) < 0 || int(ty) >= len(g.objectsPerType) {
		panic(fmt.Sprintf("successor: schema %q parameter %d has unknown type %d", schema.Name, v, ty))
	}
	table := database.NewTable(database.VariableColumn(v))
	for _, o := range g.objectsPerType[ty] {
		table.Tuples = append(table.Tuples, database.Tuple{o})
	}
	return table
}

// reduce semi-joins every table with every other one, in order. Semi-joins
// only drop tuples without a partner, so the final join is unchanged.
func (g *Generator) reduce(tables []database.Table) []database.Table {
	for i := range tables {
		for j := range tables {
			if i == j {
				continue
			}
			tables[i] = g.joiner.SemiJoin(tables[i], tables[j])
		}
	}
	return tables
}

// antiJoin keeps the bindings under which no negative precondition holds.
func (g *Generator) antiJoin(table database.Table, negatives []types.Atom, state *states.DBState) database.Table {
	out := database.Table{Index: table.Index}
	for _, row := range table.Tuples {
		ok := true
		for _, neg := range negatives {
			if g.source(neg.Predicate, state).Contains(g.groundRow(neg, table, row)) {
				ok = false
				break
			}
		}
		if ok {
			out.Tuples = append(out.Tuples, row)
		}
	}
	return out
}

// groundRow grounds atom under a table row into the scratch buffer.
func (g *Generator) groundRow(atom types.Atom, table database.Table, row database.Tuple) types.GroundAtom {
	g.scratch = g.scratch[:0]
	for _, arg := range atom.Args {
		if arg.IsConstant() {
			g.scratch = append(g.scratch, arg.Object())
			continue
		}
		col := table.Column(arg.Index())
		if col < 0 {
			panic(fmt.Sprintf("successor: variable %v of %v is not bound", arg, atom))
		}
		g.scratch = append(g.scratch, row[col])
	}
	return g.scratch
}

func appendBindingKey(buf []byte, binding []types.ObjectID) []byte {
	for _, o := range binding {
		buf = binary.AppendUvarint(buf, uint64(o))
	}
	return buf
}
