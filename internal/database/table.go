// Package database implements the small in-memory relational layer used by the
// successor generator: tuple tables with tagged column headers, duplicate-free
// relations of ground atoms, and the natural join and semi-join over tables.
package database

import (
	"fmt"
	"strings"

	"powerlift/internal/types"
)

// Tuple is one row of a Table.
type Tuple []types.ObjectID

// TupleIndex is a column header. A column either binds a free variable
// (schema parameter) or holds a constant literal that is not a binding.
type TupleIndex struct {
	constant bool
	value    int
}

// VariableColumn returns a header binding schema parameter id.
func VariableColumn(id int) TupleIndex {
	return TupleIndex{value: id}
}

// ConstantColumn returns a header for a column fixed to object o.
func ConstantColumn(o types.ObjectID) TupleIndex {
	return TupleIndex{constant: true, value: int(o)}
}

// IsVariable reports whether the column binds a free variable.
func (ti TupleIndex) IsVariable() bool { return !ti.constant }

// IsConstant reports whether the column is a constant literal.
func (ti TupleIndex) IsConstant() bool { return ti.constant }

// Variable returns the bound parameter id. Panics on constant columns.
func (ti TupleIndex) Variable() int {
	if ti.constant {
		panic("database: constant column has no variable id")
	}
	return ti.value
}

// Constant returns the column's constant value. Panics on variable columns.
func (ti TupleIndex) Constant() types.ObjectID {
	if !ti.constant {
		panic("database: variable column has no constant value")
	}
	return types.ObjectID(ti.value)
}

// SharedWith reports whether two headers are join keys for each other.
// Only two variable columns with the same id are shared; constant columns never are.
func (ti TupleIndex) SharedWith(other TupleIndex) bool {
	return !ti.constant && !other.constant && ti.value == other.value
}

func (ti TupleIndex) String() string {
	if ti.constant {
		return fmt.Sprintf("=%d", ti.value)
	}
	return fmt.Sprintf("v%d", ti.value)
}

// Table is a relation over tagged columns. Every tuple has len(Index) entries.
type Table struct {
	Index  []TupleIndex
	Tuples []Tuple
}

// NewTable returns an empty table with the given header.
func NewTable(index ...TupleIndex) Table {
	return Table{Index: index}
}

// Add appends a row. Panics if the row does not match the header arity.
func (t *Table) Add(row Tuple) {
	if len(row) != len(t.Index) {
		panic(fmt.Sprintf("database: tuple of length %d added to table with %d columns", len(row), len(t.Index)))
	}
	t.Tuples = append(t.Tuples, row)
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Tuples) }

// Empty reports whether the table has no rows.
func (t Table) Empty() bool { return len(t.Tuples) == 0 }

// Column returns the first column binding variable id, or -1.
func (t Table) Column(id int) int {
	for i, ti := range t.Index {
		if ti.IsVariable() && ti.value == id {
			return i
		}
	}
	return -1
}

// VariableColumns returns, in column order, each bound variable id together with
// the first column that binds it.
func (t Table) VariableColumns() (ids []int, columns []int) {
	seen := make(map[int]struct{}, len(t.Index))
	for i, ti := range t.Index {
		if !ti.IsVariable() {
			continue
		}
		if _, dup := seen[ti.value]; dup {
			continue
		}
		seen[ti.value] = struct{}{}
		ids = append(ids, ti.value)
		columns = append(columns, i)
	}
	return ids, columns
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := Table{
		Index:  append([]TupleIndex(nil), t.Index...),
		Tuples: make([]Tuple, len(t.Tuples)),
	}
	for i, row := range t.Tuples {
		out.Tuples[i] = append(Tuple(nil), row...)
	}
	return out
}

func (t Table) String() string {
	var sb strings.Builder
	for i, ti := range t.Index {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(ti.String())
	}
	fmt.Fprintf(&sb, " [%d rows]", len(t.Tuples))
	return sb.String()
}

// mustConform panics if any row disagrees with the header arity.
func (t Table) mustConform() {
	for _, row := range t.Tuples {
		if len(row) != len(t.Index) {
			panic(fmt.Sprintf("database: table %s holds a tuple of length %d", t, len(row)))
		}
	}
}
