package database

import (
	"encoding/binary"

	"powerlift/internal/types"
)

// Joiner evaluates natural joins and semi-joins over tables.
//
// Both strategies emit rows in the same order: left rows first, then the
// matching right rows in their original order. Duplicates are kept.
type Joiner interface {
	// Join returns l ⋈ r. The header is l.Index followed by the columns of
	// r.Index that l does not already bind.
	Join(l, r Table) Table
	// SemiJoin returns the rows of l with at least one match in r. If the
	// headers share no column, l is returned unchanged.
	SemiJoin(l, r Table) Table
	// Name identifies the strategy in logs and configuration.
	Name() string
}

// Join computes l ⋈ r with the nested-loop strategy.
func Join(l, r Table) Table {
	return NestedLoop{}.Join(l, r)
}

// SemiJoin computes l ⋉ r with the nested-loop strategy.
func SemiJoin(l, r Table) Table {
	return NestedLoop{}.SemiJoin(l, r)
}

// columnPair pairs a left column with a right column carrying the same variable.
type columnPair struct {
	left, right int
}

// sharedColumns returns every (i, j) with l.Index[i] shared with r.Index[j].
func sharedColumns(l, r Table) []columnPair {
	var matches []columnPair
	for i, li := range l.Index {
		for j, rj := range r.Index {
			if li.SharedWith(rj) {
				matches = append(matches, columnPair{left: i, right: j})
			}
		}
	}
	return matches
}

// projectedColumns returns the right columns appended by a join: constant
// columns, and variable columns whose id l does not bind (each id once).
func projectedColumns(l, r Table) []int {
	bound := make(map[int]struct{}, len(l.Index)+len(r.Index))
	for _, ti := range l.Index {
		if ti.IsVariable() {
			bound[ti.value] = struct{}{}
		}
	}
	var extra []int
	for j, ti := range r.Index {
		if ti.IsVariable() {
			if _, ok := bound[ti.value]; ok {
				continue
			}
			bound[ti.value] = struct{}{}
		}
		extra = append(extra, j)
	}
	return extra
}

func joinedHeader(l, r Table, extra []int) []TupleIndex {
	index := make([]TupleIndex, 0, len(l.Index)+len(extra))
	index = append(index, l.Index...)
	for _, j := range extra {
		index = append(index, r.Index[j])
	}
	return index
}

func concat(lrow, rrow Tuple, extra []int) Tuple {
	out := make(Tuple, len(lrow), len(lrow)+len(extra))
	copy(out, lrow)
	for _, j := range extra {
		out = append(out, rrow[j])
	}
	return out
}

func rowsMatch(lrow, rrow Tuple, matches []columnPair) bool {
	for _, m := range matches {
		if lrow[m.left] != rrow[m.right] {
			return false
		}
	}
	return true
}

// NestedLoop is the reference strategy: every left row is compared against
// every right row.
type NestedLoop struct{}

// Name implements Joiner.
func (NestedLoop) Name() string { return "nested-loop" }

// Join implements Joiner.
func (NestedLoop) Join(l, r Table) Table {
	l.mustConform()
	r.mustConform()

	matches := sharedColumns(l, r)
	extra := projectedColumns(l, r)
	out := Table{Index: joinedHeader(l, r, extra)}
	for _, lrow := range l.Tuples {
		for _, rrow := range r.Tuples {
			if rowsMatch(lrow, rrow, matches) {
				out.Tuples = append(out.Tuples, concat(lrow, rrow, extra))
			}
		}
	}
	return out
}

// SemiJoin implements Joiner. For each left row, right rows are scanned until
// the first one agreeing on every shared column.
func (NestedLoop) SemiJoin(l, r Table) Table {
	l.mustConform()
	r.mustConform()

	matches := sharedColumns(l, r)
	if len(matches) == 0 {
		return l
	}
	out := Table{Index: l.Index}
	for _, lrow := range l.Tuples {
		for _, rrow := range r.Tuples {
			if rowsMatch(lrow, rrow, matches) {
				out.Tuples = append(out.Tuples, lrow)
				break
			}
		}
	}
	return out
}

// Hash builds a hash table over the right operand keyed by its shared-column
// projection and probes it with every left row.
type Hash struct{}

// Name implements Joiner.
func (Hash) Name() string { return "hash" }

// Join implements Joiner. Without shared columns it degrades to the nested-loop
// cross product.
func (Hash) Join(l, r Table) Table {
	l.mustConform()
	r.mustConform()

	matches := sharedColumns(l, r)
	if len(matches) == 0 {
		return NestedLoop{}.Join(l, r)
	}
	extra := projectedColumns(l, r)
	buckets := buildBuckets(r, matches)

	out := Table{Index: joinedHeader(l, r, extra)}
	var key []byte
	for _, lrow := range l.Tuples {
		key = probeKey(key[:0], lrow, matches)
		for _, ri := range buckets[string(key)] {
			out.Tuples = append(out.Tuples, concat(lrow, r.Tuples[ri], extra))
		}
	}
	return out
}

// SemiJoin implements Joiner.
func (Hash) SemiJoin(l, r Table) Table {
	l.mustConform()
	r.mustConform()

	matches := sharedColumns(l, r)
	if len(matches) == 0 {
		return l
	}
	buckets := buildBuckets(r, matches)

	out := Table{Index: l.Index}
	var key []byte
	for _, lrow := range l.Tuples {
		key = probeKey(key[:0], lrow, matches)
		if _, ok := buckets[string(key)]; ok {
			out.Tuples = append(out.Tuples, lrow)
		}
	}
	return out
}

// buildBuckets maps the shared-column projection of each right row to the
// row positions carrying it, in right order.
func buildBuckets(r Table, matches []columnPair) map[string][]int {
	buckets := make(map[string][]int, len(r.Tuples))
	var key []byte
	for i, rrow := range r.Tuples {
		key = key[:0]
		for _, m := range matches {
			key = binary.AppendUvarint(key, uint64(rrow[m.right]))
		}
		buckets[string(key)] = append(buckets[string(key)], i)
	}
	return buckets
}

func probeKey(buf []byte, lrow Tuple, matches []columnPair) []byte {
	for _, m := range matches {
		buf = binary.AppendUvarint(buf, uint64(lrow[m.left]))
	}
	return buf
}

// appendKey encodes a tuple of non-negative object ids.
func appendKey(buf []byte, values []types.ObjectID) []byte {
	for _, v := range values {
		buf = binary.AppendUvarint(buf, uint64(v))
	}
	return buf
}
