package oracle

import (
	"github.com/google/mangle/ast"
	"github.com/google/mangle/factstore"
)

// layeredStore reads through a writable overlay to a read-only base. The
// evaluation writes state facts and derived facts to the overlay; the static
// facts in the base are shared across evaluations.
type layeredStore struct {
	base    factstore.ReadOnlyFactStore
	overlay factstore.FactStore
}

var _ factstore.FactStore = (*layeredStore)(nil)

func newLayeredStore(base factstore.ReadOnlyFactStore) *layeredStore {
	return &layeredStore{base: base, overlay: factstore.NewSimpleInMemoryStore()}
}

// Add writes to the overlay unless the base already holds the atom.
func (s *layeredStore) Add(atom ast.Atom) bool {
	if s.base.Contains(atom) {
		return false
	}
	return s.overlay.Add(atom)
}

func (s *layeredStore) Contains(atom ast.Atom) bool {
	return s.overlay.Contains(atom) || s.base.Contains(atom)
}

func (s *layeredStore) GetFacts(query ast.Atom, fn func(ast.Atom) error) error {
	if err := s.overlay.GetFacts(query, fn); err != nil {
		return err
	}
	return s.base.GetFacts(query, fn)
}

func (s *layeredStore) ListPredicates() []ast.PredicateSym {
	seen := make(map[ast.PredicateSym]bool)
	var out []ast.PredicateSym
	for _, sym := range append(s.overlay.ListPredicates(), s.base.ListPredicates()...) {
		if !seen[sym] {
			seen[sym] = true
			out = append(out, sym)
		}
	}
	return out
}

func (s *layeredStore) EstimateFactCount() int {
	return s.overlay.EstimateFactCount() + s.base.EstimateFactCount()
}

func (s *layeredStore) Merge(other factstore.ReadOnlyFactStore) {
	for _, sym := range other.ListPredicates() {
		_ = other.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
			s.Add(atom)
			return nil
		})
	}
}
