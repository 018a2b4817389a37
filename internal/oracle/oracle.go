// Package oracle cross-checks the successor generator with a Datalog
// evaluation of the same task. Every lifted action schema is compiled into a
// Mangle rule whose head relation holds exactly the applicable bindings.
package oracle

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"go.uber.org/zap"

	"powerlift/internal/states"
	"powerlift/internal/task"
	"powerlift/internal/types"
)

// Oracle evaluates the compiled program against states of one task.
type Oracle struct {
	task        *task.Task
	source      string
	programInfo *analysis.ProgramInfo
	base        factstore.FactStore
	heads       map[int]ast.PredicateSym
	logger      *zap.Logger
}

// New compiles t into a Mangle program. Ground schemas are left out: their
// fallback lookup has no Datalog counterpart.
func New(t *task.Task, logger *zap.Logger) (*Oracle, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	source, heads := compile(t)

	unit, err := parse.Unit(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("oracle: parse program: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("oracle: analyze program: %w", err)
	}

	base := factstore.NewSimpleInMemoryStore()
	base.Merge(t.Static.Store())
	for _, obj := range t.Objects {
		for _, ty := range obj.Types {
			base.Add(ast.Atom{Predicate: typeSym(ty), Args: []ast.BaseTerm{ast.Number(int64(obj.Index))}})
		}
	}

	logger.Debug("oracle program compiled",
		zap.Int("rules", len(heads)),
		zap.Int("base_facts", base.EstimateFactCount()))
	return &Oracle{
		task:        t,
		source:      source,
		programInfo: programInfo,
		base:        base,
		heads:       heads,
		logger:      logger,
	}, nil
}

// Program returns the compiled Mangle source.
func (o *Oracle) Program() string { return o.source }

// Applicable returns, per lifted schema index, the bindings applicable in state.
// Schemas whose nullary preconditions fail are absent.
func (o *Oracle) Applicable(state *states.DBState) (Bindings, error) {
	store := newLayeredStore(o.base)
	for p, pred := range o.task.Predicates {
		if pred.Arity == 0 {
			continue
		}
		for _, g := range state.Tuples(types.PredicateSymbol(p)) {
			store.Add(g.ToAtom(types.PredicateSymbol(p)))
		}
	}

	start := time.Now()
	if _, err := mengine.EvalProgramWithStats(o.programInfo, store); err != nil {
		return nil, fmt.Errorf("oracle: evaluate: %w", err)
	}

	out := make(Bindings, len(o.heads))
	for i, head := range o.heads {
		if nullaryFails(&o.task.Schemas[i], state) {
			continue
		}
		var rows [][]types.ObjectID
		err := store.GetFacts(ast.NewQuery(head), func(a ast.Atom) error {
			g, err := types.FromAtom(a)
			if err != nil {
				return err
			}
			rows = append(rows, []types.ObjectID(g))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("oracle: read %s: %w", head.Symbol, err)
		}
		if len(rows) > 0 {
			out[i] = sortRows(rows)
		}
	}
	o.logger.Debug("oracle evaluated state",
		zap.Int("facts", store.EstimateFactCount()),
		zap.Duration("took", time.Since(start)))
	return out, nil
}

func nullaryFails(s *types.ActionSchema, state *states.DBState) bool {
	nullary := state.NullaryAtoms()
	if s.PositiveNullaryPrecond != nil && s.PositiveNullaryPrecond.DifferenceCardinality(nullary) > 0 {
		return true
	}
	return s.NegativeNullaryPrecond != nil && s.NegativeNullaryPrecond.IntersectionCardinality(nullary) > 0
}

func typeSym(ty types.TypeID) ast.PredicateSym {
	return ast.PredicateSym{Symbol: fmt.Sprintf("type_%d", ty), Arity: 1}
}

func headSym(schema, arity int) ast.PredicateSym {
	return ast.PredicateSym{Symbol: fmt.Sprintf("app_%d", schema), Arity: arity}
}

// compile renders the declarations and one rule per lifted schema:
//
//	app_<i>(X0, .., Xn) :- <positive atoms>, <type atoms of unbound parameters>, !<negative atoms>.
func compile(t *task.Task) (string, map[int]ast.PredicateSym) {
	var sb strings.Builder
	for p, pred := range t.Predicates {
		if pred.Arity == 0 {
			continue
		}
		fmt.Fprintf(&sb, "Decl %s(%s).\n", types.PredicateSym(types.PredicateSymbol(p), pred.Arity).Symbol, varList(pred.Arity))
	}
	for _, ty := range t.Types {
		fmt.Fprintf(&sb, "Decl %s(X0).\n", typeSym(ty.Index).Symbol)
	}

	heads := make(map[int]ast.PredicateSym)
	for i := range t.Schemas {
		s := &t.Schemas[i]
		if s.IsGround() {
			continue
		}
		bound := make([]bool, s.ParameterCount)
		var body []string
		for _, pre := range s.PositivePreconditions() {
			if len(pre.Args) == 0 {
				continue
			}
			body = append(body, renderAtom(pre))
			for _, arg := range pre.Args {
				if !arg.IsConstant() {
					bound[arg.Index()] = true
				}
			}
		}
		for v, ok := range bound {
			if !ok {
				body = append(body, fmt.Sprintf("%s(X%d)", typeSym(s.ParameterTypes[v]).Symbol, v))
			}
		}
		for _, pre := range s.NegativePreconditions() {
			if len(pre.Args) == 0 {
				continue
			}
			body = append(body, "!"+renderAtom(pre))
		}
		head := headSym(i, s.ParameterCount)
		heads[i] = head
		fmt.Fprintf(&sb, "%s(%s) :- %s.\n", head.Symbol, varList(s.ParameterCount), strings.Join(body, ", "))
	}
	return sb.String(), heads
}

func renderAtom(a types.Atom) string {
	args := make([]string, len(a.Args))
	for i, arg := range a.Args {
		if arg.IsConstant() {
			args[i] = fmt.Sprintf("%d", arg.Object())
		} else {
			args[i] = fmt.Sprintf("X%d", arg.Index())
		}
	}
	return fmt.Sprintf("%s(%s)", types.PredicateSym(a.Predicate, len(a.Args)).Symbol, strings.Join(args, ", "))
}

func varList(n int) string {
	vars := make([]string, n)
	for i := range vars {
		vars[i] = fmt.Sprintf("X%d", i)
	}
	return strings.Join(vars, ", ")
}

func sortRows(rows [][]types.ObjectID) [][]types.ObjectID {
	sort.Slice(rows, func(i, j int) bool { return lessRow(rows[i], rows[j]) })
	return rows
}

func lessRow(a, b []types.ObjectID) bool {
	for k := range a {
		if k >= len(b) {
			return false
		}
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return len(a) < len(b)
}
