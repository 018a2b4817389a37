// Package taskio reads planning tasks from YAML documents.
//
// A document names its types, objects, predicates, action schemas, initial
// atoms and goal. Atom entries are {pred, args, negated}; inside an action,
// an argument naming a parameter is a variable and any other name must be an
// object. Nullary atoms are turned into the schema's and goal's nullary masks.
package taskio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bits-and-blooms/bitset"
	"gopkg.in/yaml.v3"

	"powerlift/internal/task"
	"powerlift/internal/types"
)

// Document is the YAML layout of a task.
type Document struct {
	Name       string         `yaml:"name"`
	Types      []string       `yaml:"types"`
	Objects    []ObjectDoc    `yaml:"objects"`
	Predicates []PredicateDoc `yaml:"predicates"`
	Actions    []ActionDoc    `yaml:"actions"`
	Init       []AtomDoc      `yaml:"init"`
	Goal       []AtomDoc      `yaml:"goal"`
}

type ObjectDoc struct {
	Name  string   `yaml:"name"`
	Types []string `yaml:"types"`
}

type PredicateDoc struct {
	Name  string `yaml:"name"`
	Arity int    `yaml:"arity"`
}

type ParameterDoc struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type ActionDoc struct {
	Name         string         `yaml:"name"`
	Parameters   []ParameterDoc `yaml:"parameters"`
	Precondition []AtomDoc      `yaml:"precondition"`
	Effect       []AtomDoc      `yaml:"effect"`
}

type AtomDoc struct {
	Pred    string   `yaml:"pred"`
	Args    []string `yaml:"args,omitempty"`
	Negated bool     `yaml:"negated,omitempty"`
}

// Load reads and decodes the task file at path.
func Load(path string) (*task.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open task file: %w", err)
	}
	defer f.Close()

	t, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Decode parses a YAML task and returns the validated task.
func Decode(r io.Reader) (*task.Task, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty task document")
		}
		return nil, fmt.Errorf("failed to parse task: %w", err)
	}
	return doc.Build()
}

type catalogue struct {
	types      map[string]types.TypeID
	objects    map[string]types.ObjectID
	predicates map[string]types.Predicate
}

// Build resolves names and assembles the task.
func (d *Document) Build() (*task.Task, error) {
	cat := catalogue{
		types:      make(map[string]types.TypeID),
		objects:    make(map[string]types.ObjectID),
		predicates: make(map[string]types.Predicate),
	}
	t := &task.Task{Name: d.Name}

	for i, name := range d.Types {
		if _, dup := cat.types[name]; dup {
			return nil, fmt.Errorf("type %q declared twice", name)
		}
		cat.types[name] = types.TypeID(i)
		t.Types = append(t.Types, types.Type{Index: types.TypeID(i), Name: name})
	}

	for i, od := range d.Objects {
		if _, dup := cat.objects[od.Name]; dup {
			return nil, fmt.Errorf("object %q declared twice", od.Name)
		}
		obj := types.Object{Index: types.ObjectID(i), Name: od.Name}
		for _, tn := range od.Types {
			ty, ok := cat.types[tn]
			if !ok {
				return nil, fmt.Errorf("object %q: unknown type %q", od.Name, tn)
			}
			obj.Types = append(obj.Types, ty)
		}
		cat.objects[od.Name] = obj.Index
		t.Objects = append(t.Objects, obj)
	}

	for i, pd := range d.Predicates {
		if _, dup := cat.predicates[pd.Name]; dup {
			return nil, fmt.Errorf("predicate %q declared twice", pd.Name)
		}
		if pd.Arity < 0 {
			return nil, fmt.Errorf("predicate %q: negative arity %d", pd.Name, pd.Arity)
		}
		p := types.Predicate{Index: types.PredicateSymbol(i), Name: pd.Name, Arity: pd.Arity}
		cat.predicates[pd.Name] = p
		t.Predicates = append(t.Predicates, p)
	}

	for i, ad := range d.Actions {
		s, err := cat.schema(i, ad, len(t.Predicates))
		if err != nil {
			return nil, fmt.Errorf("action %q: %w", ad.Name, err)
		}
		t.Schemas = append(t.Schemas, s)
	}

	var initial []task.InitialAtom
	for _, ad := range d.Init {
		if ad.Negated {
			return nil, fmt.Errorf("init: negated atom %s", ad.Pred)
		}
		p, g, err := cat.ground(ad)
		if err != nil {
			return nil, fmt.Errorf("init: %w", err)
		}
		initial = append(initial, task.InitialAtom{Predicate: p, Args: g})
	}
	t.Initial, t.Static = task.Partition(t.Predicates, t.Schemas, initial)

	goal, err := cat.goal(d.Goal, len(t.Predicates))
	if err != nil {
		return nil, fmt.Errorf("goal: %w", err)
	}
	t.Goal = goal

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task: %w", err)
	}
	return t, nil
}

func (c *catalogue) predicate(ad AtomDoc) (types.Predicate, error) {
	p, ok := c.predicates[ad.Pred]
	if !ok {
		return types.Predicate{}, fmt.Errorf("unknown predicate %q", ad.Pred)
	}
	if len(ad.Args) != p.Arity {
		return types.Predicate{}, fmt.Errorf("%s has %d arguments, want %d", ad.Pred, len(ad.Args), p.Arity)
	}
	return p, nil
}

func (c *catalogue) object(name string) (types.ObjectID, error) {
	o, ok := c.objects[name]
	if !ok {
		return 0, fmt.Errorf("unknown object %q", name)
	}
	return o, nil
}

func (c *catalogue) ground(ad AtomDoc) (types.PredicateSymbol, types.GroundAtom, error) {
	p, err := c.predicate(ad)
	if err != nil {
		return 0, nil, err
	}
	g := make(types.GroundAtom, len(ad.Args))
	for i, name := range ad.Args {
		if g[i], err = c.object(name); err != nil {
			return 0, nil, fmt.Errorf("%s: %w", ad.Pred, err)
		}
	}
	return p.Index, g, nil
}

func (c *catalogue) schema(index int, ad ActionDoc, numPredicates int) (types.ActionSchema, error) {
	s := types.ActionSchema{
		Index:          index,
		Name:           ad.Name,
		ParameterCount: len(ad.Parameters),
	}
	params := make(map[string]int, len(ad.Parameters))
	for i, pd := range ad.Parameters {
		if _, dup := params[pd.Name]; dup {
			return s, fmt.Errorf("parameter %q declared twice", pd.Name)
		}
		ty, ok := c.types[pd.Type]
		if !ok {
			return s, fmt.Errorf("parameter %q: unknown type %q", pd.Name, pd.Type)
		}
		params[pd.Name] = i
		s.ParameterTypes = append(s.ParameterTypes, ty)
	}
	s.EnsureMasks(numPredicates)

	lift := func(ad AtomDoc) (types.Atom, error) {
		p, err := c.predicate(ad)
		if err != nil {
			return types.Atom{}, err
		}
		a := types.Atom{Predicate: p.Index, Negated: ad.Negated}
		for _, name := range ad.Args {
			if v, ok := params[name]; ok {
				a.Args = append(a.Args, types.Var(v))
				continue
			}
			o, err := c.object(name)
			if err != nil {
				return types.Atom{}, fmt.Errorf("%s: %w", ad.Pred, err)
			}
			a.Args = append(a.Args, types.Const(o))
		}
		return a, nil
	}

	for _, pre := range ad.Precondition {
		a, err := lift(pre)
		if err != nil {
			return s, fmt.Errorf("precondition: %w", err)
		}
		if len(a.Args) == 0 {
			setMask(a, s.PositiveNullaryPrecond, s.NegativeNullaryPrecond)
			continue
		}
		s.Preconditions = append(s.Preconditions, a)
	}
	for _, eff := range ad.Effect {
		a, err := lift(eff)
		if err != nil {
			return s, fmt.Errorf("effect: %w", err)
		}
		if len(a.Args) == 0 {
			setMask(a, s.PositiveNullaryEffects, s.NegativeNullaryEffects)
			continue
		}
		s.Effects = append(s.Effects, a)
	}
	return s, nil
}

func setMask(a types.Atom, positive, negative *bitset.BitSet) {
	if a.Negated {
		negative.Set(uint(a.Predicate))
	} else {
		positive.Set(uint(a.Predicate))
	}
}

func (c *catalogue) goal(atoms []AtomDoc, numPredicates int) (task.Goal, error) {
	goal := task.Goal{
		PositiveNullary: bitset.New(uint(numPredicates)),
		NegativeNullary: bitset.New(uint(numPredicates)),
	}
	for _, ad := range atoms {
		p, g, err := c.ground(ad)
		if err != nil {
			return goal, err
		}
		if len(g) == 0 {
			if ad.Negated {
				goal.NegativeNullary.Set(uint(p))
			} else {
				goal.PositiveNullary.Set(uint(p))
			}
			continue
		}
		goal.Atoms = append(goal.Atoms, task.GoalAtom{Predicate: p, Args: g, Negated: ad.Negated})
	}
	return goal, nil
}
