package successor

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"powerlift/internal/states"
	"powerlift/internal/task"
	"powerlift/internal/types"
)

// Expansion is the result of expanding one state.
type Expansion struct {
	State      *states.DBState
	Operators  []types.LiftedOperatorID
	Successors []*states.DBState
}

// Expander expands batches of states on a bounded pool of workers over one
// read-only task. Every worker owns its own Generator.
type Expander struct {
	task    *task.Task
	opts    []Option
	workers int
	logger  *zap.Logger
}

// NewExpander returns an expander with the given worker limit; workers <= 0
// means GOMAXPROCS. opts configure each worker's Generator.
func NewExpander(t *task.Task, workers int, logger *zap.Logger, opts ...Option) *Expander {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{task: t, opts: opts, workers: workers, logger: logger}
}

// Workers returns the worker limit.
func (e *Expander) Workers() int { return e.workers }

// Expand returns one Expansion per input state, in input order. Cancellation
// is honoured between states; a state already being expanded runs to
// completion.
func (e *Expander) Expand(ctx context.Context, batch []*states.DBState) ([]Expansion, error) {
	results := make([]Expansion, len(batch))
	jobs := make(chan int)

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		defer close(jobs)
		for i := range batch {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	workers := e.workers
	if workers > len(batch) {
		workers = len(batch)
	}
	for w := 0; w < workers; w++ {
		grp.Go(func() error {
			gen := New(e.task, e.opts...)
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					return err
				}
				results[i] = expandOne(gen, batch[i])
			}
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, fmt.Errorf("expand batch of %d states: %w", len(batch), err)
	}
	e.logger.Debug("expanded batch", zap.Int("states", len(batch)), zap.Int("workers", workers))
	return results, nil
}

func expandOne(gen *Generator, state *states.DBState) Expansion {
	ops := gen.ApplicableActions(gen.Task().Schemas, state)
	succ := make([]*states.DBState, len(ops))
	for i, op := range ops {
		succ[i] = gen.Successor(op, state)
	}
	return Expansion{State: state, Operators: ops, Successors: succ}
}

// ExpandLayers expands start, then the successors of every expanded state, up
// to depth layers. It returns the expansions of each layer. No duplicate
// detection is done: the layers grow with the branching factor.
func (e *Expander) ExpandLayers(ctx context.Context, start *states.DBState, depth int) ([][]Expansion, error) {
	frontier := []*states.DBState{start}
	var layers [][]Expansion
	for d := 0; d < depth && len(frontier) > 0; d++ {
		layer, err := e.Expand(ctx, frontier)
		if err != nil {
			return layers, fmt.Errorf("layer %d: %w", d, err)
		}
		layers = append(layers, layer)
		frontier = frontier[:0:0]
		for _, x := range layer {
			frontier = append(frontier, x.Successors...)
		}
	}
	return layers, nil
}
