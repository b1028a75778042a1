package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"genspec/internal/forkgen"
	"genspec/internal/logging"
	"genspec/internal/syntax"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Options configures a Generator.
type Options struct {
	// Root is the source root holding phase0/ and one directory per fork.
	Root string
	// Jobs bounds how many pairs are generated concurrently. Values below 2
	// run the pairs one by one in matrix order.
	Jobs int
	// Check compares rendered modules with the files on disk instead of
	// writing them.
	Check bool
	// Pairs overrides the compiled-in matrix; nil means Matrix().
	Pairs []Pair
}

// Result describes one generated pair.
type Result struct {
	Pair      Pair
	Path      string
	Overrides []string
	Bytes     int
	// Changed reports whether the rendered module differs from the file on
	// disk before the run (or the file did not exist). Outside check mode the
	// output is written either way.
	Changed  bool
	Duration time.Duration
}

// StaleError lists generated modules that are missing or out of date.
type StaleError struct {
	Paths []string
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("%d generated module(s) out of date: %s", len(e.Paths), strings.Join(e.Paths, ", "))
}

// Generator regenerates every fork module under a root.
type Generator struct {
	opts  Options
	rules forkgen.Rules
}

// NewGenerator creates a Generator using the compiled-in rewrite rules.
func NewGenerator(opts Options) *Generator {
	if opts.Pairs == nil {
		opts.Pairs = Matrix()
	}
	return &Generator{opts: opts, rules: forkgen.DefaultRules()}
}

// Root returns the source root the generator works on.
func (g *Generator) Root() string {
	return g.opts.Root
}

// Pairs returns the pairs the generator processes, in order.
func (g *Generator) Pairs() []Pair {
	out := make([]Pair, len(g.opts.Pairs))
	copy(out, g.opts.Pairs)
	return out
}

// Run generates every pair. The first failure aborts the batch; pairs that
// completed before it keep their output. In check mode nothing is written and
// a *StaleError is returned when any output differs from its rendering.
// Results are always in matrix order.
func (g *Generator) Run(ctx context.Context) ([]Result, error) {
	runID := uuid.NewString()[:8]
	log := logging.Get(logging.CategoryDriver).With("run", runID)
	timer := logging.StartTimer(logging.CategoryDriver, "run "+runID)

	pairs := g.opts.Pairs
	results := make([]Result, len(pairs))
	log.Debug("generating %d pairs under %s (jobs=%d, check=%v)", len(pairs), g.opts.Root, g.opts.Jobs, g.opts.Check)

	if g.opts.Jobs < 2 {
		for i, p := range pairs {
			if err := ctx.Err(); err != nil {
				failRun(timer, runID, err)
				return results[:i], err
			}
			r, err := g.runPair(ctx, p)
			if err != nil {
				failRun(timer, runID, err)
				return results[:i], err
			}
			results[i] = r
		}
	} else {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(g.opts.Jobs)
		for i, p := range pairs {
			eg.Go(func() error {
				if err := egCtx.Err(); err != nil {
					return err
				}
				r, err := g.runPair(egCtx, p)
				if err != nil {
					return err
				}
				results[i] = r
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			failRun(timer, runID, err)
			return nil, err
		}
	}

	if g.opts.Check {
		var stale []string
		for _, r := range results {
			if r.Changed {
				stale = append(stale, r.Path)
			}
		}
		if len(stale) > 0 {
			err := &StaleError{Paths: stale}
			failRun(timer, runID, err)
			return results, err
		}
	}

	logging.Driver("run %s: generated %d pairs under %s", runID, len(results), g.opts.Root)
	timer.StopWithInfo()
	return results, nil
}

func failRun(timer *logging.Timer, runID string, err error) {
	timer.Stop()
	logging.DriverError("run %s: %v", runID, err)
}

func (g *Generator) runPair(ctx context.Context, p Pair) (Result, error) {
	start := time.Now()
	res := Result{Pair: p, Path: p.OutputPath(g.opts.Root)}

	in, err := g.load(p)
	if err != nil {
		return res, fmt.Errorf("%s: %w", p, err)
	}

	parser := syntax.NewParser()
	defer parser.Close()

	out, err := forkgen.Compose(ctx, parser, in, g.rules)
	if err != nil {
		return res, fmt.Errorf("%s: %w", p, err)
	}
	res.Overrides = out.Overrides
	res.Bytes = len(out.Text)

	current, err := os.ReadFile(res.Path)
	switch {
	case err == nil:
		res.Changed = !bytes.Equal(current, out.Text)
	case errors.Is(err, fs.ErrNotExist):
		res.Changed = true
	default:
		return res, fmt.Errorf("%s: read output %s: %w", p, res.Path, err)
	}

	if !g.opts.Check {
		if err := writeFileAtomic(res.Path, out.Text, 0o644); err != nil {
			return res, fmt.Errorf("%s: write %s: %w", p, res.Path, err)
		}
	}

	res.Duration = time.Since(start)
	logging.DriverDebug("%s: %d overrides, %d bytes, changed=%v in %v", p, len(res.Overrides), res.Bytes, res.Changed, res.Duration)
	return res, nil
}

// load reads the base and the optional override module of p.
func (g *Generator) load(p Pair) (forkgen.Input, error) {
	in := forkgen.Input{
		Fork:         p.Fork,
		Source:       p.Source,
		BaseName:     p.BasePath(g.opts.Root),
		OverrideName: p.OverridePath(g.opts.Root),
	}

	override, err := os.ReadFile(in.OverrideName)
	switch {
	case err == nil:
		in.Override = override
	case errors.Is(err, fs.ErrNotExist):
		logging.DriverDebug("%s: no override module at %s", p, in.OverrideName)
	default:
		return in, fmt.Errorf("read override %s: %w", in.OverrideName, err)
	}

	base, err := os.ReadFile(in.BaseName)
	if err != nil {
		return in, fmt.Errorf("read base %s: %w", in.BaseName, err)
	}
	in.Base = base
	return in, nil
}
