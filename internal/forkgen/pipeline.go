package forkgen

import (
	"context"
	"fmt"

	"genspec/internal/logging"
	"genspec/internal/syntax"
)

// State is the per-pair pipeline state. It is built fresh for every
// (source module, fork) pair and handed to each pass in turn.
type State struct {
	Overrides    OverrideSet
	Fork         string
	SourceModule string
	Rules        Rules

	// anchor is the Pos of the last import of the base module's leading
	// import run, computed before any pass runs.
	anchor int
}

// NewState prepares pipeline state for base. It fails with
// ErrNoLeadingImports when base has no import run to splice after.
func NewState(base syntax.Module, overrides OverrideSet, fork, source string, rules Rules) (*State, error) {
	at, err := InsertionPoint(base)
	if err != nil {
		return nil, err
	}
	return &State{
		Overrides:    overrides,
		Fork:         fork,
		SourceModule: source,
		Rules:        rules,
		anchor:       base.Decls[at-1].Syntax().Pos,
	}, nil
}

// InsertionPoint returns the index just past the first contiguous run of
// imports in m. Non-import items before the run (inner attributes, module
// declarations) are skipped.
func InsertionPoint(m syntax.Module) (int, error) {
	end := -1
	for i, d := range m.Decls {
		if _, ok := d.(syntax.ImportDecl); ok {
			end = i + 1
			continue
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return 0, ErrNoLeadingImports
	}
	return end, nil
}

// Pass is one rewrite step of the pipeline.
type Pass struct {
	Name string
	Run  func(*State, syntax.Module) (syntax.Module, error)
}

// Passes lists the pipeline in execution order. The order is load-bearing:
// generic shapes are fixed before imports are spliced, and the sentinel is
// replaced last.
var Passes = []Pass{
	{Name: "remove-overrides", Run: RemoveOverrides},
	{Name: "fix-generics", Run: FixGenerics},
	{Name: "import-overrides", Run: ImportOverrides},
	{Name: "finalize", Run: Finalize},
}

// Assemble derives the fork module from base.
func Assemble(base syntax.Module, overrides OverrideSet, fork, source string, rules Rules) (syntax.Module, error) {
	st, err := NewState(base, overrides, fork, source, rules)
	if err != nil {
		return syntax.Module{}, err
	}

	m := base
	for _, p := range Passes {
		timer := logging.StartTimer(logging.CategoryPipeline, fork+"/"+source+" "+p.Name)
		m, err = p.Run(st, m)
		timer.Stop()
		if err != nil {
			return syntax.Module{}, fmt.Errorf("%s: %w", p.Name, err)
		}
	}
	return m, nil
}

// Input is everything needed to derive one fork module.
type Input struct {
	Fork   string
	Source string

	BaseName string
	Base     []byte

	// Override is nil when the pair has no override module.
	OverrideName string
	Override     []byte
}

// Output is a rendered fork module.
type Output struct {
	Text      []byte
	Overrides []string
}

// Compose parses the inputs, assembles and renders the fork module.
func Compose(ctx context.Context, p *syntax.Parser, in Input, rules Rules) (Output, error) {
	var overrides *syntax.Module
	if in.Override != nil {
		m, err := p.Parse(ctx, in.OverrideName, in.Override)
		if err != nil {
			return Output{}, err
		}
		overrides = &m
	}
	set := Collect(overrides)

	base, err := p.Parse(ctx, in.BaseName, in.Base)
	if err != nil {
		return Output{}, err
	}

	derived, err := Assemble(base, set, in.Fork, in.Source, rules)
	if err != nil {
		return Output{}, err
	}
	return Output{Text: Render(derived), Overrides: set.Names()}, nil
}
