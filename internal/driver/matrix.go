// Package driver runs the fork module generator over the fixed matrix of
// source modules and forks, reading and writing files under a source root.
package driver

import (
	"path/filepath"

	"genspec/internal/forkgen"
)

// Sources are the base modules every fork is derived from.
var Sources = []string{
	"helpers",
	"block_processing",
	"epoch_processing",
	"slot_processing",
	"state_transition",
	"genesis",
}

// Forks are the forks generated from the base.
var Forks = []string{"altair", "bellatrix"}

// Pair is one (source module, fork) generation unit.
type Pair struct {
	Source string
	Fork   string
}

func (p Pair) String() string {
	return p.Fork + "/" + p.Source
}

// Matrix enumerates every pair, source-major.
func Matrix() []Pair {
	pairs := make([]Pair, 0, len(Sources)*len(Forks))
	for _, src := range Sources {
		for _, fork := range Forks {
			pairs = append(pairs, Pair{Source: src, Fork: fork})
		}
	}
	return pairs
}

// BasePath is root/phase0/<source>.rs.
func (p Pair) BasePath(root string) string {
	return filepath.Join(root, forkgen.BaseFork, p.Source+".rs")
}

// OverridePath is root/<fork>/<source>_<fork>.rs. The file is optional.
func (p Pair) OverridePath(root string) string {
	return filepath.Join(root, p.Fork, forkgen.PatchModule(p.Source, p.Fork)+".rs")
}

// OutputPath is root/<fork>/<source>.rs.
func (p Pair) OutputPath(root string) string {
	return filepath.Join(root, p.Fork, p.Source+".rs")
}
