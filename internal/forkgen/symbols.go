package forkgen

import (
	"genspec/internal/logging"
	"genspec/internal/syntax"
)

// OverrideSet is the set of function names an override module defines.
// Names iterate in order of first definition, so output built from a set is
// reproducible.
type OverrideSet struct {
	names []string
	index map[string]struct{}
}

// NewOverrideSet builds a set from names, dropping duplicates.
func NewOverrideSet(names ...string) OverrideSet {
	var s OverrideSet
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts name and reports whether it was new.
func (s *OverrideSet) Add(name string) bool {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[name]; ok {
		return false
	}
	s.index[name] = struct{}{}
	s.names = append(s.names, name)
	return true
}

// Has reports whether name is in the set.
func (s OverrideSet) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Len returns the number of names.
func (s OverrideSet) Len() int {
	return len(s.names)
}

// Names returns the names in definition order.
func (s OverrideSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Collect gathers the names of the top-level functions of an override
// module. Imports, opaque items and anything nested inside them (impl
// methods, inline modules, inner fns) are ignored. A nil module yields an
// empty set.
func Collect(overrides *syntax.Module) OverrideSet {
	var set OverrideSet
	if overrides == nil {
		return set
	}
	for _, d := range overrides.Decls {
		fn, ok := d.(syntax.FunctionDecl)
		if !ok {
			continue
		}
		if !set.Add(fn.Name) {
			logging.CollectorDebug("duplicate override %s ignored", fn.Name)
		}
	}
	logging.CollectorDebug("collected %d overrides", set.Len())
	return set
}
