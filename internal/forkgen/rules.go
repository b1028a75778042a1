// Package forkgen derives a fork-specific Rust module from the phase0 base
// module and an optional override module.
//
// Assemble runs four passes, strictly in order:
//
//  1. RemoveOverrides drops base functions that are overridden or expired.
//  2. FixGenerics patches generic shapes for the fork that needs them.
//  3. ImportOverrides re-exports every override from the fork's patch module.
//  4. Finalize points the `spec` alias at the fork module.
//
// Every pass is a pure function of the pipeline State and a module.
package forkgen

import "genspec/internal/syntax"

// Crate is the path root generated imports are anchored at.
const Crate = "crate"

// BaseFork is the fork every other fork is derived from.
const BaseFork = "phase0"

// SpecAlias is the local name the base module binds its fork module to.
const SpecAlias = "spec"

// GenericRewriteRule patches generic shapes for exactly one fork.
type GenericRewriteRule struct {
	// Fork is the only fork the rule applies to.
	Fork string
	// Trigger selects argument lists whose owning type name contains it.
	Trigger string
	// Argument is appended once to every triggered argument list.
	Argument string
	// From is renamed to To wherever it occurs inside a generic list.
	From string
	To   string
}

// Rules holds the fixed rewrite configuration of the generator.
type Rules struct {
	// ExpirePrefix marks base functions that are dropped for every fork.
	ExpirePrefix string
	Generic      GenericRewriteRule
}

// DefaultRules returns the compiled-in rule set.
func DefaultRules() Rules {
	return Rules{
		ExpirePrefix: "get_matching_",
		Generic: GenericRewriteRule{
			Fork:     "altair",
			Trigger:  "BeaconBlock",
			Argument: "SYNC_COMMITTEE_SIZE",
			From:     "PENDING_ATTESTATIONS_BOUND",
			To:       "SYNC_COMMITTEE_SIZE",
		},
	}
}

// Sentinel is the base module's fork-neutral import, `use crate::phase0 as spec;`.
func Sentinel() syntax.ImportDecl {
	return syntax.NewImport("", Crate+"::"+BaseFork, SpecAlias)
}

// ForkImport is the sentinel's replacement, `use crate::<fork> as spec;`.
func ForkImport(fork string) syntax.ImportDecl {
	return syntax.NewImport("", Crate+"::"+fork, SpecAlias)
}

// OverrideImport re-exports name from the fork's patch module:
// `pub use crate::<fork>::<source>_<fork>::<name> as <name>;`.
func OverrideImport(fork, source, name string) syntax.ImportDecl {
	path := Crate + "::" + fork + "::" + PatchModule(source, fork) + "::" + name
	return syntax.NewImport("pub", path, name)
}

// PatchModule names the override module of source for fork.
func PatchModule(source, fork string) string {
	return source + "_" + fork
}
