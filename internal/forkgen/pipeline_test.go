package forkgen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"genspec/internal/syntax"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseSrc = `use crate::phase0 as spec;
use crate::primitives::*;

pub fn get_matching_source_attestations(epoch: u64) -> u64 {
    epoch
}

pub fn get_total_balance(state: &BeaconState<PENDING_ATTESTATIONS_BOUND>) -> u64 {
    0
}

pub fn process_block(block: &BeaconBlock<A, B, C>) {}
`

const overrideSrc = `use crate::altair as spec;

pub fn get_total_balance(state: &BeaconState<SYNC_COMMITTEE_SIZE>) -> u64 {
    1
}

impl Foo {
    pub fn process_block(&self) {}
}
`

func compose(t *testing.T, fork, source, base string, override *string) ([]byte, error) {
	t.Helper()
	p := syntax.NewParser()
	defer p.Close()

	in := Input{
		Fork:     fork,
		Source:   source,
		BaseName: "phase0/" + source + ".rs",
		Base:     []byte(base),
	}
	if override != nil {
		in.OverrideName = fork + "/" + PatchModule(source, fork) + ".rs"
		in.Override = []byte(*override)
	}
	out, err := Compose(context.Background(), p, in, DefaultRules())
	return out.Text, err
}

func mustParse(t *testing.T, src string) syntax.Module {
	t.Helper()
	m, err := syntax.Parse(context.Background(), "test.rs", []byte(src))
	require.NoError(t, err)
	return m
}

func assertText(t *testing.T, want string, got []byte) {
	t.Helper()
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_OverridesAndExpiredFunctions(t *testing.T) {
	override := overrideSrc
	got, err := compose(t, "bellatrix", "helpers", baseSrc, &override)
	require.NoError(t, err)

	want := Banner +
		"use crate::bellatrix as spec;\n" +
		"use crate::primitives::*;\n" +
		"pub use crate::bellatrix::helpers_bellatrix::get_total_balance as get_total_balance;\n" +
		"\n" +
		"pub fn process_block(block: &BeaconBlock<A, B, C>) {}\n"
	assertText(t, want, got)

	assert.NotContains(t, string(got), "get_matching_source_attestations")
	assert.NotContains(t, string(got), "pub fn get_total_balance")
}

func TestCompose_GenericFixForAltair(t *testing.T) {
	got, err := compose(t, "altair", "block_processing", baseSrc, nil)
	require.NoError(t, err)

	want := Banner +
		"use crate::altair as spec;\n" +
		"use crate::primitives::*;\n" +
		"\n" +
		"pub fn get_total_balance(state: &BeaconState<SYNC_COMMITTEE_SIZE>) -> u64 {\n" +
		"    0\n" +
		"}\n" +
		"\n" +
		"pub fn process_block(block: &BeaconBlock<A, B, C, SYNC_COMMITTEE_SIZE>) {}\n"
	assertText(t, want, got)
}

func TestCompose_GenericFixSkipsOtherForks(t *testing.T) {
	got, err := compose(t, "bellatrix", "block_processing", baseSrc, nil)
	require.NoError(t, err)

	assert.Contains(t, string(got), "BeaconBlock<A, B, C>")
	assert.Contains(t, string(got), "BeaconState<PENDING_ATTESTATIONS_BOUND>")
	assert.NotContains(t, string(got), "SYNC_COMMITTEE_SIZE")
}

func TestCompose_NoOverrideModule(t *testing.T) {
	base := "use crate::phase0 as spec;\nuse spec::BeaconState;\n\n/// Slot transition.\npub fn process_slot(state: &mut BeaconState) {\n    state.slot += 1;\n}\n"
	got, err := compose(t, "bellatrix", "slot_processing", base, nil)
	require.NoError(t, err)

	want := Banner + strings.Replace(base, "crate::phase0", "crate::bellatrix", 1)
	assertText(t, want, got)
	assert.NotContains(t, string(got), "pub use")
}

func TestCompose_DuplicateSentinel(t *testing.T) {
	base := "use crate::phase0 as spec;\nuse crate::phase0 as spec;\n\npub fn f() {}\n"
	got, err := compose(t, "altair", "genesis", base, nil)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ErrSentinelDuplicate))

	var serr *SentinelError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 2, serr.Count)
	assert.Contains(t, err.Error(), "finalize")
}

func TestCompose_MissingSentinel(t *testing.T) {
	base := "use crate::phase0::BeaconState;\n\npub fn f() {}\n"
	_, err := compose(t, "altair", "genesis", base, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSentinelMissing))
	assert.False(t, errors.Is(err, ErrSentinelDuplicate))
}

func TestCompose_SentinelMatchIgnoresFormatting(t *testing.T) {
	base := "use crate :: phase0   as spec ;\n\npub fn f() {}\n"
	got, err := compose(t, "altair", "genesis", base, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(got), Banner+"use crate::altair as spec;\n"))
}

func TestCompose_ParseErrors(t *testing.T) {
	broken := "pub fn oops( {\n"
	_, err := compose(t, "altair", "helpers", baseSrc, &broken)
	var perr *syntax.ParseError
	require.True(t, errors.As(err, &perr), "want *syntax.ParseError, got %v", err)
	assert.Equal(t, "altair/helpers_altair.rs", perr.Name)

	_, err = compose(t, "altair", "helpers", broken, nil)
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "phase0/helpers.rs", perr.Name)
}

func TestCompose_Deterministic(t *testing.T) {
	override := overrideSrc
	first, err := compose(t, "altair", "helpers", baseSrc, &override)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := compose(t, "altair", "helpers", baseSrc, &override)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCompose_OverrideImportsFollowDefinitionOrder(t *testing.T) {
	override := "pub fn zeta() {}\n\npub fn alpha() {}\n\npub fn mid() {}\n"
	got, err := compose(t, "bellatrix", "epoch_processing", "use crate::phase0 as spec;\n\npub fn keep() {}\n", &override)
	require.NoError(t, err)

	want := Banner +
		"use crate::bellatrix as spec;\n" +
		"pub use crate::bellatrix::epoch_processing_bellatrix::zeta as zeta;\n" +
		"pub use crate::bellatrix::epoch_processing_bellatrix::alpha as alpha;\n" +
		"pub use crate::bellatrix::epoch_processing_bellatrix::mid as mid;\n" +
		"\n" +
		"pub fn keep() {}\n"
	assertText(t, want, got)
}

func TestCompose_ImportsFollowFirstRunOnly(t *testing.T) {
	base := "#![allow(clippy::all)]\n\nuse crate::phase0 as spec;\nuse std::cmp;\n\nconst X: u8 = 1;\n\nuse spec::Late;\n\npub fn f() {}\n"
	override := "pub fn g() {}\n"
	got, err := compose(t, "altair", "state_transition", base, &override)
	require.NoError(t, err)

	want := Banner +
		"#![allow(clippy::all)]\n" +
		"\n" +
		"use crate::altair as spec;\n" +
		"use std::cmp;\n" +
		"pub use crate::altair::state_transition_altair::g as g;\n" +
		"\n" +
		"const X: u8 = 1;\n" +
		"\n" +
		"use spec::Late;\n" +
		"\n" +
		"pub fn f() {}\n"
	assertText(t, want, got)
}

func TestAssemble_NoLeadingImports(t *testing.T) {
	base := mustParse(t, "pub fn f() {}\n")
	_, err := Assemble(base, NewOverrideSet("f"), "altair", "helpers", DefaultRules())
	assert.ErrorIs(t, err, ErrNoLeadingImports)
}

func TestAssemble_DoesNotMutateInput(t *testing.T) {
	base := mustParse(t, baseSrc)
	before := syntax.Print(base)
	n := len(base.Decls)

	_, err := Assemble(base, NewOverrideSet("get_total_balance"), "altair", "helpers", DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, before, syntax.Print(base))
	assert.Len(t, base.Decls, n)
}

func TestInsertionPoint(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int
	}{
		{"imports first", "use a;\nuse b;\nfn f() {}\n", 2},
		{"leading items skipped", "mod m;\nuse a;\nuse b;\nconst X: u8 = 1;\nuse c;\n", 3},
		{"imports only", "use a;\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InsertionPoint(mustParse(t, tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := InsertionPoint(mustParse(t, "fn f() {}\n"))
	assert.ErrorIs(t, err, ErrNoLeadingImports)
}

func TestRender_Banner(t *testing.T) {
	m := mustParse(t, "\n\n\nuse a;\n")
	assert.Equal(t, Banner+"use a;\n", string(Render(m)))
	assert.Equal(t, Banner, string(Render(syntax.Module{})))
}
