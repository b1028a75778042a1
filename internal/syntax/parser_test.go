package syntax

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helpersSrc = `//! Helpers shared by every fork.
use crate::phase0 as spec;
use crate::primitives::{Epoch, Gwei};
use spec::BeaconState;

pub const BASE_REWARD_FACTOR: u64 = 64;

/// Total effective balance of ` + "`indices`" + `.
#[inline]
pub fn get_total_balance<
    const SLOTS_PER_HISTORICAL_ROOT: usize,
    const PENDING_ATTESTATIONS_BOUND: usize,
>(
    state: &BeaconState<SLOTS_PER_HISTORICAL_ROOT, PENDING_ATTESTATIONS_BOUND>,
    indices: &[usize],
) -> Gwei {
    indices.iter().map(|i| state.balances[*i]).sum()
}

pub fn get_matching_source_attestations(epoch: Epoch) -> Vec<u64> {
    vec![epoch]
}

pub struct Wrapper<const N: usize> {
    inner: Vec<PendingAttestation<PENDING_ATTESTATIONS_BOUND>>,
}
// trailing note
`

func parse(t *testing.T, src string) Module {
	t.Helper()
	m, err := Parse(context.Background(), "test.rs", []byte(src))
	require.NoError(t, err)
	return m
}

func TestParse_RoundTrip(t *testing.T) {
	m := parse(t, helpersSrc)
	if diff := cmp.Diff(helpersSrc, Print(m)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "\n// trailing note\n", m.Trailer)
}

func TestParse_DeclarationKinds(t *testing.T) {
	m := parse(t, helpersSrc)
	require.Len(t, m.Decls, 7)

	imports := m.Imports()
	require.Len(t, imports, 3)
	assert.Equal(t, "crate::phase0", imports[0].Path)
	assert.Equal(t, "spec", imports[0].Alias)
	assert.Equal(t, "", imports[0].Visibility)
	assert.Equal(t, "crate::primitives::{Epoch,Gwei}", imports[1].Path)
	assert.Equal(t, "", imports[1].Alias)

	var names []string
	for _, fn := range m.Functions() {
		names = append(names, fn.Name)
	}
	assert.Equal(t, []string{"get_total_balance", "get_matching_source_attestations"}, names)

	c, ok := m.Decls[3].(Opaque)
	require.True(t, ok, "const should be opaque, got %T", m.Decls[3])
	assert.Equal(t, "const_item", c.Kind)

	s, ok := m.Decls[6].(Opaque)
	require.True(t, ok)
	assert.Equal(t, "struct_item", s.Kind)

	for i, d := range m.Decls {
		assert.Equal(t, i, d.Syntax().Pos)
	}
}

func TestParse_AttributesAndCommentsAreLeadingTrivia(t *testing.T) {
	m := parse(t, helpersSrc)
	fn := m.Functions()[0]

	assert.Contains(t, fn.Leading, "/// Total effective balance")
	assert.Contains(t, fn.Leading, "#[inline]")
	assert.True(t, strings.HasPrefix(fn.Text, "pub fn get_total_balance<"))
	assert.True(t, strings.HasPrefix(m.Decls[0].Syntax().Leading, "//! Helpers"))
}

func TestParse_FunctionShape(t *testing.T) {
	m := parse(t, helpersSrc)
	fn := m.Functions()[1]

	assert.Equal(t, "pub fn get_matching_source_attestations(epoch: Epoch) -> Vec<u64>", fn.Signature())
	assert.Equal(t, "{\n    vec![epoch]\n}", fn.Body())
	_, ok := fn.GenericParams()
	assert.False(t, ok)

	params, ok := m.Functions()[0].GenericParams()
	require.True(t, ok)
	assert.Equal(t, ParamList, params.Kind)
	assert.Equal(t, []string{"SLOTS_PER_HISTORICAL_ROOT", "PENDING_ATTESTATIONS_BOUND"}, identNames(params))
}

func TestParse_GenericIndex(t *testing.T) {
	src := `fn f(s: &spec::BeaconState<A, B>, b: BeaconBlock<A, B, C>) {}`
	m := parse(t, src)
	fn := m.Functions()[0]

	var owners []string
	for _, g := range fn.Generics {
		owners = append(owners, g.Owner)
	}
	assert.Equal(t, []string{"BeaconState", "BeaconBlock"}, owners)

	block := fn.Generics[1]
	assert.Equal(t, ArgList, block.Kind)
	assert.False(t, block.Empty)
	assert.Equal(t, "C", fn.Text[block.End-1:block.End])
	assert.Equal(t, []string{"A", "B", "C"}, identNames(block))
	assert.Equal(t, "args", block.Kind.String())
	assert.Equal(t, "params", ParamList.String())
}

func TestParse_NestedListsOwnTheirIdents(t *testing.T) {
	m := parse(t, helpersSrc)
	wrapper := m.Decls[6].Syntax()

	var vec, pending GenericList
	for _, g := range wrapper.Generics {
		switch g.Owner {
		case "Vec":
			vec = g
		case "PendingAttestation":
			pending = g
		}
	}
	assert.Equal(t, []string{"PendingAttestation"}, identNames(vec))
	assert.Equal(t, []string{"PENDING_ATTESTATIONS_BOUND"}, identNames(pending))
}

func TestParse_IdentIndexCoversWholeDeclaration(t *testing.T) {
	src := "fn f(a: [u8; N]) -> usize { N + m.len() }"
	fn := parse(t, src).Functions()[0]

	var names []string
	for _, id := range fn.Idents {
		names = append(names, id.Name)
		assert.Equal(t, id.Name, fn.Text[id.Offset:id.Offset+len(id.Name)])
	}
	assert.Equal(t, []string{"f", "a", "N", "N", "m"}, names)
}

func TestParse_TrailingCommaList(t *testing.T) {
	src := "pub type Block = bellatrix::BlindedBeaconBlock<\n    MAX_DEPOSITS,\n    MAX_VOLUNTARY_EXITS,\n>;\n"
	m := parse(t, src)
	seg := m.Decls[0].Syntax()
	require.Len(t, seg.Generics, 1)

	g := seg.Generics[0]
	assert.Equal(t, "BlindedBeaconBlock", g.Owner)
	assert.Equal(t, "MAX_VOLUNTARY_EXITS", seg.Text[g.End-len("MAX_VOLUNTARY_EXITS"):g.End])
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse(context.Background(), "broken.rs", []byte("use a;\n\nfn broken( {\n"))
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr), "want *ParseError, got %T", err)
	assert.Equal(t, "broken.rs", perr.Name)
	assert.GreaterOrEqual(t, perr.Line, 3)
	assert.Contains(t, perr.Error(), "broken.rs:")
}

func TestParse_EmptySource(t *testing.T) {
	m := parse(t, "")
	assert.Empty(t, m.Decls)
	assert.Equal(t, "", Print(m))
}

func TestParserReuse(t *testing.T) {
	p := NewParser()
	defer p.Close()

	for i := 0; i < 3; i++ {
		m, err := p.Parse(context.Background(), "helpers.rs", []byte(helpersSrc))
		require.NoError(t, err)
		assert.Equal(t, helpersSrc, Print(m))
	}
}

func identNames(g GenericList) []string {
	var out []string
	for _, id := range g.Idents {
		out = append(out, id.Name)
	}
	return out
}
