// Package syntax maps Rust module source text onto an ordered list of top-level
// declarations and back.
//
// The tree is deliberately shallow: a declaration keeps its exact source text,
// the trivia that precedes it, and an index of the bracketed generic lists it
// contains. That is enough to drop, splice and patch whole declarations while
// printing everything else byte for byte.
package syntax

import (
	"fmt"
	"strings"
)

// ListKind distinguishes generic parameter lists from generic argument lists.
type ListKind int

const (
	// ParamList is a `<...>` list declaring generic parameters (fn, struct, impl, type).
	ParamList ListKind = iota
	// ArgList is a `<...>` list applying arguments to a type reference.
	ArgList
)

func (k ListKind) String() string {
	if k == ParamList {
		return "params"
	}
	return "args"
}

// Ident is an identifier occurring in a declaration.
// Offset is relative to the owning declaration's Text.
type Ident struct {
	Name   string
	Offset int
}

// GenericList indexes one bracketed generic list inside a declaration.
type GenericList struct {
	Kind ListKind
	// Owner is the last path segment of the type reference an ArgList applies
	// to. Empty for parameter lists.
	Owner string
	// End is the offset just past the last element, where another element can
	// be appended. For an empty list it is the offset of the closing '>'.
	End int
	// Empty reports whether the list has no elements.
	Empty bool
	// Idents holds identifiers that belong to this list and not to a nested one.
	Idents []Ident
}

// Segment is the slice of source a declaration occupies.
type Segment struct {
	// Pos is the ordinal of the declaration in the parsed module, -1 for
	// synthesized declarations. It survives every rewrite.
	Pos int
	// Leading holds whitespace, comments and outer attributes between the
	// previous declaration and this one.
	Leading string
	// Text is the declaration itself.
	Text     string
	Generics []GenericList
	// Idents holds every identifier in Text, in source order, including those
	// inside generic lists.
	Idents []Ident
}

// Decl is a top-level declaration: FunctionDecl, ImportDecl or Opaque.
type Decl interface {
	Syntax() Segment
	// Rewrite returns a copy of the declaration with edits applied to its Text.
	Rewrite(edits []Edit) Decl
	isDecl()
}

// FunctionDecl is a free `fn` item.
type FunctionDecl struct {
	Segment
	Name string
	// BodyOffset is where the body block starts in Text, or len(Text) for a
	// body-less signature.
	BodyOffset int
}

// Signature returns everything before the body: attributes excluded,
// visibility, name, generic parameters, parameters and return type included.
func (d FunctionDecl) Signature() string {
	return strings.TrimSpace(d.Text[:d.BodyOffset])
}

// Body returns the body block text.
func (d FunctionDecl) Body() string {
	return d.Text[d.BodyOffset:]
}

// GenericParams returns the function's own generic parameter list, if any.
func (d FunctionDecl) GenericParams() (GenericList, bool) {
	for _, g := range d.Generics {
		if g.Kind == ParamList && g.End <= d.BodyOffset {
			return g, true
		}
	}
	return GenericList{}, false
}

func (d FunctionDecl) Syntax() Segment { return d.Segment }
func (FunctionDecl) isDecl()           {}

func (d FunctionDecl) Rewrite(edits []Edit) Decl {
	seg, shift := d.Segment.apply(edits)
	d.Segment = seg
	d.BodyOffset = shift(d.BodyOffset)
	return d
}

// ImportDecl is a `use` item.
type ImportDecl struct {
	Segment
	// Visibility is the raw visibility modifier ("", "pub", "pub(crate)", ...).
	Visibility string
	// Path is the imported path with whitespace removed, excluding the alias.
	Path string
	// Alias is the local name bound by `as`, empty when absent.
	Alias string
}

// NewImport builds a synthesized import with canonical formatting. The result
// has no leading trivia; callers decide how it is separated from its
// neighbours.
func NewImport(visibility, path, alias string) ImportDecl {
	var b strings.Builder
	if visibility != "" {
		b.WriteString(visibility)
		b.WriteByte(' ')
	}
	b.WriteString("use ")
	b.WriteString(path)
	if alias != "" {
		fmt.Fprintf(&b, " as %s", alias)
	}
	b.WriteByte(';')
	return ImportDecl{
		Segment:    Segment{Pos: -1, Text: b.String()},
		Visibility: visibility,
		Path:       path,
		Alias:      alias,
	}
}

// Same reports whether two imports bind the same path under the same alias
// with the same visibility, ignoring formatting and trivia.
func (d ImportDecl) Same(other ImportDecl) bool {
	return compact(d.Visibility) == compact(other.Visibility) &&
		d.Path == other.Path &&
		d.Alias == other.Alias
}

func (d ImportDecl) Syntax() Segment { return d.Segment }
func (ImportDecl) isDecl()           {}

func (d ImportDecl) Rewrite(edits []Edit) Decl {
	d.Segment, _ = d.Segment.apply(edits)
	return d
}

// Opaque is any other item; it is carried through untouched apart from
// generic-list edits.
type Opaque struct {
	Segment
	// Kind is the tree-sitter node type, e.g. "const_item" or "struct_item".
	Kind string
}

func (d Opaque) Syntax() Segment { return d.Segment }
func (Opaque) isDecl()           {}

func (d Opaque) Rewrite(edits []Edit) Decl {
	d.Segment, _ = d.Segment.apply(edits)
	return d
}

// WithLeading returns a copy of decl whose leading trivia is replaced.
func WithLeading(decl Decl, leading string) Decl {
	switch d := decl.(type) {
	case FunctionDecl:
		d.Leading = leading
		return d
	case ImportDecl:
		d.Leading = leading
		return d
	case Opaque:
		d.Leading = leading
		return d
	}
	return decl
}

// WithPos returns a copy of decl carrying the given ordinal.
func WithPos(decl Decl, pos int) Decl {
	switch d := decl.(type) {
	case FunctionDecl:
		d.Pos = pos
		return d
	case ImportDecl:
		d.Pos = pos
		return d
	case Opaque:
		d.Pos = pos
		return d
	}
	return decl
}

// Module is an ordered sequence of top-level declarations.
type Module struct {
	Decls []Decl
	// Trailer is the trivia after the last declaration.
	Trailer string
}

// Functions returns the module's top-level function declarations in order.
func (m Module) Functions() []FunctionDecl {
	var out []FunctionDecl
	for _, d := range m.Decls {
		if fn, ok := d.(FunctionDecl); ok {
			out = append(out, fn)
		}
	}
	return out
}

// Imports returns the module's top-level import declarations in order.
func (m Module) Imports() []ImportDecl {
	var out []ImportDecl
	for _, d := range m.Decls {
		if imp, ok := d.(ImportDecl); ok {
			out = append(out, imp)
		}
	}
	return out
}

// IndexOf returns the index of the declaration with the given ordinal, or -1.
func (m Module) IndexOf(pos int) int {
	for i, d := range m.Decls {
		if d.Syntax().Pos == pos {
			return i
		}
	}
	return -1
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
