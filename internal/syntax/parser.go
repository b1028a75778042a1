package syntax

import (
	"context"
	"fmt"
	"time"

	"genspec/internal/logging"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

// Parser turns Rust source into a Module using Tree-sitter.
// A Parser is not safe for concurrent use; create one per goroutine.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a new Rust parser.
func NewParser() *Parser {
	parser := sitter.NewParser()
	parser.SetLanguage(rust.GetLanguage())
	return &Parser{parser: parser}
}

// Close releases the underlying Tree-sitter parser.
func (p *Parser) Close() {
	p.parser.Close()
}

// Parse is a convenience wrapper that parses src with a throwaway Parser.
func Parse(ctx context.Context, name string, src []byte) (Module, error) {
	p := NewParser()
	defer p.Close()
	return p.Parse(ctx, name, src)
}

// Parse extracts the top-level declarations of src. name is only used in
// diagnostics. Any syntax error is reported as a *ParseError; Tree-sitter's
// error recovery is never trusted to produce a partial module.
func (p *Parser) Parse(ctx context.Context, name string, src []byte) (Module, error) {
	start := time.Now()

	tree, err := p.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return Module{}, fmt.Errorf("parse %s: %w", name, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return Module{}, newParseError(name, src, firstError(root))
	}

	var (
		mod     Module
		prevEnd uint32
	)
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if isTrivia(child) {
			// Folded into the Leading of the next declaration.
			continue
		}
		start, end := child.StartByte(), child.EndByte()
		seg := Segment{
			Pos:     len(mod.Decls),
			Leading: string(src[prevEnd:start]),
			Text:    string(src[start:end]),
		}
		ix := &indexer{src: src, base: start}
		ix.walk(child, -1)
		seg.Generics = ix.lists
		seg.Idents = ix.idents

		mod.Decls = append(mod.Decls, buildDecl(child, src, seg))
		prevEnd = end
	}
	mod.Trailer = string(src[prevEnd:])

	logging.SyntaxDebug("parsed %s: %d declarations in %v", name, len(mod.Decls), time.Since(start))
	return mod, nil
}

func buildDecl(node *sitter.Node, src []byte, seg Segment) Decl {
	switch node.Type() {
	case "function_item":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			break
		}
		bodyOffset := len(seg.Text)
		if body := node.ChildByFieldName("body"); body != nil {
			bodyOffset = int(body.StartByte() - node.StartByte())
		}
		return FunctionDecl{
			Segment:    seg,
			Name:       nameNode.Content(src),
			BodyOffset: bodyOffset,
		}

	case "use_declaration":
		decl := ImportDecl{Segment: seg}
		for i := 0; i < int(node.ChildCount()); i++ {
			if c := node.Child(i); c.Type() == "visibility_modifier" {
				decl.Visibility = c.Content(src)
			}
		}
		arg := node.ChildByFieldName("argument")
		if arg == nil {
			return decl
		}
		if arg.Type() == "use_as_clause" {
			if path := arg.ChildByFieldName("path"); path != nil {
				decl.Path = compact(path.Content(src))
			}
			if alias := arg.ChildByFieldName("alias"); alias != nil {
				decl.Alias = alias.Content(src)
			}
			return decl
		}
		decl.Path = compact(arg.Content(src))
		return decl
	}
	return Opaque{Segment: seg, Kind: node.Type()}
}

// indexer records every identifier and generic list below a declaration node.
type indexer struct {
	src    []byte
	base   uint32
	lists  []GenericList
	idents []Ident
}

// walk visits n; list is the index of the innermost enclosing generic list,
// or -1 outside of any.
func (ix *indexer) walk(n *sitter.Node, list int) {
	switch n.Type() {
	case "generic_type", "generic_type_with_turbofish":
		typ := n.ChildByFieldName("type")
		args := n.ChildByFieldName("type_arguments")
		if typ != nil {
			ix.walk(typ, list)
		}
		if args != nil {
			ix.list(args, ArgList, lastSegment(typ, ix.src))
		}
		return
	case "type_arguments":
		// Turbofish on a function or method: no owning type.
		ix.list(n, ArgList, "")
		return
	case "type_parameters":
		ix.list(n, ParamList, "")
		return
	case "identifier", "type_identifier":
		id := Ident{
			Name:   n.Content(ix.src),
			Offset: int(n.StartByte() - ix.base),
		}
		ix.idents = append(ix.idents, id)
		if list >= 0 {
			ix.lists[list].Idents = append(ix.lists[list].Idents, id)
		}
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		ix.walk(n.Child(i), list)
	}
}

func (ix *indexer) list(n *sitter.Node, kind ListKind, owner string) {
	g := GenericList{
		Kind:  kind,
		Owner: owner,
		Empty: true,
		End:   int(n.EndByte()-ix.base) - 1, // the closing '>'
	}
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		c := n.NamedChild(i)
		if isComment(c) {
			continue
		}
		g.End = int(c.EndByte() - ix.base)
		g.Empty = false
		break
	}

	idx := len(ix.lists)
	ix.lists = append(ix.lists, g)
	for i := 0; i < int(n.ChildCount()); i++ {
		ix.walk(n.Child(i), idx)
	}
}

func lastSegment(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "scoped_type_identifier", "scoped_identifier":
		if name := n.ChildByFieldName("name"); name != nil {
			return name.Content(src)
		}
	}
	return n.Content(src)
}

func isComment(n *sitter.Node) bool {
	switch n.Type() {
	case "line_comment", "block_comment":
		return true
	}
	return false
}

func isTrivia(n *sitter.Node) bool {
	return isComment(n) || n.Type() == "attribute_item"
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.HasError() || c.IsMissing() {
			if e := firstError(c); e != nil {
				return e
			}
		}
	}
	return nil
}
