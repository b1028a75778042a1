package syntax

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// ParseError reports source text that could not be parsed structurally.
// Line and Column are 1-indexed.
type ParseError struct {
	Name   string
	Line   int
	Column int
	Near   string
}

func (e *ParseError) Error() string {
	if e.Near == "" {
		return fmt.Sprintf("parse %s:%d:%d: syntax error", e.Name, e.Line, e.Column)
	}
	return fmt.Sprintf("parse %s:%d:%d: syntax error near %q", e.Name, e.Line, e.Column, e.Near)
}

func newParseError(name string, src []byte, n *sitter.Node) *ParseError {
	if n == nil {
		return &ParseError{Name: name, Line: 1, Column: 1}
	}
	p := n.StartPoint()
	near := n.Content(src)
	if i := strings.IndexByte(near, '\n'); i >= 0 {
		near = near[:i]
	}
	if len(near) > 40 {
		near = near[:40]
	}
	return &ParseError{
		Name:   name,
		Line:   int(p.Row) + 1,
		Column: int(p.Column) + 1,
		Near:   strings.TrimSpace(near),
	}
}
