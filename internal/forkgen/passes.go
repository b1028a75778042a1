package forkgen

import (
	"strings"

	"genspec/internal/logging"
	"genspec/internal/syntax"
)

// RemoveOverrides drops every top-level function that is overridden or whose
// name carries the expiration prefix. Survivors keep their relative order.
func RemoveOverrides(st *State, m syntax.Module) (syntax.Module, error) {
	out := syntax.Module{
		Decls:   make([]syntax.Decl, 0, len(m.Decls)),
		Trailer: m.Trailer,
	}
	for _, d := range m.Decls {
		if fn, ok := d.(syntax.FunctionDecl); ok && st.drops(fn.Name) {
			logging.PipelineDebug("%s/%s: dropped %s", st.Fork, st.SourceModule, fn.Name)
			continue
		}
		out.Decls = append(out.Decls, d)
	}
	return out, nil
}

func (st *State) drops(name string) bool {
	if st.Overrides.Has(name) {
		return true
	}
	return st.Rules.ExpirePrefix != "" && strings.HasPrefix(name, st.Rules.ExpirePrefix)
}

// FixGenerics applies the generic rewrite rule when st.Fork is the rule's
// fork and is a no-op otherwise. Every argument list owned by a type whose
// name contains the trigger gains one argument, and the rule's source
// identifier is renamed at every occurrence in the declaration: generic
// lists, array lengths and bodies alike. Nested lists are only extended when
// their own owner triggers.
func FixGenerics(st *State, m syntax.Module) (syntax.Module, error) {
	rule := st.Rules.Generic
	if st.Fork != rule.Fork {
		return m, nil
	}

	out := syntax.Module{
		Decls:   make([]syntax.Decl, 0, len(m.Decls)),
		Trailer: m.Trailer,
	}
	for _, d := range m.Decls {
		if edits := genericEdits(rule, d.Syntax()); len(edits) > 0 {
			d = d.Rewrite(edits)
		}
		out.Decls = append(out.Decls, d)
	}
	return out, nil
}

func genericEdits(rule GenericRewriteRule, seg syntax.Segment) []syntax.Edit {
	var edits []syntax.Edit
	if rule.Trigger != "" {
		for _, g := range seg.Generics {
			if g.Kind != syntax.ArgList || !strings.Contains(g.Owner, rule.Trigger) {
				continue
			}
			sep := ", "
			if g.Empty {
				sep = ""
			}
			logging.PipelineDebug("extending %s of %s with %s", g.Kind, g.Owner, rule.Argument)
			edits = append(edits, syntax.Edit{Offset: g.End, Text: sep + rule.Argument})
		}
	}

	if rule.From != "" {
		for _, id := range seg.Idents {
			if id.Name == rule.From {
				edits = append(edits, syntax.Edit{Offset: id.Offset, Len: len(id.Name), Text: rule.To})
			}
		}
	}
	return edits
}

// ImportOverrides splices one re-export per override right after the base
// module's leading import run.
func ImportOverrides(st *State, m syntax.Module) (syntax.Module, error) {
	names := st.Overrides.Names()
	if len(names) == 0 {
		return m, nil
	}
	at := m.IndexOf(st.anchor)
	if at < 0 {
		return syntax.Module{}, ErrNoLeadingImports
	}

	decls := make([]syntax.Decl, 0, len(m.Decls)+len(names))
	decls = append(decls, m.Decls[:at+1]...)
	for _, name := range names {
		imp := OverrideImport(st.Fork, st.SourceModule, name)
		decls = append(decls, syntax.WithLeading(imp, "\n"))
	}
	decls = append(decls, m.Decls[at+1:]...)

	logging.PipelineDebug("%s/%s: imported %d overrides", st.Fork, st.SourceModule, len(names))
	return syntax.Module{Decls: decls, Trailer: m.Trailer}, nil
}

// Finalize replaces the unique sentinel import with an import of the fork
// module under the same alias, keeping the sentinel's leading trivia.
func Finalize(st *State, m syntax.Module) (syntax.Module, error) {
	sentinel := Sentinel()
	var hits []int
	for i, d := range m.Decls {
		if imp, ok := d.(syntax.ImportDecl); ok && imp.Same(sentinel) {
			hits = append(hits, i)
		}
	}
	if len(hits) != 1 {
		return syntax.Module{}, &SentinelError{Import: sentinel.Text, Count: len(hits)}
	}

	i := hits[0]
	old := m.Decls[i].Syntax()
	replacement := syntax.WithPos(syntax.WithLeading(ForkImport(st.Fork), old.Leading), old.Pos)

	decls := make([]syntax.Decl, len(m.Decls))
	copy(decls, m.Decls)
	decls[i] = replacement
	return syntax.Module{Decls: decls, Trailer: m.Trailer}, nil
}
