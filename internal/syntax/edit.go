package syntax

import (
	"sort"
	"strings"
)

// Edit replaces Len bytes at Offset of a declaration's Text with Text.
// Len 0 is a pure insertion.
type Edit struct {
	Offset int
	Len    int
	Text   string
}

// apply returns a copy of s with the edits applied, plus a function that maps
// pre-edit offsets to post-edit ones. Edits must not overlap. The identifier
// and generic indexes are rebased: offsets move with the text and an
// identifier whose span was replaced exactly takes the replacement as its
// name. Text inserted at a list's End marks the list non-empty but is not
// itself indexed.
func (s Segment) apply(edits []Edit) (Segment, func(int) int) {
	if len(edits) == 0 {
		return s, func(off int) int { return off }
	}

	ordered := make([]Edit, len(edits))
	copy(ordered, edits)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Offset > ordered[j].Offset
	})

	var b strings.Builder
	text := s.Text
	for _, e := range ordered {
		b.Reset()
		b.WriteString(text[:e.Offset])
		b.WriteString(e.Text)
		b.WriteString(text[e.Offset+e.Len:])
		text = b.String()
	}

	shift := func(off int) int {
		delta := 0
		for _, e := range edits {
			if off >= e.Offset+e.Len {
				delta += len(e.Text) - e.Len
			}
		}
		return off + delta
	}

	out := s
	out.Text = text
	if len(s.Generics) > 0 {
		out.Generics = make([]GenericList, len(s.Generics))
		for i, g := range s.Generics {
			ng := g
			for _, e := range edits {
				if e.Len == 0 && e.Offset == g.End && e.Text != "" {
					ng.Empty = false
				}
			}
			ng.End = shift(g.End)
			ng.Idents = rebase(g.Idents, edits, shift)
			out.Generics[i] = ng
		}
	}
	out.Idents = rebase(s.Idents, edits, shift)
	return out, shift
}

func rebase(idents []Ident, edits []Edit, shift func(int) int) []Ident {
	if idents == nil {
		return nil
	}
	out := make([]Ident, len(idents))
	for i, id := range idents {
		nid := Ident{Name: id.Name, Offset: shift(id.Offset)}
		for _, e := range edits {
			if e.Len > 0 && e.Offset == id.Offset && e.Len == len(id.Name) {
				nid.Name = e.Text
			}
		}
		out[i] = nid
	}
	return out
}
