package syntax

import "strings"

// Print serializes m. For a freshly parsed module the output is the original
// source byte for byte.
func Print(m Module) string {
	var b strings.Builder
	for _, d := range m.Decls {
		seg := d.Syntax()
		b.WriteString(seg.Leading)
		b.WriteString(seg.Text)
	}
	b.WriteString(m.Trailer)
	return b.String()
}
