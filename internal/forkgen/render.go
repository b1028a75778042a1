package forkgen

import (
	"strings"

	"genspec/internal/logging"
	"genspec/internal/syntax"
)

// Banner opens every generated module.
const Banner = "// WARNING: This file was derived by the `gen-spec` utility. DO NOT EDIT MANUALLY.\n\n"

// Render serializes m behind the banner. Blank lines at the top of m are
// dropped so the banner is always followed by exactly one blank line.
func Render(m syntax.Module) []byte {
	body := strings.TrimLeft(syntax.Print(m), "\r\n")
	out := make([]byte, 0, len(Banner)+len(body))
	out = append(out, Banner...)
	out = append(out, body...)
	logging.RenderDebug("rendered %d declarations, %d bytes", len(m.Decls), len(out))
	return out
}
