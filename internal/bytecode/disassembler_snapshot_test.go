package bytecode

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

// TestDisassembleSnapshot golden-tests the disassembly listing for a small
// program exercising arithmetic, a loop, and a string builtin, so a change
// to instruction encoding or operand formatting shows up as a diff instead
// of silently drifting.
func TestDisassembleSnapshot(t *testing.T) {
	chunk := compileSource(t, `
DIM total AS INTEGER
FOR i = 1 TO 3
total = total + i
NEXT i
PRINT UCASE$("done")
`)
	snaps.MatchSnapshot(t, "disassembly", DisassembleToString(chunk))
}
