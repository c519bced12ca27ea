package ir

import "strings"

// FinalizeTerminators gives every block exactly one real terminator:
// conditional branch, unconditional goto, return, or revert. Blocks whose
// terminator still carries a splitting kind (Return, Revert, EmitStatement,
// Assignment, ...) are resolved here; the pass is idempotent.
func FinalizeTerminators(blocks []*BasicBlock) {
	for idx, block := range blocks {
		if isFinalTerminator(block.Terminator) {
			continue
		}

		switch StatementKind(block.Terminator) {
		case StmtReturn:
			block.Terminator = "return"
			continue
		case StmtRevert:
			block.Terminator = "revert"
			continue
		}

		// A block ending in a classified revert statement reverts even when
		// the splitter tagged it otherwise.
		if n := len(block.Statements); n > 0 {
			switch block.Statements[n-1].Kind {
			case StmtReturn:
				block.Terminator = "return"
				continue
			case StmtRevert:
				block.Terminator = "revert"
				continue
			}
		}

		// Everything else falls through: emit-terminated and plain blocks
		// jump to the next block, and the last block returns.
		if idx+1 < len(blocks) {
			block.Terminator = "goto " + blocks[idx+1].ID
		} else {
			block.Terminator = "return"
		}
	}
}

// isFinalTerminator reports whether the terminator is already one of the
// four real forms rather than a splitting kind left by earlier stages.
func isFinalTerminator(t string) bool {
	if t == "return" || t == "revert" {
		return true
	}
	if strings.HasPrefix(t, "return ") || strings.HasPrefix(t, "revert ") {
		return true
	}
	if _, ok := parseGoto(t); ok {
		return true
	}
	_, _, ok := parseConditional(t)
	return ok
}
