package ir

import "fmt"

// splitTerminators are the statement kinds that always end a basic block.
var splitTerminators = map[StatementKind]bool{
	StmtIf:        true,
	StmtForLoop:   true,
	StmtWhileLoop: true,
	StmtReturn:    true,
	StmtEmit:      true,
	StmtRevert:    true,
}

// effectfulTerminators end a block only when more statements follow, so the
// final statement of a function never produces an empty tail block.
var effectfulTerminators = map[StatementKind]bool{
	StmtFunctionCall: true,
	StmtAssignment:   true,
	StmtVarDecl:      true,
}

// SplitIntoBasicBlocks slices a classified statement list into initial basic
// blocks. Control-flow statements and effectful statements (calls,
// assignments, declarations, emits, reverts) terminate blocks; the terminator
// field carries the splitting kind until control-flow refinement and
// finalization replace it with a real terminator.
func SplitIntoBasicBlocks(statements []Statement) []*BasicBlock {
	var blocks []*BasicBlock
	counter := 0
	current := newBlock("Block0")

	for i, stmt := range statements {
		current.Statements = append(current.Statements, stmt)

		terminates := splitTerminators[stmt.Kind] ||
			(effectfulTerminators[stmt.Kind] && i < len(statements)-1)
		if !terminates {
			continue
		}

		current.Terminator = string(stmt.Kind)
		blocks = append(blocks, current)
		counter++
		current = newBlock(fmt.Sprintf("Block%d", counter))
	}

	if len(current.Statements) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}
