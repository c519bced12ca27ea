package ir

import (
	"fmt"

	"solvent/internal/astjson"
)

// RefineControlFlow expands control-flow statements into their multi-block
// shapes: if/else becomes conditional/true/false, for becomes
// init/header/body/increment/exit, while becomes pre/header/body/exit.
// Blocks without control flow pass through unchanged, so running the
// refinement twice yields the same block list.
func RefineControlFlow(blocks []*BasicBlock) []*BasicBlock {
	if len(blocks) == 0 {
		return nil
	}

	refined := make([]*BasicBlock, 0, len(blocks))
	counter := len(blocks)

	for idx, block := range blocks {
		nextID := ""
		if idx+1 < len(blocks) {
			nextID = blocks[idx+1].ID
		}

		// Already-refined blocks carry a real terminator; expanding them
		// again would mint fresh ids and break idempotence.
		if isFinalTerminator(block.Terminator) {
			refined = append(refined, block)
			continue
		}

		switch {
		case findKind(block, StmtIf) >= 0:
			refined = append(refined, refineIf(block, nextID, &counter)...)
		case findKind(block, StmtForLoop) >= 0:
			refined = append(refined, refineFor(block, nextID, &counter)...)
		case findKind(block, StmtWhileLoop) >= 0:
			refined = append(refined, refineWhile(block, nextID, &counter)...)
		default:
			refined = append(refined, block)
		}
	}
	return refined
}

func findKind(block *BasicBlock, kind StatementKind) int {
	for i, stmt := range block.Statements {
		if stmt.Kind == kind {
			return i
		}
	}
	return -1
}

func nextBlockID(counter *int) string {
	id := fmt.Sprintf("Block%d", *counter)
	*counter++
	return id
}

// refineIf splits a block hosting an IfStatement into a conditional block
// and one block per branch. Both branches jump to whatever followed the if.
func refineIf(block *BasicBlock, nextID string, counter *int) []*BasicBlock {
	ifIdx := findKind(block, StmtIf)
	ifStmt := block.Statements[ifIdx]
	condition := ifStmt.Node.Get("condition")

	conditional := newBlock(block.ID)
	conditional.Statements = append(conditional.Statements, block.Statements[:ifIdx+1]...)

	trueBlock := newBlock(nextBlockID(counter))
	trueBlock.Statements = branchStatements(ifStmt.Node.Get("trueBody"))

	falseBlock := newBlock(nextBlockID(counter))
	falseBlock.Statements = branchStatements(ifStmt.Node.Get("falseBody"))

	conditional.Terminator = fmt.Sprintf("if %s then goto %s else goto %s",
		ExprString(condition), trueBlock.ID, falseBlock.ID)

	trueBlock.Terminator = branchTerminator(trueBlock, nextID)
	falseBlock.Terminator = branchTerminator(falseBlock, nextID)

	return []*BasicBlock{conditional, trueBlock, falseBlock}
}

// branchTerminator terminates a branch block: an early exit in the branch
// wins over the jump to the join point.
func branchTerminator(block *BasicBlock, nextID string) string {
	if n := len(block.Statements); n > 0 {
		switch block.Statements[n-1].Kind {
		case StmtReturn:
			return "return"
		case StmtRevert:
			return "revert"
		}
	}
	if nextID == "" {
		return ""
	}
	return "goto " + nextID
}

// refineFor expands a ForStatement into the five-block loop shape. The
// back-edge is increment -> header.
func refineFor(block *BasicBlock, nextID string, counter *int) []*BasicBlock {
	loopIdx := findKind(block, StmtForLoop)
	loopNode := block.Statements[loopIdx].Node

	initNode := loopNode.Get("initializationExpression")
	condition := loopNode.Get("condition")
	increment := loopNode.Get("loopExpression")

	initBlock := newBlock(block.ID)
	initBlock.IsLoopInit = true
	initBlock.Statements = append(initBlock.Statements, block.Statements[:loopIdx]...)
	if initNode != nil {
		initBlock.Statements = append(initBlock.Statements,
			Statement{Kind: ClassifyStatement(initNode), Node: initNode})
	}

	header := newBlock(nextBlockID(counter))
	header.IsLoopHeader = true
	if condition != nil {
		header.Statements = append(header.Statements, conditionStatement(condition))
	}

	body := newBlock(nextBlockID(counter))
	body.IsLoopBody = true
	body.Statements = branchStatements(loopNode.Get("body"))

	incrementBlock := newBlock(nextBlockID(counter))
	incrementBlock.IsLoopIncrement = true
	if increment != nil {
		incrementBlock.Statements = append(incrementBlock.Statements,
			Statement{Kind: ClassifyStatement(increment), Node: increment})
	}

	exit := newBlock(nextBlockID(counter))
	exit.IsLoopExit = true

	initBlock.Terminator = "goto " + header.ID
	header.Terminator = fmt.Sprintf("if %s then goto %s else goto %s",
		ExprString(condition), body.ID, exit.ID)
	body.Terminator = "goto " + incrementBlock.ID
	incrementBlock.Terminator = "goto " + header.ID
	if nextID != "" {
		exit.Terminator = "goto " + nextID
	}

	return []*BasicBlock{initBlock, header, body, incrementBlock, exit}
}

// refineWhile expands a WhileStatement into the four-block loop shape. The
// back-edge is body -> header.
func refineWhile(block *BasicBlock, nextID string, counter *int) []*BasicBlock {
	loopIdx := findKind(block, StmtWhileLoop)
	loopNode := block.Statements[loopIdx].Node
	condition := loopNode.Get("condition")

	pre := newBlock(block.ID)
	pre.Statements = append(pre.Statements, block.Statements[:loopIdx]...)

	header := newBlock(nextBlockID(counter))
	header.IsLoopHeader = true
	if condition != nil {
		header.Statements = append(header.Statements, conditionStatement(condition))
	}

	body := newBlock(nextBlockID(counter))
	body.IsLoopBody = true
	body.Statements = branchStatements(loopNode.Get("body"))

	exit := newBlock(nextBlockID(counter))
	exit.IsLoopExit = true

	pre.Terminator = "goto " + header.ID
	header.Terminator = fmt.Sprintf("if %s then goto %s else goto %s",
		ExprString(condition), body.ID, exit.ID)
	body.Terminator = "goto " + header.ID
	if nextID != "" {
		exit.Terminator = "goto " + nextID
	}

	return []*BasicBlock{pre, header, body, exit}
}

// branchStatements classifies the statements of a branch or loop body. The
// body may be a Block node or a single bare statement.
func branchStatements(body astjson.Node) []Statement {
	if body == nil {
		return nil
	}
	if body.Type() == "Block" {
		return ClassifyStatements(body.List("statements"))
	}
	return []Statement{{Kind: ClassifyStatement(body), Node: body}}
}

// conditionStatement wraps a loop condition expression as the header's sole
// statement so access tracking and SSA emission see its reads.
func conditionStatement(condition astjson.Node) Statement {
	wrapper := astjson.Node{"nodeType": "Expression", "expression": map[string]any(condition)}
	return Statement{Kind: StmtExpression, Node: wrapper}
}
