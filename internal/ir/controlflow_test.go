package ir

import (
	"strings"
	"testing"
)

func TestRefineIfProducesConditionalShape(t *testing.T) {
	blocks := RefineControlFlow(SplitIntoBasicBlocks(classify(
		ifStmt(binop(ident("x"), ">", lit("10")),
			[]any{assign(ident("y"), "=", lit("1"))},
			[]any{assign(ident("y"), "=", lit("2"))}),
		returnStmt(nil),
	)))

	if len(blocks) != 4 {
		t.Fatalf("expected 4 blocks (cond, true, false, next), got %d: %v", len(blocks), blockIDs(blocks))
	}

	cond := blocks[0]
	wantTerm := "if x > 10 then goto " + blocks[1].ID + " else goto " + blocks[2].ID
	if cond.Terminator != wantTerm {
		t.Errorf("conditional terminator = %q, want %q", cond.Terminator, wantTerm)
	}

	next := blocks[3].ID
	if blocks[1].Terminator != "goto "+next {
		t.Errorf("true branch terminator = %q", blocks[1].Terminator)
	}
	if blocks[2].Terminator != "goto "+next {
		t.Errorf("false branch terminator = %q", blocks[2].Terminator)
	}
	if len(blocks[2].Statements) != 1 {
		t.Errorf("false branch should hold its statement")
	}
}

func TestRefineIfWithoutElse(t *testing.T) {
	blocks := RefineControlFlow(SplitIntoBasicBlocks(classify(
		ifStmt(binop(ident("x"), ">", lit("10")), []any{callStmt(ident("revert"), lit("too big"))}, nil),
		returnStmt(nil),
	)))

	if len(blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(blocks))
	}
	if len(blocks[2].Statements) != 0 {
		t.Errorf("empty else branch should have no statements")
	}
}

func TestRefineForLoopShape(t *testing.T) {
	loop := forStmt(
		varDecl("i", "uint256", lit("0")),
		binop(ident("i"), "<", ident("n")),
		incrementExpr("i"),
		callStmt(member(ident("ext"), "ping")),
	)
	blocks := RefineControlFlow(SplitIntoBasicBlocks(classify(loop, returnStmt(nil))))

	if len(blocks) != 6 {
		t.Fatalf("expected init/header/body/increment/exit + next, got %d: %v", len(blocks), blockIDs(blocks))
	}

	init, header, body, increment, exit := blocks[0], blocks[1], blocks[2], blocks[3], blocks[4]

	if !init.IsLoopInit || !header.IsLoopHeader || !body.IsLoopBody || !increment.IsLoopIncrement || !exit.IsLoopExit {
		t.Error("loop role flags not set on the five-block shape")
	}
	if init.Terminator != "goto "+header.ID {
		t.Errorf("init terminator = %q", init.Terminator)
	}
	wantHeader := "if i < n then goto " + body.ID + " else goto " + exit.ID
	if header.Terminator != wantHeader {
		t.Errorf("header terminator = %q, want %q", header.Terminator, wantHeader)
	}
	if body.Terminator != "goto "+increment.ID {
		t.Errorf("body terminator = %q", body.Terminator)
	}
	if increment.Terminator != "goto "+header.ID {
		t.Errorf("back edge terminator = %q", increment.Terminator)
	}
	if exit.Terminator != "goto "+blocks[5].ID {
		t.Errorf("exit terminator = %q", exit.Terminator)
	}
}

func TestRefineWhileLoopShape(t *testing.T) {
	loop := whileStmt(
		binop(ident("x"), "<", lit("2")),
		incrementExpr("x"),
	)
	blocks := RefineControlFlow(SplitIntoBasicBlocks(classify(loop, returnStmt(nil))))

	if len(blocks) != 5 {
		t.Fatalf("expected pre/header/body/exit + next, got %d", len(blocks))
	}

	pre, header, body, exit := blocks[0], blocks[1], blocks[2], blocks[3]
	if !header.IsLoopHeader || !body.IsLoopBody || !exit.IsLoopExit {
		t.Error("loop role flags not set on the four-block shape")
	}
	if pre.Terminator != "goto "+header.ID {
		t.Errorf("pre terminator = %q", pre.Terminator)
	}
	if body.Terminator != "goto "+header.ID {
		t.Errorf("while back edge = %q", body.Terminator)
	}
	if !strings.HasPrefix(header.Terminator, "if x < 2 then goto ") {
		t.Errorf("header terminator = %q", header.Terminator)
	}
}

func TestRefineLeavesPlainBlocksAlone(t *testing.T) {
	blocks := SplitIntoBasicBlocks(classify(
		assign(ident("x"), "=", lit("1")),
		returnStmt(nil),
	))
	refined := RefineControlFlow(blocks)
	if len(refined) != len(blocks) {
		t.Fatalf("plain blocks were reshaped: %d -> %d", len(blocks), len(refined))
	}
}
